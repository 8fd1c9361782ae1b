// Package vcstest provides a recording command runner for tests of code
// that shells out to a version control tool.
package vcstest

import (
	"context"
	"strings"
	"sync"
)

// RecordingRunner satisfies vcs.Runner. It records every invocation and
// returns Err (when set) instead of running anything.
type RecordingRunner struct {
	mu    sync.Mutex
	Calls []Call
	Err   error
	// OnRun, when set, is called for every invocation before Err is
	// returned. It can inspect the process state (for example the working
	// directory) at call time.
	OnRun func(call Call)
}

// Call is one recorded Runner invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

func (r *RecordingRunner) Run(_ context.Context, dir, name string, args ...string) error {
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	r.mu.Lock()
	r.Calls = append(r.Calls, call)
	r.mu.Unlock()
	if r.OnRun != nil {
		r.OnRun(call)
	}
	return r.Err
}
