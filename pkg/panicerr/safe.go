// Package panicerr turns panics raised by command handlers into errors so the
// CLI can log and exit through its normal error path.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Run calls fn and returns its error, or the recovered panic as an error.
func Run(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if err != nil {
		return err
	}
	return catcher.Recovered().AsError()
}

// RunContext is Run for handlers that take a context.
func RunContext(ctx context.Context, fn func(context.Context) error) error {
	return Run(func() error {
		return fn(ctx)
	})
}
