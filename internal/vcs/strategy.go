// Package vcs builds the checkout and update invocations for the supported
// version control backends and runs the initial checkout.
package vcs

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kazz187/ccsetup/pkg/cerr"
)

// Backend names a version control system. The set is closed: New rejects
// anything but the constants below.
type Backend string

const (
	SVN Backend = "svn"
	CVS Backend = "cvs"
	Git Backend = "git"
)

// Backends lists the supported backends in the order they are documented.
var Backends = []Backend{SVN, CVS, Git}

func ParseBackend(name string) (Backend, error) {
	for _, b := range Backends {
		if string(b) == name {
			return b, nil
		}
	}
	return "", cerr.NewError(cerr.UnsupportedBackend, fmt.Sprintf("unsupported version control backend %q", name), nil)
}

func (b Backend) String() string {
	return string(b)
}

// Options are the inputs of New. Username, Password and Module are optional;
// Module is required for CVS.
type Options struct {
	Backend       Backend
	RepositoryURL string
	Username      string
	Password      string
	Module        string
	Destination   string
}

// CommandSpec is the backend specific pair of invocations derived from
// Options.
type CommandSpec struct {
	// CheckoutArgs are the arguments of the initial checkout, without the
	// executable.
	CheckoutArgs []string
	// UpdateCommandLine is the argument line the CI build runs on every build
	// from inside the working copy.
	UpdateCommandLine string
}

// Strategy holds the checkout configuration of one project.
type Strategy struct {
	opts Options
	spec CommandSpec
}

// New validates opts and derives the command spec for the selected backend.
func New(opts Options) (*Strategy, error) {
	if _, err := ParseBackend(string(opts.Backend)); err != nil {
		return nil, err
	}
	if opts.RepositoryURL == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "repository url is required", nil)
	}
	if opts.Destination == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "checkout destination is required", nil)
	}

	var (
		spec CommandSpec
		err  error
	)
	switch opts.Backend {
	case SVN:
		spec = svnSpec(opts)
	case CVS:
		spec, err = cvsSpec(opts)
	case Git:
		spec, err = gitSpec(opts)
	}
	if err != nil {
		return nil, err
	}
	return &Strategy{opts: opts, spec: spec}, nil
}

func (s *Strategy) Backend() Backend {
	return s.opts.Backend
}

func (s *Strategy) Destination() string {
	return s.opts.Destination
}

func (s *Strategy) Spec() CommandSpec {
	return CommandSpec{
		CheckoutArgs:      append([]string(nil), s.spec.CheckoutArgs...),
		UpdateCommandLine: s.spec.UpdateCommandLine,
	}
}

// UpdateCommandLine returns the argument line that brings the working copy up
// to date. It has no side effects.
func (s *Strategy) UpdateCommandLine() string {
	return s.spec.UpdateCommandLine
}

// Checkout runs the initial checkout into Destination, resolved against the
// current working directory.
func (s *Strategy) Checkout(ctx context.Context, runner Runner) error {
	err := runner.Run(ctx, "", string(s.opts.Backend), s.spec.CheckoutArgs...)
	if err == nil {
		return nil
	}
	if execErr, ok := asExecutionError(err); ok {
		execErr.Backend = s.opts.Backend
		return cerr.NewError(cerr.CheckoutExecution,
			fmt.Sprintf("%s checkout of %s failed", s.opts.Backend, redactURL(s.opts.RepositoryURL)), execErr)
	}
	return cerr.NewError(cerr.CheckoutExecution,
		fmt.Sprintf("cannot run %s checkout", s.opts.Backend), err)
}

func svnSpec(opts Options) CommandSpec {
	var auth []string
	if opts.Username != "" {
		auth = append(auth, "--username", opts.Username)
	}
	if opts.Password != "" {
		auth = append(auth, "--password", opts.Password)
	}
	auth = append(auth, "--non-interactive")

	checkout := append([]string{"checkout"}, auth...)
	checkout = append(checkout, opts.RepositoryURL, opts.Destination)
	return CommandSpec{
		CheckoutArgs:      checkout,
		UpdateCommandLine: joinArgs(append([]string{"update"}, auth...)),
	}
}

func cvsSpec(opts Options) (CommandSpec, error) {
	if opts.Module == "" {
		return CommandSpec{}, cerr.NewError(cerr.MissingModule, "cvs checkout requires a module", nil)
	}
	root, err := cvsRoot(opts.RepositoryURL, opts.Username, opts.Password)
	if err != nil {
		return CommandSpec{}, err
	}
	return CommandSpec{
		CheckoutArgs:      []string{"-d", root, "checkout", "-d", opts.Destination, opts.Module},
		UpdateCommandLine: joinArgs([]string{"-d", root, "update", "-d"}),
	}, nil
}

func gitSpec(opts Options) (CommandSpec, error) {
	repo, err := gitURL(opts.RepositoryURL, opts.Username, opts.Password)
	if err != nil {
		return CommandSpec{}, err
	}
	return CommandSpec{
		CheckoutArgs:      []string{"clone", repo, opts.Destination},
		UpdateCommandLine: "pull",
	}, nil
}

// cvsRoot embeds credentials into a pserver CVSROOT:
// :pserver:user:password@host:/path. A root without a method prefix is
// treated as pserver.
func cvsRoot(root, username, password string) (string, error) {
	const pserver = ":pserver:"
	if !strings.HasPrefix(root, ":") {
		root = pserver + root
	}
	if username == "" && password == "" {
		return root, nil
	}
	if !strings.HasPrefix(root, pserver) {
		return "", cerr.NewError(cerr.InvalidArgument,
			"cvs credentials are only supported for :pserver: roots", nil)
	}
	rest := strings.TrimPrefix(root, pserver)
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		if username == "" {
			// keep the user already present in the root
			username, _, _ = strings.Cut(rest[:at], ":")
		}
		rest = rest[at+1:]
	}
	if username == "" {
		return "", cerr.NewError(cerr.InvalidArgument, "cvs password given without a username", nil)
	}
	userinfo := username
	if password != "" {
		userinfo += ":" + password
	}
	return pserver + userinfo + "@" + rest, nil
}

// gitURL embeds credentials into http(s) repository URLs. Other transports
// (ssh, file) authenticate on their own and are returned unchanged.
func gitURL(raw, username, password string) (string, error) {
	if username == "" && password == "" {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return raw, nil
	}
	if username == "" {
		return "", cerr.NewError(cerr.InvalidArgument, "git password given without a username", nil)
	}
	if password != "" {
		u.User = url.UserPassword(username, password)
	} else {
		u.User = url.User(username)
	}
	return u.String(), nil
}

// redactURL hides passwords from messages.
func redactURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.User != nil {
		return u.Redacted()
	}
	return raw
}
