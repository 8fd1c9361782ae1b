// Package checkout bootstraps a CI project: it checks out the sources and
// points the CI server's config.xml and the project's build.xml at the new
// working copy.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/ccsetup/internal/buildfile"
	"github.com/kazz187/ccsetup/internal/ccconfig"
	"github.com/kazz187/ccsetup/internal/console"
	"github.com/kazz187/ccsetup/internal/vcs"
	"github.com/kazz187/ccsetup/pkg/cerr"
	"github.com/kazz187/ccsetup/pkg/clog"
)

const (
	DefaultDestination = "source"
	// TargetName is the build.xml target that updates the working copy.
	TargetName = "checkout"
)

// Request describes one project to bootstrap.
type Request struct {
	ProjectName   string
	InstallDir    string
	Backend       vcs.Backend
	RepositoryURL string
	Username      string
	Password      string
	Module        string
	// Destination is the working copy directory inside the project
	// directory. Empty means DefaultDestination.
	Destination string
	// DryRun skips the checkout and reports the document changes instead of
	// storing them.
	DryRun bool
}

// Paths are the locations a Request resolves to.
type Paths struct {
	ProjectDir  string
	WorkingCopy string
	ConfigFile  string
	BuildFile   string
}

// Resolve returns the absolute paths the request works on.
func (r Request) Resolve() (Paths, error) {
	if err := checkPathElement("project name", r.ProjectName); err != nil {
		return Paths{}, err
	}
	if err := checkPathElement("destination", r.destination()); err != nil {
		return Paths{}, err
	}
	if r.InstallDir == "" {
		return Paths{}, cerr.NewError(cerr.InvalidArgument, "cc install dir is required", nil)
	}
	installDir, err := filepath.Abs(r.InstallDir)
	if err != nil {
		return Paths{}, cerr.NewError(cerr.InvalidDirectory, fmt.Sprintf("cannot resolve %s", r.InstallDir), err)
	}
	projectDir := filepath.Join(installDir, "projects", r.ProjectName)
	return Paths{
		ProjectDir:  projectDir,
		WorkingCopy: filepath.Join(projectDir, r.destination()),
		ConfigFile:  filepath.Join(installDir, "config.xml"),
		BuildFile:   filepath.Join(projectDir, "build.xml"),
	}, nil
}

// checkPathElement keeps value a single directory name, so the resolved
// paths stay below <install>/projects.
func checkPathElement(what, value string) error {
	switch {
	case value == "":
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("%s is required", what), nil)
	case value == "." || value == "..",
		strings.ContainsAny(value, `/\`),
		filepath.IsAbs(value),
		filepath.VolumeName(value) != "":
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("%s %q must be a plain directory name", what, value), nil)
	}
	return nil
}

func (r Request) destination() string {
	if r.Destination == "" {
		return DefaultDestination
	}
	return r.Destination
}

// Orchestrator runs the bootstrap steps in order.
type Orchestrator struct {
	runner   vcs.Runner
	reporter console.Reporter
	logger   *slog.Logger
	lookup   func(vcs.Backend) string
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithExecutableLookup replaces the resolution of the backend tool written
// to build.xml.
func WithExecutableLookup(lookup func(vcs.Backend) string) Option {
	return func(o *Orchestrator) {
		o.lookup = lookup
	}
}

func NewOrchestrator(runner vcs.Runner, reporter console.Reporter, opts ...Option) *Orchestrator {
	if reporter == nil {
		reporter = console.Discard
	}
	o := &Orchestrator{
		runner:   runner,
		reporter: reporter,
		logger:   slog.Default(),
		lookup:   vcs.LookupExecutable,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run checks out the sources and rewrites config.xml and build.xml. Each step
// finishes before the next starts. Documents already stored when a later step
// fails are not rolled back.
func (o *Orchestrator) Run(ctx context.Context, req Request) error {
	paths, err := req.Resolve()
	if err != nil {
		return err
	}
	strategy, err := vcs.New(vcs.Options{
		Backend:       req.Backend,
		RepositoryURL: req.RepositoryURL,
		Username:      req.Username,
		Password:      req.Password,
		Module:        req.Module,
		Destination:   req.destination(),
	})
	if err != nil {
		return err
	}

	if clog.RunID(ctx) == "" {
		ctx = clog.ContextWithRun(ctx, ulid.Make().String())
	}
	clog.AddAttributes(ctx, map[string]any{
		"project": req.ProjectName,
		"backend": req.Backend.String(),
	})

	o.reporter.Section("Performing checkout task.")
	defer o.reporter.End()

	if err := o.checkout(ctx, req, paths, strategy); err != nil {
		return err
	}
	if err := o.prepareConfig(ctx, req, paths); err != nil {
		return err
	}
	return o.prepareBuildFile(ctx, req, paths, strategy)
}

func (o *Orchestrator) checkout(ctx context.Context, req Request, paths Paths, strategy *vcs.Strategy) error {
	if req.DryRun {
		o.reporter.Item("Skipping checkout into %s (dry run).", paths.WorkingCopy)
		return nil
	}
	o.reporter.Item("Checking out project.")
	if err := os.MkdirAll(paths.ProjectDir, 0o755); err != nil {
		return cerr.NewError(cerr.InvalidDirectory, fmt.Sprintf("cannot create project directory %s", paths.ProjectDir), err)
	}
	o.logger.InfoContext(ctx, "checking out", "dir", paths.ProjectDir, "destination", strategy.Destination())
	return WithWorkDir(paths.ProjectDir, func() error {
		return strategy.Checkout(ctx, o.runner)
	})
}

func (o *Orchestrator) prepareConfig(ctx context.Context, req Request, paths Paths) error {
	o.reporter.Item("Preparing config.xml file.")
	doc, err := ccconfig.Open(paths.ConfigFile)
	if err != nil {
		return err
	}
	if err := doc.Project(req.ProjectName).AttachWorkingCopy(req.Backend.String(), paths.WorkingCopy); err != nil {
		return err
	}
	return o.store(ctx, doc, req.DryRun)
}

func (o *Orchestrator) prepareBuildFile(ctx context.Context, req Request, paths Paths, strategy *vcs.Strategy) error {
	o.reporter.Item("Preparing build.xml checkout target.")
	doc, err := buildfile.Open(paths.BuildFile)
	if err != nil {
		return err
	}
	target := doc.CreateBuildTarget(TargetName)
	if err := target.SetExecutable(o.lookup(req.Backend)); err != nil {
		return err
	}
	target.SetDir(paths.WorkingCopy)
	target.SetArgLine(strategy.UpdateCommandLine())
	target.SetFailOnError(true)
	return o.store(ctx, doc, req.DryRun)
}

type storable interface {
	Path() string
	Store() error
	Diff() (string, error)
}

func (o *Orchestrator) store(ctx context.Context, doc storable, dryRun bool) error {
	if !dryRun {
		if err := doc.Store(); err != nil {
			return err
		}
		o.logger.InfoContext(ctx, "stored document", "path", doc.Path())
		return nil
	}
	diff, err := doc.Diff()
	if err != nil {
		return cerr.NewError(cerr.Internal, fmt.Sprintf("failed to diff %s", doc.Path()), err)
	}
	if diff == "" {
		o.reporter.Item("%s is up to date.", doc.Path())
		return nil
	}
	o.reporter.Block(diff)
	return nil
}
