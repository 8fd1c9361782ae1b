package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/ccsetup/internal/config"
	"github.com/kazz187/ccsetup/pkg/cerr"
	"github.com/kazz187/ccsetup/pkg/clog"
	"github.com/kazz187/ccsetup/pkg/panicerr"
)

var (
	app = kingpin.New("ccsetup", "Bootstrap CruiseControl projects and merge their build logs")

	// Checkout
	checkoutCmd         = app.Command("checkout", "Check out a project and point config.xml and build.xml at the working copy")
	checkoutInstallDir  = checkoutCmd.Arg("cc-install-dir", "CruiseControl installation directory ($CCSETUP_CC_INSTALL_DIR)").String()
	checkoutProjectName = checkoutCmd.Flag("project-name", "The CruiseControl project name.").Short('j').Required().String()
	checkoutBackend     = checkoutCmd.Flag("version-control", "The used version control system.").Short('v').Required().Enum("svn", "cvs", "git")
	checkoutURL         = checkoutCmd.Flag("version-control-url", "The version control system project url.").Short('x').Required().String()
	checkoutUsername    = checkoutCmd.Flag("username", "Optional username for the version control system.").Short('u').String()
	checkoutPassword    = checkoutCmd.Flag("password", "Optional password for the version control system.").Short('p').String()
	checkoutDestination = checkoutCmd.Flag("destination", `A destination directory for the source code checkout. Default is "source".`).Short('d').String()
	checkoutModule      = checkoutCmd.Flag("module", "A CVS project module.").Short('m').String()
	checkoutDryRun      = checkoutCmd.Flag("dry-run", "Show the document changes without checking out or writing anything.").Bool()

	// Apply
	applyCmd        = app.Command("apply", "Run checkout for every project of a profile file")
	applyProfile    = applyCmd.Arg("profile", "Profile YAML file").Required().ExistingFile()
	applyInstallDir = applyCmd.Flag("cc-install-dir", "Overrides install_dir of the profile.").String()
	applyDryRun     = applyCmd.Flag("dry-run", "Show the document changes without checking out or writing anything.").Bool()

	// Merge logs
	mergeCmd     = app.Command("merge-logs", "Merge the XML build log fragments of a directory into one report")
	mergeLogDir  = mergeCmd.Arg("log-dir", "Directory holding *.xml fragments").Required().String()
	mergeOutput  = mergeCmd.Arg("output", "Aggregate report file").Required().String()
	mergePublish = mergeCmd.Flag("publish", "Also publish the report to storage under this key.").String()
	mergeWatch   = mergeCmd.Flag("watch", "Keep running and re-merge when fragments change.").Bool()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.IsLocal() {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level), clog.WithColor(!color.NoColor))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(clog.NewAttributesHandler(handler))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = clog.ContextWithRun(ctx, ulid.Make().String())

	err = panicerr.RunContext(ctx, func(ctx context.Context) error {
		switch command {
		case checkoutCmd.FullCommand():
			return runCheckout(ctx, env, logger)
		case applyCmd.FullCommand():
			return runApply(ctx, env, logger)
		case mergeCmd.FullCommand():
			return runMergeLogs(ctx, env, logger)
		}
		return cerr.Errorf(cerr.InvalidArgument, "unknown command %q", command)
	})
	if err != nil {
		clog.LogError(ctx, logger, command+" failed", err)
		stop()
		os.Exit(cerr.CodeOf(err).ExitStatus())
	}
}
