package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/beevik/etree"
	"github.com/fatih/color"

	"github.com/kazz187/ccsetup/internal/checkout"
	"github.com/kazz187/ccsetup/internal/config"
	"github.com/kazz187/ccsetup/internal/console"
	"github.com/kazz187/ccsetup/internal/logmerge"
	"github.com/kazz187/ccsetup/internal/vcs"
	"github.com/kazz187/ccsetup/pkg/cerr"
	"github.com/kazz187/ccsetup/pkg/clog"
	"github.com/kazz187/ccsetup/pkg/storage"
)

func newOrchestrator(logger *slog.Logger) *checkout.Orchestrator {
	runner := &vcs.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr, Logger: logger}
	reporter := console.NewPrinter(os.Stdout, !color.NoColor)
	return checkout.NewOrchestrator(runner, reporter, checkout.WithLogger(logger))
}

func runCheckout(ctx context.Context, env *config.Env, logger *slog.Logger) error {
	installDir := *checkoutInstallDir
	if installDir == "" {
		installDir = env.InstallDir
	}
	destination := *checkoutDestination
	if destination == "" {
		destination = env.Destination
	}
	return newOrchestrator(logger).Run(ctx, checkout.Request{
		ProjectName:   *checkoutProjectName,
		InstallDir:    installDir,
		Backend:       vcs.Backend(*checkoutBackend),
		RepositoryURL: *checkoutURL,
		Username:      *checkoutUsername,
		Password:      *checkoutPassword,
		Module:        *checkoutModule,
		Destination:   destination,
		DryRun:        *checkoutDryRun,
	})
}

// runApply bootstraps the profile's projects in order and stops at the first
// failure.
func runApply(ctx context.Context, env *config.Env, logger *slog.Logger) error {
	profile, err := config.LoadProfile(*applyProfile)
	if err != nil {
		return err
	}
	installDir := *applyInstallDir
	if installDir == "" {
		installDir = profile.InstallDir
	}
	if installDir == "" {
		installDir = env.InstallDir
	}

	o := newOrchestrator(logger)
	for _, p := range profile.Projects {
		destination := p.Destination
		if destination == "" {
			destination = env.Destination
		}
		err := o.Run(ctx, checkout.Request{
			ProjectName:   p.Name,
			InstallDir:    installDir,
			Backend:       vcs.Backend(p.Backend),
			RepositoryURL: p.RepositoryURL,
			Username:      p.Username,
			Password:      p.Password,
			Module:        p.Module,
			Destination:   destination,
			DryRun:        *applyDryRun,
		})
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "project bootstrapped", "project", p.Name)
	}
	return nil
}

func runMergeLogs(ctx context.Context, env *config.Env, logger *slog.Logger) error {
	merger, err := logmerge.New(*mergeLogDir)
	if err != nil {
		return err
	}

	var st storage.Storage
	if *mergePublish != "" {
		st, err = newStorage(ctx, env)
		if err != nil {
			return err
		}
	}
	publish := func(ctx context.Context, doc *etree.Document) error {
		if st == nil {
			return nil
		}
		published, err := logmerge.Publish(ctx, st, *mergePublish, doc)
		if err != nil {
			return err
		}
		if !published {
			logger.InfoContext(ctx, "aggregate log unchanged, not published", "key", *mergePublish)
			return nil
		}
		logger.InfoContext(ctx, "published aggregate log", "key", *mergePublish, "storage", env.StorageEnv.Type)
		return nil
	}

	if !*mergeWatch {
		doc, err := merger.MergeFiles(*mergeOutput)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "merged build logs", "fragments", len(doc.Root().ChildElements()), "output", *mergeOutput)
		return publish(ctx, doc)
	}

	return merger.Watch(ctx, *mergeOutput, func(ctx context.Context, doc *etree.Document, err error) {
		if err != nil {
			clog.LogError(ctx, logger, "merge failed", err)
			return
		}
		logger.InfoContext(ctx, "merged build logs", "fragments", len(doc.Root().ChildElements()), "output", *mergeOutput)
		if err := publish(ctx, doc); err != nil {
			clog.LogError(ctx, logger, "publish failed", err)
		}
	}, logmerge.WithLogger(logger))
}

func newStorage(ctx context.Context, env *config.Env) (storage.Storage, error) {
	switch env.StorageEnv.Type {
	case "s3":
		st, err := storage.NewS3Storage(ctx, env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, "failed to create S3 storage", err)
		}
		return st, nil
	case "local", "":
		st, err := storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "failed to create local storage", err)
		}
		return st, nil
	default:
		return nil, cerr.Errorf(cerr.InvalidArgument, "unknown storage type %q", env.StorageEnv.Type)
	}
}
