package logmerge

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/fsnotify/fsnotify"

	"github.com/kazz187/ccsetup/pkg/cerr"
)

// DebounceInterval is how long the log directory must stay quiet after a
// fragment event before the merge runs again.
const DebounceInterval = 500 * time.Millisecond

// MergeFunc receives the result of every merge run by Watch.
type MergeFunc func(ctx context.Context, doc *etree.Document, err error)

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	logger   *slog.Logger
}

func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.debounce = d
	}
}

func WithLogger(logger *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = logger
	}
}

// Watch merges once, then again every time the fragments change, until ctx
// is done. Merge failures are handed to onMerge and do not stop watching;
// a corrupt fragment is usually a build that is still being written.
func (m *Merger) Watch(ctx context.Context, outputPath string, onMerge MergeFunc, opts ...WatchOption) error {
	cfg := watchConfig{debounce: DebounceInterval, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to create fsnotify watcher", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.logDir); err != nil {
		return cerr.NewError(cerr.InvalidDirectory, "failed to watch log directory", err)
	}
	cfg.logger.InfoContext(ctx, "watching log directory", "dir", m.logDir)

	outputAbs, _ := filepath.Abs(outputPath)
	merge := func() {
		doc, err := m.MergeFiles(outputPath)
		onMerge(ctx, doc, err)
	}
	merge()

	// Armed by fragment events only; merges run on this goroutine.
	debounce := time.NewTimer(cfg.debounce)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !m.isFragmentEvent(event, outputAbs) {
				continue
			}
			cfg.logger.DebugContext(ctx, "fragment event", "op", event.Op.String(), "file", event.Name)
			debounce.Reset(cfg.debounce)
		case <-debounce.C:
			merge()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cfg.logger.WarnContext(ctx, "fsnotify error", "error", err)
		}
	}
}

func (m *Merger) isFragmentEvent(event fsnotify.Event, outputAbs string) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if ok, _ := filepath.Match(Pattern, filepath.Base(event.Name)); !ok {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	return err != nil || abs != outputAbs
}
