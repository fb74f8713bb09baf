package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/codeshell/internal/logging"
	loamadapter "github.com/aretw0/codeshell/pkg/adapters/loam"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// WatchOptions configures watch mode.
type WatchOptions struct {
	// File is a local source file mirrored into the workspace on every change.
	// When empty the Loam archive given as seed is watched instead.
	File string
	// Node is the workspace path or '#'-id that receives File. Defaults to the open
	// file, or a new top-level file named after File.
	Node string
	// Debounce is the quiet period after the last event on File before a change is reported.
	Debounce time.Duration
}

// Watcher reports changes by name until ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// FileWatcher watches a single file through fsnotify.
type FileWatcher struct {
	Path     string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watch emits the path once per burst of writes to the file.
// The parent directory is watched because editors often save by replacing the file.
func (f *FileWatcher) Watch(ctx context.Context) (<-chan string, error) {
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", f.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", f.Path, err)
	}

	debounce := f.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := f.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case ch <- f.Path:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error", "file", f.Path, "err", err)
			}
		}
	}()
	return ch, nil
}

// RunWatch rebuilds the workspace and reruns the program every time the source changes.
// It returns when ctx is cancelled.
func RunWatch(ctx context.Context, opts Options, wopts WatchOptions, w io.Writer) error {
	if wopts.File == "" && opts.SeedPath == "" {
		return errors.New("watch needs a file or a Loam archive seed")
	}

	logger, err := NewLogger(opts.Debug, opts.LogLevel, opts.LogFormat)
	if err != nil {
		return err
	}
	logger.Info("Starting Watcher", "file", wopts.File, "seed", opts.SeedPath, "workspace_id", opts.WorkspaceID())

	for {
		again, err := runWatchIteration(ctx, opts, wopts, w, logger)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
		logger.Info("Watcher restarting")
	}
}

func runWatchIteration(parent context.Context, opts Options, wopts WatchOptions, w io.Writer, logger *slog.Logger) (bool, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Start watching before reading so a change made during the run is not lost.
	changes, err := newWatcher(opts, wopts, logger).Watch(ctx)
	if err != nil {
		return false, err
	}

	if err := watchRun(ctx, opts, wopts, w); err != nil {
		if parent.Err() != nil {
			return false, nil
		}
		logger.Error("Watch run failed", "err", err)
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	printSystemMessage(w, "Waiting for changes...")

	select {
	case <-parent.Done():
		logger.Info("Stopping watcher")
		return false, nil
	case name, ok := <-changes:
		if !ok {
			return false, nil
		}
		printSystemMessage(w, "Change detected in '%s'.", name)
		return true, nil
	}
}

func newWatcher(opts Options, wopts WatchOptions, logger *slog.Logger) Watcher {
	if wopts.File != "" {
		return &FileWatcher{Path: wopts.File, Debounce: wopts.Debounce, Logger: logger}
	}
	return &archiveWatcher{dir: opts.SeedPath}
}

type archiveWatcher struct {
	dir string
}

func (a *archiveWatcher) Watch(ctx context.Context) (<-chan string, error) {
	archive, err := loamadapter.Open(a.dir, true)
	if err != nil {
		return nil, err
	}
	return archive.Watch(ctx)
}

// watchRun builds a fresh app, mirrors the watched file and runs the open program.
func watchRun(ctx context.Context, opts Options, wopts WatchOptions, w io.Writer) error {
	app, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if wopts.File != "" {
		if err := mirror(ctx, app, wopts); err != nil {
			return err
		}
	}

	err = Run(ctx, app, w, "")
	if errors.Is(err, ErrRunFailed) {
		return nil
	}
	return err
}

// mirror writes the local file into its workspace node and opens it.
func mirror(ctx context.Context, app *App, wopts WatchOptions) error {
	data, err := os.ReadFile(wopts.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", wopts.File, err)
	}

	ws, err := app.Shell.Open(ctx, app.WorkspaceID)
	if err != nil {
		return err
	}

	var nodeID string
	switch {
	case wopts.Node != "":
		node := FindTarget(ws.Tree, wopts.Node)
		if node == nil {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, wopts.Node)
		}
		if !node.IsFile() {
			return fmt.Errorf("%s: %w", wopts.Node, domain.ErrNotAFile)
		}
		nodeID = node.ID
	case ws.Editor.HasSelection():
		nodeID = ws.Editor.SelectedFileID
	default:
		if _, nodeID, err = app.Shell.AddNode(ctx, app.WorkspaceID, "", domain.KindFile); err != nil {
			return err
		}
		if _, err = app.Shell.RenameNode(ctx, app.WorkspaceID, nodeID, filepath.Base(wopts.File)); err != nil {
			return err
		}
	}

	if _, err := app.Shell.SetContent(ctx, app.WorkspaceID, nodeID, string(data)); err != nil {
		return err
	}
	_, err = app.Shell.Select(ctx, app.WorkspaceID, nodeID)
	return err
}
