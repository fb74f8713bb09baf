package codeshell

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/codeshell/internal/logging"
	"github.com/aretw0/codeshell/internal/runtime"
	"github.com/aretw0/codeshell/pkg/adapters/memory"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/idgen"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/aretw0/codeshell/pkg/sandbox"
	"github.com/aretw0/codeshell/pkg/seed"
	"github.com/aretw0/codeshell/pkg/session"
	"github.com/aretw0/codeshell/pkg/transpile"
)

// Shell is the high-level entry point of the library.
// It owns a set of workspaces keyed by id and serializes the operations on each of them.
// All methods are safe for concurrent use.
type Shell struct {
	runtime *runtime.Engine
	manager *session.Manager
	broker  *broker

	store      ports.WorkspaceStore
	locker     ports.DistributedLocker
	transpiler ports.Transpiler
	executor   ports.Executor
	ids        ports.IDGenerator
	clock      ports.Clock
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	seed       *seed.Seed
	runTimeout *time.Duration
	runLease   *time.Duration
	clearOnRun bool
}

// Option defines a functional option for configuring the Shell.
type Option func(*Shell)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Shell) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithStore replaces the default in-memory workspace store.
func WithStore(store ports.WorkspaceStore) Option {
	return func(s *Shell) {
		s.store = store
	}
}

// WithLocker coordinates workspace access with other processes sharing the same store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Shell) {
		s.locker = locker
	}
}

// WithIDGenerator sets the source of node ids (default: random UUIDs).
func WithIDGenerator(ids ports.IDGenerator) Option {
	return func(s *Shell) {
		s.ids = ids
	}
}

// WithClock sets the source of console timestamps.
func WithClock(clock ports.Clock) Option {
	return func(s *Shell) {
		s.clock = clock
	}
}

// WithRunTimeout bounds every run of the built-in executor. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Shell) {
		s.runTimeout = &d
	}
}

// WithRunLease sets how long a stored running flag blocks new runs when the run
// that set it never completed, e.g. because the process died. Zero never expires it.
// The default is the larger of one minute and twice the run timeout.
func WithRunLease(d time.Duration) Option {
	return func(s *Shell) {
		s.runLease = &d
	}
}

// WithClearOnRun empties the console at the start of every run.
func WithClearOnRun(enabled bool) Option {
	return func(s *Shell) {
		s.clearOnRun = enabled
	}
}

// WithSeed sets the tree given to workspaces created by Open (default: seed.Default()).
func WithSeed(sd *seed.Seed) Option {
	return func(s *Shell) {
		s.seed = sd
	}
}

// WithTranspiler replaces the built-in transpiler.
func WithTranspiler(t ports.Transpiler) Option {
	return func(s *Shell) {
		s.transpiler = t
	}
}

// WithExecutor replaces the built-in script executor.
func WithExecutor(x ports.Executor) Option {
	return func(s *Shell) {
		s.executor = x
	}
}

// New initializes a Shell.
func New(opts ...Option) *Shell {
	s := &Shell{broker: newBroker()}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}
	if s.ids == nil {
		s.ids = idgen.UUID{}
	}
	if s.clock == nil {
		s.clock = ports.SystemClock
	}
	if s.seed == nil {
		s.seed = seed.Default()
	}
	if s.transpiler == nil {
		s.transpiler = transpile.New()
	}
	if s.executor == nil {
		execOpts := []sandbox.Option{sandbox.WithLogger(s.logger), sandbox.WithClock(s.clock)}
		if s.runTimeout != nil {
			execOpts = append(execOpts, sandbox.WithTimeout(*s.runTimeout))
		}
		s.executor = sandbox.New(execOpts...)
	}

	hooks := s.hooks.Merge(domain.LifecycleHooks{OnRecord: s.broker.publish})

	s.runtime = runtime.NewEngine(s.transpiler, s.executor,
		runtime.WithLifecycleHooks(hooks),
		runtime.WithLogger(s.logger),
		runtime.WithIDGenerator(s.ids),
		runtime.WithClock(s.clock),
		runtime.WithClearOnRun(s.clearOnRun),
		runtime.WithRunLease(s.lease()),
	)
	managerOpts := []session.Option{session.WithLogger(s.logger)}
	if s.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(s.locker))
	}
	s.manager = session.NewManager(s.store, managerOpts...)
	return s
}

func (s *Shell) lease() time.Duration {
	if s.runLease != nil {
		return *s.runLease
	}
	lease := runtime.DefaultRunLease
	if s.runTimeout != nil && 2**s.runTimeout > lease {
		lease = 2 * *s.runTimeout
	}
	return lease
}

// Open returns the workspace with the given id, creating it from the seed when it does not exist.
func (s *Shell) Open(ctx context.Context, id string) (*domain.Workspace, error) {
	return s.manager.LoadOrCreate(ctx, id, s.seed.Workspace)
}

// Workspace returns an existing workspace or domain.ErrWorkspaceNotFound.
func (s *Shell) Workspace(ctx context.Context, id string) (*domain.Workspace, error) {
	return s.manager.Load(ctx, id)
}

// List returns the ids of all workspaces.
func (s *Shell) List(ctx context.Context) ([]string, error) {
	return s.manager.List(ctx)
}

// Drop deletes a workspace.
func (s *Shell) Drop(ctx context.Context, id string) error {
	return s.manager.Delete(ctx, id)
}

// AddNode appends a new file or folder under parentID ("" for the top level) and returns its id.
func (s *Shell) AddNode(ctx context.Context, id, parentID string, kind domain.NodeKind) (*domain.Workspace, string, error) {
	var nodeID string
	ws, err := s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		next, created, err := s.runtime.AddNode(ctx, ws, parentID, kind)
		nodeID = created
		return next, err
	})
	return ws, nodeID, err
}

// RenameNode renames a node. Blank or unchanged names are ignored.
func (s *Shell) RenameNode(ctx context.Context, id, nodeID, name string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.RenameNode(ctx, ws, nodeID, name)
	})
}

// SetContent overwrites the stored content of a file.
func (s *Shell) SetContent(ctx context.Context, id, nodeID, text string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.SetContent(ctx, ws, nodeID, text)
	})
}

// DeleteNode removes a node and its subtree. cleared reports whether the open file was removed.
func (s *Shell) DeleteNode(ctx context.Context, id, nodeID string) (ws *domain.Workspace, cleared bool, err error) {
	ws, err = s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		next, c, err := s.runtime.DeleteNode(ctx, ws, nodeID)
		cleared = c
		return next, err
	})
	return ws, cleared, err
}

// Select handles a click on a node: opens a file or toggles a folder.
func (s *Shell) Select(ctx context.Context, id, nodeID string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.Open(ctx, ws, nodeID)
	})
}

// Edit replaces the buffer of the open file.
func (s *Shell) Edit(ctx context.Context, id, text string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.Edit(ctx, ws, text)
	})
}

// Save writes the buffer into the open file.
func (s *Shell) Save(ctx context.Context, id string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.Save(ctx, ws)
	})
}

// Compile refreshes the compiled preview of the open file.
func (s *Shell) Compile(ctx context.Context, id string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.Compile(ctx, ws)
	})
}

// ToggleCompiled flips the compiled-output pane.
func (s *Shell) ToggleCompiled(ctx context.Context, id string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.ToggleCompiled(ctx, ws), nil
	})
}

// Close closes the open file.
func (s *Shell) Close(ctx context.Context, id string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.Close(ctx, ws), nil
	})
}

// ClearConsole empties the console of a workspace.
func (s *Shell) ClearConsole(ctx context.Context, id string) (*domain.Workspace, error) {
	return s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.ClearConsole(ctx, ws), nil
	})
}

// Transpile compiles a buffer without touching any workspace.
func (s *Shell) Transpile(ctx context.Context, source, fileName string) (domain.CompiledArtifact, error) {
	return s.runtime.Transpile(ctx, source, fileName)
}

// Run executes the buffer of the open file and appends its console output.
//
// The workspace lock is only held to mark the run as started and to store its records,
// so other operations on the workspace proceed while the code executes. A second Run
// issued meanwhile fails with domain.ErrRunInProgress.
func (s *Shell) Run(ctx context.Context, id string) (*domain.Workspace, domain.RunResult, error) {
	var job runtime.Job
	_, err := s.manager.Update(ctx, id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		next, j, err := s.runtime.PrepareRun(ctx, ws)
		job = j
		return next, err
	})
	if err != nil {
		return nil, domain.RunResult{}, err
	}

	res := s.runtime.Execute(ctx, job)

	// Records must be stored even when the caller gave up on the run.
	ws, err := s.manager.Update(context.WithoutCancel(ctx), id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
		return s.runtime.CompleteRun(ctx, ws, job, res), nil
	})
	if errors.Is(err, domain.ErrWorkspaceNotFound) {
		s.logger.Warn("Workspace dropped during run", "workspace_id", id)
		return nil, res, err
	}
	if err != nil {
		// The records are lost but the workspace must not stay marked as running.
		if _, aerr := s.manager.Update(context.WithoutCancel(ctx), id, func(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
			return s.runtime.AbortRun(ctx, ws), nil
		}); aerr != nil {
			s.logger.Error("Failed to clear running flag", "workspace_id", id, "err", aerr)
		}
		return nil, res, err
	}
	return ws, res, nil
}

// Subscribe streams the console records appended to a workspace from now on.
// Slow subscribers miss records rather than block runs. Call cancel to stop.
func (s *Shell) Subscribe(id string) (records <-chan domain.ConsoleRecord, cancel func()) {
	return s.broker.subscribe(id)
}
