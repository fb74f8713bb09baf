package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/codeshell/internal/logging"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/idgen"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/aretw0/codeshell/pkg/sandbox"
	"github.com/aretw0/codeshell/pkg/transpile"
)

// maxIDAttempts bounds the retries when the generator hands out an id already in the tree.
const maxIDAttempts = 16

// Engine applies explorer and editor operations to workspace values.
// It holds no workspace state: every operation takes a workspace and returns a new one,
// leaving the input untouched.
type Engine struct {
	transpiler ports.Transpiler
	executor   ports.Executor
	ids        ports.IDGenerator
	clock      ports.Clock
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	clearOnRun bool
	runLease   time.Duration
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIDGenerator sets the source of new node ids.
func WithIDGenerator(ids ports.IDGenerator) EngineOption {
	return func(e *Engine) {
		if ids != nil {
			e.ids = ids
		}
	}
}

// WithClock sets the source of timestamps for records produced by the engine itself.
func WithClock(clock ports.Clock) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRunLease sets how long a persisted running flag is honoured.
// Past the lease the flag is treated as left over from a run that never finished.
// Zero keeps the flag until the run completes.
func WithRunLease(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.runLease = d
	}
}

// WithClearOnRun empties the console at the start of every run.
func WithClearOnRun(enabled bool) EngineOption {
	return func(e *Engine) {
		e.clearOnRun = enabled
	}
}

// NewEngine creates a new engine. A nil transpiler or executor selects the built-in one.
func NewEngine(transpiler ports.Transpiler, executor ports.Executor, opts ...EngineOption) *Engine {
	e := &Engine{
		transpiler: transpiler,
		executor:   executor,
		ids:        idgen.UUID{},
		clock:      ports.SystemClock,
		logger:     logging.NewNop(),
		runLease:   DefaultRunLease,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transpiler == nil {
		e.transpiler = transpile.New()
	}
	if e.executor == nil {
		e.executor = sandbox.New(sandbox.WithLogger(e.logger), sandbox.WithClock(e.clock))
	}
	return e
}

// Transpile compiles a buffer without touching any workspace.
func (e *Engine) Transpile(ctx context.Context, source, fileName string) (domain.CompiledArtifact, error) {
	return e.transpile(ctx, "", source, fileName)
}

func (e *Engine) transpile(ctx context.Context, workspaceID, source, fileName string) (domain.CompiledArtifact, error) {
	start := time.Now()
	artifact, err := e.transpiler.Transpile(source, fileName)
	e.emitCompile(ctx, workspaceID, fileName, time.Since(start), err)
	if err != nil {
		e.logger.DebugContext(ctx, "transpile failed", "workspace_id", workspaceID, "file", fileName, "err", err)
	}
	return artifact, err
}

// clone returns a copy of ws that the engine may modify freely.
func (e *Engine) clone(ws *domain.Workspace) *domain.Workspace {
	return ws.Snapshot()
}
