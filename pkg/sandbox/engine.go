package sandbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/codeshell/internal/logging"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/dop251/goja"
)

var (
	// DefaultTimeout bounds a single run.
	DefaultTimeout = 5 * time.Second
	// EnvRunTimeout overrides DefaultTimeout (Go duration syntax, "0" disables).
	EnvRunTimeout = "CODESHELL_RUN_TIMEOUT"
	// DefaultMaxRecords caps the console records of a single run.
	DefaultMaxRecords = 10000
)

// ErrRecordLimit interrupts runs that log more than the configured number of records.
var ErrRecordLimit = errors.New("console record limit reached")

// Engine implements ports.Executor on top of goja.
// It holds only configuration and is safe for concurrent use.
type Engine struct {
	clock      ports.Clock
	timeout    time.Duration
	maxRecords int
	logger     *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock sets the source of record timestamps.
func WithClock(clock ports.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithTimeout bounds every run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithMaxRecords caps the number of records per run. Zero disables the cap.
func WithMaxRecords(n int) Option {
	return func(e *Engine) {
		e.maxRecords = n
	}
}

// WithLogger configures a logger for run diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine. The timeout default can be overridden through CODESHELL_RUN_TIMEOUT.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:      ports.SystemClock,
		timeout:    timeoutFromEnv(),
		maxRecords: DefaultMaxRecords,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the configured per-run bound.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Run executes the artifact synchronously and returns the captured records.
// It never panics and never returns the executed code's errors to the caller;
// they are reported in the result.
func (e *Engine) Run(ctx context.Context, artifact domain.CompiledArtifact) (res domain.RunResult) {
	start := time.Now()
	c := newCapture(e.clock, e.maxRecords)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Interpreter panic recovered", "file", artifact.FileName, "panic", r)
			c.fail(&domain.ExecutionError{Message: fmt.Sprintf("internal error: %v", r)})
		}
		res = c.result(time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		c.fail(interrupted(err))
		return
	}

	runCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	vm := goja.New()
	if err := c.install(vm); err != nil {
		c.fail(&domain.ExecutionError{Message: err.Error()})
		return
	}

	// Interrupts are delivered from a watcher goroutine; done stops it once the run ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-runCtx.Done():
			vm.Interrupt(runCtx.Err())
		case <-c.limit:
			vm.Interrupt(ErrRecordLimit)
		case <-done:
		}
	}()

	e.logger.Debug("Executing artifact", "file", artifact.FileName, "dialect", artifact.Dialect.String(), "timeout", e.timeout)

	program, err := goja.Compile(artifact.FileName, wrap(withSourceMap(artifact)), false)
	if err != nil {
		c.fail(&domain.ExecutionError{Message: err.Error()})
		return
	}

	fnValue, err := vm.RunProgram(program)
	if err != nil {
		c.fail(c.describe(err))
		return
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		c.fail(&domain.ExecutionError{Message: "compiled code did not evaluate to a function"})
		return
	}

	if _, err := fn(goja.Undefined(), c.console); err != nil {
		c.fail(c.describe(err))
	}
	return
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// wrap turns the compiled code into a function expression taking the console.
// The prefix stays on the first line so reported line numbers match the code.
func wrap(code string) string {
	return "(function (console) {" + code + "\n})"
}

// withSourceMap inlines the artifact's source map so stack positions refer to the
// original buffer. The interpreter reads it from the last line before the closing "})".
func withSourceMap(artifact domain.CompiledArtifact) string {
	if len(artifact.SourceMap) == 0 {
		return artifact.Code
	}
	return strings.TrimRight(artifact.Code, "\n") +
		"\n//# sourceMappingURL=data:application/json;base64," +
		base64.StdEncoding.EncodeToString(artifact.SourceMap)
}

func interrupted(cause any) *domain.ExecutionError {
	return &domain.ExecutionError{
		Message:     fmt.Sprintf("execution interrupted: %v", cause),
		Interrupted: true,
	}
}

func timeoutFromEnv() time.Duration {
	if val := os.Getenv(EnvRunTimeout); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d >= 0 {
			return d
		}
	}
	return DefaultTimeout
}
