package sandbox

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/dop251/goja"
)

// formatSource renders one console argument inside the interpreter,
// so instanceof and JSON follow the language's own rules.
const formatSource = `(function (v) {
  if (v instanceof Error && typeof v.message === "string") {
    return v.message;
  }
  if (typeof v === "object") {
    try {
      var s = JSON.stringify(v, null, 2);
      if (s !== undefined) {
        return s;
      }
    } catch (e) {}
  }
  try {
    return String(v);
  } catch (e) {
    return Object.prototype.toString.call(v);
  }
})`

// capture collects the records of a single run.
type capture struct {
	clock ports.Clock
	max   int

	mu      sync.Mutex
	records []domain.ConsoleRecord
	err     *domain.ExecutionError

	limit     chan struct{}
	limitOnce sync.Once

	vm      *goja.Runtime
	format  goja.Callable
	console *goja.Object
}

func newCapture(clock ports.Clock, max int) *capture {
	return &capture{
		clock:   clock,
		max:     max,
		records: make([]domain.ConsoleRecord, 0),
		limit:   make(chan struct{}),
	}
}

// install builds the console object and the formatting helper in vm.
func (c *capture) install(vm *goja.Runtime) error {
	c.vm = vm

	fv, err := vm.RunString(formatSource)
	if err != nil {
		return err
	}
	format, ok := goja.AssertFunction(fv)
	if !ok {
		return errors.New("console formatter is not a function")
	}
	c.format = format

	console := vm.NewObject()
	for _, level := range domain.Levels {
		if err := console.Set(string(level), c.method(level)); err != nil {
			return err
		}
	}
	c.console = console
	return nil
}

func (c *capture) method(level domain.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = c.render(arg)
		}
		c.emit(level, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// render stringifies a single value. It must only be called while the interpreter is usable.
func (c *capture) render(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	out, err := c.format(goja.Undefined(), v)
	if err != nil || out == nil {
		return "[unprintable value]"
	}
	return out.String()
}

func (c *capture) emit(level domain.Level, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.max > 0 && len(c.records) >= c.max {
		c.limitOnce.Do(func() { close(c.limit) })
		return
	}
	c.records = append(c.records, domain.ConsoleRecord{
		Level:      level,
		Text:       text,
		ProducedAt: c.clock.Now(),
	})
}

// describe converts an interpreter error into an ExecutionError.
func (c *capture) describe(err error) *domain.ExecutionError {
	var interrupt *goja.InterruptedError
	if errors.As(err, &interrupt) {
		return interrupted(interrupt.Value())
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &domain.ExecutionError{
			Message: c.render(exc.Value()),
			Stack:   exc.Error(),
		}
	}
	return &domain.ExecutionError{Message: err.Error()}
}

// fail records the terminal error as the last console record.
func (c *capture) fail(err *domain.ExecutionError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return
	}
	c.err = err
	c.records = append(c.records, domain.ConsoleRecord{
		Level:      domain.LevelError,
		Text:       err.Message,
		ProducedAt: c.clock.Now(),
	})
}

func (c *capture) result(d time.Duration) domain.RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.RunResult{
		Records:  c.records,
		Err:      c.err,
		Duration: d,
	}
}
