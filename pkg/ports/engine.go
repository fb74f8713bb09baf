package ports

import (
	"context"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
)

// Transpiler turns an editor buffer into executable script.
// Failures are reported as *domain.CompileError.
type Transpiler interface {
	Transpile(source, fileName string) (domain.CompiledArtifact, error)
}

// Executor runs a compiled artifact and captures its console output.
// Errors thrown by the executed code are part of the result, never returned.
type Executor interface {
	Run(ctx context.Context, artifact domain.CompiledArtifact) domain.RunResult
}

// Clock supplies timestamps for console records.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// IDGenerator produces node and workspace identifiers.
// Identifiers must never repeat for the lifetime of the generator.
type IDGenerator interface {
	NewID() string
}
