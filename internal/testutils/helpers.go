package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/dsl"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/aretw0/codeshell/pkg/seed"
	"github.com/stretchr/testify/require"
)

// FixedTime is the instant returned by FixedClock.
var FixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// FixedClock always returns FixedTime.
var FixedClock ports.Clock = ports.ClockFunc(func() time.Time { return FixedTime })

// AppSource is the body of App.js in the built-in sample workspace.
func AppSource(t *testing.T) string {
	t.Helper()
	s := seed.Default()
	require.Len(t, s.Tree, 1)
	require.NotEmpty(t, s.Tree[0].Children)
	return s.Tree[0].Children[0].Content
}

// SampleWorkspace builds a workspace with ids 1..5:
//
//	CODE_PROJECTS/      (1)
//	  App.js            (2)  the sample program
//	  lib/              (3)
//	    util.ts         (4)
//	README.md           (5)
//
// Nothing is selected.
func SampleWorkspace(t *testing.T, id string) *domain.Workspace {
	t.Helper()

	b := dsl.New()
	project := b.Folder("1", "CODE_PROJECTS")
	project.File("2", "App.js").Content(AppSource(t))
	project.Folder("3", "lib").
		File("4", "util.ts").Content("export const answer: number = 42;\nconsole.log(answer);\n")
	b.File("5", "README.md").Content("# Sample\n")

	forest, err := b.Build()
	require.NoError(t, err, "Failed to build sample tree")
	return domain.NewWorkspace(id, forest)
}

// HookRecorder collects lifecycle events. Safe for concurrent use.
type HookRecorder struct {
	mu       sync.Mutex
	Compiles []*domain.CompileEvent
	Starts   []*domain.RunEvent
	Finishes []*domain.RunEvent
	Records  []*domain.RecordEvent
}

// Hooks returns lifecycle hooks that feed the recorder.
func (r *HookRecorder) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCompile: func(_ context.Context, e *domain.CompileEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.Compiles = append(r.Compiles, e)
		},
		OnRunStart: func(_ context.Context, e *domain.RunEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.Starts = append(r.Starts, e)
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.Finishes = append(r.Finishes, e)
		},
		OnRecord: func(_ context.Context, e *domain.RecordEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.Records = append(r.Records, e)
		},
	}
}

// ExecutorFunc adapts a function to ports.Executor.
type ExecutorFunc func(ctx context.Context, artifact domain.CompiledArtifact) domain.RunResult

// Run calls f.
func (f ExecutorFunc) Run(ctx context.Context, artifact domain.CompiledArtifact) domain.RunResult {
	return f(ctx, artifact)
}
