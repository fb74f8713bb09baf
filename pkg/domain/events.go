package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCompile   EventType = "compile"
	EventRunStart  EventType = "run_start"
	EventRunFinish EventType = "run_finish"
	EventRecord    EventType = "record"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	WorkspaceID string    `json:"workspace_id"`
}

// CompileEvent is emitted after every transpile of a buffer.
type CompileEvent struct {
	EventBase
	FileName string        `json:"file_name"`
	Dialect  Dialect       `json:"dialect"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// RunEvent is emitted when a run starts and when it finishes.
type RunEvent struct {
	EventBase
	FileID   string        `json:"file_id"`
	FileName string        `json:"file_name"`
	Records  int           `json:"records,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	// Failed is set when compilation was refused or the executed code threw.
	Failed bool `json:"failed,omitempty"`
}

// RecordEvent carries one console record as it is appended to a workspace.
type RecordEvent struct {
	EventBase
	Record ConsoleRecord `json:"record"`
}

// LifecycleHooks defines callbacks for observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnCompile   func(context.Context, *CompileEvent)
	OnRunStart  func(context.Context, *RunEvent)
	OnRunFinish func(context.Context, *RunEvent)
	OnRecord    func(context.Context, *RecordEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnCompile:   chain(h.OnCompile, other.OnCompile),
		OnRunStart:  chain(h.OnRunStart, other.OnRunStart),
		OnRunFinish: chain(h.OnRunFinish, other.OnRunFinish),
		OnRecord:    chain(h.OnRecord, other.OnRecord),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
