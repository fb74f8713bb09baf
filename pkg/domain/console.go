package domain

import "time"

// Level is the severity of a captured console call.
type Level string

const (
	LevelLog   Level = "log"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Levels lists the console methods injected into executed code, in display order.
var Levels = []Level{LevelLog, LevelInfo, LevelWarn, LevelError}

// ConsoleRecord is one captured console emission.
type ConsoleRecord struct {
	Level      Level     `json:"type"`
	Text       string    `json:"content"`
	ProducedAt time.Time `json:"timestamp"`
}

// RunResult is the outcome of executing one compiled artifact.
// Records are in call order. When the code threw or was interrupted, the last
// record is the error-level rendering of Err.
type RunResult struct {
	Records  []ConsoleRecord `json:"records"`
	Err      *ExecutionError `json:"error,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Failed reports whether the run ended with a thrown value or an interrupt.
func (r RunResult) Failed() bool {
	return r.Err != nil
}
