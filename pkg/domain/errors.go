package domain

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when a tree operation references an id that is not in the tree.
var ErrNodeNotFound = errors.New("node not found")

// ErrNotAFolder is returned when a node is added under a file.
var ErrNotAFolder = errors.New("node is not a folder")

// ErrNotAFile is returned when content is written to a folder.
var ErrNotAFile = errors.New("node is not a file")

// ErrInvalidRename is returned when a rename is empty after trimming or does not change the name.
// Callers are expected to treat it as a no-op.
var ErrInvalidRename = errors.New("invalid rename")

// ErrDuplicateID is returned when a node would be inserted with an id already present in the tree.
var ErrDuplicateID = errors.New("duplicate node id")

// ErrNoSelection is returned when an operation needs an open file and none is selected.
var ErrNoSelection = errors.New("no file selected")

// ErrRunInProgress is returned when a run is requested while another one is still executing.
var ErrRunInProgress = errors.New("run already in progress")

// ErrWorkspaceNotFound is returned when a workspace ID cannot be found in the store.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// ErrSourceTooLarge is returned when a buffer exceeds the configured transpile limit.
var ErrSourceTooLarge = errors.New("source exceeds maximum allowed size")

// CompileError reports source that failed to transpile.
// It blocks running but never blocks editing.
type CompileError struct {
	FileName string
	Message  string
	Line     int // 1-based, 0 when unknown
	Column   int // 0-based
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FileName, e.Line, e.Column, e.Message)
	}
	if e.FileName != "" {
		return fmt.Sprintf("%s: %s", e.FileName, e.Message)
	}
	return e.Message
}

// ExecutionError describes a value thrown (or an interrupt raised) while executing compiled code.
// It is always converted into an error-level ConsoleRecord and never propagated to the host.
type ExecutionError struct {
	Message string
	// Stack is the interpreter's rendering of the exception, when available.
	Stack string
	// Interrupted is set when the run was stopped by cancellation or timeout.
	Interrupted bool
}

func (e *ExecutionError) Error() string {
	return e.Message
}
