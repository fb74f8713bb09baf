package runner

import (
	"context"

	"github.com/aretw0/codeshell/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next command. It returns io.EOF when the input is exhausted.
	Input(ctx context.Context) (Command, error)

	// Output presents the outcome of a command.
	Output(ctx context.Context, reply Reply) error
}

// Reply is the outcome of one command.
type Reply struct {
	Op    Op     `json:"op"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	// Message is a short human notice such as "saved".
	Message string `json:"message,omitempty"`
	// NodeID is the node created or touched by the command.
	NodeID string `json:"node_id,omitempty"`
	// Paths lists the tree for ls.
	Paths []string `json:"paths,omitempty"`
	// Text is the file, buffer or compiled code printed by cat and compile, or the help text.
	Text string `json:"text,omitempty"`
	// Records holds the console output of a run.
	Records []domain.ConsoleRecord `json:"records,omitempty"`

	// Workspace is the snapshot after the command, for handlers that render it.
	Workspace *domain.Workspace `json:"-"`
}
