package ports

import (
	"context"

	"github.com/aretw0/codeshell/pkg/domain"
)

// WorkspaceStore defines the interface for keeping workspace state between requests.
// Implementations must hand out copies: mutating a loaded workspace must not
// affect what the store holds until Save is called.
type WorkspaceStore interface {
	// Save stores the workspace under its ID.
	Save(ctx context.Context, ws *domain.Workspace) error

	// Load retrieves the workspace for a given ID.
	// Returns domain.ErrWorkspaceNotFound if the workspace does not exist.
	Load(ctx context.Context, id string) (*domain.Workspace, error)

	// Delete removes the workspace. Deleting a missing workspace is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored workspaces.
	List(ctx context.Context) ([]string, error)
}
