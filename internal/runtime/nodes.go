package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/tree"
)

// AddNode appends a new file or folder with default name under parentID
// (tree.RootID for the top level) and returns its id.
func (e *Engine) AddNode(ctx context.Context, ws *domain.Workspace, parentID string, kind domain.NodeKind) (*domain.Workspace, string, error) {
	id, err := e.newID(ws.Tree)
	if err != nil {
		return ws, "", err
	}

	next, err := tree.Add(ws.Tree, parentID, tree.NewNode(id, kind))
	if err != nil {
		return ws, "", err
	}

	out := e.clone(ws)
	out.Tree = next
	e.logger.DebugContext(ctx, "node added", "workspace_id", ws.ID, "node_id", id, "parent_id", parentID, "kind", kind)
	return out, id, nil
}

func (e *Engine) newID(t domain.Tree) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := e.ids.NewID()
		if id != "" && tree.Find(t, id) == nil {
			return id, nil
		}
	}
	return "", fmt.Errorf("id generator produced %d colliding ids: %w", maxIDAttempts, domain.ErrDuplicateID)
}

// RenameNode renames a node. A blank or unchanged name is a silent no-op.
func (e *Engine) RenameNode(ctx context.Context, ws *domain.Workspace, id, name string) (*domain.Workspace, error) {
	next, err := tree.Rename(ws.Tree, id, name)
	if errors.Is(err, domain.ErrInvalidRename) {
		e.logger.DebugContext(ctx, "rename ignored", "workspace_id", ws.ID, "node_id", id, "name", name)
		return ws, nil
	}
	if err != nil {
		return ws, err
	}

	out := e.clone(ws)
	out.Tree = next
	return out, nil
}

// SetContent overwrites the stored content of a file. The editor buffer is not touched.
func (e *Engine) SetContent(ctx context.Context, ws *domain.Workspace, id, text string) (*domain.Workspace, error) {
	next, err := tree.SetContent(ws.Tree, id, text)
	if err != nil {
		return ws, err
	}

	out := e.clone(ws)
	out.Tree = next
	return out, nil
}

// DeleteNode removes a node and its subtree. Deleting an absent id is a no-op.
// When the open file was inside the removed subtree the selection is cleared and cleared is true.
func (e *Engine) DeleteNode(ctx context.Context, ws *domain.Workspace, id string) (out *domain.Workspace, cleared bool, err error) {
	next, removed := tree.Delete(ws.Tree, id)
	if removed == nil {
		return ws, false, nil
	}

	out = e.clone(ws)
	out.Tree = next

	if tree.Contains(removed, out.Editor.SelectedFileID) {
		out.Editor = out.Editor.Close()
		out.Compiled = nil
		out.CompileErr = nil
		cleared = true
	}

	if len(out.Editor.Collapsed) > 0 {
		tree.Walk(domain.Tree{removed}, func(n *domain.FileNode, _ []*domain.FileNode) bool {
			delete(out.Editor.Collapsed, n.ID)
			return true
		})
	}

	e.logger.DebugContext(ctx, "node deleted", "workspace_id", ws.ID, "node_id", id, "selection_cleared", cleared)
	return out, cleared, nil
}
