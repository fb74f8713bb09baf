// Package tree implements the virtual file tree as a persistent (copy-on-write) forest.
//
// Every operation takes a domain.Tree and returns a new one. Only the nodes on the
// path from the root to the target are rebuilt; all other subtrees are shared with
// the input, so a reader holding a previous snapshot never observes a partial change.
package tree

import (
	"fmt"
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
)

// RootID addresses the implicit, always-present parent of the top-level nodes.
const RootID = ""

// NewNode builds a node with kind-appropriate defaults:
// files start as an empty "new-file.txt", folders as an empty "new-folder".
func NewNode(id string, kind domain.NodeKind) *domain.FileNode {
	if kind == domain.KindFolder {
		return &domain.FileNode{
			ID:       id,
			Name:     domain.DefaultFolderName,
			Kind:     domain.KindFolder,
			Children: []*domain.FileNode{},
		}
	}
	return &domain.FileNode{
		ID:   id,
		Name: domain.DefaultFileName,
		Kind: domain.KindFile,
	}
}

// Add appends node to the children of the folder parentID, or to the forest when parentID is RootID.
// On error the input tree is returned unchanged.
func Add(t domain.Tree, parentID string, node *domain.FileNode) (domain.Tree, error) {
	if node == nil || node.ID == "" {
		return t, fmt.Errorf("add: node must have an id")
	}
	if !node.Kind.Valid() {
		return t, fmt.Errorf("add: unknown kind %q", node.Kind)
	}
	if Find(t, node.ID) != nil {
		return t, fmt.Errorf("add %s: %w", node.ID, domain.ErrDuplicateID)
	}

	if parentID == RootID {
		next := make(domain.Tree, len(t), len(t)+1)
		copy(next, t)
		return append(next, node), nil
	}

	parent := Find(t, parentID)
	if parent == nil {
		return t, fmt.Errorf("add under %s: %w", parentID, domain.ErrNodeNotFound)
	}
	if !parent.IsFolder() {
		return t, fmt.Errorf("add under %s: %w", parentID, domain.ErrNotAFolder)
	}

	next, _ := update(t, parentID, func(n *domain.FileNode) *domain.FileNode {
		c := n.Clone()
		c.Children = append(c.Children, node)
		return c
	})
	return next, nil
}

// Rename changes the name of node id.
// The rename applies only if newName is non-empty after trimming and differs from the current name;
// otherwise the same tree is returned with domain.ErrInvalidRename.
func Rename(t domain.Tree, id, newName string) (domain.Tree, error) {
	target := Find(t, id)
	if target == nil {
		return t, fmt.Errorf("rename %s: %w", id, domain.ErrNodeNotFound)
	}
	if strings.TrimSpace(newName) == "" || newName == target.Name {
		return t, fmt.Errorf("rename %s to %q: %w", id, newName, domain.ErrInvalidRename)
	}

	next, _ := update(t, id, func(n *domain.FileNode) *domain.FileNode {
		c := n.Clone()
		c.Name = newName
		return c
	})
	return next, nil
}

// SetContent overwrites the content of file id.
func SetContent(t domain.Tree, id, text string) (domain.Tree, error) {
	target := Find(t, id)
	if target == nil {
		return t, fmt.Errorf("set content %s: %w", id, domain.ErrNodeNotFound)
	}
	if !target.IsFile() {
		return t, fmt.Errorf("set content %s: %w", id, domain.ErrNotAFile)
	}

	next, _ := update(t, id, func(n *domain.FileNode) *domain.FileNode {
		c := n.Clone()
		c.Content = text
		return c
	})
	return next, nil
}

// Delete removes node id and its subtree wherever it occurs.
// It is idempotent: deleting an absent id returns the same tree and a nil node.
// The removed node is returned so callers can inspect its subtree (e.g. to clear a selection).
func Delete(t domain.Tree, id string) (domain.Tree, *domain.FileNode) {
	next, removed := remove(t, id)
	if removed == nil {
		return t, nil
	}
	return next, removed
}

// update rebuilds the path to the first node with the given id, replacing it with fn(node).
// Siblings and untouched subtrees are shared. The boolean reports whether the id was found.
func update(nodes []*domain.FileNode, id string, fn func(*domain.FileNode) *domain.FileNode) ([]*domain.FileNode, bool) {
	for i, n := range nodes {
		if n.ID == id {
			next := make([]*domain.FileNode, len(nodes))
			copy(next, nodes)
			next[i] = fn(n)
			return next, true
		}
		if n.IsFolder() {
			children, ok := update(n.Children, id, fn)
			if ok {
				c := *n
				c.Children = children
				next := make([]*domain.FileNode, len(nodes))
				copy(next, nodes)
				next[i] = &c
				return next, true
			}
		}
	}
	return nodes, false
}

func remove(nodes []*domain.FileNode, id string) ([]*domain.FileNode, *domain.FileNode) {
	for i, n := range nodes {
		if n.ID == id {
			next := make([]*domain.FileNode, 0, len(nodes)-1)
			next = append(next, nodes[:i]...)
			next = append(next, nodes[i+1:]...)
			return next, n
		}
		if n.IsFolder() {
			children, removed := remove(n.Children, id)
			if removed != nil {
				c := *n
				c.Children = children
				next := make([]*domain.FileNode, len(nodes))
				copy(next, nodes)
				next[i] = &c
				return next, removed
			}
		}
	}
	return nodes, nil
}
