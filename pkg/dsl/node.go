package dsl

import "github.com/aretw0/codeshell/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node     *domain.FileNode
	parentID string
	builder  *Builder
}

// Content sets the stored text of a file node.
func (n *NodeBuilder) Content(text string) *NodeBuilder {
	n.node.Content = text
	return n
}

// In places the node inside the folder with the given id.
func (n *NodeBuilder) In(parentID string) *NodeBuilder {
	n.parentID = parentID
	return n
}

// Folder declares a folder inside this node.
func (n *NodeBuilder) Folder(id, name string) *NodeBuilder {
	return n.builder.Folder(id, name).In(n.node.ID)
}

// File declares a file inside this node.
func (n *NodeBuilder) File(id, name string) *NodeBuilder {
	return n.builder.File(id, name).In(n.node.ID)
}

// Build returns a copy of the underlying domain.FileNode without children.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.FileNode {
	return *n.node.Clone()
}
