package dsl

import (
	"fmt"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/tree"
)

// Builder manages the tree construction.
// Nodes are inserted in declaration order, which is also their display order.
type Builder struct {
	nodes []*NodeBuilder
	index map[string]*NodeBuilder
}

// New creates a new tree builder.
func New() *Builder {
	return &Builder{
		index: make(map[string]*NodeBuilder),
	}
}

// Folder declares a folder at the root of the forest.
// If the id already exists, it returns the existing builder.
func (b *Builder) Folder(id, name string) *NodeBuilder {
	return b.add(id, name, domain.KindFolder)
}

// File declares a file at the root of the forest.
// If the id already exists, it returns the existing builder.
func (b *Builder) File(id, name string) *NodeBuilder {
	return b.add(id, name, domain.KindFile)
}

func (b *Builder) add(id, name string, kind domain.NodeKind) *NodeBuilder {
	if nb, ok := b.index[id]; ok {
		return nb
	}
	node := tree.NewNode(id, kind)
	if name != "" {
		node.Name = name
	}
	nb := &NodeBuilder{
		node:     node,
		parentID: tree.RootID,
		builder:  b,
	}
	b.nodes = append(b.nodes, nb)
	b.index[id] = nb
	return nb
}

// Build assembles the forest. Parents must be declared before their children.
func (b *Builder) Build() (domain.Tree, error) {
	var t domain.Tree
	for _, nb := range b.nodes {
		var err error
		t, err = tree.Add(t, nb.parentID, nb.node.Clone())
		if err != nil {
			return nil, fmt.Errorf("failed to add node %s under %q: %w", nb.node.ID, nb.parentID, err)
		}
	}
	if err := tree.Validate(t); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	return t, nil
}

// MustBuild is like Build but panics on error. Intended for fixtures.
func (b *Builder) MustBuild() domain.Tree {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
