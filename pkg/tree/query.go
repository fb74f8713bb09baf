package tree

import (
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
)

// WalkFunc is called for every node in depth-first order with the node's ancestors (root first).
// Returning false stops the walk.
type WalkFunc func(node *domain.FileNode, ancestors []*domain.FileNode) bool

// Walk visits the forest depth-first, each folder's children in stored order.
func Walk(t domain.Tree, fn WalkFunc) {
	walk(t, nil, fn)
}

func walk(nodes []*domain.FileNode, ancestors []*domain.FileNode, fn WalkFunc) bool {
	for _, n := range nodes {
		if !fn(n, ancestors) {
			return false
		}
		if n.IsFolder() && len(n.Children) > 0 {
			if !walk(n.Children, append(ancestors[:len(ancestors):len(ancestors)], n), fn) {
				return false
			}
		}
	}
	return true
}

// Find returns the first node with the given id, or nil.
func Find(t domain.Tree, id string) *domain.FileNode {
	var found *domain.FileNode
	Walk(t, func(n *domain.FileNode, _ []*domain.FileNode) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Parent returns the folder containing id. It returns nil for top-level nodes and absent ids.
func Parent(t domain.Tree, id string) *domain.FileNode {
	var parent *domain.FileNode
	Walk(t, func(n *domain.FileNode, ancestors []*domain.FileNode) bool {
		if n.ID == id {
			if len(ancestors) > 0 {
				parent = ancestors[len(ancestors)-1]
			}
			return false
		}
		return true
	})
	return parent
}

// Path returns the slash-separated names from the root to id, or "" when absent.
func Path(t domain.Tree, id string) string {
	var p string
	Walk(t, func(n *domain.FileNode, ancestors []*domain.FileNode) bool {
		if n.ID == id {
			names := make([]string, 0, len(ancestors)+1)
			for _, a := range ancestors {
				names = append(names, a.Name)
			}
			p = strings.Join(append(names, n.Name), "/")
			return false
		}
		return true
	})
	return p
}

// FindPath resolves a slash-separated path of names (e.g. "CODE_PROJECTS/App.js").
// When siblings share a name the first one in display order wins.
func FindPath(t domain.Tree, p string) *domain.FileNode {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	nodes := []*domain.FileNode(t)
	var current *domain.FileNode
	for _, part := range parts {
		current = nil
		for _, n := range nodes {
			if n.Name == part {
				current = n
				break
			}
		}
		if current == nil {
			return nil
		}
		nodes = current.Children
	}
	return current
}

// Count returns the number of nodes in the forest.
func Count(t domain.Tree) int {
	count := 0
	Walk(t, func(*domain.FileNode, []*domain.FileNode) bool {
		count++
		return true
	})
	return count
}

// IDs returns every node id in depth-first order.
func IDs(t domain.Tree) []string {
	ids := make([]string, 0)
	Walk(t, func(n *domain.FileNode, _ []*domain.FileNode) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Contains reports whether id is root itself or anywhere in its subtree.
func Contains(root *domain.FileNode, id string) bool {
	if root == nil || id == "" {
		return false
	}
	return Find(domain.Tree{root}, id) != nil
}

// Files returns every file node in depth-first order.
func Files(t domain.Tree) []*domain.FileNode {
	var files []*domain.FileNode
	Walk(t, func(n *domain.FileNode, _ []*domain.FileNode) bool {
		if n.IsFile() {
			files = append(files, n)
		}
		return true
	})
	return files
}

// Paths lists every node as a slash-separated path in depth-first order.
// Folder paths end with a slash.
func Paths(t domain.Tree) []string {
	paths := make([]string, 0)
	Walk(t, func(n *domain.FileNode, ancestors []*domain.FileNode) bool {
		var b strings.Builder
		for _, a := range ancestors {
			b.WriteString(a.Name)
			b.WriteByte('/')
		}
		b.WriteString(n.Name)
		if n.IsFolder() {
			b.WriteByte('/')
		}
		paths = append(paths, b.String())
		return true
	})
	return paths
}
