package domain

// NodeKind distinguishes files from folders. It is fixed at creation.
type NodeKind string

const (
	// KindFile is a leaf node holding text content.
	KindFile NodeKind = "file"
	// KindFolder is a container node holding an ordered list of children.
	KindFolder NodeKind = "folder"
)

// Default names given to freshly added nodes.
const (
	DefaultFileName   = "new-file.txt"
	DefaultFolderName = "new-folder"
)

// Valid reports whether k is a known kind.
func (k NodeKind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// FileNode represents one file or folder in the virtual tree.
//
// Nodes are treated as immutable once they are part of a published Tree:
// every mutation builds new nodes along the path from the root to the target
// and shares the untouched subtrees with the previous snapshot.
type FileNode struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
	Kind NodeKind `json:"type" yaml:"type"`

	// Content is only meaningful for files.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// Children is only meaningful for folders. Order is display order.
	Children []*FileNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *FileNode) IsFolder() bool {
	return n != nil && n.Kind == KindFolder
}

// IsFile reports whether the node is a file.
func (n *FileNode) IsFile() bool {
	return n != nil && n.Kind == KindFile
}

// Clone returns a shallow copy of the node. The children slice is copied,
// the child nodes themselves are shared.
func (n *FileNode) Clone() *FileNode {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*FileNode, len(n.Children))
		copy(c.Children, n.Children)
	}
	return &c
}

// Tree is the root forest: an ordered sequence of top-level nodes.
type Tree []*FileNode
