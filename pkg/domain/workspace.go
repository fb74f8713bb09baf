package domain

// Workspace is the explicit state of one explorer/editor instance:
// the file tree, the editing session and the console.
//
// The runtime treats a Workspace as a value: operations return a new one and
// never modify the slices or maps of the input.
type Workspace struct {
	ID      string          `json:"id"`
	Tree    Tree            `json:"tree"`
	Editor  EditorSession   `json:"editor"`
	Console []ConsoleRecord `json:"console"`

	// Compiled is the preview of the current buffer. Nil when nothing compiled yet
	// or when CompileErr is set.
	Compiled   *CompiledArtifact `json:"compiled,omitempty"`
	CompileErr *CompileError     `json:"compile_error,omitempty"`

	// Revision counts the stored updates of the workspace. Observers use it to
	// order snapshots taken outside the workspace lock.
	Revision uint64 `json:"revision,omitempty"`
}

// NewWorkspace creates a workspace over an initial tree.
func NewWorkspace(id string, tree Tree) *Workspace {
	return &Workspace{
		ID:      id,
		Tree:    tree,
		Console: []ConsoleRecord{},
	}
}

// Snapshot returns a copy that shares the immutable tree and copies the mutable console slice.
func (w *Workspace) Snapshot() *Workspace {
	if w == nil {
		return nil
	}
	c := *w
	c.Console = make([]ConsoleRecord, len(w.Console))
	copy(c.Console, w.Console)
	if w.Editor.Collapsed != nil {
		c.Editor.Collapsed = make(map[string]bool, len(w.Editor.Collapsed))
		for k, v := range w.Editor.Collapsed {
			c.Editor.Collapsed[k] = v
		}
	}
	return &c
}
