package domain

// WorkspaceDiff represents the changes between two workspace snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type WorkspaceDiff struct {
	// WorkspaceID is always present to identify the target.
	WorkspaceID string `json:"workspace_id"`

	// Tree is the whole new forest when any node changed.
	// Copy-on-write makes this a pointer comparison.
	Tree Tree `json:"tree,omitempty"`

	// SelectedFileID is set (possibly to "") when the selection changed.
	SelectedFileID *string `json:"selected_file_id,omitempty"`

	Running      *bool `json:"running,omitempty"`
	ShowCompiled *bool `json:"show_compiled,omitempty"`

	// Console contains records appended since the old snapshot.
	Console *ConsoleDelta `json:"console,omitempty"`
}

// ConsoleDelta represents changes to the append-only console.
type ConsoleDelta struct {
	// Cleared is set when the old records were dropped before Appended.
	Cleared  bool            `json:"cleared,omitempty"`
	Appended []ConsoleRecord `json:"appended"`
}

// Diff calculates the difference between oldWS and newWS.
// If oldWS is nil, it returns a diff representing the entire newWS (initial load).
func Diff(oldWS, newWS *Workspace) *WorkspaceDiff {
	if newWS == nil {
		return nil
	}

	diff := &WorkspaceDiff{
		WorkspaceID: newWS.ID,
	}

	if oldWS == nil || !SameTree(oldWS.Tree, newWS.Tree) {
		diff.Tree = newWS.Tree
		if diff.Tree == nil {
			diff.Tree = Tree{}
		}
	}
	if oldWS == nil || oldWS.Editor.SelectedFileID != newWS.Editor.SelectedFileID {
		diff.SelectedFileID = &newWS.Editor.SelectedFileID
	}
	if oldWS == nil || oldWS.Editor.Running != newWS.Editor.Running {
		diff.Running = &newWS.Editor.Running
	}
	if oldWS == nil || oldWS.Editor.ShowCompiled != newWS.Editor.ShowCompiled {
		diff.ShowCompiled = &newWS.Editor.ShowCompiled
	}

	diff.Console = diffConsole(oldWS, newWS)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// SameTree reports whether two forests are the same snapshot.
// Because trees are rebuilt copy-on-write, identical top-level pointers imply identical content.
func SameTree(a, b Tree) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// diffConsole assumes append-only behavior unless the new console is shorter
// or its prefix no longer matches, which means it was cleared.
func diffConsole(old, new *Workspace) *ConsoleDelta {
	if old == nil {
		if len(new.Console) == 0 {
			return nil
		}
		return &ConsoleDelta{Appended: new.Console}
	}

	oldLen := len(old.Console)
	newLen := len(new.Console)

	if newLen >= oldLen && consolePrefixMatches(old.Console, new.Console) {
		if newLen == oldLen {
			return nil
		}
		return &ConsoleDelta{Appended: new.Console[oldLen:]}
	}

	appended := new.Console
	if appended == nil {
		appended = []ConsoleRecord{}
	}
	return &ConsoleDelta{Cleared: true, Appended: appended}
}

func consolePrefixMatches(old, new []ConsoleRecord) bool {
	for i := range old {
		if old[i] != new[i] {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *WorkspaceDiff) IsEmpty() bool {
	return d.Tree == nil &&
		d.SelectedFileID == nil &&
		d.Running == nil &&
		d.ShowCompiled == nil &&
		d.Console == nil
}
