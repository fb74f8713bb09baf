package domain

import "time"

// EditorSession tracks the single open file, its unsaved buffer and view toggles.
// It is ephemeral and decoupled from the tree: edits reach the tree only through an explicit save.
//
// All methods are value transitions; the receiver is never modified.
type EditorSession struct {
	// SelectedFileID is empty when no file is open.
	SelectedFileID string `json:"selected_file_id,omitempty"`
	Buffer         string `json:"buffer"`
	ShowCompiled   bool   `json:"show_compiled"`
	Running        bool   `json:"running"`
	// RunStartedAt is when the current run began. A flag older than the run lease
	// is left over from a run that never finished.
	RunStartedAt time.Time `json:"run_started_at,omitzero"`

	// Collapsed holds folder IDs whose children are hidden in the explorer.
	Collapsed map[string]bool `json:"collapsed,omitempty"`
}

// HasSelection reports whether a file is open.
func (s EditorSession) HasSelection() bool {
	return s.SelectedFileID != ""
}

// Open handles a user click on a node.
// A file becomes the selection and its stored content replaces the buffer, discarding unsaved edits.
// A folder toggles its collapsed state and leaves the current selection alone.
func (s EditorSession) Open(node *FileNode) EditorSession {
	if node == nil {
		return s
	}
	if node.IsFolder() {
		return s.toggleCollapsed(node.ID)
	}
	s.SelectedFileID = node.ID
	s.Buffer = node.Content
	return s
}

func (s EditorSession) toggleCollapsed(id string) EditorSession {
	next := make(map[string]bool, len(s.Collapsed)+1)
	for k, v := range s.Collapsed {
		next[k] = v
	}
	if next[id] {
		delete(next, id)
	} else {
		next[id] = true
	}
	s.Collapsed = next
	return s
}

// IsCollapsed reports whether a folder is collapsed in the explorer.
func (s EditorSession) IsCollapsed(folderID string) bool {
	return s.Collapsed[folderID]
}

// Edit replaces the live buffer.
func (s EditorSession) Edit(text string) EditorSession {
	s.Buffer = text
	return s
}

// ToggleCompiled flips the compiled-output pane.
func (s EditorSession) ToggleCompiled() EditorSession {
	s.ShowCompiled = !s.ShowCompiled
	return s
}

// Close closes the open tab.
func (s EditorSession) Close() EditorSession {
	s.SelectedFileID = ""
	s.Buffer = ""
	return s
}

// StartRun marks a run as in progress since at.
func (s EditorSession) StartRun(at time.Time) EditorSession {
	s.Running = true
	s.RunStartedAt = at
	return s
}

// FinishRun clears the in-progress flag.
func (s EditorSession) FinishRun() EditorSession {
	s.Running = false
	s.RunStartedAt = time.Time{}
	return s
}

// RunExpired reports whether the in-progress flag has outlived lease at now.
// A zero lease never expires.
func (s EditorSession) RunExpired(now time.Time, lease time.Duration) bool {
	return s.Running && lease > 0 && now.Sub(s.RunStartedAt) > lease
}

// Dirty reports whether the buffer differs from the stored content of the open file.
func (s EditorSession) Dirty(stored *FileNode) bool {
	if !s.HasSelection() || stored == nil {
		return false
	}
	return stored.Content != s.Buffer
}
