package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
)

// Overlay contains editor state to highlight on the diagram.
type Overlay struct {
	SelectedFileID string
	Collapsed      map[string]bool
}

// OverlayFor extracts the overlay of a workspace.
func OverlayFor(ws *domain.Workspace) *Overlay {
	if ws == nil {
		return nil
	}
	return &Overlay{SelectedFileID: ws.Editor.SelectedFileID, Collapsed: ws.Editor.Collapsed}
}

// GenerateMermaid produces a Mermaid flowchart of the file tree.
// It applies semantic styling:
// - Folder: [/Trapezoid\]
// - Runnable file: ([Stadium])
// - Other file: [Rectangle]
// Children of collapsed folders are omitted and the folder is marked.
func GenerateMermaid(t domain.Tree, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var walk func(parentID string, nodes []*domain.FileNode)
	walk = func(parentID string, nodes []*domain.FileNode) {
		for _, n := range nodes {
			safeID := sanitizeMermaidID(n.ID)

			opener, closer := "[", "]"
			label := n.Name
			switch {
			case n.IsFolder():
				opener, closer = "[/", "\\]"
				label += "/"
			case domain.IsRunnable(n.Name):
				opener, closer = "([", "])"
			}
			label = strings.ReplaceAll(label, "\"", "'")
			sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

			if parentID != "" {
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(parentID), safeID))
			}

			if n.IsFolder() && (overlay == nil || !overlay.Collapsed[n.ID]) {
				walk(n.ID, n.Children)
			}
		}
	}
	walk("", t)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light and dark themes.
		sb.WriteString("    classDef collapsed fill:#e1f5fe,stroke:#01579b,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for _, id := range collapsedIDs(t, overlay.Collapsed) {
			sb.WriteString(fmt.Sprintf("    class %s collapsed;\n", sanitizeMermaidID(id)))
		}
		if overlay.SelectedFileID != "" {
			sb.WriteString(fmt.Sprintf("    class %s selected;\n", sanitizeMermaidID(overlay.SelectedFileID)))
		}
	}

	return sb.String()
}

// collapsedIDs returns collapsed folders in tree order so output is stable.
func collapsedIDs(t domain.Tree, collapsed map[string]bool) []string {
	if len(collapsed) == 0 {
		return nil
	}
	var ids []string
	var walk func(nodes []*domain.FileNode)
	walk = func(nodes []*domain.FileNode) {
		for _, n := range nodes {
			if !n.IsFolder() {
				continue
			}
			if collapsed[n.ID] {
				ids = append(ids, n.ID)
				continue
			}
			walk(n.Children)
		}
	}
	walk(t)
	return ids
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// Prefixed so ids such as "end" or "1" stay valid Mermaid identifiers.
	return "n_" + s
}
