package tui

import (
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/muesli/termenv"
)

// Explorer glyphs.
const (
	GlyphExpanded  = "v"
	GlyphCollapsed = ">"
	GlyphFile      = "-"
	GlyphSelected  = "*"
)

// TreeRenderer draws the explorer pane of a workspace.
type TreeRenderer struct {
	profile termenv.Profile
	showIDs bool
}

// NewTreeRenderer creates a renderer for the given color profile.
// When showIDs is set every line ends with the node id, usable as a #id target.
func NewTreeRenderer(profile termenv.Profile, showIDs bool) *TreeRenderer {
	return &TreeRenderer{profile: profile, showIDs: showIDs}
}

// Render returns one line per visible node. Children of collapsed folders are hidden.
func (r *TreeRenderer) Render(ws *domain.Workspace) string {
	if ws == nil || len(ws.Tree) == 0 {
		return "(empty)\n"
	}
	var b strings.Builder
	r.render(&b, ws, ws.Tree, 0)
	return b.String()
}

func (r *TreeRenderer) render(b *strings.Builder, ws *domain.Workspace, nodes []*domain.FileNode, depth int) {
	for _, n := range nodes {
		b.WriteString(strings.Repeat("  ", depth))

		switch {
		case n.IsFolder():
			glyph := GlyphExpanded
			if ws.Editor.IsCollapsed(n.ID) {
				glyph = GlyphCollapsed
			}
			b.WriteString(glyph + " ")
			b.WriteString(r.profile.String(n.Name + "/").Foreground(r.profile.Color("#818cf8")).String())
		case n.ID == ws.Editor.SelectedFileID:
			b.WriteString(GlyphSelected + " ")
			b.WriteString(r.profile.String(n.Name).Bold().String())
		default:
			b.WriteString(GlyphFile + " ")
			b.WriteString(n.Name)
		}

		if r.showIDs {
			b.WriteString(r.profile.String("  #" + n.ID).Faint().String())
		}
		b.WriteByte('\n')

		if n.IsFolder() && !ws.Editor.IsCollapsed(n.ID) {
			r.render(b, ws, n.Children, depth+1)
		}
	}
}
