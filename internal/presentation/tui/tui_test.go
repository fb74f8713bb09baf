package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkspace() *domain.Workspace {
	ws := domain.NewWorkspace("w", domain.Tree{
		{
			ID:   "1",
			Name: "CODE_PROJECTS",
			Kind: domain.KindFolder,
			Children: []*domain.FileNode{
				{ID: "2", Name: "App.js", Kind: domain.KindFile},
				{
					ID:   "3",
					Name: "lib",
					Kind: domain.KindFolder,
					Children: []*domain.FileNode{
						{ID: "4", Name: "util.ts", Kind: domain.KindFile},
					},
				},
			},
		},
		{ID: "5", Name: "README.md", Kind: domain.KindFile},
	})
	ws.Editor.SelectedFileID = "2"
	return ws
}

func TestTreeRenderer(t *testing.T) {
	ws := sampleWorkspace()
	r := NewTreeRenderer(termenv.Ascii, false)

	assert.Equal(t, strings.Join([]string{
		"v CODE_PROJECTS/",
		"  * App.js",
		"  v lib/",
		"    - util.ts",
		"- README.md",
		"",
	}, "\n"), r.Render(ws))

	ws.Editor.Collapsed = map[string]bool{"3": true}
	withIDs := NewTreeRenderer(termenv.Ascii, true).Render(ws)
	assert.Contains(t, withIDs, "  > lib/  #3\n")
	assert.NotContains(t, withIDs, "util.ts")

	assert.Equal(t, "(empty)\n", r.Render(domain.NewWorkspace("e", nil)))
}

func TestConsole_Format(t *testing.T) {
	c := NewConsole(&bytes.Buffer{}, WithProfile(termenv.Ascii))

	assert.Equal(t, "[log] hi", c.Format(domain.ConsoleRecord{Level: domain.LevelLog, Text: "hi"}))
	assert.Equal(t, "[error] a\n        b", c.Format(domain.ConsoleRecord{Level: domain.LevelError, Text: "a\nb"}))

	stamped := NewConsole(&bytes.Buffer{}, WithProfile(termenv.Ascii), WithTimestamps(true))
	at := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "15:04:05 [warn] careful", stamped.Format(domain.ConsoleRecord{Level: domain.LevelWarn, Text: "careful", ProducedAt: at}))
}

func TestConsole_Colors(t *testing.T) {
	c := NewConsole(&bytes.Buffer{}, WithProfile(termenv.TrueColor))

	out := c.Format(domain.ConsoleRecord{Level: domain.LevelError, Text: "boom"})
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "boom")
}

func TestConsole_Print(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithProfile(termenv.Ascii))

	require.NoError(t, c.Print([]domain.ConsoleRecord{
		{Level: domain.LevelInfo, Text: "one"},
		{Level: domain.LevelWarn, Text: "two"},
	}))
	assert.Equal(t, "[info] one\n[warn] two\n", buf.String())
}

func TestMarkdown(t *testing.T) {
	assert.Equal(t, "# Title", Markdown("README.md", "# Title"))
	assert.Equal(t, "```javascript\nlet a = 1\n```\n", Markdown("App.js", "let a = 1"))
	assert.Equal(t, "```\nnotes\n```\n", Markdown("notes.txt", "notes\n"))
	assert.Equal(t, "````typescript\n```\n````\n", Markdown("x.ts", "```"))
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("App.js", "console.log('rendered')")
	require.NoError(t, err)
	assert.Contains(t, out, "rendered")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")

	assert.Contains(t, buf.String(), "v0.1.0")
	assert.NotContains(t, buf.String(), "\x1b[")
}
