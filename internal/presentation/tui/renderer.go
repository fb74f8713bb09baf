package tui

import (
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders file text for the terminal using glamour.
// Markdown files are rendered as documents. Everything else becomes a fenced code block
// highlighted in the language of the file name.
func NewRenderer(opts ...glamour.TermRendererOption) func(fileName, text string) (string, error) {
	if len(opts) == 0 {
		opts = []glamour.TermRendererOption{glamour.WithAutoStyle()}
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(_, text string) (string, error) { return text, nil }
	}

	return func(fileName, text string) (string, error) {
		return r.Render(Markdown(fileName, text))
	}
}

// Markdown wraps text in a fenced block unless the file is already markdown.
func Markdown(fileName, text string) string {
	lang := domain.LanguageFor(fileName)
	if lang == "markdown" {
		return text
	}
	if lang == "plaintext" {
		lang = ""
	}

	fence := "```"
	for strings.Contains(text, fence) {
		fence += "`"
	}
	var b strings.Builder
	b.WriteString(fence)
	b.WriteString(lang)
	b.WriteByte('\n')
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
	return b.String()
}
