package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/muesli/termenv"
)

var levelColors = map[domain.Level]string{
	domain.LevelLog:   "#9ca3af",
	domain.LevelInfo:  "#60a5fa",
	domain.LevelWarn:  "#facc15",
	domain.LevelError: "#f87171",
}

// Console prints console records the way the browser pane shows them:
// a colored level tag, the text, and continuation lines indented under it.
type Console struct {
	w          io.Writer
	out        *termenv.Output
	outOpts    []termenv.OutputOption
	timestamps bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithTimestamps prefixes every record with its production time.
func WithTimestamps(enabled bool) ConsoleOption {
	return func(c *Console) {
		c.timestamps = enabled
	}
}

// WithProfile forces a color profile, mostly for tests.
func WithProfile(p termenv.Profile) ConsoleOption {
	return func(c *Console) {
		c.outOpts = append(c.outOpts, termenv.WithProfile(p))
	}
}

// NewConsole creates a Console whose colors follow the capabilities of w.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{w: w}
	for _, opt := range opts {
		opt(c)
	}
	c.out = termenv.NewOutput(w, c.outOpts...)
	return c
}

// Format renders one record without a trailing newline.
func (c *Console) Format(rec domain.ConsoleRecord) string {
	tag := fmt.Sprintf("[%s]", rec.Level)
	pad := strings.Repeat(" ", len(tag)+1)
	if c.timestamps && !rec.ProducedAt.IsZero() {
		ts := rec.ProducedAt.Format("15:04:05")
		tag = c.out.String(ts).Faint().String() + " " + c.style(rec.Level, tag)
		pad = strings.Repeat(" ", len(ts)+1) + pad
	} else {
		tag = c.style(rec.Level, tag)
	}

	text := strings.ReplaceAll(rec.Text, "\n", "\n"+pad)
	if rec.Level == domain.LevelError {
		text = c.out.String(text).Foreground(c.out.Color(levelColors[domain.LevelError])).String()
	}
	return tag + " " + text
}

// Print writes every record on its own line.
func (c *Console) Print(records []domain.ConsoleRecord) error {
	for _, rec := range records {
		if _, err := fmt.Fprintln(c.w, c.Format(rec)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) style(level domain.Level, s string) string {
	color, ok := levelColors[level]
	if !ok {
		return s
	}
	st := c.out.String(s).Foreground(c.out.Color(color))
	if level == domain.LevelError || level == domain.LevelWarn {
		st = st.Bold()
	}
	return st.String()
}
