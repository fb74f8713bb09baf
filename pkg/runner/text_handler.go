package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/lifecycle"
)

// ContentRenderer transforms file text before it is printed.
// This allows terminal styling without coupling the core package.
type ContentRenderer func(fileName, text string) (string, error)

// RecordFormatter renders one console record as a line of text.
type RecordFormatter func(domain.ConsoleRecord) string

// TreeRenderer renders the explorer view of a workspace.
type TreeRenderer func(*domain.Workspace) string

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	source      io.Reader
	interactive bool // true if reading from CONIN$ (Windows) where EOF should be ignored
	Reader      *bufio.Reader
	Writer      io.Writer

	Renderer     ContentRenderer
	FormatRecord RecordFormatter
	RenderTree   TreeRenderer

	// Prompt is printed before every read. Empty disables it.
	Prompt string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithRecordFormatter configures how console records are printed.
func WithRecordFormatter(f RecordFormatter) TextHandlerOption {
	return func(h *TextHandler) {
		h.FormatRecord = f
	}
}

// WithTreeRenderer configures how ls prints the workspace.
func WithTreeRenderer(r TreeRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.RenderTree = r
	}
}

// WithPrompt overrides the input prompt.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Writer: w,
		Prompt: "> ",
	}

	// On Windows terminals input must come from CONIN$ for signals to interrupt reads.
	h.source, h.interactive = resolveInputReader(r)
	h.Reader = bufio.NewReader(h.source)

	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				if h.interactive {
					// A signal can surface as EOF on CONIN$ while the stream stays usable.
					h.inputChan <- inputResult{err: io.EOF}
					time.Sleep(50 * time.Millisecond)
					continue
				}
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Input reads lines until one parses into a command.
// Oversized, malformed or unknown lines are reported and the prompt is shown again.
func (h *TextHandler) Input(ctx context.Context) (Command, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		default:
			if h.Prompt != "" {
				fmt.Fprint(h.Writer, h.Prompt)
			}
		}

		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return Command{}, io.EOF
			}
			if res.err != nil {
				return Command{}, res.err
			}

			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			cmd, err := ParseCommand(clean)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v\n", err)
				continue
			}
			if cmd.Op == "" {
				continue
			}
			return cmd, nil
		}
	}
}

// Output prints a reply as plain lines.
func (h *TextHandler) Output(ctx context.Context, reply Reply) error {
	if !reply.OK {
		_, err := fmt.Fprintf(h.Writer, "Error: %s\n", reply.Error)
		return err
	}

	var b strings.Builder
	switch {
	case reply.Op == OpList && h.RenderTree != nil && reply.Workspace != nil:
		b.WriteString(strings.TrimRight(h.RenderTree(reply.Workspace), "\n"))
		b.WriteByte('\n')
	case len(reply.Paths) > 0:
		for _, p := range reply.Paths {
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}

	if reply.Text != "" {
		b.WriteString(strings.TrimRight(h.render(reply), "\n"))
		b.WriteByte('\n')
	}

	for _, rec := range reply.Records {
		b.WriteString(h.formatRecord(rec))
		b.WriteByte('\n')
	}

	if reply.Message != "" {
		b.WriteString(reply.Message)
		b.WriteByte('\n')
	}

	_, err := io.WriteString(h.Writer, b.String())
	return err
}

func (h *TextHandler) render(reply Reply) string {
	if h.Renderer == nil || reply.Op == OpHelp {
		return reply.Text
	}
	name := ""
	if reply.Workspace != nil && reply.NodeID != "" {
		name = nodeName(reply.Workspace, reply.NodeID)
	}
	if reply.Op == OpCompile {
		name += ".compiled.js"
	}
	out, err := h.Renderer(name, reply.Text)
	if err != nil {
		return reply.Text
	}
	return out
}

func (h *TextHandler) formatRecord(rec domain.ConsoleRecord) string {
	if h.FormatRecord != nil {
		return h.FormatRecord(rec)
	}
	return fmt.Sprintf("[%s] %s", rec.Level, rec.Text)
}

// resolveInputReader opens the platform terminal reader (CONIN$ on Windows) when r is a terminal.
// It reports whether the returned reader needs the interactive EOF handling.
func resolveInputReader(r io.Reader) (io.Reader, bool) {
	if up, err := lifecycle.UpgradeTerminal(r); err == nil && up != r {
		return up, true
	}
	return r, false
}
