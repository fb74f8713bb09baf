package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
//
// Each input line is either a Command object ({"op":"run","target":"#2"}) or a JSON
// string holding the text syntax ("run #2"). Each reply is written as one JSON object.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Input reads the next non-blank line. Malformed lines are answered with an error reply
// and skipped.
func (h *JSONHandler) Input(ctx context.Context) (Command, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Command{}, err
		}

		line, err := h.Reader.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			return Command{}, err
		}

		cmd, perr := h.decode(line)
		if perr != nil {
			if werr := h.Output(ctx, Reply{Error: perr.Error()}); werr != nil {
				return Command{}, werr
			}
			continue
		}
		if cmd.Op == "" {
			continue
		}
		return cmd, nil
	}
}

func (h *JSONHandler) decode(line string) (Command, error) {
	line, err := SanitizeInput(strings.TrimSpace(line))
	if err != nil {
		return Command{}, err
	}
	if line == "" {
		return Command{}, nil
	}

	if strings.HasPrefix(line, `"`) {
		var text string
		if err := json.Unmarshal([]byte(line), &text); err != nil {
			return Command{}, fmt.Errorf("invalid json string: %w", err)
		}
		return ParseCommand(text)
	}

	var cmd Command
	if err := json.Unmarshal([]byte(line), &cmd); err != nil {
		return Command{}, fmt.Errorf("invalid command: %w", err)
	}
	if cmd.Op == "" {
		return Command{}, fmt.Errorf("invalid command: missing op")
	}
	if cmd.Op == "quit" {
		cmd.Op = OpExit
	}
	return cmd, nil
}

// Output emits the reply as a single JSON line.
func (h *JSONHandler) Output(ctx context.Context, reply Reply) error {
	return h.Encoder.Encode(reply)
}
