package runner

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/codeshell/pkg/transpile"
)

var (
	// CommandOverhead is the room left for the verb and target of a command
	// that carries a whole buffer, such as write or edit.
	CommandOverhead = 4 << 10
	// EnvMaxInputSize overrides the limit derived from the transpiler's source limit.
	EnvMaxInputSize = "CODESHELL_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// ansiSequence matches CSI escape sequences such as colours pasted from a terminal.
var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// Sanitizer cleans one input line before it is parsed into a command.
type Sanitizer struct {
	// MaxSize is the largest accepted line in bytes. Zero disables the check.
	MaxSize int
}

// NewSanitizer sizes the limit so any buffer the transpiler accepts also fits in
// a write or edit command.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{MaxSize: maxInputSize()}
}

// Clean rejects oversized or invalid UTF-8 input. Terminal escape sequences and
// control characters other than newline and tab are removed, and CRLF becomes LF.
func (s *Sanitizer) Clean(input string) (string, error) {
	if s.MaxSize > 0 && len(input) > s.MaxSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), s.MaxSize)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if strings.ContainsRune(input, '\x1b') {
		input = ansiSequence.ReplaceAllString(input, "")
	}
	input = strings.ReplaceAll(input, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, input), nil
}

// SanitizeInput cleans input with the default limit.
func SanitizeInput(input string) (string, error) {
	return NewSanitizer().Clean(input)
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	if limit := transpile.New().MaxSourceSize; limit > 0 {
		return limit + CommandOverhead
	}
	return 0
}
