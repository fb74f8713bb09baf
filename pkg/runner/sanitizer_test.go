package runner

import (
	"strings"
	"testing"

	"github.com/aretw0/codeshell/pkg/transpile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizer_SizeLimit(t *testing.T) {
	s := &Sanitizer{MaxSize: 16}

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", 15, false},
		{"Exact Limit", 16, false},
		{"Over Limit", 17, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Clean(strings.Repeat("a", tt.inputSize))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := (&Sanitizer{}).Clean(strings.Repeat("a", 1<<16))
	assert.NoError(t, err, "zero disables the limit")
}

func TestSanitizer_FitsLargestSource(t *testing.T) {
	s := NewSanitizer()
	assert.Equal(t, transpile.New().MaxSourceSize+CommandOverhead, s.MaxSize)

	line := "write #2 " + strings.Repeat("x", transpile.New().MaxSourceSize)
	_, err := s.Clean(line)
	assert.NoError(t, err)
}

func TestSanitizer_SourceLimitFromEnv(t *testing.T) {
	t.Setenv(transpile.EnvMaxSourceSize, "100")
	assert.Equal(t, 100+CommandOverhead, NewSanitizer().MaxSize)
}

func TestSanitizeInput_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "console.log('hi')", "console.log('hi')"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"CRLF", "a\r\nb\r", "a\nb"},
		{"ANSI Colour", "\x1b[31mRed\x1b[0m", "Red"},
		{"Bare Escape", "esc\x1bape", "escape"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
		{"Bell", "Ding\x07", "Ding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")

	_, err := SanitizeInput("12345678901")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = SanitizeInput("12345")
	assert.NoError(t, err)
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	_, err := SanitizeInput("\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
