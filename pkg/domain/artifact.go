package domain

import (
	"path"
	"strings"
)

// Dialect is the source flavour a file is transpiled from, resolved from its name.
type Dialect int

const (
	// DialectPlain is passed through unchanged.
	DialectPlain Dialect = iota
	// DialectMarkup is script with JSX (.js, .jsx).
	DialectMarkup
	// DialectTypedMarkup is typed script with JSX (.ts, .tsx).
	DialectTypedMarkup
)

func (d Dialect) String() string {
	switch d {
	case DialectMarkup:
		return "markup"
	case DialectTypedMarkup:
		return "typed-markup"
	default:
		return "plain"
	}
}

// Ext returns the extension of name without the dot ("" when absent).
// Matching is case-sensitive: "App.JS" is not a script.
func Ext(name string) string {
	return strings.TrimPrefix(path.Ext(name), ".")
}

// DialectFor resolves the dialect of a file from its name.
func DialectFor(name string) Dialect {
	switch Ext(name) {
	case "ts", "tsx":
		return DialectTypedMarkup
	case "js", "jsx":
		return DialectMarkup
	default:
		return DialectPlain
	}
}

// IsRunnable reports whether the editor offers run and compiled-preview for this file.
func IsRunnable(name string) bool {
	return DialectFor(name) != DialectPlain
}

// LanguageFor maps a file name to the editor's syntax highlighting language.
func LanguageFor(name string) string {
	switch Ext(name) {
	case "ts", "tsx":
		return "typescript"
	case "js", "jsx":
		return "javascript"
	case "json":
		return "json"
	case "html":
		return "html"
	case "css":
		return "css"
	case "md":
		return "markdown"
	default:
		return "plaintext"
	}
}

// CompiledArtifact is the executable output of a successful transpile.
// It is derived from the buffer text and file name and never persisted.
type CompiledArtifact struct {
	FileName string  `json:"file_name"`
	Dialect  Dialect `json:"dialect"`
	Code     string  `json:"code"`
	// SourceMap maps Code back to the original source (empty for plain passthrough).
	SourceMap []byte `json:"source_map,omitempty"`
}
