// Package transpile turns editor buffers into plain executable script.
//
// Dispatch is by file extension: .ts/.tsx are compiled as typed script with JSX,
// .js/.jsx as script with JSX, anything else is passed through unchanged.
// The package is stateless and safe for concurrent use.
package transpile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/evanw/esbuild/pkg/api"
)

var (
	// DefaultMaxSourceSize is 1MB.
	DefaultMaxSourceSize = 1 << 20
	// EnvMaxSourceSize is the environment variable to override the default.
	EnvMaxSourceSize = "CODESHELL_MAX_SOURCE_SIZE"
)

// Transpiler implements ports.Transpiler on top of esbuild.
type Transpiler struct {
	// MaxSourceSize rejects larger buffers with domain.ErrSourceTooLarge. Zero disables the check.
	MaxSourceSize int
}

// New creates a Transpiler whose size limit comes from the environment or the default.
func New() *Transpiler {
	return &Transpiler{MaxSourceSize: maxSourceSize()}
}

// Transpile compiles source according to the dialect of fileName.
func (t *Transpiler) Transpile(source, fileName string) (domain.CompiledArtifact, error) {
	if t.MaxSourceSize > 0 && len(source) > t.MaxSourceSize {
		return domain.CompiledArtifact{}, fmt.Errorf("%w: size=%d limit=%d", domain.ErrSourceTooLarge, len(source), t.MaxSourceSize)
	}
	return Transpile(source, fileName)
}

// Transpile compiles source without a size limit.
// Failures are returned as *domain.CompileError.
func Transpile(source, fileName string) (domain.CompiledArtifact, error) {
	dialect := domain.DialectFor(fileName)
	artifact := domain.CompiledArtifact{
		FileName: fileName,
		Dialect:  dialect,
	}

	if dialect == domain.DialectPlain {
		artifact.Code = source
		return artifact, nil
	}

	result := api.Transform(source, api.TransformOptions{
		Loader:     loaderFor(fileName),
		Sourcefile: fileName,
		Sourcemap:  api.SourceMapExternal,
		Target:     api.ES2017,
		Charset:    api.CharsetUTF8,
	})

	if len(result.Errors) > 0 {
		return domain.CompiledArtifact{}, compileError(fileName, result.Errors)
	}

	artifact.Code = string(result.Code)
	artifact.SourceMap = result.Map
	return artifact, nil
}

// loaderFor picks the esbuild loader. Plain .js is parsed with the JSX loader
// so markup is accepted in every script file, as the editor promises.
func loaderFor(fileName string) api.Loader {
	switch domain.Ext(fileName) {
	case "ts":
		return api.LoaderTS
	case "tsx":
		return api.LoaderTSX
	default:
		return api.LoaderJSX
	}
}

func compileError(fileName string, msgs []api.Message) *domain.CompileError {
	first := msgs[0]
	ce := &domain.CompileError{
		FileName: fileName,
		Message:  first.Text,
	}
	if first.Location != nil {
		ce.Line = first.Location.Line
		ce.Column = first.Location.Column
	}
	if len(msgs) > 1 {
		extra := make([]string, 0, len(msgs)-1)
		for _, m := range msgs[1:] {
			extra = append(extra, m.Text)
		}
		ce.Message = fmt.Sprintf("%s (and %d more: %s)", ce.Message, len(extra), strings.Join(extra, "; "))
	}
	return ce
}

func maxSourceSize() int {
	if val := os.Getenv(EnvMaxSourceSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxSourceSize
}
