package transpile_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/transpile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetSource = "// Example JavaScript code\nfunction greet(name) {\n  console.log(`Hello, ${name}!`);\n}\n\ngreet(\"World\");\n"

func TestTranspile_JavaScript(t *testing.T) {
	artifact, err := transpile.Transpile(greetSource, "App.js")
	require.NoError(t, err)

	assert.Equal(t, domain.DialectMarkup, artifact.Dialect)
	assert.Contains(t, artifact.Code, "function greet")
	assert.Contains(t, artifact.Code, `greet("World")`)
	assert.NotEmpty(t, artifact.SourceMap)
}

func TestTranspile_TypeScript(t *testing.T) {
	src := "interface User { name: string }\nconst u: User = { name: \"Ada\" };\nconsole.log(u.name as string);\n"

	artifact, err := transpile.Transpile(src, "main.ts")
	require.NoError(t, err)

	assert.Equal(t, domain.DialectTypedMarkup, artifact.Dialect)
	assert.NotContains(t, artifact.Code, "interface")
	assert.NotContains(t, artifact.Code, ": User")
	assert.Contains(t, artifact.Code, "console.log(u.name)")
}

func TestTranspile_JSX(t *testing.T) {
	src := "const el = <div className=\"a\">hi</div>;\n"

	for _, name := range []string{"view.jsx", "view.tsx", "view.js"} {
		t.Run(name, func(t *testing.T) {
			artifact, err := transpile.Transpile(src, name)
			require.NoError(t, err)
			assert.Contains(t, artifact.Code, "React.createElement")
		})
	}
}

func TestTranspile_Passthrough(t *testing.T) {
	src := "# Notes\n<not> script {"

	for _, name := range []string{"README.md", "data.json", "Makefile", "new-file.txt", "App.JS", "main.TS"} {
		artifact, err := transpile.Transpile(src, name)
		require.NoError(t, err)
		assert.Equal(t, src, artifact.Code)
		assert.Equal(t, domain.DialectPlain, artifact.Dialect)
		assert.Empty(t, artifact.SourceMap)
	}
}

func TestTranspile_SyntaxError(t *testing.T) {
	_, err := transpile.Transpile("function (\n", "broken.js")
	require.Error(t, err)

	var ce *domain.CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "broken.js", ce.FileName)
	assert.Equal(t, 1, ce.Line)
	assert.NotEmpty(t, ce.Message)
	assert.True(t, strings.HasPrefix(err.Error(), "broken.js:1:"))
}

func TestTranspile_TypeErrorInJS(t *testing.T) {
	// Type annotations are not valid in the plain script dialect.
	_, err := transpile.Transpile("let x: number = 1;", "a.js")
	var ce *domain.CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestTranspiler_SizeLimit(t *testing.T) {
	tr := &transpile.Transpiler{MaxSourceSize: 8}

	_, err := tr.Transpile("console.log(1234567890)", "a.js")
	assert.ErrorIs(t, err, domain.ErrSourceTooLarge)

	_, err = tr.Transpile("1", "a.js")
	assert.NoError(t, err)
}

func TestTranspiler_EnvLimit(t *testing.T) {
	t.Setenv(transpile.EnvMaxSourceSize, "16")
	assert.Equal(t, 16, transpile.New().MaxSourceSize)

	t.Setenv(transpile.EnvMaxSourceSize, "garbage")
	assert.Equal(t, transpile.DefaultMaxSourceSize, transpile.New().MaxSourceSize)
}

func TestTranspile_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			artifact, err := transpile.Transpile(greetSource, "App.tsx")
			assert.NoError(t, err)
			assert.Contains(t, artifact.Code, "function greet")
		}()
	}
	wg.Wait()
}
