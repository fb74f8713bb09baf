package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, opts Options) *App {
	t.Helper()
	app, err := Build(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

const throwingSeed = `
nodes:
  - id: "1"
    name: boom.js
    content: |
      console.log("before");
      throw new Error("boom");
  - id: "2"
    name: bad.ts
    content: "const x: = 1;"
`

func TestPrintTree(t *testing.T) {
	ctx := context.Background()
	app := build(t, Options{})
	assert.Equal(t, "default", app.WorkspaceID)

	t.Run("tree", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, PrintTree(ctx, app, &out, FormatTree, false))
		assert.Equal(t, "v CODE_PROJECTS/\n  * App.js\n", out.String())
	})

	t.Run("tree with ids", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, PrintTree(ctx, app, &out, "", true))
		assert.Contains(t, out.String(), "App.js  #2")
	})

	t.Run("paths", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, PrintTree(ctx, app, &out, FormatPaths, false))
		assert.Equal(t, "CODE_PROJECTS/\nCODE_PROJECTS/App.js\n", out.String())
	})

	t.Run("mermaid", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, PrintTree(ctx, app, &out, FormatMermaid, false))
		assert.True(t, strings.HasPrefix(out.String(), "graph TD\n"))
		assert.Contains(t, out.String(), "App.js")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, PrintTree(ctx, app, &out, FormatJSON, false))
		var tr domain.Tree
		require.NoError(t, json.Unmarshal(out.Bytes(), &tr))
		require.Len(t, tr, 1)
		assert.Equal(t, "CODE_PROJECTS", tr[0].Name)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.ErrorContains(t, PrintTree(ctx, app, &bytes.Buffer{}, "xml", false), `unknown format "xml"`)
	})
}

func TestShowCompileRun(t *testing.T) {
	ctx := context.Background()
	app := build(t, Options{})

	var show bytes.Buffer
	require.NoError(t, Show(ctx, app, &show, "CODE_PROJECTS/App.js"))
	assert.Contains(t, show.String(), `greet("World");`)

	var compiled bytes.Buffer
	require.NoError(t, Compile(ctx, app, &compiled, "#2"))
	assert.Contains(t, compiled.String(), "greet")

	var run bytes.Buffer
	require.NoError(t, Run(ctx, app, &run, ""))
	assert.Contains(t, run.String(), "[log] Hello, World!")
	assert.Contains(t, run.String(), "[error] This is an error")

	assert.ErrorIs(t, Run(ctx, app, &bytes.Buffer{}, "#1"), domain.ErrNotAFile)
	assert.ErrorIs(t, Compile(ctx, app, &bytes.Buffer{}, "missing.js"), domain.ErrNodeNotFound)
	assert.ErrorContains(t, Show(ctx, app, &bytes.Buffer{}, "missing.js"), "node not found")
}

func TestRun_Failures(t *testing.T) {
	ctx := context.Background()
	app := build(t, Options{SeedPath: writeSeed(t, throwingSeed)})

	var out bytes.Buffer
	err := Run(ctx, app, &out, "boom.js")
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, out.String(), "[log] before")
	assert.Contains(t, out.String(), "boom")

	assert.ErrorIs(t, Run(ctx, app, &bytes.Buffer{}, "bad.ts"), ErrRunFailed)
	assert.Error(t, Compile(ctx, app, &bytes.Buffer{}, "bad.ts"))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, Validate(ctx, build(t, Options{})))

	err := Validate(ctx, build(t, Options{SeedPath: writeSeed(t, throwingSeed)}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.ts")
}

func TestExportAndLoadArchive(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "archive")

	app := build(t, Options{Workspace: "demo"})
	_, err := app.Shell.Open(ctx, "demo")
	require.NoError(t, err)
	_, err = app.Shell.SetContent(ctx, "demo", "2", `console.log("archived")`)
	require.NoError(t, err)
	require.NoError(t, Export(ctx, app, dir))

	sd, err := LoadSeed(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "2", sd.Selected)

	restored := build(t, Options{SeedPath: dir})
	var out bytes.Buffer
	require.NoError(t, Run(ctx, restored, &out, ""))
	assert.Contains(t, out.String(), "[log] archived")
}

func TestLoadSeed_Missing(t *testing.T) {
	_, err := LoadSeed(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read seed")
}

func TestBuild_FileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := build(t, Options{StoreDir: dir})
	_, err := first.Shell.Open(ctx, first.WorkspaceID)
	require.NoError(t, err)
	_, err = first.Shell.SetContent(ctx, first.WorkspaceID, "2", "console.log(1)")
	require.NoError(t, err)

	second := build(t, Options{StoreDir: dir})
	var out bytes.Buffer
	require.NoError(t, Show(ctx, second, &out, "#2"))
	assert.Equal(t, "console.log(1)\n", out.String())
}

func TestBuild_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	app := build(t, Options{RedisAddr: mr.Addr(), Workspace: "shared"})
	_, err := app.Shell.Open(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, mr.Exists("codeshell:ws:shared"))

	addr := mr.Addr()
	mr.Close()
	_, err = Build(ctx, Options{RedisAddr: addr})
	assert.ErrorContains(t, err, "redis unreachable")
}

func TestBuild_EncryptedFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := strings.Repeat("ab", 32)

	first := build(t, Options{StoreDir: dir, EncryptionKey: key, Redact: true})
	_, err := first.Shell.Open(ctx, first.WorkspaceID)
	require.NoError(t, err)
	_, err = first.Shell.SetContent(ctx, first.WorkspaceID, "2", `console.log("password=hunter2")`)
	require.NoError(t, err)
	_, err = first.Shell.Select(ctx, first.WorkspaceID, "2")
	require.NoError(t, err)
	_, _, err = first.Shell.Run(ctx, first.WorkspaceID)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "default.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
	assert.NotContains(t, string(raw), "App.js")

	second := build(t, Options{StoreDir: dir, EncryptionKey: key})
	ws, err := second.Shell.Open(ctx, second.WorkspaceID)
	require.NoError(t, err)
	require.NotEmpty(t, ws.Console)
	assert.Equal(t, "***", ws.Console[0].Text)

	wrong := build(t, Options{StoreDir: dir, EncryptionKey: strings.Repeat("cd", 32)})
	_, err = wrong.Shell.Open(ctx, wrong.WorkspaceID)
	assert.ErrorContains(t, err, "failed to decrypt")
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey(strings.Repeat("0f", 32))
	require.NoError(t, err)
	assert.Len(t, key, 32)

	key, err = ParseKey("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = ParseKey("short")
	assert.Error(t, err)

	_, err = Build(context.Background(), Options{EncryptionKey: "short"})
	assert.ErrorContains(t, err, "32 bytes")
	_, err = Build(context.Background(), Options{RedactPatterns: []string{"("}})
	assert.ErrorContains(t, err, "invalid redaction pattern")
}

func TestBuild_InvalidLogging(t *testing.T) {
	_, err := Build(context.Background(), Options{LogFormat: "xml"})
	assert.Error(t, err)
	_, err = Build(context.Background(), Options{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestRunShell(t *testing.T) {
	app := build(t, Options{})
	in := strings.NewReader("ls\nrun\nexit\n")
	var out bytes.Buffer

	require.NoError(t, RunShell(context.Background(), app, in, &out, ShellOptions{Quiet: true}))
	assert.Contains(t, out.String(), "* App.js")
	assert.Contains(t, out.String(), "[log] Hello, World!")
}

func TestRunShell_Banner(t *testing.T) {
	app := build(t, Options{})
	var out bytes.Buffer

	require.NoError(t, RunShell(context.Background(), app, strings.NewReader(""), &out, ShellOptions{}))
	assert.Contains(t, out.String(), ">>> Workspace 'default' open.")
	assert.Contains(t, out.String(), ">>> Bye.")
}

func TestRunShell_JSON(t *testing.T) {
	app := build(t, Options{})
	in := strings.NewReader(`{"op":"cat"}` + "\n" + `"run"` + "\n")
	var out bytes.Buffer

	require.NoError(t, RunShell(context.Background(), app, in, &out, ShellOptions{JSON: true}))

	dec := json.NewDecoder(&out)
	var replies []map[string]any
	for dec.More() {
		var r map[string]any
		require.NoError(t, dec.Decode(&r))
		replies = append(replies, r)
	}
	require.Len(t, replies, 2)
	assert.Equal(t, "cat", replies[0]["op"])
	assert.Equal(t, true, replies[1]["ok"])
	assert.Len(t, replies[1]["records"], 5)
}

func TestFileWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.js")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fw := &FileWatcher{Path: path, Debounce: 10 * time.Millisecond}
	ch, err := fw.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("2"), 0644))
	select {
	case name := <-ch:
		assert.Equal(t, path, name)
	case <-time.After(2 * time.Second):
		t.Fatal("change not detected")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, err = (&FileWatcher{Path: filepath.Join(t.TempDir(), "none.js")}).Watch(context.Background())
	assert.Error(t, err)
}

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.js")
	require.NoError(t, os.WriteFile(path, []byte(`console.log("first")`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- RunWatch(ctx, Options{}, WatchOptions{File: path, Debounce: 10 * time.Millisecond}, out)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Waiting for changes...")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "[log] first")

	require.NoError(t, os.WriteFile(path, []byte(`console.log("second")`), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[log] second")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "Change detected in")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunWatch_NeedsSource(t *testing.T) {
	err := RunWatch(context.Background(), Options{}, WatchOptions{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "watch needs a file")
}

func TestMirror_NewNode(t *testing.T) {
	ctx := context.Background()
	app := build(t, Options{SeedPath: writeSeed(t, "nodes:\n  - docs/\n")})
	path := filepath.Join(t.TempDir(), "hello.ts")
	require.NoError(t, os.WriteFile(path, []byte(`const n: number = 1; console.log(n)`), 0644))

	require.NoError(t, mirror(ctx, app, WatchOptions{File: path}))
	var out bytes.Buffer
	require.NoError(t, Run(ctx, app, &out, ""))
	assert.Equal(t, "[log] 1\n", out.String())

	assert.ErrorIs(t, mirror(ctx, app, WatchOptions{File: path, Node: "docs"}), domain.ErrNotAFile)
}
