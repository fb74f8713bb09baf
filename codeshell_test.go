package codeshell_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/codeshell"
	"github.com/aretw0/codeshell/internal/testutils"
	"github.com/aretw0/codeshell/pkg/adapters/memory"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/idgen"
	"github.com/aretw0/codeshell/pkg/seed"
	"github.com/aretw0/codeshell/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShell(opts ...codeshell.Option) *codeshell.Shell {
	base := []codeshell.Option{
		codeshell.WithClock(testutils.FixedClock),
		codeshell.WithIDGenerator(idgen.NewSequence("n", 0)),
	}
	return codeshell.New(append(base, opts...)...)
}

func TestShell_OpenSeedsDefaultWorkspace(t *testing.T) {
	ctx := context.Background()
	shell := newShell()

	_, err := shell.Workspace(ctx, "demo")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)

	ws, err := shell.Open(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", ws.ID)
	assert.Equal(t, "2", ws.Editor.SelectedFileID)
	assert.Equal(t, "CODE_PROJECTS/App.js", tree.Path(ws.Tree, "2"))

	again, err := shell.Open(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, ws.Tree, again.Tree)

	ids, err := shell.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, ids)

	require.NoError(t, shell.Drop(ctx, "demo"))
	_, err = shell.Workspace(ctx, "demo")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestShell_RunSample(t *testing.T) {
	ctx := context.Background()
	shell := newShell()
	_, err := shell.Open(ctx, "demo")
	require.NoError(t, err)

	ws, res, err := shell.Run(ctx, "demo")
	require.NoError(t, err)
	assert.False(t, res.Failed())
	require.Len(t, ws.Console, 5)
	assert.Equal(t, "Hello, World!", ws.Console[0].Text)
	assert.False(t, ws.Editor.Running)

	stored, err := shell.Workspace(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, stored.Console, 5)
}

func TestShell_EditingFlow(t *testing.T) {
	ctx := context.Background()
	shell := newShell()
	_, err := shell.Open(ctx, "w")
	require.NoError(t, err)

	ws, fileID, err := shell.AddNode(ctx, "w", "1", domain.KindFile)
	require.NoError(t, err)
	assert.Equal(t, "n1", fileID)

	ws, err = shell.RenameNode(ctx, "w", fileID, "main.ts")
	require.NoError(t, err)
	assert.Equal(t, "CODE_PROJECTS/main.ts", tree.Path(ws.Tree, fileID))

	ws, err = shell.Select(ctx, "w", fileID)
	require.NoError(t, err)
	assert.Equal(t, fileID, ws.Editor.SelectedFileID)
	assert.Empty(t, ws.Editor.Buffer)

	ws, err = shell.Edit(ctx, "w", "const n: number = 2;\nconsole.log(n * 21);")
	require.NoError(t, err)
	require.NotNil(t, ws.Compiled)

	ws, err = shell.Save(ctx, "w")
	require.NoError(t, err)
	assert.Contains(t, tree.Find(ws.Tree, fileID).Content, "n * 21")

	ws, res, err := shell.Run(ctx, "w")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "42", ws.Console[0].Text)

	ws, err = shell.ClearConsole(ctx, "w")
	require.NoError(t, err)
	assert.Empty(t, ws.Console)

	ws, cleared, err := shell.DeleteNode(ctx, "w", fileID)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.False(t, ws.Editor.HasSelection())

	_, _, err = shell.Run(ctx, "w")
	assert.ErrorIs(t, err, domain.ErrNoSelection)
}

func TestShell_ToggleCloseCompile(t *testing.T) {
	ctx := context.Background()
	shell := newShell()
	_, err := shell.Open(ctx, "w")
	require.NoError(t, err)

	ws, err := shell.Compile(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, ws.Compiled)
	assert.Contains(t, ws.Compiled.Code, "function greet")

	ws, err = shell.ToggleCompiled(ctx, "w")
	require.NoError(t, err)
	assert.True(t, ws.Editor.ShowCompiled)

	ws, err = shell.Close(ctx, "w")
	require.NoError(t, err)
	assert.False(t, ws.Editor.HasSelection())
}

func TestShell_RunInProgress(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	exec := testutils.ExecutorFunc(func(ctx context.Context, a domain.CompiledArtifact) domain.RunResult {
		close(started)
		<-release
		return domain.RunResult{Records: []domain.ConsoleRecord{{Level: domain.LevelLog, Text: "done"}}}
	})
	shell := newShell(codeshell.WithExecutor(exec))
	_, err := shell.Open(ctx, "w")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ws, _, err := shell.Run(ctx, "w")
		assert.NoError(t, err)
		assert.False(t, ws.Editor.Running)
	}()

	<-started
	_, _, err = shell.Run(ctx, "w")
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	ws, err := shell.Workspace(ctx, "w")
	require.NoError(t, err)
	assert.True(t, ws.Editor.Running, "the workspace is readable while code executes")

	close(release)
	wg.Wait()

	ws, err = shell.Workspace(ctx, "w")
	require.NoError(t, err)
	assert.False(t, ws.Editor.Running)
	require.Len(t, ws.Console, 1)
}

// failingStore fails the save with the given 1-based index.
type failingStore struct {
	*memory.Store
	mu     sync.Mutex
	saves  int
	failOn int
}

func (s *failingStore) Save(ctx context.Context, ws *domain.Workspace) error {
	s.mu.Lock()
	s.saves++
	n := s.saves
	s.mu.Unlock()
	if n == s.failOn {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, ws)
}

func TestShell_Run_ClearsFlagWhenRecordsCannotBeStored(t *testing.T) {
	ctx := context.Background()
	// Saves: 1 create, 2 run start, 3 run records.
	store := &failingStore{Store: memory.NewStore(), failOn: 3}
	shell := newShell(codeshell.WithStore(store))
	_, err := shell.Open(ctx, "w")
	require.NoError(t, err)

	ws, res, err := shell.Run(ctx, "w")
	require.ErrorContains(t, err, "disk full")
	assert.Nil(t, ws)
	assert.Len(t, res.Records, 5)

	ws, err = shell.Workspace(ctx, "w")
	require.NoError(t, err)
	assert.False(t, ws.Editor.Running)
	assert.Empty(t, ws.Console)

	ws, _, err = shell.Run(ctx, "w")
	require.NoError(t, err)
	assert.Len(t, ws.Console, 5)
}

func TestShell_Run_ExpiredFlagDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	shell := newShell(codeshell.WithStore(store))
	ws, err := shell.Open(ctx, "w")
	require.NoError(t, err)

	// A process that died mid-run left the flag behind.
	stuck := ws.Snapshot()
	stuck.Editor = stuck.Editor.StartRun(testutils.FixedTime.Add(-time.Hour))
	require.NoError(t, store.Save(ctx, stuck))

	ws, _, err = shell.Run(ctx, "w")
	require.NoError(t, err)
	assert.False(t, ws.Editor.Running)
	assert.Len(t, ws.Console, 5)

	stuck.Editor = stuck.Editor.StartRun(testutils.FixedTime)
	require.NoError(t, store.Save(ctx, stuck))
	_, _, err = shell.Run(ctx, "w")
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

func TestShell_RunTimeout(t *testing.T) {
	ctx := context.Background()
	shell := newShell(codeshell.WithRunTimeout(50 * time.Millisecond))
	_, err := shell.Open(ctx, "w")
	require.NoError(t, err)
	_, err = shell.Edit(ctx, "w", "for (;;) {}")
	require.NoError(t, err)

	ws, res, err := shell.Run(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, res.Err)
	assert.True(t, res.Err.Interrupted)
	assert.False(t, ws.Editor.Running)
}

func TestShell_Subscribe(t *testing.T) {
	ctx := context.Background()
	shell := newShell()
	_, err := shell.Open(ctx, "w")
	require.NoError(t, err)
	_, err = shell.Open(ctx, "other")
	require.NoError(t, err)

	records, cancel := shell.Subscribe("w")
	defer cancel()

	_, _, err = shell.Run(ctx, "other")
	require.NoError(t, err)
	_, _, err = shell.Run(ctx, "w")
	require.NoError(t, err)

	var got []string
	for i := 0; i < 5; i++ {
		select {
		case rec := <-records:
			got = append(got, rec.Text)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for records")
		}
	}
	assert.Equal(t, "Hello, World!", got[0])

	select {
	case rec := <-records:
		t.Fatalf("unexpected record from another workspace: %v", rec)
	default:
	}

	cancel()
	cancel()
}

func TestShell_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	rec := &testutils.HookRecorder{}
	shell := newShell(codeshell.WithLifecycleHooks(rec.Hooks()))
	_, err := shell.Open(ctx, "w")
	require.NoError(t, err)

	_, _, err = shell.Run(ctx, "w")
	require.NoError(t, err)
	assert.Len(t, rec.Records, 5)
	assert.Len(t, rec.Finishes, 1)

	_, err = shell.Transpile(ctx, "const a: string = 'x'", "a.ts")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Compiles)
}

func TestShell_SeedOption(t *testing.T) {
	ctx := context.Background()
	sample := testutils.SampleWorkspace(t, "ignored")
	shell := newShell(codeshell.WithSeed(&seed.Seed{Name: "sample", Tree: sample.Tree}))
	ws, err := shell.Open(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, 5, tree.Count(ws.Tree))
	assert.False(t, ws.Editor.HasSelection())
}
