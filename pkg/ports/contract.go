package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWorkspaceStoreContract runs a suite of tests to verify that a WorkspaceStore implementation
// adheres to the defined interface contract.
func RunWorkspaceStoreContract(t *testing.T, store WorkspaceStore) {
	ctx := context.Background()
	wsID := "contract-test-workspace-" + time.Now().Format("20060102150405")

	newWorkspace := func(id string) *domain.Workspace {
		return domain.NewWorkspace(id, domain.Tree{
			{ID: "1", Name: "CODE_PROJECTS", Kind: domain.KindFolder, Children: []*domain.FileNode{
				{ID: "2", Name: "App.js", Kind: domain.KindFile, Content: "greet()"},
			}},
		})
	}

	t.Run("Save and Load", func(t *testing.T) {
		ws := newWorkspace(wsID)
		ws.Editor = ws.Editor.Open(ws.Tree[0].Children[0])
		ws.Console = append(ws.Console, domain.ConsoleRecord{Level: domain.LevelInfo, Text: "hi"})

		require.NoError(t, store.Save(ctx, ws), "Save should not return error")

		loaded, err := store.Load(ctx, wsID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, wsID, loaded.ID)
		assert.Equal(t, "2", loaded.Editor.SelectedFileID)
		assert.Equal(t, "greet()", loaded.Editor.Buffer)
		require.Len(t, loaded.Console, 1)
		assert.Equal(t, "hi", loaded.Console[0].Text)
		require.Len(t, loaded.Tree, 1)
		assert.Equal(t, "App.js", loaded.Tree[0].Children[0].Name)
	})

	t.Run("Loaded copy is isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newWorkspace(wsID)))

		loaded, err := store.Load(ctx, wsID)
		require.NoError(t, err)
		loaded.Console = append(loaded.Console, domain.ConsoleRecord{Level: domain.LevelLog, Text: "local"})

		again, err := store.Load(ctx, wsID)
		require.NoError(t, err)
		assert.Empty(t, again.Console)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+wsID)
		assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newWorkspace(wsID)))

		require.NoError(t, store.Delete(ctx, wsID), "Delete should not return error")

		_, err := store.Load(ctx, wsID)
		assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound, "Load after Delete should return ErrWorkspaceNotFound")

		assert.NoError(t, store.Delete(ctx, wsID), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := wsID + "-1"
		id2 := wsID + "-2"
		_ = store.Save(ctx, newWorkspace(id1))
		_ = store.Save(ctx, newWorkspace(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
