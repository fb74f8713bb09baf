package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/codeshell/pkg/adapters/memory"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/persistence/middleware"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactionMiddleware(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewRedactionMiddleware(middleware.DefaultRedactPatterns)
	require.NoError(t, err)
	store := mw(underlying)

	ws := domain.NewWorkspace("ws", nil)
	ws.Console = []domain.ConsoleRecord{
		{Level: domain.LevelLog, Text: "connecting with token=abc123"},
		{Level: domain.LevelInfo, Text: "key sk-ABCDEFGHIJKLMNOPQRST in use"},
		{Level: domain.LevelLog, Text: "Hello, World!"},
	}
	require.NoError(t, store.Save(ctx, ws))

	loaded, err := store.Load(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, loaded.Console, 3)
	assert.Equal(t, "connecting with ***", loaded.Console[0].Text)
	assert.Equal(t, "key *** in use", loaded.Console[1].Text)
	assert.Equal(t, "Hello, World!", loaded.Console[2].Text)

	assert.Equal(t, "connecting with token=abc123", ws.Console[0].Text, "caller's workspace is untouched")
}

func TestRedactionMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactionMiddleware([]string{"("})
	assert.ErrorContains(t, err, "invalid redaction pattern")
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	redact, err := middleware.NewRedactionMiddleware([]string{"secret"})
	require.NoError(t, err)
	key := make([]byte, 32)
	encrypt := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})

	store := middleware.Chain(underlying, redact, encrypt)
	ports.RunWorkspaceStoreContract(t, store)

	ws := domain.NewWorkspace("chain", nil)
	ws.Console = []domain.ConsoleRecord{{Level: domain.LevelLog, Text: "a secret"}}
	require.NoError(t, store.Save(ctx, ws))

	raw, err := underlying.Load(ctx, "chain")
	require.NoError(t, err)
	assert.Equal(t, middleware.EnvelopeNodeID, raw.Tree[0].ID)

	loaded, err := store.Load(ctx, "chain")
	require.NoError(t, err)
	assert.Equal(t, "a ***", loaded.Console[0].Text)
}
