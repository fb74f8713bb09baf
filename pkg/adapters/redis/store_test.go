package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/codeshell"
	"github.com/aretw0/codeshell/internal/testutils"
	"github.com/aretw0/codeshell/pkg/adapters/redis"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/idgen"
	"github.com/aretw0/codeshell/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunWorkspaceStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	now := time.Now()
	clock := func() time.Time { return now }
	store := redis.NewFromClient(client, redis.WithTTL(time.Second), redis.WithClock(clock))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewWorkspace("ws-ttl", nil)))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "ws-ttl")

	// Expire the value in miniredis and move the index clock past the deadline.
	mr.FastForward(2 * time.Second)
	now = now.Add(2 * time.Second)

	_, err = store.Load(ctx, "ws-ttl")
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewWorkspace("my-ws", nil)))

	assert.True(t, mr.Exists("custom:app:ws:my-ws"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-ws"}, list)
	assert.Equal(t, "custom:app:", store.Prefix())
}

func TestRedisStore_BacksShell(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	newShell := func() *codeshell.Shell {
		return codeshell.New(
			codeshell.WithStore(store),
			codeshell.WithLocker(redis.NewLocker(store.Client(), store.Prefix())),
			codeshell.WithClock(testutils.FixedClock),
			codeshell.WithIDGenerator(idgen.NewSequence("n", 0)),
		)
	}

	// Two replicas sharing one redis.
	a, b := newShell(), newShell()
	_, err := a.Open(ctx, "shared")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, s := range []*codeshell.Shell{a, b} {
		wg.Add(1)
		go func(s *codeshell.Shell) {
			defer wg.Done()
			_, _, err := s.Run(ctx, "shared")
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrRunInProgress)
			}
		}(s)
	}
	wg.Wait()

	ws, err := b.Workspace(ctx, "shared")
	require.NoError(t, err)
	assert.False(t, ws.Editor.Running)
	assert.Contains(t, []int{5, 10}, len(ws.Console))
}
