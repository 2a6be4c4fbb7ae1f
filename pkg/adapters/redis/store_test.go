package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/reel/pkg/adapters/redis"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()
	rec := domain.RunRecord{ID: "run-ttl", Status: domain.StatusSuccess, StartedAt: time.Now()}

	require.NoError(t, store.Save(ctx, rec))

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "run-ttl")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	list, err = store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	members, err := mr.ZMembers("reel:run:index")
	if err == nil {
		assert.Empty(t, members, "expired entries are pruned from the index")
	}
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.RunRecord{ID: "my-run", StartedAt: time.Now()}))

	assert.True(t, mr.Exists("custom:app:my-run"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "my-run", list[0].ID)
}

func TestRedisStore_ListReadsOnlyWhatItNeeds(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		require.NoError(t, store.Save(ctx, domain.RunRecord{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	// Records gone without their index entry, as after a TTL expiry.
	mr.Del("reel:run:r5")
	mr.Del("reel:run:r1")

	list, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r4", list[0].ID)
	assert.Equal(t, "r3", list[1].ID)

	members, err := mr.ZMembers("reel:run:index")
	require.NoError(t, err)
	assert.NotContains(t, members, "r5", "expired entries read while listing are pruned")
	assert.Contains(t, members, "r1", "entries past the requested window are not read")
}
