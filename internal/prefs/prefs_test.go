package prefs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := OpenGorm(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
	fail error
}

func newMapStore() *mapStore { return &mapStore{data: map[string]string{}} }

func (m *mapStore) Put(_ context.Context, k, v string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[k] = v
	return nil
}

func (m *mapStore) Get(_ context.Context, k string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	v, ok := m.data[k]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *mapStore) Delete(_ context.Context, k string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, k)
	return m.fail
}

func (m *mapStore) Close() error { return nil }

func TestGormStore_PutGetOverwrite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Put(ctx, "k", "v1", time.Hour))
	require.NoError(t, s.Put(ctx, "k", "v2", time.Hour))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ExpiredRecordIsMissing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "stale", "p-1", time.Minute))
	require.NoError(t, s.Put(ctx, "fresh", "p-2", time.Hour))

	now = now.Add(2 * time.Minute)
	_, err := s.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "p-2", v)

	require.NoError(t, s.Put(ctx, "stale2", "x", time.Second))
	now = now.Add(time.Minute)
	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestIdentities_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ids := NewIdentities(openTestStore(t), time.Hour)

	_, err := ids.Load(ctx, "sk-1", "u-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ids.Save(ctx, "u-1", Identity{SessionKey: "sk-1", PlayerID: "p-9"}))
	got, err := ids.Load(ctx, "sk-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "p-9", got.PlayerID)
	assert.False(t, got.SavedAt.IsZero())

	_, err = ids.Load(ctx, "sk-1", "u-2")
	assert.ErrorIs(t, err, ErrNotFound, "records are per user")

	require.NoError(t, ids.Forget(ctx, "sk-1", "u-1"))
	_, err = ids.Load(ctx, "sk-1", "u-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTiered_FallsBackToDurable(t *testing.T) {
	ctx := context.Background()
	cache := newMapStore()
	tiered := &Tiered{Cache: cache, Durable: openTestStore(t)}

	require.NoError(t, tiered.Put(ctx, "k", "v", time.Hour))
	assert.Equal(t, "v", cache.data["k"])

	cache.fail = errors.New("cache down")
	v, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, tiered.Put(ctx, "k2", "v2", time.Hour), "cache failure does not fail writes")
	assert.Error(t, tiered.Delete(ctx, "k2"))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("BATTLE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BATTLE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s := NewRedis(addr)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "t-key", "v", time.Minute))
	v, err := s.Get(ctx, "t-key")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	require.NoError(t, s.Delete(ctx, "t-key"))
	_, err = s.Get(ctx, "t-key")
	assert.ErrorIs(t, err, ErrNotFound)
}
