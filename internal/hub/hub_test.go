package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/boss-battle-client/internal/battle"
	"github.com/DoyleJ11/boss-battle-client/internal/engine"
)

func builder(key string) Builder {
	return func(ctx context.Context) *battle.Battle {
		return battle.New(ctx, battle.Options{Mount: engine.Mount{SessionKey: key}})
	}
}

func closed(b *battle.Battle) bool {
	select {
	case <-b.Done():
		return true
	case <-time.After(time.Second):
		return false
	}
}

func TestHub_Mount_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)
	reply := make(chan *battle.Battle, 1)

	h.Inbox() <- MountBattle{SessionKey: "sk-1", Build: builder("sk-1"), Reply: reply}
	b1 := <-reply

	h.Inbox() <- MountBattle{SessionKey: "sk-1", Build: builder("sk-1"), Reply: reply}
	b2 := <-reply

	h.Inbox() <- GetBattle{SessionKey: "sk-1", Reply: reply}
	b3 := <-reply

	if b1 == nil || b1 != b2 || b2 != b3 {
		t.Fatalf("expected same battle pointer")
	}
	require.NoError(t, h.Shutdown(ctx))
}

func TestHub_GetMissing(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)
	defer h.Shutdown(ctx)

	_, err := h.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotMounted)
	assert.ErrorIs(t, h.Unmount(ctx, "nope"), ErrNotMounted)
}

func TestHub_UnmountClosesScreen(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)
	defer h.Shutdown(ctx)

	b, err := h.Mount(ctx, "sk-1", builder("sk-1"))
	require.NoError(t, err)
	require.NoError(t, h.Unmount(ctx, "sk-1"))

	assert.True(t, closed(b))
	keys, err := h.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestHub_ShutdownClosesEverything(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx)

	a, err := h.Mount(ctx, "sk-a", builder("sk-a"))
	require.NoError(t, err)
	b, err := h.Mount(ctx, "sk-b", builder("sk-b"))
	require.NoError(t, err)

	keys, err := h.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sk-a", "sk-b"}, keys)

	require.NoError(t, h.Shutdown(ctx))
	assert.True(t, closed(a))
	assert.True(t, closed(b))

	_, err = h.Mount(ctx, "sk-c", builder("sk-c"))
	assert.Error(t, err, "hub no longer accepts mounts")
	assert.NoError(t, h.Shutdown(ctx), "second shutdown is a no-op")
}

func TestHub_ParentCancelClosesScreens(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(ctx)
	b, err := h.Mount(ctx, "sk-1", builder("sk-1"))
	require.NoError(t, err)

	cancel()
	assert.True(t, closed(b))
	<-h.Done()
}
