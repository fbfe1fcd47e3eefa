package session

import (
	"context"
	"os"
	"testing"
	"time"

	"candybowl/internal/agent"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestMemoryRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(2, 0)

	require.NoError(t, r.Put(ctx, &Session{ID: "a"}))
	require.NoError(t, r.Put(ctx, &Session{ID: "b"}))
	_, ok, _ := r.Get(ctx, "a")
	require.True(t, ok)
	require.NoError(t, r.Put(ctx, &Session{ID: "c"}))

	_, ok, _ = r.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok, _ = r.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = r.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestMemoryRegistryExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewMemoryRegistry(0, time.Hour)
	r.now = clock.now

	require.NoError(t, r.Put(ctx, &Session{ID: "a"}))
	clock.t = clock.t.Add(59 * time.Minute)
	_, ok, _ := r.Get(ctx, "a")
	require.True(t, ok, "access refreshes the idle timer")

	clock.t = clock.t.Add(61 * time.Minute)
	_, ok, _ = r.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestMemoryRegistryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(0, 0)
	s := &Session{ID: "a", History: []agent.Message{{Role: agent.RoleUser, Text: "hi"}}}
	require.NoError(t, r.Put(ctx, s))

	s.History[0].Text = "changed"
	got, ok, err := r.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hi", got.History[0].Text)
}

func TestRedisRegistryRoundTrip(t *testing.T) {
	url := os.Getenv("CANDYBOWL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CANDYBOWL_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedisRegistry(ctx, url, "candybowl:test:", time.Minute)
	require.NoError(t, err)
	defer r.Close()

	id := uuid.NewString()
	s := &Session{
		ID:      id,
		Mode:    ModeHaggle,
		History: []agent.Message{{Role: agent.RoleUser, Text: "hi"}, {Role: agent.RoleModel, Text: "hello"}},
	}
	require.NoError(t, r.Put(ctx, s))

	got, ok, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ModeHaggle, got.Mode)
	assert.Len(t, got.History, 2)

	_, ok, err = r.Get(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok)
}
