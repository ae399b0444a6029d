package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	raw, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), raw)
}

func TestMemoryMiss(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, m.Delete(ctx, "a"))

	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryDeletePrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "masters:list:countries:a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "masters:list:countries:b", []byte("2"), 0))
	require.NoError(t, m.Set(ctx, "masters:list:states:a", []byte("3"), 0))

	require.NoError(t, m.DeletePrefix(ctx, "masters:list:countries:"))
	assert.Equal(t, 1, m.Len())
}

func TestMemoryValueIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	val := []byte("original")
	require.NoError(t, m.Set(ctx, "k", val, 0))
	val[0] = 'X'

	raw, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("original"), raw)

	raw[0] = 'Y'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("original"), again)
}
