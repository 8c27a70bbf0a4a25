package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetPut(t *testing.T) {
	ctx := context.Background()
	c, err := New(4)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "k", "answer"))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "answer", v)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, err := New(2)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "a", "1"))
	require.NoError(t, c.Put(ctx, "b", "2"))
	_, _, _ = c.Get(ctx, "a")
	require.NoError(t, c.Put(ctx, "c", "3"))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, err := New(0)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "a", "1"))
	require.NoError(t, c.Clear(ctx))

	n, _ := c.Len(ctx)
	assert.Zero(t, n)
	assert.NoError(t, c.Close())
}
