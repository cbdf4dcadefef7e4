package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseClient(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "sid:abc", `{"sub":"u1"}`, time.Minute))
	v, err := c.Get(ctx, "sid:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"sub":"u1"}`, v)

	require.NoError(t, c.Delete(ctx, "sid:abc"))
	_, err = c.Get(ctx, "sid:abc")
	assert.ErrorIs(t, err, ErrNotFound)

	// Delete de una key inexistente no falla.
	assert.NoError(t, c.Delete(ctx, "sid:abc"))
	assert.NoError(t, c.Ping(ctx))
}

func TestMemoryClient(t *testing.T) {
	c := NewMemory("hj")
	defer c.Close()
	exerciseClient(t, c)
}

func TestMemoryClient_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, "k")
		return IsNotFound(err)
	}, time.Second, 10*time.Millisecond)
}

func TestRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), Config{Driver: "redis", Addr: mr.Addr(), Prefix: "hj"})
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)

	require.NoError(t, c.Set(context.Background(), "sid:ttl", "x", time.Minute))
	assert.True(t, mr.Exists("hj:sid:ttl"))
	mr.FastForward(2 * time.Minute)
	_, err = c.Get(context.Background(), "sid:ttl")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisClient_PingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "memcached"})
	assert.Error(t, err)
}
