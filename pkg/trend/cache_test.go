package trend

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c, err := NewCache(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCacheTTL, c.TTL())

	_, ok := c.Get("doge")
	assert.False(t, ok)

	c.Set(Score{Symbol: "doge", Value: 0.03})
	got, ok := c.Get(" DOGE ")
	require.True(t, ok, "keys are case-insensitive")
	assert.Equal(t, 0.03, got.Value)

	c.Delete("Doge")
	_, ok = c.Get("DOGE")
	assert.False(t, ok)
}

func TestCacheExpires(t *testing.T) {
	c, err := NewCache(50 * time.Millisecond)
	require.NoError(t, err)
	c.Set(Score{Symbol: "GME", Value: 0.01})

	assert.Eventually(t, func() bool {
		_, ok := c.Get("GME")
		return !ok
	}, 5*time.Second, 50*time.Millisecond, "entry should expire after ttl")
}

func TestCacheTake(t *testing.T) {
	c, err := NewCache(time.Minute)
	require.NoError(t, err)

	calls := 0
	fetch := func() (Score, error) {
		calls++
		return Score{Symbol: "AMC", Value: -0.02}, nil
	}
	s, err := c.Take("AMC", fetch)
	require.NoError(t, err)
	assert.Equal(t, -0.02, s.Value)

	s, err = c.Take("amc", fetch)
	require.NoError(t, err)
	assert.Equal(t, -0.02, s.Value)
	assert.Equal(t, 1, calls, "second take is served from cache")

	_, err = c.Take("ERR", func() (Score, error) { return Score{}, errors.New("nope") })
	assert.Error(t, err)
	_, ok := c.Get("ERR")
	assert.False(t, ok, "failed fetch is not cached")
}

func TestCacheReset(t *testing.T) {
	c, err := NewCache(time.Minute)
	require.NoError(t, err)
	c.Set(Score{Symbol: "A"})
	c.Set(Score{Symbol: "B"})

	require.NoError(t, c.Reset())
	_, okA := c.Get("A")
	_, okB := c.Get("B")
	assert.False(t, okA)
	assert.False(t, okB)
}
