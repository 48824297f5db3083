package api

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl, err := newRateLimiter(RateLimitConfig{RPS: 2, Burst: 1, Clients: 4}, func() time.Time { return now })
	require.NoError(t, err)

	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"), "clients have separate buckets")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, rl.allow("1.1.1.1"))
}

func TestRateLimiter_ClientTableIsBounded(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl, err := newRateLimiter(RateLimitConfig{RPS: 1, Burst: 1, Clients: 3}, func() time.Time { return now })
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		rl.allow(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, 3, rl.clients.Len())
}

func TestRateLimiter_IdleClientsExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl, err := newRateLimiter(RateLimitConfig{RPS: 1, Burst: 1, Clients: 8}, func() time.Time { return now })
	require.NoError(t, err)

	rl.allow("a")
	rl.allow("b")
	now = now.Add(clientIdleTTL + time.Second)
	rl.allow("c")

	assert.Equal(t, 1, rl.clients.Len())
}
