package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFeedGateBlocksInsideWindow(t *testing.T) {
	g := NewFeedGate(time.Minute, 10)

	require.True(t, g.Allow("alice@example.com", "https://feeds.example.com/a.xml"))
	require.False(t, g.Allow("alice@example.com", "https://feeds.example.com/a.xml"))
}

func TestFeedGateKeysByUserAndFeed(t *testing.T) {
	g := NewFeedGate(time.Minute, 10)

	require.True(t, g.Allow("alice@example.com", "https://feeds.example.com/a.xml"))
	require.True(t, g.Allow("bob@example.com", "https://feeds.example.com/a.xml"))
	require.True(t, g.Allow("alice@example.com", "https://feeds.example.com/b.xml"))
}

func TestFeedGateAllowsAfterWindow(t *testing.T) {
	g := NewFeedGate(50*time.Millisecond, 10)
	now := time.Now()
	g.now = func() time.Time { return now }

	require.True(t, g.Allow("u", "f"))

	now = now.Add(60 * time.Millisecond)
	require.True(t, g.Allow("u", "f"))
}

func TestFeedGateCapacityEvictsOldest(t *testing.T) {
	g := NewFeedGate(time.Minute, 1)

	require.True(t, g.Allow("u", "first"))
	require.True(t, g.Allow("u", "second"))

	// "first" was evicted by the cap, so it is allowed again.
	require.True(t, g.Allow("u", "first"))
	require.Equal(t, 1, g.Len())
}
