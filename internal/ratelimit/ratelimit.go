// Package ratelimit gates repeated feed fetches per (user, feed URL) pair.
package ratelimit

import (
	"sync"
	"time"
)

type record struct {
	key string
	ts  time.Time
}

// FeedGate remembers the last fetch time for each (user, feed) pair and
// refuses a second fetch inside the window. Entries expire with the
// window and the whole map is capped, so it cannot grow without bound.
type FeedGate struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	seen     map[string]time.Time
	order    []record
	now      func() time.Time
}

// NewFeedGate creates a gate with the given rate-limit window and a hard
// cap on tracked pairs.
func NewFeedGate(window time.Duration, capacity int) *FeedGate {
	if window <= 0 {
		window = time.Minute
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &FeedGate{
		window:   window,
		capacity: capacity,
		seen:     make(map[string]time.Time, capacity),
		order:    make([]record, 0, capacity),
		now:      time.Now,
	}
}

// Allow reports whether the feed may be fetched for this user right now,
// and records the fetch when it is allowed. A false return means the feed
// was fetched inside the window and must be skipped entirely for this call.
func (g *FeedGate) Allow(userKey, feedURL string) bool {
	key := userKey + "|" + feedURL
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if ts, ok := g.seen[key]; ok && now.Sub(ts) < g.window {
		return false
	}

	g.seen[key] = now
	g.order = append(g.order, record{key: key, ts: now})
	g.compact(now)
	return true
}

// compact drops expired records and enforces the capacity cap, oldest first.
func (g *FeedGate) compact(now time.Time) {
	cutoff := now.Add(-g.window)

	for len(g.order) > 0 && (len(g.seen) > g.capacity || g.order[0].ts.Before(cutoff)) {
		oldest := g.order[0]
		g.order = g.order[1:]

		if ts, ok := g.seen[oldest.key]; ok && ts.Equal(oldest.ts) {
			delete(g.seen, oldest.key)
		}
	}
}

// Len reports the number of live (user, feed) records.
func (g *FeedGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
