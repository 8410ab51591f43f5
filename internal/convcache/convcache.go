package convcache

import (
	"context"
	"sync"
	"time"

	"github.com/novahq/nova/internal/intent"
	"github.com/novahq/nova/internal/news"
)

// Entry is the candidate list remembered for one conversation so that
// follow-up turns can expand items without refetching anything.
type Entry struct {
	Items     []news.Candidate
	Topic     string
	FetchedAt time.Time
}

// Cache keeps one Entry per conversation name. Entries expire after ttl;
// a news turn for the same conversation replaces the old entry wholesale.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]*Entry
	now func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Cache{ttl: ttl, m: make(map[string]*Entry), now: time.Now}
}

// Put replaces whatever the conversation had before.
func (c *Cache) Put(conv, topic string, items []news.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[conv] = &Entry{Items: items, Topic: topic, FetchedAt: c.now()}
}

// Get returns the live entry for a conversation, or nil.
func (c *Cache) Get(conv string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[conv]
	if !ok {
		return nil
	}
	if c.now().Sub(e.FetchedAt) > c.ttl {
		delete(c.m, conv)
		return nil
	}
	return e
}

// Has reports whether a conversation currently holds a cached list.
func (c *Cache) Has(conv string) bool {
	return c.Get(conv) != nil
}

// Select picks the candidate a follow-up message refers to. A bare
// number N means item N (1-based); anything else means "the next one you
// haven't shown me yet". Out-of-range numbers and fully-expanded lists
// both land on the first item. The candidate is returned by value so the
// caller never holds a reference into the shared entry.
func (c *Cache) Select(conv, message string) (int, news.Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[conv]
	if !ok || len(e.Items) == 0 {
		return -1, news.Candidate{}, false
	}
	if c.now().Sub(e.FetchedAt) > c.ttl {
		delete(c.m, conv)
		return -1, news.Candidate{}, false
	}

	idx := 0
	if n, ok := intent.SelectedIndex(message); ok {
		if n >= 1 && n <= len(e.Items) {
			idx = n - 1
		}
	} else {
		for i := range e.Items {
			if !e.Items[i].Expanded {
				idx = i
				break
			}
		}
	}
	return idx, e.Items[idx], true
}

// MarkExpanded records that an item has been shown in full, keeping any
// article text fetched on demand for the expansion.
func (c *Cache) MarkExpanded(conv string, idx int, articleText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[conv]
	if !ok || idx < 0 || idx >= len(e.Items) {
		return
	}
	e.Items[idx].Expanded = true
	if articleText != "" {
		e.Items[idx].ArticleText = articleText
	}
}

// StartCleanup sweeps expired entries in the background until ctx ends.
func (c *Cache) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.cleanup()
			}
		}
	}()
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for conv, e := range c.m {
		if now.Sub(e.FetchedAt) > c.ttl {
			delete(c.m, conv)
		}
	}
}
