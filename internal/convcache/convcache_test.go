package convcache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novahq/nova/internal/news"
)

func items(n int) []news.Candidate {
	out := make([]news.Candidate, n)
	for i := range out {
		out[i] = news.Candidate{Headline: string(rune('a' + i)), Link: "https://x/" + string(rune('a'+i))}
	}
	return out
}

func TestPutReplacesEntry(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(2))
	c.Put("conv", "spacex", items(3))

	e := c.Get("conv")
	require.NotNil(t, e)
	assert.Equal(t, "spacex", e.Topic)
	assert.Len(t, e.Items, 3)
}

func TestGetExpired(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(1))
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	assert.Nil(t, c.Get("conv"))
	assert.False(t, c.Has("conv"))
}

func TestSelectBareNumber(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(3))

	idx, cand, ok := c.Select("conv", " 2 ")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "b", cand.Headline)
}

func TestSelectNumberOutOfRangeFallsToFirst(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(3))

	idx, _, _ := c.Select("conv", "9")
	assert.Equal(t, 0, idx)

	idx, _, _ = c.Select("conv", "0")
	assert.Equal(t, 0, idx)
}

func TestSelectFirstUnexpanded(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(3))
	c.MarkExpanded("conv", 0, "text a")

	idx, cand, ok := c.Select("conv", "yes")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "b", cand.Headline)
}

// Saying "yes" twice should walk down the list, not repeat the same item.
func TestSelectAdvancesAcrossTurns(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(3))

	idx1, _, _ := c.Select("conv", "yes")
	c.MarkExpanded("conv", idx1, "")
	idx2, _, _ := c.Select("conv", "yes")

	assert.Equal(t, 0, idx1)
	assert.Equal(t, 1, idx2)
}

func TestSelectAllExpandedFallsToFirst(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(2))
	c.MarkExpanded("conv", 0, "")
	c.MarkExpanded("conv", 1, "")

	idx, _, _ := c.Select("conv", "more")
	assert.Equal(t, 0, idx)
}

func TestSelectNoEntry(t *testing.T) {
	c := New(time.Hour)
	idx, _, ok := c.Select("missing", "yes")
	assert.Equal(t, -1, idx)
	assert.False(t, ok)
}

// Select returns a copy, so concurrent expansion of the same conversation
// must not race with the caller's reads. Run with -race.
func TestSelectConcurrentWithMarkExpanded(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(3))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cand, ok := c.Select("conv", "yes")
			if ok {
				_ = cand.Expanded
				_ = cand.ArticleText
			}
		}()
		go func(i int) {
			defer wg.Done()
			c.MarkExpanded("conv", i%3, "body")
		}(i)
	}
	wg.Wait()
}

func TestSelectExpiredEntry(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(1))
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, _, ok := c.Select("conv", "yes")
	assert.False(t, ok)
}

func TestMarkExpandedStoresText(t *testing.T) {
	c := New(time.Hour)
	c.Put("conv", "nasa", items(1))
	c.MarkExpanded("conv", 0, "full article body")

	e := c.Get("conv")
	require.NotNil(t, e)
	assert.True(t, e.Items[0].Expanded)
	assert.Equal(t, "full article body", e.Items[0].ArticleText)
}

func TestCleanupRemovesExpired(t *testing.T) {
	c := New(time.Hour)
	c.Put("old", "a", items(1))
	c.Put("new", "b", items(1))
	e := c.m["old"]
	e.FetchedAt = e.FetchedAt.Add(-2 * time.Hour)

	c.cleanup()

	assert.Nil(t, c.Get("old"))
	assert.NotNil(t, c.Get("new"))
}
