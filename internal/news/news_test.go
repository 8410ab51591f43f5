package news

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novahq/nova/internal/rss"
	"github.com/novahq/nova/internal/sheet"
)

type fakeSheet struct {
	rows   []sheet.Row
	called bool
}

func (f *fakeSheet) Enabled() bool { return true }
func (f *fakeSheet) Search(context.Context, string, int) []sheet.Row {
	f.called = true
	return f.rows
}

type fakeFeeds struct {
	entries        []rss.Entry
	fallback       []rss.Entry
	searchCalled   bool
	fallbackCalled bool
}

func (f *fakeFeeds) Search(context.Context, rss.Query) []rss.Entry {
	f.searchCalled = true
	return f.entries
}

func (f *fakeFeeds) FallbackSearch(context.Context, string, string) []rss.Entry {
	f.fallbackCalled = true
	return f.fallback
}

type fakeExtractor struct {
	texts map[string]string
	calls []string
}

func (f *fakeExtractor) ArticleText(_ context.Context, url string, _ int) (string, bool) {
	f.calls = append(f.calls, url)
	text, ok := f.texts[url]
	return text, ok
}

func newAggregator(s SheetSearcher, f FeedSearcher, e ArticleExtractor, max int) *Aggregator {
	return &Aggregator{
		Sheet:      s,
		Feeds:      f,
		Extractor:  e,
		MaxResults: max,
		FreshDays:  2,
		MaxChars:   15000,
		Log:        slog.Default(),
	}
}

func TestAggregateSheetSatisfiesRequestSkipsNetwork(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	sh := &fakeSheet{rows: []sheet.Row{
		{Headline: "A", Link: "https://s.example.com/a", Body: "body a", Date: today},
		{Headline: "B", Link: "https://s.example.com/b", Body: "body b", Date: today},
	}}
	feeds := &fakeFeeds{entries: []rss.Entry{{Title: "never", Link: "https://never.example.com"}}}
	agg := newAggregator(sh, feeds, &fakeExtractor{}, 2)

	got := agg.Aggregate(context.Background(), Query{Topic: "x", UserKey: "u"})
	require.Len(t, got, 2)
	require.False(t, feeds.searchCalled, "RSS tier must not run when the sheet fills max_results")
	require.False(t, feeds.fallbackCalled)
}

func TestAggregateDeduplicatesByLinkAcrossTiers(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	sh := &fakeSheet{rows: []sheet.Row{
		{Headline: "From sheet", Link: "https://example.com/same", Body: "body", Date: today},
	}}
	feeds := &fakeFeeds{entries: []rss.Entry{
		{Title: "From rss dup", Link: "https://example.com/same"},
		{Title: "From rss new", Link: "https://example.com/other"},
	}}
	agg := newAggregator(sh, feeds, &fakeExtractor{}, 3)

	got := agg.Aggregate(context.Background(), Query{Topic: "x", UserKey: "u"})
	require.Len(t, got, 2)

	links := map[string]bool{}
	for _, c := range got {
		require.False(t, links[c.Link], "duplicate link %s", c.Link)
		links[c.Link] = true
	}
	require.Equal(t, "From sheet", got[0].Headline, "first occurrence wins")
}

func TestAggregateCapsAtMaxResults(t *testing.T) {
	var entries []rss.Entry
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		entries = append(entries, rss.Entry{Title: l, Link: "https://r.example.com/" + l})
	}
	sh := &fakeSheet{}
	agg := newAggregator(sh, &fakeFeeds{entries: entries}, &fakeExtractor{}, 3)

	got := agg.Aggregate(context.Background(), Query{Topic: "x", UserKey: "u"})
	require.Len(t, got, 3)
}

func TestAggregateSortsByPublishedDescUnparseableLast(t *testing.T) {
	newer := time.Now().UTC()
	older := newer.Add(-48 * time.Hour)
	feeds := &fakeFeeds{entries: []rss.Entry{
		{Title: "undated", Link: "https://r.example.com/u"},
		{Title: "older", Link: "https://r.example.com/o", PublishedAt: older},
		{Title: "newer", Link: "https://r.example.com/n", PublishedAt: newer},
	}}
	agg := newAggregator(&fakeSheet{}, feeds, &fakeExtractor{}, 3)

	got := agg.Aggregate(context.Background(), Query{Topic: "x", UserKey: "u"})
	require.Equal(t, []string{"newer", "older", "undated"},
		[]string{got[0].Headline, got[1].Headline, got[2].Headline})
}

func TestAggregateFallbackOnlyWhenEmpty(t *testing.T) {
	feeds := &fakeFeeds{fallback: []rss.Entry{{Title: "broad hit", Link: "https://g.example.com/1"}}}
	agg := newAggregator(&fakeSheet{}, feeds, &fakeExtractor{}, 3)

	got := agg.Aggregate(context.Background(), Query{Topic: "obscure", UserKey: "u"})
	require.True(t, feeds.fallbackCalled)
	require.Len(t, got, 1)
	require.Equal(t, "googlenews", got[0].Source)
}

func TestAggregateLazyExtractionFallsBackToEntrySummary(t *testing.T) {
	feeds := &fakeFeeds{entries: []rss.Entry{
		{Title: "hit", Link: "https://r.example.com/1", Summary: "feed summary text"},
	}}
	agg := newAggregator(&fakeSheet{}, feeds, &fakeExtractor{texts: map[string]string{}}, 3)

	got := agg.Aggregate(context.Background(), Query{Topic: "x", UserKey: "u"})
	require.Len(t, got, 1)
	require.Equal(t, "feed summary text", got[0].ArticleText)
}

func TestAggregateExtractionBudgetSkipsDuplicateLinksInTier(t *testing.T) {
	now := time.Now().UTC()
	// The same story arrives from two feeds; the duplicate must not eat
	// the extraction budget needed by the second story.
	feeds := &fakeFeeds{entries: []rss.Entry{
		{Title: "dup A", Link: "https://r.example.com/same", PublishedAt: now},
		{Title: "dup B", Link: "https://r.example.com/same", PublishedAt: now.Add(-time.Minute)},
		{Title: "second story", Link: "https://r.example.com/other", PublishedAt: now.Add(-2 * time.Minute)},
	}}
	ex := &fakeExtractor{texts: map[string]string{
		"https://r.example.com/same":  "same text",
		"https://r.example.com/other": "other text",
	}}
	agg := newAggregator(&fakeSheet{}, feeds, ex, 2)

	got := agg.Aggregate(context.Background(), Query{Topic: "x", UserKey: "u"})
	require.Len(t, got, 2)
	require.Equal(t, "same text", got[0].ArticleText)
	require.Equal(t, "other text", got[1].ArticleText)
}

func TestAggregateExtractionBudgetSkipsLinksTakenByEarlierTier(t *testing.T) {
	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	sh := &fakeSheet{rows: []sheet.Row{
		{Headline: "From sheet", Link: "https://example.com/same", Body: "sheet body", Date: today},
	}}
	feeds := &fakeFeeds{entries: []rss.Entry{
		{Title: "dup of sheet", Link: "https://example.com/same", PublishedAt: now},
		{Title: "fresh story", Link: "https://example.com/other", PublishedAt: now.Add(-time.Minute)},
	}}
	ex := &fakeExtractor{texts: map[string]string{
		"https://example.com/other": "other text",
	}}
	agg := newAggregator(sh, feeds, ex, 2)

	got := agg.Aggregate(context.Background(), Query{Topic: "x", UserKey: "u"})
	require.Len(t, got, 2)
	require.Equal(t, "other text", got[1].ArticleText)
	// The duplicate link is never fetched.
	require.Equal(t, []string{"https://example.com/other"}, ex.calls)
}

func TestAggregateSheetRowWithoutBodyIsExtracted(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	sh := &fakeSheet{rows: []sheet.Row{
		{Headline: "No body", Link: "https://s.example.com/x", Date: today},
	}}
	ex := &fakeExtractor{texts: map[string]string{"https://s.example.com/x": "extracted text"}}
	agg := newAggregator(sh, &fakeFeeds{}, ex, 3)

	got := agg.Aggregate(context.Background(), Query{Topic: "x", UserKey: "u"})
	require.Equal(t, "extracted text", got[0].ArticleText)
}
