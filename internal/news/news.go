// Package news merges the curated sheet, category-prioritized RSS feeds
// and a broad fallback search into one deduplicated, ranked candidate
// list.
package news

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/novahq/nova/internal/metrics"
	"github.com/novahq/nova/internal/rss"
	"github.com/novahq/nova/internal/sheet"
)

// Candidate is one retrieved news item under consideration for
// summarization. Link is the dedup key; ArticleText may be empty until
// lazily extracted.
type Candidate struct {
	Headline    string    `json:"headline"`
	Link        string    `json:"link"`
	ArticleText string    `json:"article_text,omitempty"`
	Published   string    `json:"published,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Source      string    `json:"source"`
	Expanded    bool      `json:"expanded"`
}

// Query is one aggregation request.
type Query struct {
	Topic    string
	Category string
	UserKey  string
}

// SheetSearcher is the curated-sheet tier.
type SheetSearcher interface {
	Enabled() bool
	Search(ctx context.Context, topic string, freshDays int) []sheet.Row
}

// FeedSearcher is the RSS tier plus the broad fallback.
type FeedSearcher interface {
	Search(ctx context.Context, q rss.Query) []rss.Entry
	FallbackSearch(ctx context.Context, topic, userKey string) []rss.Entry
}

// ArticleExtractor lazily fills Candidate.ArticleText.
type ArticleExtractor interface {
	ArticleText(ctx context.Context, url string, maxChars int) (string, bool)
}

// Aggregator walks the tiers in strict order, stopping as soon as
// MaxResults candidates are collected. Cheap curated sources come before
// noisy network scans.
type Aggregator struct {
	Sheet      SheetSearcher
	Feeds      FeedSearcher
	Extractor  ArticleExtractor
	MaxResults int
	FreshDays  int
	MaxChars   int
	Log        *slog.Logger
}

// Aggregate returns at most MaxResults candidates with pairwise distinct
// links, each tier sorted by publish date descending (unparseable dates
// last).
func (a *Aggregator) Aggregate(ctx context.Context, q Query) []Candidate {
	seen := make(map[string]bool)
	var out []Candidate

	take := func(tier []Candidate) {
		sortByPublished(tier)
		for _, c := range tier {
			if len(out) >= a.MaxResults {
				return
			}
			if c.Link != "" {
				if seen[c.Link] {
					continue
				}
				seen[c.Link] = true
			}
			out = append(out, c)
		}
	}

	// Tier 1: the curated sheet. When it satisfies the request the
	// network tiers are never touched.
	if a.Sheet != nil && a.Sheet.Enabled() {
		take(a.sheetTier(ctx, q.Topic))
	}

	// Tier 2: category-prioritized RSS.
	if len(out) < a.MaxResults {
		take(a.rssTier(ctx, q, seen))
	}

	// Tier 3: broad fallback, only when everything else came up empty.
	if len(out) == 0 {
		take(a.fallbackTier(ctx, q, seen))
	}

	metrics.CandidatesReturned.Observe(float64(len(out)))
	a.Log.Info("aggregation finished", "topic", q.Topic, "category", q.Category, "candidates", len(out))
	return out
}

func (a *Aggregator) sheetTier(ctx context.Context, topic string) []Candidate {
	rows := a.Sheet.Search(ctx, topic, a.FreshDays)
	tier := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		c := Candidate{
			Headline:    r.Headline,
			Link:        r.Link,
			ArticleText: r.Body,
			Published:   r.Date,
			Source:      "sheet",
		}
		if c.Headline == "" {
			c.Headline = topic
		}
		if dt, ok := sheet.ParseDate(r.Date); ok {
			c.PublishedAt = dt
		}
		if c.ArticleText == "" && c.Link != "" {
			if text, ok := a.Extractor.ArticleText(ctx, c.Link, a.MaxChars); ok {
				c.ArticleText = text
			}
		}
		tier = append(tier, c)
	}
	return tier
}

func (a *Aggregator) rssTier(ctx context.Context, q Query, seen map[string]bool) []Candidate {
	entries := a.Feeds.Search(ctx, rss.Query{Topic: q.Topic, Category: q.Category, UserKey: q.UserKey})
	return a.entryCandidates(ctx, entries, "rss", q.Topic, seen)
}

func (a *Aggregator) fallbackTier(ctx context.Context, q Query, seen map[string]bool) []Candidate {
	entries := a.Feeds.FallbackSearch(ctx, q.Topic, q.UserKey)
	return a.entryCandidates(ctx, entries, "googlenews", q.Topic, seen)
}

// entryCandidates converts feed entries, extracting article text only for
// as many entries as could still be used. Links taken by an earlier tier
// or repeated inside this one are dropped up front so the extraction
// budget is never spent on an entry the caller will discard.
func (a *Aggregator) entryCandidates(ctx context.Context, entries []rss.Entry, source, topic string, seen map[string]bool) []Candidate {
	tier := make([]Candidate, 0, len(entries))
	local := make(map[string]bool)
	for _, e := range entries {
		if e.Link != "" {
			if seen[e.Link] || local[e.Link] {
				continue
			}
			local[e.Link] = true
		}
		c := Candidate{
			Headline:    e.Title,
			Link:        e.Link,
			Published:   e.Published,
			PublishedAt: e.PublishedAt,
			Source:      source,
		}
		if c.Headline == "" {
			c.Headline = topic
		}
		tier = append(tier, c)
	}
	sortByPublished(tier)

	// Fill text for the leading entries only; the rest are dropped by the
	// caller's cap anyway.
	limit := a.MaxResults
	if limit > len(tier) {
		limit = len(tier)
	}
	for i := 0; i < limit; i++ {
		if text, ok := a.Extractor.ArticleText(ctx, tier[i].Link, a.MaxChars); ok {
			tier[i].ArticleText = text
		} else {
			tier[i].ArticleText = findSummary(entries, tier[i].Link)
		}
	}
	return tier
}

func findSummary(entries []rss.Entry, link string) string {
	for _, e := range entries {
		if e.Link == link {
			return e.Summary
		}
	}
	return ""
}

// sortByPublished orders newest first; items without a parseable date go
// last, keeping their original relative order.
func sortByPublished(tier []Candidate) {
	sort.SliceStable(tier, func(i, j int) bool {
		ti, tj := tier[i].PublishedAt, tier[j].PublishedAt
		if ti.IsZero() {
			return false
		}
		if tj.IsZero() {
			return true
		}
		return ti.After(tj)
	})
}
