// Package rss searches RSS/Atom feeds for entries matching a topic, with
// category-prioritized feed ordering and a per-user feed gate.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/novahq/nova/internal/metrics"
	"github.com/novahq/nova/internal/ratelimit"
)

// FeedParser is the gofeed surface the searcher uses; injected so tests
// can serve canned feeds.
type FeedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

// Entry is one matched feed item.
type Entry struct {
	Title       string
	Summary     string
	Link        string
	Published   string
	PublishedAt time.Time // zero when the feed gave no parseable date
	Tags        []string
	FeedURL     string
}

// Query describes one search pass over the feed set.
type Query struct {
	Topic    string
	Category string
	UserKey  string
}

// categorySegments matches entries by URL path when no topic is given.
var categorySegments = map[string][]string{
	"space":         {"/space", "/nasa", "/launch", "/astronomy"},
	"tech":          {"/tech", "/technology", "/gadgets"},
	"business":      {"/business", "/markets", "/economy"},
	"sports":        {"/sport", "/sports"},
	"entertainment": {"/entertainment", "/tv", "/movies", "/music"},
	"world":         {"/world"},
}

// Searcher walks feeds in tier order: feeds registered for the query's
// category first, then the default list, each feed exactly once per call.
type Searcher struct {
	parser        FeedParser
	gate          *ratelimit.FeedGate
	defaultFeeds  []string
	categoryFeeds map[string][]string
	maxPerFeed    int
	log           *slog.Logger
}

func NewSearcher(parser FeedParser, gate *ratelimit.FeedGate, defaultFeeds []string, categoryFeeds map[string][]string, log *slog.Logger) *Searcher {
	if parser == nil {
		parser = gofeed.NewParser()
	}
	return &Searcher{
		parser:        parser,
		gate:          gate,
		defaultFeeds:  defaultFeeds,
		categoryFeeds: categoryFeeds,
		maxPerFeed:    30,
		log:           log,
	}
}

// Search scans the feed set for entries matching the query. Feeds fetched
// for this user inside the rate-limit window are skipped entirely.
func (s *Searcher) Search(ctx context.Context, q Query) []Entry {
	var found []Entry
	for _, feedURL := range s.feedOrder(q.Category) {
		if !s.gate.Allow(q.UserKey, feedURL) {
			metrics.FeedsSkippedRateLimit.Inc()
			s.log.Debug("feed skipped by rate gate", "feed", feedURL, "user", q.UserKey)
			continue
		}

		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			s.log.Debug("feed parse failed", "feed", feedURL, "err", err)
			metrics.SourceFetchErrors.WithLabelValues("rss").Inc()
			continue
		}

		for i, item := range feed.Items {
			if i >= s.maxPerFeed {
				break
			}
			if s.matches(item, q) {
				found = append(found, toEntry(item, feedURL))
			}
		}
	}
	return found
}

// FallbackSearch queries the broad news search feed for the URL-escaped
// topic. It is the last tier, used only when the curated sources came up
// empty.
func (s *Searcher) FallbackSearch(ctx context.Context, topic, userKey string) []Entry {
	searchURL := fmt.Sprintf("https://news.google.com/rss/search?q=%s", url.QueryEscape(topic))

	if !s.gate.Allow(userKey, searchURL) {
		metrics.FeedsSkippedRateLimit.Inc()
		return nil
	}

	feed, err := s.parser.ParseURLWithContext(searchURL, ctx)
	if err != nil {
		s.log.Debug("fallback search failed", "topic", topic, "err", err)
		metrics.SourceFetchErrors.WithLabelValues("googlenews").Inc()
		return nil
	}

	entries := make([]Entry, 0, len(feed.Items))
	for i, item := range feed.Items {
		if i >= s.maxPerFeed {
			break
		}
		entries = append(entries, toEntry(item, searchURL))
	}
	return entries
}

// feedOrder lists category feeds first, then the defaults, deduplicated.
func (s *Searcher) feedOrder(category string) []string {
	seen := make(map[string]bool)
	var order []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			order = append(order, u)
		}
	}
	if category != "" {
		for _, u := range s.categoryFeeds[category] {
			add(u)
		}
	}
	for _, u := range s.defaultFeeds {
		add(u)
	}
	return order
}

// matches checks topic substring on title/summary/tags; with no topic it
// falls back to category-indicative URL path segments.
func (s *Searcher) matches(item *gofeed.Item, q Query) bool {
	topic := strings.ToLower(strings.TrimSpace(q.Topic))
	if topic != "" {
		hay := strings.ToLower(item.Title + " " + item.Description + " " + strings.Join(item.Categories, " "))
		return strings.Contains(hay, topic)
	}
	for _, seg := range categorySegments[q.Category] {
		if strings.Contains(strings.ToLower(item.Link), seg) {
			return true
		}
	}
	return false
}

func toEntry(item *gofeed.Item, feedURL string) Entry {
	e := Entry{
		Title:   item.Title,
		Summary: item.Description,
		Link:    item.Link,
		Tags:    item.Categories,
		FeedURL: feedURL,
	}
	switch {
	case item.PublishedParsed != nil:
		e.Published = item.Published
		e.PublishedAt = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		e.Published = item.Updated
		e.PublishedAt = item.UpdatedParsed.UTC()
	default:
		e.Published = item.Published
	}
	return e
}
