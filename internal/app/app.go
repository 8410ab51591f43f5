// Package app wires intent, retrieval, summarization, the follow-up
// cache and history into the assistant's single chat entrypoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/novahq/nova/internal/convcache"
	"github.com/novahq/nova/internal/intent"
	"github.com/novahq/nova/internal/metrics"
	"github.com/novahq/nova/internal/news"
	"github.com/novahq/nova/internal/storage"
)

// ErrEmptyMessage is the only hard request error: everything upstream of
// the user's message degrades to a friendlier reply instead of failing.
var ErrEmptyMessage = errors.New("message must not be empty")

// Request is one chat turn.
type Request struct {
	Message          string `json:"message"`
	UserEmail        string `json:"user_email"`
	ConversationName string `json:"conversation_name"`
}

// Response is what a chat turn sends back. Count is the number of
// candidates behind the reply (0 for chat and topic-fallback turns).
type Response struct {
	Reply        string `json:"reply"`
	Conversation string `json:"conversation"`
	Count        int    `json:"count"`
}

// IntentClassifier resolves a message to an intent.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, hasCachedList bool) intent.Result
}

// NewsAggregator runs the tiered retrieval pipeline.
type NewsAggregator interface {
	Aggregate(ctx context.Context, q news.Query) []news.Candidate
}

// Summarizer is total: both methods always return usable text.
type Summarizer interface {
	SummarizeArticle(ctx context.Context, articleText, headline, userMessage string) string
	SummarizeTopic(ctx context.Context, topic, userMessage string) string
}

// Historian persists conversation turns.
type Historian interface {
	Append(ctx context.Context, email, conv string, msgs ...storage.Message) error
}

// Assistant handles chat turns end to end.
type Assistant struct {
	Classifier IntentClassifier
	News       NewsAggregator
	Summarizer Summarizer
	Cache      *convcache.Cache
	History    Historian
	Extractor  news.ArticleExtractor
	Workers    int
	MaxChars   int
	Log        *slog.Logger
}

// Chat handles one turn. It only fails on an empty message; every other
// problem is absorbed into the reply text.
func (a *Assistant) Chat(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{}, ErrEmptyMessage
	}

	conv := strings.TrimSpace(req.ConversationName)
	res := a.Classifier.Classify(ctx, message, conv != "" && a.Cache.Has(conv))

	metrics.ChatRequestsTotal.WithLabelValues(string(res.Kind)).Inc()
	defer func() { metrics.ChatRequestDuration.Observe(time.Since(start).Seconds()) }()

	if conv == "" {
		conv = newConversationName(res)
	}

	// The feed gate keys on the caller's identity, never the conversation
	// name: a generated name changes every turn and would let repeated
	// requests re-fetch every feed inside the window.
	userKey := strings.TrimSpace(req.UserEmail)
	if userKey == "" {
		userKey = "anonymous"
	}

	var resp Response
	switch res.Kind {
	case intent.News:
		resp = a.newsTurn(ctx, conv, userKey, message, res)
	case intent.Followup:
		resp = a.followupTurn(ctx, conv, message)
	default:
		resp = Response{Reply: a.chatReply(message), Conversation: conv}
	}

	a.record(ctx, req.UserEmail, conv, message, resp.Reply)
	return resp, nil
}

func (a *Assistant) newsTurn(ctx context.Context, conv, userKey, message string, res intent.Result) Response {
	topic := res.Topic
	if topic == "" {
		topic = message
	}

	candidates := a.News.Aggregate(ctx, news.Query{
		Topic:    topic,
		Category: res.Category,
		UserKey:  userKey,
	})

	if len(candidates) == 0 {
		return Response{
			Reply:        a.Summarizer.SummarizeTopic(ctx, topic, message),
			Conversation: conv,
		}
	}

	summaries := a.summarizeAll(ctx, candidates, message)
	a.Cache.Put(conv, topic, candidates)

	return Response{
		Reply:        formatNewsReply(topic, candidates, summaries),
		Conversation: conv,
		Count:        len(candidates),
	}
}

func (a *Assistant) followupTurn(ctx context.Context, conv, message string) Response {
	idx, cand, ok := a.Cache.Select(conv, message)
	if !ok {
		// Nothing to expand; treat as plain chat.
		return Response{Reply: a.chatReply(message), Conversation: conv}
	}

	articleText := cand.ArticleText
	var fetched string
	if articleText == "" && a.Extractor != nil {
		if text, ok := a.Extractor.ArticleText(ctx, cand.Link, a.MaxChars); ok {
			articleText = text
			fetched = text
		}
	}

	summary := a.Summarizer.SummarizeArticle(ctx, articleText, cand.Headline, message)
	a.Cache.MarkExpanded(conv, idx, fetched)

	return Response{
		Reply:        fmt.Sprintf("Sure — more on *%s*:\n\n%s\n\n🔗 %s", cand.Headline, summary, cand.Link),
		Conversation: conv,
		Count:        1,
	}
}

// summarizeAll runs summaries concurrently but keeps them in candidate
// order.
func (a *Assistant) summarizeAll(ctx context.Context, candidates []news.Candidate, message string) []string {
	workers := a.Workers
	if workers <= 0 {
		workers = 3
	}

	summaries := make([]string, len(candidates))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			c := candidates[i]
			summaries[i] = a.Summarizer.SummarizeArticle(ctx, c.ArticleText, c.Headline, message)
		}(i)
	}
	wg.Wait()
	return summaries
}

func (a *Assistant) chatReply(message string) string {
	low := strings.ToLower(message)
	if strings.Contains(low, "help") || strings.Contains(low, "what can you do") {
		return "I'm Nova — your news buddy 📰\n\n" +
			"Ask me things like:\n" +
			"• \"latest space news\"\n" +
			"• \"any updates on AI?\"\n" +
			"• \"sports headlines\"\n\n" +
			"After I list stories, say \"more\", \"yes\" or a number to expand one."
	}
	return fmt.Sprintf("Hey 👋 I heard: %q. I'm best at news — try asking for the latest on a topic, like \"latest space news\".", message)
}

func formatNewsReply(topic string, candidates []news.Candidate, summaries []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Yo — here's what I found about *%s*:\n\n", topic)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. *%s*", i+1, c.Headline)
		if c.Published != "" {
			fmt.Fprintf(&b, " (%s)", c.Published)
		}
		b.WriteString("\n")
		b.WriteString(summaries[i])
		fmt.Fprintf(&b, "\n🔗 %s\n\n", c.Link)
	}
	b.WriteString("Want more on any of these? Say \"more\", \"yes\" or reply with a number.\n— Nova ✌️")
	return b.String()
}

// record appends the turn to history when the caller identified a user.
// History failures are logged, never surfaced: the reply already exists.
func (a *Assistant) record(ctx context.Context, email, conv, message, reply string) {
	if email == "" || a.History == nil {
		return
	}
	now := time.Now().UTC()
	err := a.History.Append(ctx, email, conv,
		storage.Message{Sender: "user", Text: message, Timestamp: now},
		storage.Message{Sender: "nova", Text: reply, Timestamp: now},
	)
	if err != nil {
		a.Log.Error("history append failed", "email", email, "conversation", conv, "err", err)
	}
}

// newConversationName derives a fresh name: the topic slug for news
// turns, otherwise a random chat id. Timestamps keep names unique per
// user without coordination.
func newConversationName(res intent.Result) string {
	ts := time.Now().UTC().Format("20060102150405")
	if res.Kind == intent.News && res.Topic != "" {
		return slugify(res.Topic) + "_" + ts
	}
	return "chat_" + ts + "_" + uuid.NewString()[:6]
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		slug = "news"
	}
	if len(slug) > 40 {
		slug = slug[:40]
	}
	return slug
}
