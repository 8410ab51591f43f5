package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/novahq/nova/internal/metrics"
)

// TextGenerator is satisfied by *Client; tests and the no-key
// configuration substitute their own.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer turns article text into a short conversational summary. The
// generative path is optional; the extractive fallback keeps Summarize
// total — it never fails the request.
type Summarizer struct {
	gen TextGenerator // nil means fallback only
	log *slog.Logger
}

func NewSummarizer(gen TextGenerator, log *slog.Logger) *Summarizer {
	return &Summarizer{gen: gen, log: log}
}

const articlePromptFormat = `You are Nova — a friendly, concise AI news reporter.
Summarize the article below in 2-4 short paragraphs with clear facts. Then produce one short tailored follow-up question the user might want next (1 sentence).

User message: %s

Headline: %s

Article:
%s

Summary:`

const topicPromptFormat = `You are Nova — a friendly, concise AI news assistant.
The user asked about this topic and I couldn't find direct articles in feeds.
Provide a short chatty but factual summary (2-4 short paragraphs) of what is known about the topic right now, and one short question or suggestion the user might want next.

User message: %s

Topic: %s

Summary:`

// SummarizeArticle returns model output when available, otherwise the
// extractive fallback.
func (s *Summarizer) SummarizeArticle(ctx context.Context, articleText, headline, userMessage string) string {
	if s.gen != nil {
		prompt := fmt.Sprintf(articlePromptFormat, userMessage, headline, ClampPrompt(articleText))
		if text, err := s.gen.Generate(ctx, prompt); err == nil {
			metrics.ModelCalls.WithLabelValues("summary", "ok").Inc()
			return text
		} else {
			metrics.ModelCalls.WithLabelValues("summary", "error").Inc()
			s.log.Warn("model summary failed, using extract", "headline", headline, "err", err)
		}
	}
	metrics.SummaryFallbacks.Inc()
	return ExtractiveFallback(articleText)
}

// SummarizeTopic covers the zero-candidate case: a generative sketch of
// the topic, or a static apology when no model is reachable.
func (s *Summarizer) SummarizeTopic(ctx context.Context, topic, userMessage string) string {
	if s.gen != nil {
		prompt := fmt.Sprintf(topicPromptFormat, userMessage, topic)
		if text, err := s.gen.Generate(ctx, prompt); err == nil {
			metrics.ModelCalls.WithLabelValues("topic", "ok").Inc()
			return text
		} else {
			metrics.ModelCalls.WithLabelValues("topic", "error").Inc()
			s.log.Warn("topic summary failed", "topic", topic, "err", err)
		}
	}
	return fmt.Sprintf("Hey — I couldn't find direct articles in my feeds about %q right now. "+
		"I can keep watching and let you know when something shows up.", topic)
}

// fallbackMaxChars bounds the extract so replies stay readable.
const fallbackMaxChars = 800

// ExtractiveFallback takes the first one or two paragraphs of the article
// (about 800 chars, cut at a sentence boundary) and labels the result as
// an extract so the user knows it is not model-generated.
func ExtractiveFallback(articleText string) string {
	text := strings.TrimSpace(articleText)
	if text == "" {
		return "I couldn't read that article's text — the link may still work for you."
	}

	paragraphs := strings.Split(text, "\n\n")
	short := paragraphs[0]
	if len(paragraphs) > 1 && len(short)+len(paragraphs[1]) < fallbackMaxChars {
		short = short + "\n\n" + paragraphs[1]
	}
	if len(short) > fallbackMaxChars {
		cut := short[:fallbackMaxChars]
		if idx := strings.LastIndex(cut, "."); idx > 0 {
			cut = cut[:idx+1]
		}
		short = cut
	}
	return "Here's an extract from the article:\n\n" + strings.TrimSpace(short)
}
