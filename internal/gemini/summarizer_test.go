package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeGen struct {
	reply string
	err   error
	got   string
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.got = prompt
	return f.reply, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestSummarizeArticleUsesModel(t *testing.T) {
	gen := &fakeGen{reply: "NASA did a thing. Want mission details?"}
	s := NewSummarizer(gen, testLogger())

	out := s.SummarizeArticle(context.Background(), "long article text", "NASA launch", "latest nasa news")

	assert.Equal(t, "NASA did a thing. Want mission details?", out)
	assert.Contains(t, gen.got, "NASA launch")
	assert.Contains(t, gen.got, "latest nasa news")
}

func TestSummarizeArticleFallsBackOnError(t *testing.T) {
	gen := &fakeGen{err: errors.New("quota")}
	s := NewSummarizer(gen, testLogger())

	out := s.SummarizeArticle(context.Background(), "First paragraph here. More detail follows.", "h", "m")

	assert.Contains(t, out, "extract from the article")
	assert.Contains(t, out, "First paragraph here.")
}

func TestSummarizeArticleNilGenerator(t *testing.T) {
	s := NewSummarizer(nil, testLogger())

	out := s.SummarizeArticle(context.Background(), "Short body.", "h", "m")

	assert.Contains(t, out, "extract from the article")
}

func TestSummarizeTopicStaticFallback(t *testing.T) {
	s := NewSummarizer(nil, testLogger())

	out := s.SummarizeTopic(context.Background(), "fusion power", "any fusion news?")

	assert.Contains(t, out, "fusion power")
	assert.Contains(t, out, "couldn't find")
}

func TestExtractiveFallbackTwoParagraphs(t *testing.T) {
	text := "Para one.\n\nPara two.\n\nPara three should not appear."

	out := ExtractiveFallback(text)

	assert.Contains(t, out, "Para one.")
	assert.Contains(t, out, "Para two.")
	assert.NotContains(t, out, "Para three")
}

func TestExtractiveFallbackCutsAtSentence(t *testing.T) {
	long := strings.Repeat("Sentence goes here. ", 100)

	out := ExtractiveFallback(long)

	body := strings.TrimPrefix(out, "Here's an extract from the article:\n\n")
	assert.LessOrEqual(t, len(body), fallbackMaxChars)
	assert.True(t, strings.HasSuffix(body, "."))
}

func TestExtractiveFallbackEmpty(t *testing.T) {
	out := ExtractiveFallback("   ")
	assert.Contains(t, out, "couldn't read")
}
