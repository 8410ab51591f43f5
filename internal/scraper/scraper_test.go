package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return New(2*time.Second, slog.Default())
}

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArticleTextPrefersArticleElement(t *testing.T) {
	srv := serve(t, `<html><body>
		<p>Sidebar navigation text that is long enough to pass the length filter easily.</p>
		<article><p>First body paragraph.</p><p>Second body paragraph.</p></article>
	</body></html>`)

	text, ok := newTestExtractor().ArticleText(context.Background(), srv.URL, 1000)
	require.True(t, ok)
	require.Equal(t, "First body paragraph.\n\nSecond body paragraph.", text)
}

func TestArticleTextFallsBackToLongParagraphs(t *testing.T) {
	srv := serve(t, `<html><body>
		<p>short</p>
		<p>This paragraph is comfortably longer than the minimum length threshold used by the scanner.</p>
	</body></html>`)

	text, ok := newTestExtractor().ArticleText(context.Background(), srv.URL, 1000)
	require.True(t, ok)
	require.NotContains(t, text, "short")
	require.Contains(t, text, "comfortably longer")
}

func TestArticleTextFallsBackToMetaDescription(t *testing.T) {
	srv := serve(t, `<html><head>
		<meta name="description" content="A rocket launched today.">
	</head><body><p>nav</p></body></html>`)

	text, ok := newTestExtractor().ArticleText(context.Background(), srv.URL, 1000)
	require.True(t, ok)
	require.Equal(t, "A rocket launched today.", text)
}

func TestArticleTextTruncatesAtSentenceBoundary(t *testing.T) {
	body := "One sentence here. Another sentence that will be cut off midway through because"
	srv := serve(t, "<html><body><article><p>"+body+"</p></article></body></html>")

	text, ok := newTestExtractor().ArticleText(context.Background(), srv.URL, 30)
	require.True(t, ok)
	require.Equal(t, "One sentence here.", text)
}

func TestArticleTextFailuresReturnMiss(t *testing.T) {
	e := newTestExtractor()

	_, ok := e.ArticleText(context.Background(), "", 100)
	require.False(t, ok)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	_, ok = e.ArticleText(context.Background(), srv.URL, 100)
	require.False(t, ok)

	// Empty page with nothing extractable.
	empty := serve(t, "<html><body></body></html>")
	_, ok = e.ArticleText(context.Background(), empty.URL, 100)
	require.False(t, ok)
}

func TestTruncateAtSentenceKeepsShortText(t *testing.T) {
	require.Equal(t, "hello.", truncateAtSentence("hello.", 100))
	require.True(t, strings.HasSuffix(truncateAtSentence("abc def. ghi jkl mno pqr", 12), "."))
}

func TestTruncateAtSentenceNeverSplitsRunes(t *testing.T) {
	// No "." inside the budget, and the cut lands mid-rune ("é" is 2 bytes).
	text := strings.Repeat("é", 20)
	for max := 1; max < 10; max++ {
		out := truncateAtSentence(text, max)
		require.True(t, utf8.ValidString(out), "max=%d produced invalid UTF-8", max)
		require.LessOrEqual(t, len(out), max)
	}
}
