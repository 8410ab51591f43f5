// Package scraper fetches a URL and pulls readable article text out of
// the HTML.
package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/novahq/nova/internal/metrics"
)

const userAgent = "Mozilla/5.0 (compatible; NovaBot/1.0)"

// minParagraphLen filters navigation crumbs and bylines when falling back
// to a whole-page paragraph scan.
const minParagraphLen = 40

// Extractor pulls article text with a short per-request timeout. Outbound
// requests are spaced by a politeness limiter so a burst of candidates
// does not hammer one site.
type Extractor struct {
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func New(timeout time.Duration, log *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Extractor{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		log:     log,
	}
}

// ArticleText fetches url and extracts readable text, truncated to
// maxChars at the last sentence boundary. It prefers paragraphs inside an
// <article> element, then any sufficiently long <p>, then the page's meta
// description. Any failure returns ("", false); extraction is never fatal
// to the caller.
func (e *Extractor) ArticleText(ctx context.Context, url string, maxChars int) (string, bool) {
	if url == "" {
		return "", false
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Debug("article fetch failed", "url", url, "err", err)
		metrics.SourceFetchErrors.WithLabelValues("article").Inc()
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.log.Debug("article fetch non-200", "url", url, "status", resp.StatusCode)
		metrics.SourceFetchErrors.WithLabelValues("article").Inc()
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		e.log.Debug("article parse failed", "url", url, "err", err)
		metrics.SourceFetchErrors.WithLabelValues("article").Inc()
		return "", false
	}

	content := extractParagraphs(doc)
	if content == "" {
		content = metaDescription(doc)
	}
	if content == "" {
		return "", false
	}

	return truncateAtSentence(content, maxChars), true
}

func extractParagraphs(doc *goquery.Document) string {
	var paragraphs []string

	doc.Find("article p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); len(text) > minParagraphLen {
				paragraphs = append(paragraphs, text)
			}
		})
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

func metaDescription(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}

// truncateAtSentence cuts text to at most maxChars bytes, ending at the
// last full sentence inside the budget when one exists. The cut never
// splits a multi-byte rune.
func truncateAtSentence(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	if idx := strings.LastIndex(cut, "."); idx > 0 {
		return cut[:idx+1]
	}
	return cut
}
