// Package sheet reads the curated tabular news cache exported as CSV.
package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/novahq/nova/internal/metrics"
	"github.com/novahq/nova/internal/retry"
)

// Row is one normalized sheet row. Absent columns are empty strings.
type Row struct {
	Headline string
	Body     string
	Category string
	Link     string
	ImageURL string
	Date     string
}

// Client fetches and searches the sheet export. BaseURL overrides the
// Google Sheets export URL in tests.
type Client struct {
	http    *http.Client
	sheetID string
	gid     string
	baseURL string
	retry   retry.Config
	log     *slog.Logger
}

func New(sheetID, gid string, timeout time.Duration, rc retry.Config, log *slog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		sheetID: sheetID,
		gid:     gid,
		retry:   rc,
		log:     log,
	}
}

// WithBaseURL points the client at an alternative export endpoint.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) exportURL() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", c.sheetID, c.gid)
}

// Enabled reports whether a sheet is configured at all.
func (c *Client) Enabled() bool {
	return c != nil && (c.sheetID != "" || c.baseURL != "")
}

// Search returns rows whose concatenated headline/body/category/link
// contain topic, case-insensitively. Rows dated inside the freshness
// window are preferred; when none qualify, any match is returned. A fetch
// failure yields an empty slice, never an error.
func (c *Client) Search(ctx context.Context, topic string, freshDays int) []Row {
	if !c.Enabled() {
		return nil
	}

	rows, err := c.fetchRows(ctx)
	if err != nil {
		c.log.Warn("sheet fetch failed", "err", err)
		metrics.SourceFetchErrors.WithLabelValues("sheet").Inc()
		return nil
	}

	topicLow := strings.ToLower(strings.TrimSpace(topic))
	var fresh, any []Row
	cutoff := time.Now().UTC().AddDate(0, 0, -freshDays)

	for _, r := range rows {
		combined := strings.ToLower(strings.Join([]string{r.Headline, r.Body, r.Category, r.Link}, " "))
		if topicLow != "" && !strings.Contains(combined, topicLow) {
			continue
		}
		any = append(any, r)
		if dt, ok := ParseDate(r.Date); ok && dt.After(cutoff) {
			fresh = append(fresh, r)
		}
	}

	if len(fresh) > 0 {
		return fresh
	}
	return any
}

func (c *Client) fetchRows(ctx context.Context) ([]Row, error) {
	var rows []Row
	err := retry.Do(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.exportURL(), nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("sheet export status %d", resp.StatusCode)
		}
		rows, err = parseCSV(resp.Body)
		return err
	})
	return rows, err
}

// parseCSV normalizes headers case-insensitively and maps the recognized
// column aliases onto Row fields.
func parseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read sheet header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	field := func(rec []string, names ...string) string {
		for _, n := range names {
			if i, ok := idx[n]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
		}
		return ""
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sheet row: %w", err)
		}
		rows = append(rows, Row{
			Headline: field(rec, "headline", "title"),
			Body:     field(rec, "news", "summary"),
			Category: field(rec, "categories", "category"),
			Link:     field(rec, "link"),
			ImageURL: field(rec, "image_url"),
			Date:     field(rec, "date"),
		})
	}
	return rows, nil
}

// dateLayouts covers the formats observed in sheet exports and RSS
// pubDate strings.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006",
	"January 2, 2006",
	"01/02/2006",
}

// ParseDate parses a date string against the known layouts; unparseable
// input reports ok=false so callers can sort it last.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.Index(s, "T"); i > 0 {
		// try the full string first, then the date part alone below
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), true
		}
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
