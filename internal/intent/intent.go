// Package intent decides whether a message asks for news, plain chat,
// or expansion of a previously listed item.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind string

const (
	Chat     Kind = "chat"
	News     Kind = "news"
	Followup Kind = "followup"
)

// Result is the outcome of classification. Topic is only meaningful for
// news intents; Category is set when a keyword maps to a known category.
type Result struct {
	Kind       Kind
	Topic      string
	Category   string
	Confidence float64
}

var newsIntentKeywords = []string{
	"news", "update", "updates", "latest", "breaking", "any updates",
	"is there any", "report", "reports", "announce", "released",
	"release", "headlines",
}

var greetingsRe = regexp.MustCompile(`(?i)\b(hi|hello|hey|hiya|greetings|good morning|good evening|nice to meet|pleased to meet)\b`)

// followupTokens are affirmative/continuation replies that expand a
// previously listed candidate instead of starting a new search.
var followupTokens = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "sure": true, "ok": true,
	"okay": true, "more": true, "continue": true, "go on": true,
	"next": true, "tell me more": true, "expand": true,
}

// keywordCategory maps topical keywords to a feed category.
var keywordCategory = map[string]string{
	"nasa":            "space",
	"space":           "space",
	"spacex":          "space",
	"jwst":            "space",
	"comet":           "space",
	"moon":            "space",
	"ai":              "tech",
	"google":          "tech",
	"apple":           "tech",
	"markets":         "business",
	"economy":         "business",
	"covid":           "world",
	"cricket":         "sports",
	"football":        "sports",
	"netflix":         "entertainment",
	"stranger things": "entertainment",
}

var knownCategories = []string{"space", "tech", "business", "world", "sports", "entertainment"}

// fillerWords are stripped from a news message to isolate the topic.
var fillerWords = map[string]bool{
	"news": true, "update": true, "updates": true, "latest": true,
	"breaking": true, "report": true, "reports": true, "headlines": true,
	"any": true, "the": true, "a": true, "an": true, "about": true,
	"on": true, "of": true, "for": true, "is": true, "are": true,
	"there": true, "whats": true, "what's": true, "what": true,
	"tell": true, "give": true, "show": true, "me": true, "please": true,
	"today": true, "now": true, "new": true,
}

// Classify runs the heuristic chain. hasCachedList reports whether the
// conversation already has a candidate list a follow-up could expand.
func Classify(message string, hasCachedList bool) Result {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return Result{Kind: Chat, Confidence: 1}
	}
	low := strings.ToLower(msg)

	// Short greeting with no news wording is plain chat.
	if len(msg) < 60 && greetingsRe.MatchString(msg) && !containsAnyKeyword(low, newsIntentKeywords) {
		return Result{Kind: Chat, Confidence: 0.9}
	}

	// Affirmative token or bare number expands the last list, when one exists.
	if hasCachedList && isFollowupToken(low) {
		return Result{Kind: Followup, Confidence: 0.9}
	}

	// Explicit news wording.
	if containsAnyKeyword(low, newsIntentKeywords) {
		return Result{
			Kind:       News,
			Topic:      stripFiller(msg),
			Category:   MapCategory(low),
			Confidence: 0.8,
		}
	}

	// A category keyword alone still reads as a news request.
	if cat := MapCategory(low); cat != "" {
		return Result{
			Kind:       News,
			Topic:      stripFiller(msg),
			Category:   cat,
			Confidence: 0.6,
		}
	}

	return Result{Kind: Chat, Confidence: 0.5}
}

// MapCategory maps a message to a known feed category, or "".
func MapCategory(low string) string {
	for k, cat := range keywordCategory {
		if matchKeyword(low, k) {
			return cat
		}
	}
	for _, cat := range knownCategories {
		if matchKeyword(low, cat) {
			return cat
		}
	}
	return ""
}

// shortKeywordRes holds precompiled word-boundary patterns for the short
// tokens, built once from the keyword tables.
var shortKeywordRes = func() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp)
	add := func(k string) {
		if len(k) <= 3 && !strings.Contains(k, " ") {
			res[k] = regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
		}
	}
	for k := range keywordCategory {
		add(k)
	}
	for _, cat := range knownCategories {
		add(cat)
	}
	return res
}()

// matchKeyword does substring matching, except for short tokens which
// need a whole-word match so "ai" does not fire on "rain".
func matchKeyword(low, k string) bool {
	if re, ok := shortKeywordRes[k]; ok {
		return re.MatchString(low)
	}
	return strings.Contains(low, k)
}

func isFollowupToken(low string) bool {
	low = strings.TrimRight(low, ".!? ")
	if followupTokens[low] {
		return true
	}
	if _, err := strconv.Atoi(low); err == nil {
		return true
	}
	return false
}

// stripFiller removes news-request boilerplate so the remaining words act
// as the search topic. Falls back to the original message when everything
// was filler.
func stripFiller(msg string) string {
	words := strings.Fields(msg)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		clean := strings.ToLower(strings.Trim(w, ".,!?\"'"))
		if fillerWords[clean] {
			continue
		}
		kept = append(kept, strings.Trim(w, ".,!?\"'"))
	}
	if len(kept) == 0 {
		return strings.TrimSpace(msg)
	}
	return strings.Join(kept, " ")
}

func containsAnyKeyword(low string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(low, k) {
			return true
		}
	}
	return false
}

// SelectedIndex parses a bare integer reply as a 1-based list index.
func SelectedIndex(message string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimRight(strings.TrimSpace(message), ".!? "))
	if err != nil {
		return 0, false
	}
	return n, true
}
