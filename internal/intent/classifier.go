package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/novahq/nova/internal/metrics"
)

// TextGenerator is the narrow generative-model surface the classifier
// needs. Satisfied by gemini.Client.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier resolves intent with an optional model pass in front of the
// heuristics. The model output is validated; anything malformed falls
// back to the heuristic result, so classification never fails a request.
type Classifier struct {
	gen TextGenerator // nil means heuristics only
	log *slog.Logger
}

func NewClassifier(gen TextGenerator, log *slog.Logger) *Classifier {
	return &Classifier{gen: gen, log: log}
}

const classifyPrompt = `Classify the intent of this message sent to a news assistant.
Reply with a single JSON object, nothing else:
{"intent": "news" | "chat" | "followup", "topic": "<search topic or empty>", "confidence": <0..1>}

"followup" means the user wants more detail on an item the assistant already listed.
Message: %q
Previously listed items exist: %t`

type modelResult struct {
	Intent     string  `json:"intent"`
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
}

// Classify returns the model's verdict when it is well-formed, otherwise
// the heuristic chain's.
func (c *Classifier) Classify(ctx context.Context, message string, hasCachedList bool) Result {
	heuristic := Classify(message, hasCachedList)
	if c.gen == nil {
		return heuristic
	}

	raw, err := c.gen.Generate(ctx, fmt.Sprintf(classifyPrompt, message, hasCachedList))
	if err != nil {
		metrics.ModelCalls.WithLabelValues("intent", "error").Inc()
		c.log.Debug("model classifier failed, using heuristics", "err", err)
		return heuristic
	}
	metrics.ModelCalls.WithLabelValues("intent", "ok").Inc()

	res, ok := parseModelResult(raw)
	if !ok {
		c.log.Debug("model classifier output malformed, using heuristics", "raw", raw)
		return heuristic
	}

	// A follow-up verdict with nothing to expand degrades to the heuristic
	// result; the orchestrator has no list to act on.
	if res.Kind == Followup && !hasCachedList {
		return heuristic
	}
	if res.Kind == News && res.Topic == "" {
		res.Topic = heuristic.Topic
		if res.Topic == "" {
			res.Topic = strings.TrimSpace(message)
		}
	}
	if res.Kind == News && res.Category == "" {
		res.Category = MapCategory(strings.ToLower(message))
	}
	return res
}

// parseModelResult validates the model output against the three-way enum
// and clamps confidence into [0,1].
func parseModelResult(raw string) (Result, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	// Tolerate prose around the object.
	if i := strings.Index(raw, "{"); i >= 0 {
		if j := strings.LastIndex(raw, "}"); j > i {
			raw = raw[i : j+1]
		}
	}

	var mr modelResult
	if err := json.Unmarshal([]byte(raw), &mr); err != nil {
		return Result{}, false
	}

	var kind Kind
	switch strings.ToLower(strings.TrimSpace(mr.Intent)) {
	case "news":
		kind = News
	case "chat":
		kind = Chat
	case "followup":
		kind = Followup
	default:
		return Result{}, false
	}

	conf := mr.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return Result{Kind: kind, Topic: strings.TrimSpace(mr.Topic), Confidence: conf}, true
}
