// Package gemini adapts the Gemini SDK to the one narrow text-in/text-out
// surface the rest of the service uses.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// promptMaxChars caps prompt size before the model call.
const promptMaxChars = 6000

// Client wraps one Gemini model behind Generate. Callers never see the
// SDK's request or response shapes.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Generate sends one prompt and returns the model text. A response with
// no candidates or no text parts is an error; callers treat "no text
// returned" the same as "call failed".
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("model returned no text")
	}
	return out, nil
}

// ClampPrompt collapses whitespace and cuts over-long input on a rune
// boundary, preferring a sentence end when one falls late enough.
func ClampPrompt(content string) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.TrimSpace(content)

	if utf8.RuneCountInString(content) <= promptMaxChars {
		return content
	}
	runes := []rune(content)
	trimmed := string(runes[:promptMaxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + "\n[TRUNCATED]"
}
