package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Message is a single turn in a conversation.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}

// Conversation is a named, ordered message list. On the wire each
// conversation is a single-key object {"<name>": [messages...]} and the
// user's history is an ordered array of those objects, so insertion
// order survives round-trips.
type Conversation struct {
	Name     string
	Messages []Message
}

// History is a user's full conversation list in insertion order.
type History []Conversation

func (h History) MarshalJSON() ([]byte, error) {
	out := make([]map[string][]Message, 0, len(h))
	for _, c := range h {
		msgs := c.Messages
		if msgs == nil {
			msgs = []Message{}
		}
		out = append(out, map[string][]Message{c.Name: msgs})
	}
	return json.Marshal(out)
}

func (h *History) UnmarshalJSON(data []byte) error {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	conversations := make(History, 0, len(raw))
	for _, obj := range raw {
		for name, body := range obj {
			var msgs []Message
			if err := json.Unmarshal(body, &msgs); err != nil {
				return fmt.Errorf("conversation %q: %w", name, err)
			}
			conversations = append(conversations, Conversation{Name: name, Messages: msgs})
		}
	}
	*h = conversations
	return nil
}

// ErrConversationNotFound is returned by operations that target a
// conversation name the user's history doesn't contain.
var ErrConversationNotFound = fmt.Errorf("conversation not found")

// blobStore is the narrow persistence contract the history logic needs:
// one JSON blob per user, loaded and stored whole. SQLite and Postgres
// both satisfy it.
type blobStore interface {
	getBlob(ctx context.Context, email string) ([]byte, bool, error)
	putBlob(ctx context.Context, email string, blob []byte) error
	ping(ctx context.Context) error
	close() error
}

// HistoryStore keeps per-user conversation history as append-only
// message lists inside a single history blob per user.
type HistoryStore struct {
	backend blobStore
}

func (s *HistoryStore) load(ctx context.Context, email string) (History, error) {
	blob, ok, err := s.backend.getBlob(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok || len(blob) == 0 {
		return History{}, nil
	}
	var h History
	if err := json.Unmarshal(blob, &h); err != nil {
		return nil, fmt.Errorf("decode history for %s: %w", email, err)
	}
	return h, nil
}

func (s *HistoryStore) save(ctx context.Context, email string, h History) error {
	blob, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.backend.putBlob(ctx, email, blob); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Append adds messages to a conversation, creating the user row and the
// conversation itself when either doesn't exist yet.
func (s *HistoryStore) Append(ctx context.Context, email, conv string, msgs ...Message) error {
	h, err := s.load(ctx, email)
	if err != nil {
		return err
	}
	found := false
	for i := range h {
		if h[i].Name == conv {
			h[i].Messages = append(h[i].Messages, msgs...)
			found = true
			break
		}
	}
	if !found {
		h = append(h, Conversation{Name: conv, Messages: msgs})
	}
	return s.save(ctx, email, h)
}

// Fetch returns the user's full history. Unknown users get an empty
// history, not an error.
func (s *HistoryStore) Fetch(ctx context.Context, email string) (History, error) {
	return s.load(ctx, email)
}

// Get returns one conversation's messages.
func (s *HistoryStore) Get(ctx context.Context, email, conv string) ([]Message, error) {
	h, err := s.load(ctx, email)
	if err != nil {
		return nil, err
	}
	for _, c := range h {
		if c.Name == conv {
			return c.Messages, nil
		}
	}
	return nil, ErrConversationNotFound
}

// List returns conversation names in insertion order.
func (s *HistoryStore) List(ctx context.Context, email string) ([]string, error) {
	h, err := s.load(ctx, email)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(h))
	for _, c := range h {
		names = append(names, c.Name)
	}
	return names, nil
}

// Rename changes a conversation's name in place, keeping its position.
func (s *HistoryStore) Rename(ctx context.Context, email, oldName, newName string) error {
	h, err := s.load(ctx, email)
	if err != nil {
		return err
	}
	for i := range h {
		if h[i].Name == oldName {
			h[i].Name = newName
			return s.save(ctx, email, h)
		}
	}
	return ErrConversationNotFound
}

// Delete removes a conversation from the user's history.
func (s *HistoryStore) Delete(ctx context.Context, email, conv string) error {
	h, err := s.load(ctx, email)
	if err != nil {
		return err
	}
	for i := range h {
		if h[i].Name == conv {
			h = append(h[:i], h[i+1:]...)
			return s.save(ctx, email, h)
		}
	}
	return ErrConversationNotFound
}

// Ping checks the backing database is reachable.
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.backend.ping(ctx)
}

// Close releases the backing connection.
func (s *HistoryStore) Close() error {
	return s.backend.close()
}
