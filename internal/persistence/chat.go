package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultChatLimit = 20

// ChatMessage is one turn of the persisted transcript. The transcript is
// append-only: messages are never edited or deleted outside retention.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveChat appends a message to the transcript. Sender must be "user" or
// "agent".
func (s *Store) SaveChat(ctx context.Context, sender, message string) error {
	sender = strings.ToLower(strings.TrimSpace(sender))
	switch sender {
	case "user", "agent":
	default:
		return fmt.Errorf("invalid sender %q", sender)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (sender, message, timestamp)
		VALUES (?, ?, ?);
	`, sender, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// ChatHistory returns the most recent limit messages in chronological
// (oldest-first) order. A non-positive limit uses the default of 20.
func (s *Store) ChatHistory(ctx context.Context, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = defaultChatLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, message, timestamp
		FROM chat_history
		ORDER BY id DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat_history: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.Sender, &m.Message, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat rows: %w", err)
	}

	// Rows came back newest-first; reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
