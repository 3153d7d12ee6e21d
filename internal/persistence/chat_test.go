package persistence_test

import (
	"context"
	"fmt"
	"testing"
)

func TestSaveChat_InvalidSender(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveChat(context.Background(), "system", "hi"); err == nil {
		t.Fatal("expected error for invalid sender")
	}
}

func TestSaveChat_SenderNormalized(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveChat(ctx, "  User ", "hello"); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	history, err := store.ChatHistory(ctx, 10)
	if err != nil {
		t.Fatalf("chat history: %v", err)
	}
	if len(history) != 1 || history[0].Sender != "user" {
		t.Fatalf("expected normalized sender, got %+v", history)
	}
}

func TestChatHistory_OrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sender := "user"
		if i%2 == 1 {
			sender = "agent"
		}
		if err := store.SaveChat(ctx, sender, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("save chat %d: %v", i, err)
		}
	}

	// The most recent 3, oldest first.
	history, err := store.ChatHistory(ctx, 3)
	if err != nil {
		t.Fatalf("chat history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	want := []string{"message 2", "message 3", "message 4"}
	for i, m := range history {
		if m.Message != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], m.Message)
		}
	}
}

func TestChatHistory_DefaultLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if err := store.SaveChat(ctx, "user", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("save chat: %v", err)
		}
	}
	history, err := store.ChatHistory(ctx, 0)
	if err != nil {
		t.Fatalf("chat history: %v", err)
	}
	if len(history) != 20 {
		t.Fatalf("expected default limit of 20, got %d", len(history))
	}
	if history[0].Message != "m5" || history[19].Message != "m24" {
		t.Fatalf("unexpected window: first=%q last=%q", history[0].Message, history[19].Message)
	}
}
