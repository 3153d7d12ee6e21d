package engine

import "sync"

// Turn is one entry in the assistant's conversation history.
type Turn struct {
	Role    string // "user" or "model"
	Content string
}

// Session is the explicit conversation state shared across assistant calls
// for the lifetime of the process. Turns accumulate in order; concurrent
// calls may interleave turns non-deterministically, which is accepted.
type Session struct {
	mu    sync.Mutex
	turns []Turn
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, Turn{Role: role, Content: content})
}

// Turns returns a copy of the accumulated history.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
