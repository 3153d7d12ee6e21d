package engine

import "strings"

// IntentKind classifies what a chat input is asking for.
type IntentKind int

const (
	// IntentPlain sends the input verbatim to the model.
	IntentPlain IntentKind = iota
	// IntentSearch grounds the reply in live web results first.
	IntentSearch
)

// Intent is the result of classifying a chat input. Query is only set for
// IntentSearch.
type Intent struct {
	Kind  IntentKind
	Query string
}

// ClassifyIntent inspects the input's leading text (case-insensitive,
// whitespace-trimmed) for the "search:<query>" or "/search <query>"
// prefixes. A matching prefix with an empty query falls back to
// IntentPlain.
func ClassifyIntent(input string) Intent {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)

	var query string
	switch {
	case strings.HasPrefix(lower, "search:"):
		query = strings.TrimSpace(trimmed[len("search:"):])
	case strings.HasPrefix(lower, "/search "):
		query = strings.TrimSpace(trimmed[len("/search "):])
	}

	if query == "" {
		return Intent{Kind: IntentPlain}
	}
	return Intent{Kind: IntentSearch, Query: query}
}
