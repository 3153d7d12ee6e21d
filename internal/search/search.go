// Package search provides the web-search providers used to ground
// assistant answers in live results.
package search

import (
	"context"
	"fmt"
	"log/slog"
)

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Provider is a pluggable search backend.
type Provider interface {
	Name() string
	Available() bool
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// Route runs the query through the ordered provider list: skip unavailable,
// try search, fall through on error. First success with results wins.
func Route(ctx context.Context, query string, providers []Provider, max int) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if max <= 0 {
		max = 6
	}

	for _, p := range providers {
		if !p.Available() {
			continue
		}
		results, err := p.Search(ctx, query, max)
		if err != nil {
			slog.Warn("search provider failed, trying next", "provider", p.Name(), "error", err)
			continue
		}
		if len(results) == 0 {
			continue
		}
		return results, nil
	}

	return nil, fmt.Errorf("no search provider returned results for %q", query)
}
