package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

// DDGProvider implements Provider using DuckDuckGo HTML search.
type DDGProvider struct {
	client *http.Client
}

// NewDDGProvider creates a DuckDuckGo search provider.
func NewDDGProvider() *DDGProvider {
	return &DDGProvider{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DDGProvider) Name() string    { return "duckduckgo" }
func (d *DDGProvider) Available() bool { return true }

func (d *DDGProvider) Search(ctx context.Context, query string, max int) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchEndpoint(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "GoStudy/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	return parseHTMLResults(string(body), max), nil
}

func searchEndpoint(query string) string {
	if endpoint := os.Getenv("GOSTUDY_SEARCH_ENDPOINT"); endpoint != "" {
		u, err := url.Parse(endpoint)
		if err == nil {
			q := u.Query()
			q.Set("q", query)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
}

// The DuckDuckGo HTML response carries results as <a class="result__a">
// links paired with <a class="result__snippet"> bodies.
var (
	reResultLink    = regexp.MustCompile(`(?i)<a[^>]+class="result__a"[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	reResultSnippet = regexp.MustCompile(`(?i)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	reTag           = regexp.MustCompile(`<[^>]+>`)
)

func parseHTMLResults(html string, max int) []Result {
	if max <= 0 {
		max = 6
	}
	links := reResultLink.FindAllStringSubmatch(html, max*2)
	snippets := reResultSnippet.FindAllStringSubmatch(html, max*2)

	var results []Result
	for i, link := range links {
		if len(link) < 3 {
			continue
		}
		rawURL := link[1]
		title := stripTags(link[2])

		// DuckDuckGo wraps URLs in a redirect; extract the actual URL.
		if u, err := url.Parse(rawURL); err == nil {
			if actual := u.Query().Get("uddg"); actual != "" {
				rawURL = actual
			}
		}

		snippet := ""
		if i < len(snippets) && len(snippets[i]) >= 2 {
			snippet = stripTags(snippets[i][1])
		}

		if title == "" || rawURL == "" {
			continue
		}

		results = append(results, Result{
			Title:   strings.TrimSpace(title),
			Link:    rawURL,
			Snippet: strings.TrimSpace(snippet),
		})

		if len(results) >= max {
			break
		}
	}
	return results
}

func stripTags(s string) string {
	return strings.TrimSpace(reTag.ReplaceAllString(s, ""))
}
