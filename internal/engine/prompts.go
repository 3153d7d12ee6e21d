package engine

import (
	"fmt"
	"strings"

	"github.com/basket/go-study/internal/search"
)

const searchSystemPrompt = "You are an AI research assistant. Use the provided web search results to answer the user query. " +
	"Synthesize concisely, cite sources inline like [1], [2] where relevant, and include a brief summary."

// composeSearchPrompt builds the augmented prompt for a search-grounded
// request: the research-assistant instruction, the original query, and the
// enumerated results.
func composeSearchPrompt(query string, results []search.Result) string {
	var refs strings.Builder
	for i, r := range results {
		if i > 0 {
			refs.WriteString("\n\n")
		}
		fmt.Fprintf(&refs, "[%d] %s — %s\n%s", i+1, r.Title, r.Link, r.Snippet)
	}

	return fmt.Sprintf(
		"<system>\n%s\n</system>\n<user_query>\n%s\n</user_query>\n<web_results>\n%s\n</web_results>",
		searchSystemPrompt, query, refs.String(),
	)
}

func defaultSystemPrompt(agentName string) string {
	if agentName == "" {
		agentName = "StudyBuddy"
	}
	return fmt.Sprintf("You are %s, a helpful study-planner assistant. "+
		"Help the user organize tasks, plan study sessions, and stay on track with deadlines. "+
		"Be concise and practical.", agentName)
}
