// Package engine implements the assistant brain: a Genkit-backed LLM
// session with intent classification and optional web-search grounding.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/basket/go-study/internal/search"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/anthropic"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// Fixed user-facing strings for degraded paths. These are contract: the
// assistant never surfaces a raw upstream error.
const (
	searchUnavailableReply = "I could not retrieve web results right now. Please try again."
	generationErrorReply   = "Sorry, I encountered an error while processing your request."
)

// Assistant produces a reply to a free-text chat input. Implementations
// never fail: degraded paths return fixed explanatory strings.
type Assistant interface {
	GenerateResponse(ctx context.Context, input string) string
}

// BrainConfig holds configuration for the GenkitBrain.
type BrainConfig struct {
	// Provider is the LLM provider: "google", "anthropic", "openai",
	// "openai_compatible". Empty defaults to "google".
	Provider string

	// Model is the model name for the configured provider.
	Model string

	// APIKey is the API key for the LLM provider. Empty means no backend:
	// the brain degrades to a deterministic fallback.
	APIKey string

	// Persona is the system prompt (PERSONA.md contents).
	Persona string

	AgentName string

	// SearchProviders is the ordered provider list for search-augmented
	// requests.
	SearchProviders []search.Provider

	// SearchMaxResults caps results per search-augmented request.
	SearchMaxResults int

	// OpenAICompatible config.
	OpenAICompatibleProvider string
	OpenAICompatibleBaseURL  string
}

// GenkitBrain wraps a Genkit instance with the configured LLM plugin and an
// explicit conversation session.
type GenkitBrain struct {
	g       *genkit.Genkit
	cfg     BrainConfig
	session *Session
	llmOn   bool

	personaMu sync.RWMutex // protects cfg.Persona for hot-reload
}

// NewGenkitBrain initializes Genkit with the configured LLM provider.
// Supports: google (Gemini), anthropic (Claude), openai (GPT),
// openai_compatible. A missing API key yields a brain that answers with
// the deterministic fallback instead of failing.
func NewGenkitBrain(ctx context.Context, session *Session, cfg BrainConfig) *GenkitBrain {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "google"
	}
	cfg.Provider = provider

	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModelForProvider(provider)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)

	var g *genkit.Genkit
	llmOn := false

	switch provider {
	case "anthropic":
		if apiKey != "" {
			anthropicPlugin := &anthropic.Anthropic{
				APIKey:  apiKey,
				BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
			}
			g = genkit.Init(ctx, genkit.WithPlugins(anthropicPlugin))
			llmOn = true
			slog.Info("genkit brain initialized", "provider", "anthropic", "model", cfg.Model)
		} else {
			g = genkit.Init(ctx)
			slog.Warn("Anthropic API key missing; using deterministic fallback")
		}

	case "openai":
		if apiKey != "" {
			openaiPlugin := &compat_oai.OpenAICompatible{
				Provider: "openai",
				APIKey:   apiKey,
				BaseURL:  os.Getenv("OPENAI_BASE_URL"),
			}
			g = genkit.Init(ctx, genkit.WithPlugins(openaiPlugin))
			llmOn = true
			slog.Info("genkit brain initialized", "provider", "openai", "model", cfg.Model)
		} else {
			g = genkit.Init(ctx)
			slog.Warn("OpenAI API key missing; using deterministic fallback")
		}

	case "openai_compatible":
		if apiKey != "" {
			openaiCompatPlugin := &compat_oai.OpenAICompatible{
				Provider: cfg.OpenAICompatibleProvider,
				APIKey:   apiKey,
				BaseURL:  cfg.OpenAICompatibleBaseURL,
			}
			g = genkit.Init(ctx, genkit.WithPlugins(openaiCompatPlugin))
			llmOn = true
			slog.Info("genkit brain initialized", "provider", "openai_compatible", "model", cfg.Model)
		} else {
			g = genkit.Init(ctx)
			slog.Warn("OpenAI compatible API key missing; using deterministic fallback")
		}

	case "google":
		if apiKey != "" {
			_ = os.Setenv("GEMINI_API_KEY", apiKey)
			g = genkit.Init(ctx,
				genkit.WithPlugins(&googlegenai.GoogleAI{}),
				genkit.WithDefaultModel("googleai/"+cfg.Model),
			)
			llmOn = true
			slog.Info("genkit brain initialized", "provider", "google", "model", "googleai/"+cfg.Model)
		} else {
			g = genkit.Init(ctx)
			slog.Warn("Google API key missing; using deterministic fallback")
		}

	default:
		g = genkit.Init(ctx)
		slog.Warn("unknown LLM provider, using deterministic fallback", "provider", provider)
	}

	if session == nil {
		session = NewSession()
	}

	return &GenkitBrain{
		g:       g,
		cfg:     cfg,
		session: session,
		llmOn:   llmOn,
	}
}

func defaultModelForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-5"
	case "openai", "openai_compatible":
		return "gpt-4o-mini"
	default:
		return "gemini-2.5-flash"
	}
}

func modelNameForProvider(provider, model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModelForProvider(provider)
	}
	switch provider {
	case "anthropic":
		return "anthropic/" + model
	case "openai":
		return "openai/" + model
	case "openai_compatible":
		return model
	default:
		return "googleai/" + model
	}
}

// Session exposes the conversation session, mainly for tests.
func (b *GenkitBrain) Session() *Session {
	return b.session
}

// UpdatePersona swaps the system prompt, used by the PERSONA.md hot-reload
// path.
func (b *GenkitBrain) UpdatePersona(persona string) {
	b.personaMu.Lock()
	b.cfg.Persona = persona
	b.personaMu.Unlock()
	slog.Info("assistant persona updated", "length", len(persona))
}

// GenerateResponse produces a reply to the input. It never fails: an empty
// input returns an empty reply, a missing backend returns a configuration
// hint echoing the input, and upstream errors degrade to fixed strings.
func (b *GenkitBrain) GenerateResponse(ctx context.Context, input string) string {
	if input == "" {
		return ""
	}

	if !b.llmOn {
		return fmt.Sprintf(
			"AI service not configured. (Fallback)\n\nYou wrote:\n%s\n\nTo use full AI features, set the GEMINI_API_KEY environment variable.",
			input,
		)
	}

	intent := ClassifyIntent(input)
	if intent.Kind == IntentSearch {
		results, err := search.Route(ctx, intent.Query, b.cfg.SearchProviders, b.cfg.SearchMaxResults)
		if err != nil || len(results) == 0 {
			slog.Warn("web search unavailable for chat request", "query", intent.Query, "error", err)
			return searchUnavailableReply
		}
		composed := composeSearchPrompt(intent.Query, results)
		reply, err := b.generate(ctx, composed)
		if err != nil {
			slog.Error("genkit generate failed", "error", err)
			return generationErrorReply
		}
		return reply
	}

	reply, err := b.generate(ctx, input)
	if err != nil {
		slog.Error("genkit generate failed", "error", err)
		return generationErrorReply
	}
	return reply
}

// generate sends the prompt through the session: history is attached as
// messages, the user turn is recorded before the call, and the model turn
// is recorded on success.
func (b *GenkitBrain) generate(ctx context.Context, prompt string) (string, error) {
	b.personaMu.RLock()
	systemPrompt := strings.TrimSpace(b.cfg.Persona)
	b.personaMu.RUnlock()
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt(b.cfg.AgentName)
	}
	// Escape % characters to prevent fmt corruption in ai.WithSystem().
	systemPrompt = strings.ReplaceAll(systemPrompt, "%", "%%")

	opts := []ai.GenerateOption{
		ai.WithModelName(modelNameForProvider(b.cfg.Provider, b.cfg.Model)),
		ai.WithSystem(systemPrompt),
	}
	if msgs := turnsToMessages(b.session.Turns()); len(msgs) > 0 {
		opts = append(opts, ai.WithMessages(msgs...))
	}
	opts = append(opts, ai.WithPrompt(prompt))

	b.session.Append("user", prompt)

	resp, err := genkit.Generate(ctx, b.g, opts...)
	if err != nil {
		return "", fmt.Errorf("genkit generate: %w", err)
	}

	reply := resp.Text()
	b.session.Append("model", reply)
	return reply, nil
}

// turnsToMessages converts session turns to Genkit messages.
func turnsToMessages(turns []Turn) []*ai.Message {
	var msgs []*ai.Message
	for _, turn := range turns {
		var role ai.Role
		switch turn.Role {
		case "user":
			role = ai.RoleUser
		case "model":
			role = ai.RoleModel
		default:
			continue
		}
		msgs = append(msgs, &ai.Message{
			Role:    role,
			Content: []*ai.Part{ai.NewTextPart(turn.Content)},
		})
	}
	return msgs
}
