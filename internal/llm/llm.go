// Package llm provides the chat models that write answers from retrieved context.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/bull/repo-rag/internal/config"
)

// Sentinel errors for completion calls.
var (
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrInvalidResponse = errors.New("invalid response from provider")
)

// Completer generates text completions from a prompt.
type Completer interface {
	// Complete returns a text completion for the given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the Completer selected by cfg. The OpenAI provider reuses
// openaiClient so embeddings and chat share one connection pool.
func New(cfg config.LLMConfig, openaiClient *openai.Client) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		if openaiClient == nil {
			return nil, errors.New("openai provider needs an OpenAI client")
		}
		return NewOpenAICompleter(openaiClient, cfg.Model), nil
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY not set")
		}
		return NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
