// Package llm wraps the language-model collaborators: newsroom script
// generation and conversation summarization.
package llm

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client wraps the chat model used for script generation and summarization.
type Client struct {
	model string
	llm   llms.Model
}

// NewClient creates an LLM client. baseURL optionally overrides the API
// endpoint (e.g. a local proxy); model defaults to gpt-4o.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is missing")
	}
	if model == "" {
		model = "gpt-4o"
	}

	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	chatLLM, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize chat model: %w", err)
	}

	log.Info().
		Str("model", model).
		Str("base_url", baseURL).
		Msg("LLM client initialized")

	return &Client{model: model, llm: chatLLM}, nil
}
