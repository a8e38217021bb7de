package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

const summarizeSystemPrompt = "You are a helpful assistant that summarizes conversation between two news anchors concisely and accurately. Just focus on the text of the conversation between the news anchors."

// Summarize produces a concise summary of a newsroom conversation transcript.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required for summarization")
	}

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: summarizeSystemPrompt}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: "Please summarize the following text in a concise manner:\n\n" + text}}},
	}

	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarization returned no choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Content)
	if summary == "" {
		return "", fmt.Errorf("summarization returned empty content")
	}

	log.Info().
		Int("original_length", len(text)).
		Int("summary_length", len(summary)).
		Msg("Summary generated")

	return summary, nil
}
