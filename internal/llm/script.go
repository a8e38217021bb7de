package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"github.com/cryptodaily/newsroom/internal/models"
)

// GenerateScript produces an alternating two-host script about topic with
// roughly turns lines. The model is asked for a strict "Speaker: text" line
// format; lines that don't parse are dropped rather than failing the run.
func (c *Client) GenerateScript(ctx context.Context, topic string, turns int) ([]models.ScriptLine, error) {
	if turns <= 0 {
		turns = 8
	}

	systemPrompt := fmt.Sprintf(`You write scripts for a two-host news show.
The hosts are Alex and Morgan. Alex opens the show and the hosts alternate turns.

Write exactly %d turns about the topic provided by the user.
Each turn is a single line in the format:

Alex: <what Alex says>
Morgan: <what Morgan says>

Return ONLY the script lines, no headings, stage directions or commentary.`, turns)

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: systemPrompt}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: topic}}},
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(2000),
	)
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("script generation returned no choices")
	}

	script := parseScript(resp.Choices[0].Content)
	if len(script) == 0 {
		return nil, fmt.Errorf("script generation returned no parseable lines")
	}

	log.Info().
		Str("topic", topic).
		Int("requested_turns", turns).
		Int("parsed_turns", len(script)).
		Msg("Script generation complete")

	return script, nil
}

// parseScript extracts "Speaker: text" lines from model output. Unknown
// speakers and malformed lines are skipped.
func parseScript(raw string) []models.ScriptLine {
	var script []models.ScriptLine
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, text, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		speaker, err := models.ParseSpeaker(strings.TrimSpace(strings.Trim(name, "*_ ")))
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		script = append(script, models.ScriptLine{Speaker: speaker, Text: text})
	}
	return script
}
