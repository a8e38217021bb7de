package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/models"
)

// ElevenLabsClient synthesizes MP3 audio via the ElevenLabs REST API.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	modelID    string
	voices     map[models.Speaker]string
	httpClient *http.Client
}

// voiceSettings mirrors the ElevenLabs voice_settings payload.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// NewElevenLabsClient creates a TTS client. A missing API key or an
// unmapped speaker voice is a configuration error, reported immediately
// rather than on first synthesis.
func NewElevenLabsClient(apiKey, baseURL, modelID, voiceAlex, voiceMorgan string) (*ElevenLabsClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ElevenLabs API key is missing")
	}
	if voiceAlex == "" || voiceMorgan == "" {
		return nil, fmt.Errorf("voice IDs for both speakers are required")
	}
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
	}

	log.Info().
		Str("model_id", modelID).
		Str("voice_alex", voiceAlex).
		Str("voice_morgan", voiceMorgan).
		Msg("ElevenLabs TTS client initialized")

	return &ElevenLabsClient{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		modelID: modelID,
		voices: map[models.Speaker]string{
			models.SpeakerAlex:   voiceAlex,
			models.SpeakerMorgan: voiceMorgan,
		},
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Synthesize converts text to MP3 bytes with the speaker's voice. All
// upstream failures come back wrapped in ErrSynthesis.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, speaker models.Speaker) ([]byte, error) {
	voiceID, ok := c.voices[speaker]
	if !ok {
		return nil, fmt.Errorf("%w: no voice configured for speaker %q", ErrSynthesis, speaker)
	}

	reqBody := ttsRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.5,
			UseSpeakerBoost: true,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSynthesis, err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=mp3_44100_128", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSynthesis, err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("speaker", string(speaker)).
		Str("voice_id", voiceID).
		Int("text_length", len(text)).
		Msg("Calling ElevenLabs TTS")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSynthesis, resp.StatusCode, string(raw))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio body: %v", ErrSynthesis, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio response", ErrSynthesis)
	}

	log.Info().
		Str("speaker", string(speaker)).
		Int("audio_size_bytes", len(audio)).
		Msg("TTS audio generated")

	return audio, nil
}
