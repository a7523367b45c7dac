package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

const (
	voicevoxAPIURL   = "https://api.tts.quest/v3/voicevox/synthesis"
	providerVoicevox = "tts-quest-voicevox"
)

// Voicevox implements Provider for the TTS QUEST VOICEVOX API.
// Synthesis is a two-step exchange: the synthesis call returns a JSON
// document pointing at a streaming MP3 URL, which is then fetched.
type Voicevox struct {
	apiKey  string
	params  string
	config  *Config
	logger  *slog.Logger
	baseURL string
}

// NewVoicevox creates a VOICEVOX provider with the stored parameter string.
func NewVoicevox(apiKey, params string, opts ...Option) *Voicevox {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = voicevoxAPIURL
	}

	return &Voicevox{
		apiKey:  apiKey,
		params:  params,
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.voicevox"),
		baseURL: baseURL,
	}
}

// synthesisResponse is the JSON shape of the synthesis endpoint.
type synthesisResponse struct {
	Success         bool   `json:"success"`
	MP3StreamingURL string `json:"mp3StreamingUrl"`
	ErrorMessage    string `json:"errorMessage"`
}

// Resolve synthesizes text and returns the MP3 stream.
// voiceHint overrides the configured speaker for this utterance.
func (v *Voicevox) Resolve(ctx context.Context, text, voiceHint string) (AudioStream, error) {
	params := ParseParams(v.params)
	if v.apiKey != "" {
		params.Set("key", v.apiKey)
	}
	if voiceHint != "" {
		params.Set("speaker", voiceHint)
	}
	params.Set("text", text)

	streamURL, err := v.synthesize(ctx, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", streamURL, nil)
	if err != nil {
		return nil, WrapError(providerVoicevox, fmt.Errorf("create stream request: %w", err))
	}
	resp, err := v.config.HTTPClient.Do(req)
	if err != nil {
		return nil, WrapError(providerVoicevox, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status, Provider: providerVoicevox}
	}

	v.logger.Debug("resolved utterance", "chars", len(text), "speaker", params.Get("speaker"))
	return &stream{ReadCloser: resp.Body, format: FormatMP3}, nil
}

// synthesize performs the synthesis call and returns the streaming URL.
func (v *Voicevox) synthesize(ctx context.Context, params url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", v.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", WrapError(providerVoicevox, fmt.Errorf("create request: %w", err))
	}

	resp, err := v.config.HTTPClient.Do(req)
	if err != nil {
		return "", WrapError(providerVoicevox, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: resp.Status, Provider: providerVoicevox}
	}

	var result synthesisResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", WrapError(providerVoicevox, fmt.Errorf("decode response: %w", err))
	}
	if !result.Success || result.MP3StreamingURL == "" {
		if result.ErrorMessage != "" {
			return "", WrapError(providerVoicevox, fmt.Errorf("synthesis failed: %s", result.ErrorMessage))
		}
		return "", WrapError(providerVoicevox, ErrNoStreamURL)
	}
	return result.MP3StreamingURL, nil
}

// Name returns the backend identifier.
func (v *Voicevox) Name() string { return providerVoicevox }

// Close releases resources.
func (v *Voicevox) Close() error { return nil }

// Verify Voicevox implements Provider at compile time.
var _ Provider = (*Voicevox)(nil)
