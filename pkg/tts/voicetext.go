package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	voiceTextTTSURL   = "https://api.voicetext.jp/v1/tts"
	providerVoiceText = "voicetext"
)

// VoiceText implements Provider for the VoiceText Web API.
// The stored query parameters (speaker, speed, pitch, emotion, ...) are sent
// with each request; a numeric voiceHint selects one of the built-in voice
// presets for this utterance only.
type VoiceText struct {
	apiKey  string
	params  string
	config  *Config
	logger  *slog.Logger
	baseURL string
}

// NewVoiceText creates a VoiceText provider with the stored parameter string
// (query-string encoded, e.g. "speaker=hikari&speed=120").
func NewVoiceText(apiKey, params string, opts ...Option) *VoiceText {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = voiceTextTTSURL
	}

	return &VoiceText{
		apiKey:  apiKey,
		params:  params,
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.voicetext"),
		baseURL: baseURL,
	}
}

// Resolve synthesizes text via the VoiceText API and returns the MP3 stream.
// voiceHint "0".."4" merges the numbered voice preset over the stored
// parameters for this request.
func (v *VoiceText) Resolve(ctx context.Context, text, voiceHint string) (AudioStream, error) {
	if v.apiKey == "" {
		return nil, WrapError(providerVoiceText, ErrNoAPIKey)
	}

	params := ParseParams(v.params)
	if voiceHint != "" {
		merged, err := MergeVoicePreset(v.params, voiceHint)
		if err == nil {
			params = ParseParams(merged)
		}
	}
	params.Set("text", text)
	params.Set("format", "mp3")

	req, err := http.NewRequestWithContext(ctx, "POST", v.baseURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, WrapError(providerVoiceText, fmt.Errorf("create request: %w", err))
	}
	req.SetBasicAuth(v.apiKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.config.HTTPClient.Do(req)
	if err != nil {
		return nil, WrapError(providerVoiceText, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Provider: providerVoiceText}
	}

	v.logger.Debug("resolved utterance", "chars", len(text), "voice", params.Get("speaker"))
	return &stream{ReadCloser: resp.Body, format: FormatMP3}, nil
}

// Name returns the backend identifier.
func (v *VoiceText) Name() string { return providerVoiceText }

// Close releases resources.
func (v *VoiceText) Close() error { return nil }

// Verify VoiceText implements Provider at compile time.
var _ Provider = (*VoiceText)(nil)
