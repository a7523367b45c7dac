package tts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

const (
	googleTranslateTTSURL = "https://translate.google.com/translate_tts"
	providerGoogle        = "google-translate"
)

// GoogleTranslate implements Provider using the Google Translate TTS
// endpoint. It needs no API key; the only tunable is the language code.
type GoogleTranslate struct {
	lang    string
	config  *Config
	logger  *slog.Logger
	baseURL string
}

// NewGoogleTranslate creates a Google Translate TTS provider for the given
// language tag (e.g. "ja", "en-US").
func NewGoogleTranslate(lang string, opts ...Option) *GoogleTranslate {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleTranslateTTSURL
	}

	return &GoogleTranslate{
		lang:    lang,
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.google"),
		baseURL: baseURL,
	}
}

// Resolve fetches the synthesized MP3 stream for text.
// voiceHint is ignored; this backend has a single voice per language.
func (g *GoogleTranslate) Resolve(ctx context.Context, text, voiceHint string) (AudioStream, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("ttsspeed", "1")
	params.Set("tl", g.lang)
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create request: %w", err))
	}

	resp, err := g.config.HTTPClient.Do(req)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status, Provider: providerGoogle}
	}

	g.logger.Debug("resolved utterance", "chars", len(text), "lang", g.lang)
	return &stream{ReadCloser: resp.Body, format: FormatMP3}, nil
}

// Name returns the backend identifier.
func (g *GoogleTranslate) Name() string { return providerGoogle }

// Close releases resources.
func (g *GoogleTranslate) Close() error { return nil }

// Verify GoogleTranslate implements Provider at compile time.
var _ Provider = (*GoogleTranslate)(nil)
