// Package tts provides a unified interface for text-to-speech backends.
//
// The package supports the Google Translate TTS endpoint (no API key), the
// VoiceText commercial API, and the TTS QUEST VOICEVOX synthesis API. All
// backends implement the Provider interface, so the audio player can switch
// between them per utterance based on the current settings.
//
// Example usage:
//
//	provider := tts.FromSettings(store, logger)
//	stream, _ := provider.Resolve(ctx, "Hello world", "")
//	defer stream.Close()
//	// stream yields encoded audio in stream.Format()
package tts

import (
	"context"
	"io"

	"github.com/stackchan/go-stackchan/pkg/settings"
)

// Provider defines the TTS backend interface.
// All implementations must satisfy this interface so the player can switch
// backends without changing caller code.
type Provider interface {
	// Resolve converts text to a streaming audio source.
	// voiceHint optionally overrides the configured voice for this utterance;
	// an empty hint uses the stored parameters.
	Resolve(ctx context.Context, text, voiceHint string) (AudioStream, error)

	// Name returns the backend identifier for logging.
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// AudioStream is a streaming audio source. Callers must Close it.
type AudioStream interface {
	io.ReadCloser

	// Format returns the encoding of the stream.
	Format() Format
}

// Format identifies the audio encoding of a stream.
type Format int

const (
	// FormatMP3 is MPEG layer 3 audio.
	FormatMP3 Format = iota

	// FormatWAV is RIFF/WAVE with PCM16 payload.
	FormatWAV

	// FormatPCM is raw PCM16 mono at 24kHz. Used by the mock provider.
	FormatPCM
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatWAV:
		return "wav"
	case FormatPCM:
		return "pcm"
	default:
		return "unknown"
	}
}

// FromSettings selects the backend for the next utterance from the settings
// store. VoiceText requires its API key; without one the selection falls back
// to Google Translate, matching the device's behavior when a key is removed.
func FromSettings(store *settings.Store, opts ...Option) Provider {
	switch store.VoiceService() {
	case settings.ServiceVoicevox:
		return NewVoicevox(store.VoicevoxAPIKey(), store.VoicevoxParams(), opts...)
	case settings.ServiceVoiceText:
		if key := store.VoiceTextAPIKey(); key != "" {
			return NewVoiceText(key, store.VoiceTextParams(), opts...)
		}
		return NewGoogleTranslate(store.VoiceLang(), opts...)
	default:
		return NewGoogleTranslate(store.VoiceLang(), opts...)
	}
}

// stream is the common AudioStream implementation over an HTTP body.
type stream struct {
	io.ReadCloser
	format Format
}

// Format returns the encoding of the stream.
func (s *stream) Format() Format { return s.format }
