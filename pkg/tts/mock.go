package tts

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MockCall records a single call to the mock provider for test assertions.
type MockCall struct {
	Method    string
	Text      string
	VoiceHint string
}

// MockProvider implements Provider for testing. It records every call and
// returns canned PCM audio or a configured error.
type MockProvider struct {
	mu    sync.Mutex
	calls []MockCall

	// Audio is returned as the stream payload. Defaults to a short run of
	// silent PCM16 samples when nil.
	Audio []byte

	// ResolveErr, when set, is returned by Resolve instead of a stream.
	ResolveErr error
}

// NewMockProvider creates a mock TTS provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Resolve records the call and returns a PCM stream over the canned audio.
func (m *MockProvider) Resolve(ctx context.Context, text, voiceHint string) (AudioStream, error) {
	m.record(MockCall{Method: "Resolve", Text: text, VoiceHint: voiceHint})
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	audio := m.Audio
	if audio == nil {
		audio = make([]byte, 480) // 240 silent PCM16 samples
	}
	return &stream{ReadCloser: io.NopCloser(bytes.NewReader(audio)), format: FormatPCM}, nil
}

// Name returns the mock identifier.
func (m *MockProvider) Name() string { return "mock" }

// Close records the call.
func (m *MockProvider) Close() error {
	m.record(MockCall{Method: "Close"})
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MockProvider) record(c MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Verify MockProvider implements Provider at compile time.
var _ Provider = (*MockProvider)(nil)
