// Package voice queues utterances and plays them through the audio sink.
//
// Speak splits text into sentences and enqueues one utterance per
// sentence, so long answers start playing before the whole text is
// synthesized. The player task pops utterances one at a time, selects the
// TTS backend from the current settings, and streams decoded PCM to the
// sink while publishing the output level for lip sync.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stackchan/go-stackchan/pkg/settings"
	"github.com/stackchan/go-stackchan/pkg/texts"
	"github.com/stackchan/go-stackchan/pkg/tts"
)

// Lip-sync level bounds over the int16 peak of the last played frame.
const (
	LevelMin = 100
	LevelMax = 15000
)

// idleWait is how long the player sleeps when the queue is empty.
const idleWait = 200 * time.Millisecond

// Utterance is one queued sentence with an optional voice override.
type Utterance struct {
	Text  string
	Voice string
}

// Player owns the speech queue and the audio output.
type Player struct {
	store  *settings.Store
	sink   Sink
	logger *slog.Logger

	// newProvider is swappable for tests.
	newProvider func(*settings.Store) tts.Provider

	mu      sync.Mutex
	queue   []Utterance
	playing bool
	stopped bool
	level   int
}

// NewPlayer creates a speech player over the given sink.
func NewPlayer(store *settings.Store, sink Sink, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		store:  store,
		sink:   sink,
		logger: logger.With("component", "voice"),
		newProvider: func(s *settings.Store) tts.Provider {
			return tts.FromSettings(s, tts.WithLogger(logger))
		},
	}
}

// Speak splits text into sentences and enqueues them. voice optionally
// overrides the configured voice for these utterances.
func (p *Player) Speak(text, voice string) {
	sentences := texts.SplitSentences(text)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range sentences {
		p.queue = append(p.queue, Utterance{Text: s, Voice: voice})
	}
}

// StopSpeak drops all queued utterances and interrupts the one playing.
func (p *Player) StopSpeak() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = nil
	if p.playing {
		p.stopped = true
	}
}

// IsPlaying reports whether an utterance is in progress. The flag is
// raised at pop, before synthesis, so callers deferring to speech (the
// behavior coordinator, the gaze hold) already back off while the audio
// for an utterance is still being fetched.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// QueueLength returns the number of utterances waiting to play.
func (p *Player) QueueLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// AudioLevel returns the peak of the most recent output frame, clamped to
// [LevelMin, LevelMax] and normalized to 0..1. Zero while silent.
func (p *Player) AudioLevel() float64 {
	p.mu.Lock()
	level := p.level
	p.mu.Unlock()

	if level <= LevelMin {
		return 0
	}
	if level >= LevelMax {
		return 1
	}
	return float64(level-LevelMin) / float64(LevelMax-LevelMin)
}

// SetVolume clamps v to 0..255, persists it and applies it to the sink.
func (p *Player) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	p.store.Set(settings.KeyVoiceVolume, v)
	p.sink.SetVolume(v)
}

// SetVoiceName changes the voice of the selected service. Under
// VoiceText the name picks a numbered preset merged into the stored
// parameters; parameters the preset does not name keep their values.
// Under VOICEVOX the name becomes the speaker id. Google Translate has
// no voices to choose.
func (p *Player) SetVoiceName(name string) error {
	switch p.store.VoiceService() {
	case settings.ServiceVoiceText:
		merged, err := tts.MergeVoicePreset(p.store.VoiceTextParams(), name)
		if err != nil {
			return err
		}
		p.store.Set(settings.KeyVoiceTextParams, merged)
		return nil
	case settings.ServiceVoicevox:
		params := tts.ParseParams(p.store.VoicevoxParams())
		params.Set("speaker", name)
		p.store.Set(settings.KeyVoicevoxParams, tts.BuildParams(params))
		return nil
	default:
		return fmt.Errorf("service %q has no voice selection", p.store.VoiceService())
	}
}

// SetVoiceTextAPIKey stores the VoiceText key and selects that service.
// An empty key removes the stored key and falls back to Google Translate.
func (p *Player) SetVoiceTextAPIKey(key string) {
	if key == "" {
		p.store.Remove(settings.KeyVoiceTextAPIKey)
		p.store.Set(settings.KeyVoiceService, settings.ServiceGoogleTranslate)
		return
	}
	p.store.Set(settings.KeyVoiceTextAPIKey, key)
	p.store.Set(settings.KeyVoiceService, settings.ServiceVoiceText)
}

// SetVoicevoxAPIKey stores the VOICEVOX key and selects that service.
// An empty key removes the stored key and falls back to Google Translate.
func (p *Player) SetVoicevoxAPIKey(key string) {
	if key == "" {
		p.store.Remove(settings.KeyVoicevoxAPIKey)
		p.store.Set(settings.KeyVoiceService, settings.ServiceGoogleTranslate)
		return
	}
	p.store.Set(settings.KeyVoicevoxAPIKey, key)
	p.store.Set(settings.KeyVoiceService, settings.ServiceVoicevox)
}

// Run is the player task. It drains the queue until ctx is canceled.
func (p *Player) Run(ctx context.Context) {
	for {
		u, ok := p.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleWait):
			}
			continue
		}
		p.play(ctx, u)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// pop removes the head of the queue and marks the player busy. Busy
// spans synthesis as well as playback; see IsPlaying.
func (p *Player) pop() (Utterance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return Utterance{}, false
	}
	u := p.queue[0]
	p.queue = p.queue[1:]
	p.playing = true
	p.stopped = false
	return u, true
}

// play synthesizes and streams one utterance. Failures are logged and the
// utterance dropped; the queue keeps going.
func (p *Player) play(ctx context.Context, u Utterance) {
	defer func() {
		p.mu.Lock()
		p.playing = false
		p.stopped = false
		p.level = 0
		p.mu.Unlock()
	}()

	provider := p.newProvider(p.store)
	defer provider.Close()

	stream, err := provider.Resolve(ctx, u.Text, u.Voice)
	if err != nil {
		p.logger.Warn("synthesis failed", "provider", provider.Name(), "error", err)
		return
	}
	defer stream.Close()

	dec, err := NewDecoder(stream)
	if err != nil {
		p.logger.Warn("decode failed", "provider", provider.Name(), "error", err)
		return
	}

	p.sink.SetVolume(p.store.VoiceVolume())
	if err := p.sink.Start(ctx); err != nil {
		p.logger.Error("sink start failed", "error", err)
		return
	}

	aborted := false
	for {
		if p.interrupted(ctx) {
			aborted = true
			break
		}

		chunk, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Warn("decode error", "error", err)
			}
			break
		}

		p.setLevel(chunk.Peak())
		if err := p.sink.Write(ctx, chunk); err != nil {
			p.logger.Warn("sink write failed", "error", err)
			aborted = true
			break
		}
	}

	if !aborted {
		if err := p.sink.Flush(ctx); err != nil {
			p.logger.Debug("sink flush interrupted", "error", err)
		}
	}
	if err := p.sink.Stop(); err != nil {
		p.logger.Warn("sink stop failed", "error", err)
	}
}

func (p *Player) interrupted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

func (p *Player) setLevel(peak int) {
	p.mu.Lock()
	p.level = peak
	p.mu.Unlock()
}
