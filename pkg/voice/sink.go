package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink plays audio to a speaker or other output device. One playback
// stream runs between Start and Stop; chunks written in between are
// played in order.
type Sink interface {
	// Start begins a playback stream.
	Start(ctx context.Context) error

	// Write sends a chunk to the output device. Blocks while the device
	// buffer is full.
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush waits for all buffered audio to finish playing.
	Flush(ctx context.Context) error

	// Stop ends the stream, discarding any audio still buffered.
	// Safe to call multiple times.
	Stop() error

	// SetVolume sets the output volume, 0 to 255.
	SetVolume(v int)

	// Name returns the backend name.
	Name() string

	// Close releases all resources. The sink cannot be restarted.
	io.Closer
}

// OtoSink plays audio through the system output device via oto.
type OtoSink struct {
	otoCtx *oto.Context
	logger *slog.Logger

	mu     sync.Mutex
	player *oto.Player
	pw     *io.PipeWriter
	volume float64
	closed bool
}

// NewOtoSink initializes the system audio device. Initialization happens
// once per process; a failure here is fatal for speech output.
func NewOtoSink(logger *slog.Logger) (*OtoSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("init audio device: %w", err)
	}
	<-ready

	logger.Info("audio sink ready", "sample_rate", SampleRate, "channels", Channels)
	return &OtoSink{otoCtx: otoCtx, logger: logger, volume: 1.0}, nil
}

// Start begins a playback stream.
func (s *OtoSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.player != nil {
		return fmt.Errorf("sink already started")
	}

	pr, pw := io.Pipe()
	player := s.otoCtx.NewPlayer(pr)
	player.SetVolume(s.volume)
	player.Play()

	s.player = player
	s.pw = pw
	return nil
}

// Write sends a chunk to the device. The pipe paces the caller to
// playback speed.
func (s *OtoSink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	pw := s.pw
	s.mu.Unlock()

	if pw == nil {
		return io.ErrClosedPipe
	}
	_, err := pw.Write(chunk.Bytes())
	return err
}

// Flush closes the stream input and waits for buffered audio to play out.
func (s *OtoSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	player := s.player
	pw := s.pw
	s.pw = nil
	s.mu.Unlock()

	if pw != nil {
		pw.Close()
	}
	if player == nil {
		return nil
	}
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

// Stop ends the stream immediately, discarding buffered audio.
func (s *OtoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pw != nil {
		s.pw.Close()
		s.pw = nil
	}
	if s.player != nil {
		err := s.player.Close()
		s.player = nil
		return err
	}
	return nil
}

// SetVolume sets the output volume, 0 to 255.
func (s *OtoSink) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = float64(v) / 255.0
	if s.player != nil {
		s.player.SetVolume(s.volume)
	}
}

// Name returns the backend name.
func (s *OtoSink) Name() string { return "oto" }

// Close releases the sink. The underlying audio context stays alive for
// the process lifetime, which is how oto is designed to be used.
func (s *OtoSink) Close() error {
	err := s.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

// Verify OtoSink implements Sink at compile time.
var _ Sink = (*OtoSink)(nil)
