package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stackchan/go-stackchan/pkg/settings"
	"github.com/stackchan/go-stackchan/pkg/tts"
)

func newTestPlayer(t *testing.T) (*Player, *MockSink, *tts.MockProvider) {
	t.Helper()
	store := settings.NewMemory()
	sink := NewMockSink()
	provider := tts.NewMockProvider()
	p := NewPlayer(store, sink, nil)
	p.newProvider = func(*settings.Store) tts.Provider { return provider }
	return p, sink, provider
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSpeak(t *testing.T) {
	t.Run("splits text into queued sentences", func(t *testing.T) {
		p, _, _ := newTestPlayer(t)
		p.Speak("Hello world. How are you? Fine!", "")
		if got := p.QueueLength(); got != 3 {
			t.Errorf("expected 3 queued utterances, got %d", got)
		}
	})

	t.Run("voice hint carried per utterance", func(t *testing.T) {
		p, _, provider := newTestPlayer(t)
		p.Speak("One. Two.", "3")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, func() bool {
			return p.QueueLength() == 0 && !p.IsPlaying()
		}, "queue did not drain")

		calls := provider.Calls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 resolve calls, got %d", len(calls))
		}
		for _, c := range calls {
			if c.VoiceHint != "3" {
				t.Errorf("expected voice hint 3, got %q", c.VoiceHint)
			}
		}
	})

	t.Run("empty text queues nothing", func(t *testing.T) {
		p, _, _ := newTestPlayer(t)
		p.Speak("", "")
		if got := p.QueueLength(); got != 0 {
			t.Errorf("expected empty queue, got %d", got)
		}
	})
}

func TestStopSpeak(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	p.Speak("One. Two. Three.", "")
	p.StopSpeak()
	if got := p.QueueLength(); got != 0 {
		t.Errorf("expected cleared queue, got %d", got)
	}
}

func TestRun(t *testing.T) {
	t.Run("plays queued utterances through the sink", func(t *testing.T) {
		p, sink, _ := newTestPlayer(t)
		p.Speak("Hello. World.", "")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, func() bool {
			return p.QueueLength() == 0 && !p.IsPlaying() && sink.StreamCount() == 2
		}, "expected two playback streams")

		if sink.ChunkCount() == 0 {
			t.Error("no audio chunks reached the sink")
		}
	})

	t.Run("synthesis failure drops utterance and continues", func(t *testing.T) {
		p, sink, provider := newTestPlayer(t)
		provider.ResolveErr = errors.New("backend down")
		p.Speak("One. Two.", "")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, func() bool {
			return p.QueueLength() == 0 && !p.IsPlaying()
		}, "queue did not drain after failures")

		if len(provider.Calls()) != 2 {
			t.Errorf("expected both utterances attempted, got %d calls", len(provider.Calls()))
		}
		if sink.StreamCount() != 0 {
			t.Errorf("expected no playback streams, got %d", sink.StreamCount())
		}
	})

	t.Run("volume from settings applied per utterance", func(t *testing.T) {
		p, sink, _ := newTestPlayer(t)
		p.store.Set(settings.KeyVoiceVolume, 123)
		p.Speak("Hi.", "")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, func() bool {
			return p.QueueLength() == 0 && !p.IsPlaying() && len(sink.VolumeCalls()) > 0
		}, "volume never applied")

		if vols := sink.VolumeCalls(); vols[0] != 123 {
			t.Errorf("expected volume 123, got %d", vols[0])
		}
	})
}

func TestAudioLevel(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	cases := []struct {
		peak int
		want float64
	}{
		{0, 0},
		{LevelMin, 0},
		{LevelMax, 1},
		{30000, 1},
	}
	for _, c := range cases {
		p.setLevel(c.peak)
		if got := p.AudioLevel(); got != c.want {
			t.Errorf("peak %d: expected level %v, got %v", c.peak, c.want, got)
		}
	}

	p.setLevel((LevelMin + LevelMax) / 2)
	if got := p.AudioLevel(); got < 0.49 || got > 0.51 {
		t.Errorf("midpoint peak: expected level near 0.5, got %v", got)
	}
}

func TestVoiceMutators(t *testing.T) {
	t.Run("set volume clamps and persists", func(t *testing.T) {
		p, sink, _ := newTestPlayer(t)
		p.SetVolume(300)
		if got := p.store.VoiceVolume(); got != 255 {
			t.Errorf("expected stored volume 255, got %d", got)
		}
		if vols := sink.VolumeCalls(); len(vols) != 1 || vols[0] != 255 {
			t.Errorf("expected sink volume 255, got %v", vols)
		}
	})

	t.Run("set voice name merges voicetext preset keeping other params", func(t *testing.T) {
		p, _, _ := newTestPlayer(t)
		p.store.Set(settings.KeyVoiceService, settings.ServiceVoiceText)
		p.store.Set(settings.KeyVoiceTextParams, "speaker=hikari&volume=150")
		if err := p.SetVoiceName("0"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		params := tts.ParseParams(p.store.VoiceTextParams())
		if params.Get("speaker") != "takeru" {
			t.Errorf("expected speaker takeru, got %q", params.Get("speaker"))
		}
		if params.Get("volume") != "150" {
			t.Errorf("volume param lost: %q", p.store.VoiceTextParams())
		}
	})

	t.Run("set voice name under voicevox changes only the speaker", func(t *testing.T) {
		p, _, _ := newTestPlayer(t)
		p.store.Set(settings.KeyVoiceService, settings.ServiceVoicevox)
		p.store.Set(settings.KeyVoicevoxParams, "speaker=1&speed=120")
		p.store.Set(settings.KeyVoiceTextParams, "speaker=hikari")
		if err := p.SetVoiceName("14"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		params := tts.ParseParams(p.store.VoicevoxParams())
		if params.Get("speaker") != "14" {
			t.Errorf("expected speaker 14, got %q", params.Get("speaker"))
		}
		if params.Get("speed") != "120" {
			t.Errorf("speed param lost: %q", p.store.VoicevoxParams())
		}
		if got := p.store.VoiceTextParams(); got != "speaker=hikari" {
			t.Errorf("voicetext params must stay untouched, got %q", got)
		}
	})

	t.Run("set voice name fails without a voice-capable service", func(t *testing.T) {
		p, _, _ := newTestPlayer(t)
		if err := p.SetVoiceName("0"); err == nil {
			t.Error("expected error under google translate")
		}
	})

	t.Run("unknown voicetext preset fails", func(t *testing.T) {
		p, _, _ := newTestPlayer(t)
		p.store.Set(settings.KeyVoiceService, settings.ServiceVoiceText)
		if err := p.SetVoiceName("nine"); err == nil {
			t.Error("expected error for unknown preset")
		}
	})

	t.Run("voicetext key selects service, empty key resets", func(t *testing.T) {
		p, _, _ := newTestPlayer(t)
		p.SetVoiceTextAPIKey("key123")
		if got := p.store.VoiceService(); got != settings.ServiceVoiceText {
			t.Errorf("expected voicetext service, got %q", got)
		}

		p.SetVoiceTextAPIKey("")
		if p.store.Has(settings.KeyVoiceTextAPIKey) {
			t.Error("expected key removed")
		}
		if got := p.store.VoiceService(); got != settings.ServiceGoogleTranslate {
			t.Errorf("expected fallback to google translate, got %q", got)
		}
	})

	t.Run("voicevox key selects service, empty key resets", func(t *testing.T) {
		p, _, _ := newTestPlayer(t)
		p.SetVoicevoxAPIKey("key123")
		if got := p.store.VoiceService(); got != settings.ServiceVoicevox {
			t.Errorf("expected voicevox service, got %q", got)
		}

		p.SetVoicevoxAPIKey("")
		if p.store.Has(settings.KeyVoicevoxAPIKey) {
			t.Error("expected key removed")
		}
		if got := p.store.VoiceService(); got != settings.ServiceGoogleTranslate {
			t.Errorf("expected fallback to google translate, got %q", got)
		}
	})
}

func TestChunk(t *testing.T) {
	t.Run("peak", func(t *testing.T) {
		c := AudioChunk{Samples: []int16{10, -200, 50}}
		if got := c.Peak(); got != 200 {
			t.Errorf("expected peak 200, got %d", got)
		}
	})

	t.Run("stereo to mono averages", func(t *testing.T) {
		mono := StereoToMono([]int16{100, 200, -100, -300})
		if len(mono) != 2 || mono[0] != 150 || mono[1] != -200 {
			t.Errorf("unexpected mono samples %v", mono)
		}
	})

	t.Run("resample identity", func(t *testing.T) {
		in := []int16{1, 2, 3}
		out := Resample(in, 24000, 24000)
		if len(out) != 3 {
			t.Errorf("expected passthrough, got %v", out)
		}
	})

	t.Run("resample halves length when downsampling 2x", func(t *testing.T) {
		in := make([]int16, 100)
		out := Resample(in, 48000, 24000)
		if len(out) != 50 {
			t.Errorf("expected 50 samples, got %d", len(out))
		}
	})

	t.Run("round trip bytes", func(t *testing.T) {
		in := []int16{0, 32767, -32768, -1}
		out := BytesToSamples(SamplesToBytes(in))
		for i := range in {
			if in[i] != out[i] {
				t.Fatalf("sample %d: expected %d, got %d", i, in[i], out[i])
			}
		}
	})
}

// wavStream wraps a byte buffer as a WAV audio stream.
type wavStream struct {
	io.ReadCloser
}

func (wavStream) Format() tts.Format { return tts.FormatWAV }

func buildWAV(t *testing.T, rate int, channels int, samples []int16) []byte {
	t.Helper()
	data := SamplesToBytes(samples)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func TestWAVDecoder(t *testing.T) {
	t.Run("decodes mono pcm16", func(t *testing.T) {
		samples := []int16{100, 200, 300, 400}
		wav := buildWAV(t, SampleRate, 1, samples)

		dec, err := NewDecoder(wavStream{io.NopCloser(bytes.NewReader(wav))})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chunk, err := dec.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunk.Samples) != 4 || chunk.Samples[0] != 100 {
			t.Errorf("unexpected samples %v", chunk.Samples)
		}
		if _, err := dec.Next(); !errors.Is(err, io.EOF) {
			t.Errorf("expected EOF, got %v", err)
		}
	})

	t.Run("stereo collapsed to mono", func(t *testing.T) {
		wav := buildWAV(t, SampleRate, 2, []int16{100, 300, -100, -300})

		dec, err := NewDecoder(wavStream{io.NopCloser(bytes.NewReader(wav))})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chunk, err := dec.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunk.Samples) != 2 || chunk.Samples[0] != 200 || chunk.Samples[1] != -200 {
			t.Errorf("unexpected samples %v", chunk.Samples)
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := NewDecoder(wavStream{io.NopCloser(bytes.NewReader([]byte("not a wav at all")))})
		if err == nil {
			t.Error("expected error for non-wav stream")
		}
	})
}
