package behavior

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stackchan/go-stackchan/pkg/face"
	"github.com/stackchan/go-stackchan/pkg/settings"
)

type talkCall struct {
	text       string
	voice      string
	useHistory bool
}

type mockTalker struct {
	mu    sync.Mutex
	calls []talkCall
	err   error
}

func (m *mockTalker) Talk(ctx context.Context, text, voice string, useHistory bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, talkCall{text, voice, useHistory})
	if m.err != nil {
		return "", m.err
	}
	return "answer to " + text, nil
}

func (m *mockTalker) Calls() []talkCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]talkCall, len(m.calls))
	copy(out, m.calls)
	return out
}

type mockSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	stops   int
	playing bool
}

func (m *mockSpeaker) Speak(text, voice string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, text)
}

func (m *mockSpeaker) StopSpeak() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

func (m *mockSpeaker) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *mockSpeaker) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.spoken))
	copy(out, m.spoken)
	return out
}

type mockFace struct {
	expired int
	exprs   []face.Expression
}

func (m *mockFace) SetExpression(e face.Expression)         { m.exprs = append(m.exprs, e) }
func (m *mockFace) SetCaption(text string, d time.Duration) {}
func (m *mockFace) ClearExpired(now time.Time) bool         { m.expired++; return false }

func newTestCoordinator(t *testing.T) (*Coordinator, *settings.Store, *mockTalker, *mockSpeaker, *mockFace) {
	t.Helper()
	store := settings.NewMemory()
	store.Set(settings.KeyVoiceLang, "en-US")
	talker := &mockTalker{}
	speaker := &mockSpeaker{}
	f := &mockFace{}
	c := NewCoordinator(store, talker, speaker, f, nil)
	c.rng = rand.New(rand.NewSource(1))
	return c, store, talker, speaker, f
}

func at(hour, min, sec int) time.Time {
	return time.Date(2024, 3, 15, hour, min, sec, 0, time.Local)
}

func TestClockSpeak(t *testing.T) {
	t.Run("fires on configured hour once per minute", func(t *testing.T) {
		c, store, _, speaker, _ := newTestCoordinator(t)
		store.Add(settings.KeyClockHours, 9)

		c.now = func() time.Time { return at(9, 0, 0) }
		c.tick(context.Background())
		if spoken := speaker.Spoken(); len(spoken) != 1 || spoken[0] != "It's 9 o'clock" {
			t.Fatalf("expected clock announcement, got %v", spoken)
		}

		// Same second again: no duplicate.
		c.tick(context.Background())
		if got := len(speaker.Spoken()); got != 1 {
			t.Errorf("expected one announcement, got %d", got)
		}

		// Second 30: not on the minute boundary.
		c.now = func() time.Time { return at(9, 0, 30) }
		c.tick(context.Background())
		if got := len(speaker.Spoken()); got != 1 {
			t.Errorf("expected no announcement at :30, got %d", got)
		}
	})

	t.Run("unconfigured hour stays silent", func(t *testing.T) {
		c, store, _, speaker, _ := newTestCoordinator(t)
		store.Add(settings.KeyClockHours, 9)

		c.now = func() time.Time { return at(10, 0, 0) }
		c.tick(context.Background())
		if got := len(speaker.Spoken()); got != 0 {
			t.Errorf("expected silence at 10:00, got %v", speaker.Spoken())
		}
	})

	t.Run("no hours key disables the clock", func(t *testing.T) {
		c, _, _, speaker, _ := newTestCoordinator(t)
		c.now = func() time.Time { return at(9, 0, 0) }
		c.tick(context.Background())
		if got := len(speaker.Spoken()); got != 0 {
			t.Errorf("expected silence with no clock hours, got %v", speaker.Spoken())
		}
	})

	t.Run("minutes variant phrasing", func(t *testing.T) {
		c, _, _, speaker, _ := newTestCoordinator(t)
		c.now = func() time.Time { return at(9, 5, 0) }
		c.SpeakCurrentTime()
		if spoken := speaker.Spoken(); len(spoken) != 1 || spoken[0] != "It's 9 5" {
			t.Errorf("unexpected phrasing %v", spoken)
		}
	})
}

func TestRandomSpeak(t *testing.T) {
	t.Run("toggle schedules and confirms", func(t *testing.T) {
		c, store, _, speaker, f := newTestCoordinator(t)
		store.Set(settings.KeyRandomIntervalMin, 60)
		store.Set(settings.KeyRandomIntervalMax, 60)
		store.Add(settings.KeyRandomQuestions, "What's up?")

		base := at(12, 30, 0)
		c.now = func() time.Time { return base }

		if !c.ToggleRandomSpeak() {
			t.Fatal("expected random mode on")
		}
		if spoken := speaker.Spoken(); len(spoken) != 1 || spoken[0] != "The random speak mode started." {
			t.Errorf("expected confirmation spoken, got %v", spoken)
		}
		if len(f.exprs) != 1 || f.exprs[0] != face.Happy {
			t.Errorf("expected happy face, got %v", f.exprs)
		}

		// min == max means the next fire is exactly 60s out.
		if got := c.nextRandom; !got.Equal(base.Add(60 * time.Second)) {
			t.Errorf("expected next fire at +60s, got %v", got)
		}
	})

	t.Run("asks a question without history when due", func(t *testing.T) {
		c, store, talker, _, _ := newTestCoordinator(t)
		store.Set(settings.KeyRandomIntervalMin, 60)
		store.Set(settings.KeyRandomIntervalMax, 60)
		store.Add(settings.KeyRandomQuestions, "What's up?")

		base := at(12, 30, 0)
		c.now = func() time.Time { return base }
		c.ToggleRandomSpeak()

		// Not yet due.
		c.now = func() time.Time { return base.Add(30 * time.Second) }
		c.tick(context.Background())
		if got := len(talker.Calls()); got != 0 {
			t.Fatalf("fired early: %d calls", got)
		}

		c.now = func() time.Time { return base.Add(61 * time.Second) }
		c.tick(context.Background())
		calls := talker.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected one question, got %d", len(calls))
		}
		if calls[0].text != "What's up?" || calls[0].useHistory {
			t.Errorf("unexpected call %+v", calls[0])
		}
	})

	t.Run("toggle off stops asking", func(t *testing.T) {
		c, store, talker, speaker, _ := newTestCoordinator(t)
		store.Add(settings.KeyRandomQuestions, "What's up?")

		base := at(12, 30, 0)
		c.now = func() time.Time { return base }
		c.ToggleRandomSpeak()
		if c.ToggleRandomSpeak() {
			t.Fatal("expected random mode off")
		}
		if spoken := speaker.Spoken(); spoken[len(spoken)-1] != "The random speak mode stopped." {
			t.Errorf("expected stop confirmation, got %v", spoken)
		}

		c.now = func() time.Time { return base.Add(time.Hour) }
		c.tick(context.Background())
		if got := len(talker.Calls()); got != 0 {
			t.Errorf("expected no questions after toggle off, got %d", got)
		}
	})
}

func TestRequestQueue(t *testing.T) {
	t.Run("serves requests in order", func(t *testing.T) {
		c, _, talker, _, _ := newTestCoordinator(t)

		first := c.Submit("one", "")
		second := c.Submit("two", "2")
		if got := c.PendingRequests(); got != 2 {
			t.Fatalf("expected 2 pending, got %d", got)
		}

		c.tick(context.Background())
		c.tick(context.Background())

		if got := <-first; got != "answer to one" {
			t.Errorf("unexpected first answer %q", got)
		}
		if got := <-second; got != "answer to two" {
			t.Errorf("unexpected second answer %q", got)
		}

		calls := talker.Calls()
		if len(calls) != 2 || calls[0].text != "one" || calls[1].text != "two" {
			t.Fatalf("unexpected call order %+v", calls)
		}
		if !calls[0].useHistory || calls[1].voice != "2" {
			t.Errorf("unexpected call details %+v", calls)
		}
	})

	t.Run("failed request closes channel empty", func(t *testing.T) {
		c, _, talker, _, _ := newTestCoordinator(t)
		talker.err = errors.New("backend down")

		done := c.Submit("one", "")
		c.tick(context.Background())

		if answer, ok := <-done; ok {
			t.Errorf("expected closed channel, got %q", answer)
		}
	})

	t.Run("nothing served while playing", func(t *testing.T) {
		c, _, talker, speaker, _ := newTestCoordinator(t)
		speaker.playing = true

		c.Submit("one", "")
		c.tick(context.Background())
		if got := len(talker.Calls()); got != 0 {
			t.Errorf("expected request held while playing, got %d calls", got)
		}
		if got := c.PendingRequests(); got != 1 {
			t.Errorf("expected request still queued, got %d", got)
		}
	})
}

func TestTickPriority(t *testing.T) {
	// Clock beats random-speak and the queue on the same tick.
	c, store, talker, speaker, f := newTestCoordinator(t)
	store.Add(settings.KeyClockHours, 9)
	store.Set(settings.KeyRandomIntervalMin, 1)
	store.Set(settings.KeyRandomIntervalMax, 1)
	store.Add(settings.KeyRandomQuestions, "What's up?")

	base := at(8, 59, 0)
	c.now = func() time.Time { return base }
	c.ToggleRandomSpeak()
	c.Submit("queued", "")

	c.now = func() time.Time { return at(9, 0, 0) }
	c.tick(context.Background())

	spoken := speaker.Spoken()
	if spoken[len(spoken)-1] != "It's 9 o'clock" {
		t.Errorf("expected clock announcement to win, got %v", spoken)
	}
	if got := len(talker.Calls()); got != 0 {
		t.Errorf("expected no talk calls on the clock tick, got %d", got)
	}
	if got := c.PendingRequests(); got != 1 {
		t.Errorf("expected request still queued, got %d", got)
	}
	if f.expired == 0 {
		t.Error("caption expiry must run every tick")
	}
}
