// Package behavior runs the periodic coordinator that arbitrates between
// caption housekeeping, clock announcements, idle random speech and
// queued chat requests.
//
// Exactly one of the speaking behaviors runs per tick, and none of them
// run while speech is already playing, so the robot never talks over
// itself.
package behavior

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackchan/go-stackchan/pkg/face"
	"github.com/stackchan/go-stackchan/pkg/settings"
	"github.com/stackchan/go-stackchan/pkg/texts"
)

// tickInterval is the coordinator period.
const tickInterval = 500 * time.Millisecond

// toggleCaptionDuration is how long mode-toggle captions stay up.
const toggleCaptionDuration = 3 * time.Second

// Talker answers a question, speaking the answer. *chat.Engine satisfies
// this.
type Talker interface {
	Talk(ctx context.Context, text, voiceHint string, useHistory bool) (string, error)
}

// Speaker is the speech queue and its playing state. *voice.Player
// satisfies this.
type Speaker interface {
	Speak(text, voice string)
	StopSpeak()
	IsPlaying() bool
}

// FaceCtl is the face surface the coordinator drives. *face.Actuator
// satisfies this.
type FaceCtl interface {
	SetExpression(e face.Expression)
	SetCaption(text string, duration time.Duration)
	ClearExpired(now time.Time) bool
}

// Request is one queued chat ask.
type Request struct {
	ID    string
	Text  string
	Voice string
	Done  chan string
}

// Coordinator drives the periodic behavior loop.
type Coordinator struct {
	store   *settings.Store
	talker  Talker
	speaker Speaker
	face    FaceCtl
	logger  *slog.Logger

	// now and rng are swappable for tests.
	now func() time.Time
	rng *rand.Rand

	mu         sync.Mutex
	randomMode bool
	nextRandom time.Time
	clockFired time.Time // minute of the last clock announcement
	queue      []*Request
}

// NewCoordinator creates the behavior coordinator.
func NewCoordinator(store *settings.Store, talker Talker, speaker Speaker, f FaceCtl, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:   store,
		talker:  talker,
		speaker: speaker,
		face:    f,
		logger:  logger.With("component", "behavior"),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run ticks the coordinator until ctx is canceled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs one coordinator pass. The speaking behaviors are mutually
// exclusive, checked in priority order.
func (c *Coordinator) tick(ctx context.Context) {
	now := c.now()
	if c.face != nil {
		c.face.ClearExpired(now)
	}

	if c.speaker.IsPlaying() {
		return
	}

	if c.tryClockSpeak(now) {
		return
	}
	if c.tryRandomSpeak(ctx, now) {
		return
	}
	c.serveRequest(ctx)
}

// tryClockSpeak announces the time on configured hours, at most once per
// minute.
func (c *Coordinator) tryClockSpeak(now time.Time) bool {
	hours := c.store.ClockHours()
	if len(hours) == 0 {
		return false
	}
	if now.Minute() != 0 || now.Second() != 0 {
		return false
	}

	configured := false
	for _, h := range hours {
		if h == now.Hour() {
			configured = true
			break
		}
	}
	if !configured {
		return false
	}

	minute := now.Truncate(time.Minute)
	c.mu.Lock()
	if c.clockFired.Equal(minute) {
		c.mu.Unlock()
		return false
	}
	c.clockFired = minute
	c.mu.Unlock()

	c.speakTime(now)
	return true
}

// SpeakCurrentTime announces the current time immediately.
func (c *Coordinator) SpeakCurrentTime() {
	c.speakTime(c.now())
}

func (c *Coordinator) speakTime(now time.Time) {
	lang := c.store.Lang()
	var text string
	if now.Minute() == 0 {
		text = fmt.Sprintf(texts.T(lang, texts.KeyClockNowNoon), now.Hour())
	} else {
		text = fmt.Sprintf(texts.T(lang, texts.KeyClockNow), now.Hour(), now.Minute())
	}
	c.speaker.StopSpeak()
	c.speaker.Speak(text, "")
}

// tryRandomSpeak asks one of the configured idle questions when the
// random-speak timer elapses.
func (c *Coordinator) tryRandomSpeak(ctx context.Context, now time.Time) bool {
	c.mu.Lock()
	if !c.randomMode || now.Before(c.nextRandom) {
		c.mu.Unlock()
		return false
	}
	c.nextRandom = now.Add(c.randomDelay())
	c.mu.Unlock()

	questions := c.store.RandomQuestions()
	if len(questions) == 0 {
		return false
	}
	question := questions[c.rng.Intn(len(questions))]

	c.logger.Debug("random speak", "question", question)
	if _, err := c.talker.Talk(ctx, question, "", false); err != nil {
		c.logger.Warn("random speak failed", "error", err)
	}
	return true
}

// randomDelay picks the next random-speak delay from the configured
// bounds. Callers hold c.mu.
func (c *Coordinator) randomDelay() time.Duration {
	min, max := c.store.RandomInterval()
	if max < min {
		max = min
	}
	seconds := min
	if max > min {
		seconds = min + c.rng.Intn(max-min+1)
	}
	return time.Duration(seconds) * time.Second
}

// ToggleRandomSpeak flips random-speak mode, speaks a localized
// confirmation and reports the new state.
func (c *Coordinator) ToggleRandomSpeak() bool {
	c.mu.Lock()
	c.randomMode = !c.randomMode
	enabled := c.randomMode
	if enabled {
		c.nextRandom = c.now().Add(c.randomDelay())
	}
	c.mu.Unlock()

	key := texts.KeyChatRandomStopped
	if enabled {
		key = texts.KeyChatRandomStarted
	}
	confirm := texts.T(c.store.Lang(), key)

	c.speaker.StopSpeak()
	c.speaker.Speak(confirm, "")
	if c.face != nil {
		c.face.SetExpression(face.Happy)
		c.face.SetCaption(confirm, toggleCaptionDuration)
	}
	c.logger.Info("random speak toggled", "enabled", enabled)
	return enabled
}

// RandomSpeakEnabled reports whether random-speak mode is on.
func (c *Coordinator) RandomSpeakEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.randomMode
}

// Submit queues a chat request. The returned channel receives the answer
// once the request is served; it is closed without a value on failure.
func (c *Coordinator) Submit(text, voice string) <-chan string {
	req := &Request{
		ID:    uuid.NewString(),
		Text:  text,
		Voice: voice,
		Done:  make(chan string, 1),
	}
	c.mu.Lock()
	c.queue = append(c.queue, req)
	c.mu.Unlock()
	return req.Done
}

// PendingRequests returns the queued request count.
func (c *Coordinator) PendingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// serveRequest answers the oldest queued request.
func (c *Coordinator) serveRequest(ctx context.Context) {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	req := c.queue[0]
	c.queue = c.queue[1:]
	c.mu.Unlock()

	answer, err := c.talker.Talk(ctx, req.Text, req.Voice, true)
	if err != nil {
		c.logger.Warn("queued request failed", "id", req.ID, "error", err)
		close(req.Done)
		return
	}
	req.Done <- answer
	close(req.Done)
}
