package face

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/stackchan/go-stackchan/pkg/settings"
)

// Loop periods for the gaze-follow and lip-sync tasks.
const tickInterval = 50 * time.Millisecond

// easeStep is how many degrees per tick the head moves back toward home
// when swing is off.
const easeStep = 2

// PlayState reports whether speech audio is currently playing and its
// output level. *voice.Player satisfies this.
type PlayState interface {
	IsPlaying() bool
	AudioLevel() float64
}

// Gazer points the head toward the avatar's gaze while idle and holds
// position during speech so the head does not jitter while talking.
type Gazer struct {
	store  *settings.Store
	mover  Mover
	gaze   GazeSource
	play   PlayState
	logger *slog.Logger

	mu      sync.Mutex
	swing   bool
	curX    int
	curY    int
	started bool
}

// NewGazer creates the gaze-follow task. Swing starts enabled.
func NewGazer(store *settings.Store, mover Mover, gaze GazeSource, play PlayState, logger *slog.Logger) *Gazer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gazer{
		store:  store,
		mover:  mover,
		gaze:   gaze,
		play:   play,
		logger: logger.With("component", "face.gazer"),
		swing:  true,
	}
}

// ToggleHeadSwing flips the swing flag and reports the new state.
func (g *Gazer) ToggleHeadSwing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.swing = !g.swing
	return g.swing
}

// SwingEnabled reports whether gaze-follow is active.
func (g *Gazer) SwingEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.swing
}

// Run drives the servo at 20Hz until ctx is canceled. Does nothing when
// no servo is configured.
func (g *Gazer) Run(ctx context.Context) {
	if g.mover == nil || !g.store.ServoEnabled() {
		g.logger.Debug("no servo configured, gaze-follow idle")
		return
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.step()
		}
	}
}

// step computes and issues one servo update.
func (g *Gazer) step() {
	homeX, homeY := g.store.SwingHome()

	g.mu.Lock()
	if !g.started {
		g.curX, g.curY = homeX, homeY
		g.started = true
	}
	swing := g.swing
	g.mu.Unlock()

	if !swing {
		g.easeTo(homeX, homeY)
		return
	}
	if g.play.IsPlaying() {
		// Hold position while speaking.
		return
	}

	gx, gy := g.gaze.Gaze()
	rangeX, rangeY := g.store.SwingRange()
	x := wrapAngle(homeX + int(float64(rangeX)/2*gx))
	y := wrapAngle(homeY + int(float64(rangeY)/2*gy))
	g.moveTo(x, y)
}

// easeTo steps the head a little toward the target each tick.
func (g *Gazer) easeTo(x, y int) {
	g.mu.Lock()
	cx, cy := g.curX, g.curY
	g.mu.Unlock()
	g.moveTo(cx+clampStep(x-cx), cy+clampStep(y-cy))
}

func (g *Gazer) moveTo(x, y int) {
	g.mu.Lock()
	g.curX, g.curY = x, y
	g.mu.Unlock()
	g.mover.MoveTo(x, y)
}

// wrapAngle wraps a degree value into [0, 360).
func wrapAngle(deg int) int {
	return ((deg % 360) + 360) % 360
}

func clampStep(d int) int {
	if d > easeStep {
		return easeStep
	}
	if d < -easeStep {
		return -easeStep
	}
	return d
}

// LipSync samples the speech output level at 20Hz and pushes the mouth
// open ratio to the avatar.
type LipSync struct {
	play   PlayState
	avatar AvatarSink
}

// NewLipSync creates the lip-sync task.
func NewLipSync(play PlayState, avatar AvatarSink) *LipSync {
	return &LipSync{play: play, avatar: avatar}
}

// Run pushes mouth openness until ctx is canceled.
func (l *LipSync) Run(ctx context.Context) {
	if l.avatar == nil {
		return
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.avatar.SetMouthOpen(l.play.AudioLevel())
		}
	}
}

// RandomGaze simulates the avatar's eye movement: it holds a gaze
// direction for a short while, then jumps to a new random one.
type RandomGaze struct {
	mu       sync.Mutex
	rng      *rand.Rand
	x, y     float64
	nextJump time.Time
}

// NewRandomGaze seeds the saccade generator.
func NewRandomGaze() *RandomGaze {
	return &RandomGaze{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Gaze returns the current eye direction, each axis in [-1, 1].
func (r *RandomGaze) Gaze() (x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.After(r.nextJump) {
		r.x = r.rng.Float64()*2 - 1
		r.y = r.rng.Float64()*2 - 1
		hold := 500*time.Millisecond + time.Duration(r.rng.Intn(2500))*time.Millisecond
		r.nextJump = now.Add(hold)
	}
	return r.x, r.y
}

var _ GazeSource = (*RandomGaze)(nil)
