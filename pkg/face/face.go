// Package face holds the avatar's expression and caption state and drives
// the optional pan/tilt servo gaze-follow behavior.
//
// Rendering is out of scope here. The actuator pushes state to an
// AvatarSink and angles to a Mover; both are small interfaces the display
// and servo layers implement.
package face

import (
	"fmt"
	"sync"
	"time"
)

// Expression is the avatar's facial expression.
type Expression int

const (
	Neutral Expression = iota
	Happy
	Sleepy
	Doubt
	Sad
	Angry

	numExpressions
)

// String returns the expression name.
func (e Expression) String() string {
	switch e {
	case Neutral:
		return "neutral"
	case Happy:
		return "happy"
	case Sleepy:
		return "sleepy"
	case Doubt:
		return "doubt"
	case Sad:
		return "sad"
	case Angry:
		return "angry"
	default:
		return "unknown"
	}
}

// ExpressionFromIndex maps a numeric index to an expression. Unknown
// indices are an error the caller reports back, not a crash.
func ExpressionFromIndex(i int) (Expression, error) {
	if i < 0 || i >= int(numExpressions) {
		return Neutral, fmt.Errorf("unknown expression index %d", i)
	}
	return Expression(i), nil
}

// State is a snapshot of the avatar face.
type State struct {
	Expression      Expression
	Caption         string
	CaptionExpireAt time.Time
}

// AvatarSink receives face state and mouth openness for rendering.
type AvatarSink interface {
	SetState(s State)
	SetMouthOpen(ratio float64)
}

// Mover receives servo target angles in degrees.
type Mover interface {
	MoveTo(x, y int)
}

// GazeSource yields the avatar's simulated eye direction, each axis
// in -1..1.
type GazeSource interface {
	Gaze() (x, y float64)
}

// Actuator owns the face state.
type Actuator struct {
	mu     sync.Mutex
	state  State
	avatar AvatarSink
}

// NewActuator creates a face actuator. avatar may be nil when nothing
// renders the face (tests, headless runs).
func NewActuator(avatar AvatarSink) *Actuator {
	return &Actuator{avatar: avatar}
}

// SetExpression changes the avatar expression.
func (a *Actuator) SetExpression(e Expression) {
	a.mu.Lock()
	a.state.Expression = e
	state := a.state
	a.mu.Unlock()
	a.push(state)
}

// SetCaption shows caption text. A zero duration keeps it until replaced;
// otherwise it expires duration from now and the expression resets to
// Neutral on the tick after expiry.
func (a *Actuator) SetCaption(text string, duration time.Duration) {
	a.mu.Lock()
	a.state.Caption = text
	if duration > 0 {
		a.state.CaptionExpireAt = time.Now().Add(duration)
	} else {
		a.state.CaptionExpireAt = time.Time{}
	}
	state := a.state
	a.mu.Unlock()
	a.push(state)
}

// ClearExpired resets the caption and expression once the caption expiry
// has strictly passed. Returns true when a reset happened.
func (a *Actuator) ClearExpired(now time.Time) bool {
	a.mu.Lock()
	expireAt := a.state.CaptionExpireAt
	if expireAt.IsZero() || !now.After(expireAt) {
		a.mu.Unlock()
		return false
	}
	a.state = State{Expression: Neutral}
	state := a.state
	a.mu.Unlock()
	a.push(state)
	return true
}

// State returns a snapshot of the face.
func (a *Actuator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Actuator) push(s State) {
	if a.avatar != nil {
		a.avatar.SetState(s)
	}
}
