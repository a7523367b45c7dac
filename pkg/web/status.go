package web

import (
	"context"
	"time"
)

const statusInterval = 500 * time.Millisecond

// StatusSnapshot is the payload pushed to websocket status clients.
type StatusSnapshot struct {
	Expression string  `json:"expression"`
	Caption    string  `json:"caption"`
	Speaking   bool    `json:"speaking"`
	AudioLevel float64 `json:"audio_level"`
}

// StatusPublisher samples the face and speech state on a fixed interval
// and broadcasts snapshots to websocket clients.
type StatusPublisher struct {
	server *Server
}

// NewStatusPublisher returns a publisher feeding srv's status hub.
func NewStatusPublisher(srv *Server) *StatusPublisher {
	return &StatusPublisher{server: srv}
}

// Run broadcasts snapshots until ctx is cancelled.
func (p *StatusPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publish()
		}
	}
}

func (p *StatusPublisher) publish() {
	s := p.server
	if s.statusHub.ClientCount() == 0 {
		return
	}
	snap := StatusSnapshot{
		Speaking:   s.voice.IsPlaying(),
		AudioLevel: s.voice.AudioLevel(),
	}
	if s.face != nil {
		state := s.face.State()
		snap.Expression = state.Expression.String()
		snap.Caption = state.Caption
	}
	s.statusHub.BroadcastJSON(snap)
}
