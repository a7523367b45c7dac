// Package chat answers questions through an OpenAI-compatible completions
// API and speaks the answers sentence by sentence.
//
// Talk holds one mutex across the whole exchange including network I/O,
// so concurrent askers are answered strictly one at a time and the
// conversation history never interleaves.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stackchan/go-stackchan/pkg/face"
	"github.com/stackchan/go-stackchan/pkg/settings"
	"github.com/stackchan/go-stackchan/pkg/texts"
)

// errCaptionDuration is how long the error caption stays on the face.
const errCaptionDuration = 3 * time.Second

// Speaker enqueues speech. *voice.Player satisfies this.
type Speaker interface {
	Speak(text, voice string)
	StopSpeak()
}

// Face receives the expression and caption side effects of a chat
// exchange. *face.Actuator satisfies this.
type Face interface {
	SetExpression(e face.Expression)
	SetCaption(text string, duration time.Duration)
}

// Engine holds the chat conversation state.
type Engine struct {
	store   *settings.Store
	speaker Speaker
	face    Face
	logger  *slog.Logger

	// newClient is swappable for tests.
	newClient func(apiKey, model string) *Client

	mu      sync.Mutex
	history []Message
}

// NewEngine creates a chat engine. face may be nil when nothing renders
// the avatar.
func NewEngine(store *settings.Store, speaker Speaker, f Face, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     store,
		speaker:   speaker,
		face:      f,
		logger:    logger.With("component", "chat"),
		newClient: func(apiKey, model string) *Client { return NewClient(apiKey, model) },
	}
}

// Talk asks the API one question and speaks the answer. voiceHint is
// passed through to the speech queue. With useHistory the stored
// conversation is sent with the request and the exchange is appended to
// the bounded history; without it the question stands alone.
//
// Without a stored API key the engine speaks a localized notice and
// returns it with ErrNotConfigured; no network call happens and the
// history is untouched.
func (e *Engine) Talk(ctx context.Context, text, voiceHint string, useHistory bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lang := e.store.Lang()
	apiKey := e.store.ChatAPIKey()
	if apiKey == "" {
		notice := texts.T(lang, texts.KeyAPIKeyNotSet)
		e.speaker.Speak(notice, voiceHint)
		return notice, ErrNotConfigured
	}

	e.setFace(face.Doubt, texts.T(lang, texts.KeyChatThinking), 0)

	client := e.newClient(apiKey, e.store.ChatModel())
	messages := e.buildMessages(text, useHistory)

	var answer string
	var err error
	if e.store.UseStream() {
		answer, err = e.talkStream(ctx, client, messages, voiceHint)
	} else {
		answer, err = client.Complete(ctx, messages)
		if err == nil {
			e.setFace(face.Neutral, "", 0)
			e.speaker.Speak(answer, voiceHint)
		}
	}

	if err != nil {
		e.logger.Warn("chat failed", "error", err)
		e.setFace(face.Sad, errorCaption(err), errCaptionDuration)
		e.speaker.Speak(texts.T(lang, texts.KeyChatDontUnderstand), voiceHint)
		return "", err
	}

	if useHistory {
		e.remember(text, answer)
	}
	return answer, nil
}

// talkStream consumes the SSE response, speaking each sentence as soon as
// it is complete. The last sentence of the running buffer is held back
// until the stream ends because more content may still extend it.
func (e *Engine) talkStream(ctx context.Context, client *Client, messages []Message, voiceHint string) (string, error) {
	stream, err := client.Stream(ctx, messages)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var buffer string
	emitted := 0
	started := false

	for {
		delta, done, err := stream.Recv()
		if err != nil {
			return "", err
		}
		if delta != "" {
			if !started {
				started = true
				e.setFace(face.Neutral, "", 0)
			}
			buffer += delta

			sentences := texts.SplitSentences(buffer)
			for emitted < len(sentences)-1 {
				e.speaker.Speak(sentences[emitted], voiceHint)
				emitted++
			}
		}
		if done {
			break
		}
	}

	sentences := texts.SplitSentences(buffer)
	for ; emitted < len(sentences); emitted++ {
		e.speaker.Speak(sentences[emitted], voiceHint)
	}
	return buffer, nil
}

// buildMessages assembles roles, optionally the history, and the new
// question. Exchanges without history send only the roles and the
// question.
func (e *Engine) buildMessages(text string, useHistory bool) []Message {
	roles := e.store.Roles()
	messages := make([]Message, 0, len(roles)+len(e.history)+1)
	for _, role := range roles {
		messages = append(messages, Message{Role: RoleSystem, Content: role})
	}
	if useHistory {
		messages = append(messages, e.history...)
	}
	messages = append(messages, Message{Role: RoleUser, Content: text})
	return messages
}

// remember appends a question/answer pair, evicting the oldest pair first
// when the history is at capacity. The history length stays even and
// never exceeds twice the configured maximum.
func (e *Engine) remember(question, answer string) {
	maxHistory := e.store.MaxHistory()
	for len(e.history) >= 2*maxHistory && len(e.history) >= 2 {
		e.history = e.history[2:]
	}
	e.history = append(e.history,
		Message{Role: RoleUser, Content: question},
		Message{Role: RoleAssistant, Content: answer},
	)
}

// History returns a copy of the conversation history.
func (e *Engine) History() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.history))
	copy(out, e.history)
	return out
}

// ClearHistory drops the conversation history.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}

// Roles returns the stored system-prompt roles.
func (e *Engine) Roles() []string {
	return e.store.Roles()
}

// AddRole appends a system-prompt role.
func (e *Engine) AddRole(role string) {
	e.store.Add(settings.KeyChatRoles, role)
}

// ClearRoles removes all system-prompt roles.
func (e *Engine) ClearRoles() {
	e.store.Clear(settings.KeyChatRoles)
}

// SetAPIKey stores the chat API key. An empty key removes the stored key.
func (e *Engine) SetAPIKey(key string) {
	if key == "" {
		e.store.Remove(settings.KeyChatAPIKey)
		return
	}
	e.store.Set(settings.KeyChatAPIKey, key)
}

func (e *Engine) setFace(expr face.Expression, caption string, d time.Duration) {
	if e.face == nil {
		return
	}
	e.face.SetExpression(expr)
	e.face.SetCaption(caption, d)
}

// errorCaption renders the caption shown on the face for a chat failure.
func errorCaption(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Error: %d", apiErr.StatusCode)
	}
	return "Error"
}
