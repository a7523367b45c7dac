// Package web exposes the HTTP control surface for the robot: speech and
// face commands, chat, API keys, roles and bulk settings, plus a
// websocket feed of live status.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/stackchan/go-stackchan/pkg/face"
	"github.com/stackchan/go-stackchan/pkg/hub"
	"github.com/stackchan/go-stackchan/pkg/settings"
)

// VoiceControl is the slice of the speech player the handlers use.
type VoiceControl interface {
	Speak(text, voice string)
	StopSpeak()
	IsPlaying() bool
	AudioLevel() float64
	SetVolume(v int)
	SetVoiceName(name string) error
	SetVoiceTextAPIKey(key string)
	SetVoicevoxAPIKey(key string)
}

// ChatControl is the slice of the chat engine the handlers use.
type ChatControl interface {
	Talk(ctx context.Context, text, voiceHint string, useHistory bool) (string, error)
	Roles() []string
	AddRole(role string)
	ClearRoles()
	SetAPIKey(key string)
}

// BehaviorControl is the slice of the behavior coordinator the handlers
// use. Replaces the original device's hardware buttons.
type BehaviorControl interface {
	ToggleRandomSpeak() bool
	SpeakCurrentTime()
}

// MotionControl toggles the servo gaze-follow, replacing the original
// device's touch gesture.
type MotionControl interface {
	ToggleHeadSwing() bool
}

// Server is the HTTP control surface.
type Server struct {
	app      *fiber.App
	store    *settings.Store
	voice    VoiceControl
	chat     ChatControl
	behavior BehaviorControl
	motion   MotionControl
	face     *face.Actuator
	logger   *slog.Logger

	statusHub *hub.Hub
}

// NewServer wires the control routes. behavior and motion may be nil;
// their routes then report the feature unavailable.
func NewServer(store *settings.Store, voice VoiceControl, chat ChatControl, behavior BehaviorControl, motion MotionControl, f *face.Actuator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     store,
		voice:     voice,
		chat:      chat,
		behavior:  behavior,
		motion:    motion,
		face:      f,
		logger:    logger.With("component", "web"),
		statusHub: hub.New(logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "stackchan",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", s.handleHello)
	app.Get("/speech", s.handleSpeech)
	app.Get("/face", s.handleFace)
	app.Get("/chat", s.handleChat)
	app.Post("/apikey_set", s.handleAPIKeySet)
	app.Get("/role_get", s.handleRoleGet)
	app.Post("/role_set", s.handleRoleSet)
	app.Get("/setting", s.handleSetting)
	app.Post("/random_speak", s.handleRandomSpeak)
	app.Post("/clock_speak", s.handleClockSpeak)
	app.Post("/head_swing", s.handleHeadSwing)
	app.Get("/settings", s.handleSettingsGet)
	app.Post("/settings", s.handleSettingsMerge)
	app.Put("/settings", s.handleSettingsReplace)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("Not Found")
	})

	s.app = app
	return s
}

// Listen serves the control surface. Blocks until Shutdown.
func (s *Server) Listen(addr string) error {
	go s.statusHub.Run()
	s.logger.Info("control surface listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// StatusHub returns the websocket status hub.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// handleStatusWS registers a websocket client on the status hub.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}
