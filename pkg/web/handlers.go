package web

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stackchan/go-stackchan/pkg/chat"
	"github.com/stackchan/go-stackchan/pkg/face"
)

func (s *Server) handleHello(c *fiber.Ctx) error {
	return c.SendString("Hello, I'm Stack-chan!")
}

// handleSpeech sets the expression, stops current speech and enqueues the
// given text.
func (s *Server) handleSpeech(c *fiber.Ctx) error {
	if err := s.applyExpression(c.Query("expression")); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	say := c.Query("say")
	voice := c.Query("voice")
	s.voice.StopSpeak()
	if say != "" {
		s.voice.Speak(say, voice)
	}
	return c.SendString(say)
}

// handleFace sets the expression only.
func (s *Server) handleFace(c *fiber.Ctx) error {
	expr := c.Query("expression")
	if expr == "" {
		return c.Status(fiber.StatusBadRequest).SendString("expression required")
	}
	if err := s.applyExpression(expr); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	return c.SendString("OK")
}

func (s *Server) applyExpression(expr string) error {
	if expr == "" {
		return nil
	}
	idx, err := strconv.Atoi(expr)
	if err != nil {
		return errors.New("expression must be a number")
	}
	e, err := face.ExpressionFromIndex(idx)
	if err != nil {
		return err
	}
	s.face.SetExpression(e)
	return nil
}

// handleChat runs one synchronous chat round-trip and returns the answer
// as plain text.
func (s *Server) handleChat(c *fiber.Ctx) error {
	text := c.Query("text")
	if text == "" {
		return c.Status(fiber.StatusBadRequest).SendString("text required")
	}
	voice := c.Query("voice")

	s.voice.StopSpeak()
	answer, err := s.chat.Talk(c.Context(), text, voice, true)
	if err != nil {
		if errors.Is(err, chat.ErrNotConfigured) {
			// The spoken notice is the answer.
			return c.SendString(answer)
		}
		s.logger.Warn("chat request failed", "error", err)
		return c.Status(fiber.StatusBadGateway).SendString("chat failed")
	}
	return c.SendString(answer)
}

// handleAPIKeySet updates API keys. A VOICEVOX key wins over a VoiceText
// key when both are sent.
func (s *Server) handleAPIKeySet(c *fiber.Ctx) error {
	if openai := c.FormValue("openai"); openai != "" {
		s.chat.SetAPIKey(openai)
	}
	if voicevox := c.FormValue("voicevox"); voicevox != "" {
		s.voice.SetVoicevoxAPIKey(voicevox)
	} else if voicetext := c.FormValue("voicetext"); voicetext != "" {
		s.voice.SetVoiceTextAPIKey(voicetext)
	}
	return c.SendString("OK")
}

func (s *Server) handleRoleGet(c *fiber.Ctx) error {
	roles := s.chat.Roles()
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(fiber.Map{"roles": roles})
}

// handleRoleSet appends a system-prompt role. An empty body clears all
// roles.
func (s *Server) handleRoleSet(c *fiber.Ctx) error {
	role := strings.TrimSpace(string(c.Body()))
	if role == "" {
		s.chat.ClearRoles()
	} else {
		s.chat.AddRole(role)
	}
	return s.handleRoleGet(c)
}

// handleRandomSpeak toggles the idle random-speak mode, like the
// original device's A button.
func (s *Server) handleRandomSpeak(c *fiber.Ctx) error {
	if s.behavior == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("not available")
	}
	if s.behavior.ToggleRandomSpeak() {
		return c.SendString("ON")
	}
	return c.SendString("OFF")
}

// handleClockSpeak speaks the current time, like the original device's C
// button.
func (s *Server) handleClockSpeak(c *fiber.Ctx) error {
	if s.behavior == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("not available")
	}
	s.behavior.SpeakCurrentTime()
	return c.SendString("OK")
}

// handleHeadSwing toggles the servo gaze-follow, like tapping the
// original device's screen.
func (s *Server) handleHeadSwing(c *fiber.Ctx) error {
	if s.motion == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("not available")
	}
	if s.motion.ToggleHeadSwing() {
		return c.SendString("ON")
	}
	return c.SendString("OFF")
}

// handleSetting adjusts playback volume and voice selection.
func (s *Server) handleSetting(c *fiber.Ctx) error {
	if volume := c.Query("volume"); volume != "" {
		v, err := strconv.Atoi(volume)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("volume must be a number")
		}
		s.voice.SetVolume(v)
	}
	if voice := c.Query("voice"); voice != "" {
		if err := s.voice.SetVoiceName(voice); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}
	}
	return c.JSON(fiber.Map{
		"volume": s.store.VoiceVolume(),
		"voice":  s.store.VoiceService(),
	})
}

func (s *Server) handleSettingsGet(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(s.store.JSON())
}

func (s *Server) handleSettingsMerge(c *fiber.Ctx) error {
	return s.bulkSettings(c, true)
}

func (s *Server) handleSettingsReplace(c *fiber.Ctx) error {
	return s.bulkSettings(c, false)
}

// bulkSettings loads a JSON body into the store, or applies individual
// form/query fields with inferred types. Empty field values remove keys.
func (s *Server) bulkSettings(c *fiber.Ctx, merge bool) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if !s.store.Load(c.Body(), merge) {
			return c.Status(fiber.StatusBadRequest).SendString("malformed JSON")
		}
		return s.handleSettingsGet(c)
	}

	apply := func(key, value []byte) {
		s.applySetting(string(key), string(value))
	}
	c.Context().QueryArgs().VisitAll(apply)
	c.Context().PostArgs().VisitAll(apply)
	return s.handleSettingsGet(c)
}

// applySetting stores one dotted-path field, inferring bool and int
// values. An empty value removes the key.
func (s *Server) applySetting(key, value string) {
	if key == "" {
		return
	}
	switch {
	case value == "":
		s.store.Remove(key)
	case value == "true" || value == "false":
		s.store.Set(key, value == "true")
	default:
		if n, err := strconv.Atoi(value); err == nil {
			s.store.Set(key, n)
		} else {
			s.store.Set(key, value)
		}
	}
}
