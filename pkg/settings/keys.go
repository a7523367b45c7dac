package settings

// Settings keys. Dotted paths into the stored JSON document.
const (
	KeyNetworkHostname = "network.hostname"
	KeyTimeZone        = "time.zone"

	KeyServo       = "servo"
	KeyServoPinX   = "servo.pin.x"
	KeyServoPinY   = "servo.pin.y"
	KeySwingHomeX  = "swing.home.x"
	KeySwingHomeY  = "swing.home.y"
	KeySwingRangeX = "swing.range.x"
	KeySwingRangeY = "swing.range.y"

	KeyVoiceLang       = "voice.lang"
	KeyVoiceVolume     = "voice.volume"
	KeyVoiceService    = "voice.service"
	KeyVoiceTextAPIKey = "voice.voicetext.apiKey"
	KeyVoiceTextParams = "voice.voicetext.params"
	KeyVoicevoxAPIKey  = "voice.tts-quest-voicevox.apiKey"
	KeyVoicevoxParams  = "voice.tts-quest-voicevox.params"

	KeyChatAPIKey        = "chat.openai.apiKey"
	KeyChatModel         = "chat.openai.model"
	KeyChatStream        = "chat.openai.stream"
	KeyChatRoles         = "chat.openai.roles"
	KeyChatMaxHistory    = "chat.openai.maxHistory"
	KeyRandomIntervalMin = "chat.random.interval.min"
	KeyRandomIntervalMax = "chat.random.interval.max"
	KeyRandomQuestions   = "chat.random.questions"
	KeyClockHours        = "chat.clock.hours"
)

// Voice service identifiers for KeyVoiceService.
const (
	ServiceGoogleTranslate = "google-translate-tts"
	ServiceVoiceText       = "voicetext"
	ServiceVoicevox        = "tts-quest-voicevox"
)

// Defaults.
const (
	DefaultTimeZone        = "JST-9"
	DefaultVoiceLang       = "ja"
	DefaultVoiceVolume     = 200
	DefaultVoiceService    = ServiceGoogleTranslate
	DefaultVoiceTextParams = "speaker=hikari&speed=120&pitch=130&emotion=happiness"
	DefaultChatModel       = "gpt-3.5-turbo-0613"
	DefaultMaxHistory      = 10
	DefaultRandomMin       = 60
	DefaultRandomMax       = 120
	DefaultSwingHomeX      = 90
	DefaultSwingHomeY      = 80
	DefaultSwingRangeX     = 30
	DefaultSwingRangeY     = 20
)

// VoiceLang returns the full configured voice language tag (e.g. "en-US").
func (s *Store) VoiceLang() string {
	return s.GetString(KeyVoiceLang, DefaultVoiceLang)
}

// Lang returns the two-character language code for phrase lookup
// ("en-US" -> "en").
func (s *Store) Lang() string {
	lang := s.VoiceLang()
	if len(lang) > 2 {
		return lang[:2]
	}
	return lang
}

// VoiceVolume returns the playback volume (0-255).
func (s *Store) VoiceVolume() int {
	return s.GetInt(KeyVoiceVolume, DefaultVoiceVolume)
}

// VoiceService returns the selected TTS service identifier.
func (s *Store) VoiceService() string {
	return s.GetString(KeyVoiceService, DefaultVoiceService)
}

// VoiceTextAPIKey returns the VoiceText API key, empty when unset.
func (s *Store) VoiceTextAPIKey() string {
	return s.GetString(KeyVoiceTextAPIKey, "")
}

// VoiceTextParams returns the stored VoiceText query parameters.
func (s *Store) VoiceTextParams() string {
	return s.GetString(KeyVoiceTextParams, DefaultVoiceTextParams)
}

// VoicevoxAPIKey returns the TTS QUEST VOICEVOX API key, empty when unset.
func (s *Store) VoicevoxAPIKey() string {
	return s.GetString(KeyVoicevoxAPIKey, "")
}

// VoicevoxParams returns the stored VOICEVOX query parameters.
func (s *Store) VoicevoxParams() string {
	return s.GetString(KeyVoicevoxParams, "")
}

// ChatAPIKey returns the chat completion API key, empty when unset.
func (s *Store) ChatAPIKey() string {
	return s.GetString(KeyChatAPIKey, "")
}

// ChatModel returns the configured chat model.
func (s *Store) ChatModel() string {
	return s.GetString(KeyChatModel, DefaultChatModel)
}

// UseStream reports whether chat responses are consumed as a stream.
func (s *Store) UseStream() bool {
	return s.GetBool(KeyChatStream, true)
}

// MaxHistory returns the maximum number of retained question/answer pairs.
func (s *Store) MaxHistory() int {
	return s.GetInt(KeyChatMaxHistory, DefaultMaxHistory)
}

// Roles returns the configured system-prompt roles in order.
func (s *Store) Roles() []string {
	return s.GetStringArray(KeyChatRoles)
}

// RandomQuestions returns the question pool for random-speak mode.
func (s *Store) RandomQuestions() []string {
	return s.GetStringArray(KeyRandomQuestions)
}

// RandomInterval returns the random-speak interval bounds in seconds.
// Min and max are two distinct keys.
func (s *Store) RandomInterval() (min, max int) {
	min = s.GetInt(KeyRandomIntervalMin, DefaultRandomMin)
	max = s.GetInt(KeyRandomIntervalMax, DefaultRandomMax)
	return min, max
}

// ClockHours returns the hours at which the clock announcement fires.
func (s *Store) ClockHours() []int {
	return s.GetIntArray(KeyClockHours)
}

// ServoEnabled reports whether a servo section is configured at all.
func (s *Store) ServoEnabled() bool {
	return s.Has(KeyServo)
}

// SwingHome returns the servo home angles in degrees.
func (s *Store) SwingHome() (x, y int) {
	x = s.GetInt(KeySwingHomeX, DefaultSwingHomeX)
	y = s.GetInt(KeySwingHomeY, DefaultSwingHomeY)
	return x, y
}

// SwingRange returns the servo swing ranges in degrees.
func (s *Store) SwingRange() (x, y int) {
	x = s.GetInt(KeySwingRangeX, DefaultSwingRangeX)
	y = s.GetInt(KeySwingRangeY, DefaultSwingRangeY)
	return x, y
}
