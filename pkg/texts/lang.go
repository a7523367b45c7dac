package texts

// Phrase keys spoken or shown by the behavior loop and chat engine.
const (
	KeyAPIKeyNotSet      = "apikey_not_set"
	KeyClockNotSet       = "clock_not_set"
	KeyClockNow          = "clock_now"
	KeyClockNowNoon      = "clock_now_noon"
	KeyChatThinking      = "chat_thinking..."
	KeyChatDontUnderstand = "chat_i_dont_understand"
	KeyChatRandomStarted = "chat_random_started"
	KeyChatRandomStopped = "chat_random_stopped"
)

var phrases = map[string]map[string]string{
	"en": {
		KeyAPIKeyNotSet:       "The API Key is not set",
		KeyClockNotSet:        "The clock is not set",
		KeyClockNow:           "It's %d %d",
		KeyClockNowNoon:       "It's %d o'clock",
		KeyChatThinking:       "Thinking...",
		KeyChatDontUnderstand: "I don't understand",
		KeyChatRandomStarted:  "The random speak mode started.",
		KeyChatRandomStopped:  "The random speak mode stopped.",
	},
	"ja": {
		KeyAPIKeyNotSet:       "API キーが設定されていません",
		KeyClockNotSet:        "時刻が設定されていません",
		KeyClockNow:           "%d時 %d分です",
		KeyClockNowNoon:       "%d時 ちょうどです",
		KeyChatThinking:       "考え中...",
		KeyChatDontUnderstand: "わかりません",
		KeyChatRandomStarted:  "ひとりごと始めます",
		KeyChatRandomStopped:  "ひとりごとやめます",
	},
	"ro": {
		KeyClockNow:     "Este ora %d și %d de minute",
		KeyClockNowNoon: "Este exact ora %d",
	},
}

// T returns the phrase for key in the given language.
// Language codes longer than two characters fall back to their two-character
// prefix ("en-US" -> "en"). Missing languages and missing keys fall back to
// English; an unknown key is returned as-is.
func T(lang, key string) string {
	langMap, ok := phrases[lang]
	if !ok && len(lang) > 2 {
		langMap, ok = phrases[lang[:2]]
	}
	if ok {
		if s, found := langMap[key]; found {
			return s
		}
	}
	if s, found := phrases["en"][key]; found {
		return s
	}
	return key
}
