package tts

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// voiceTextPresets are the selectable VoiceText speaker profiles.
// A voice hint of "0".."4" picks one and merges it over the stored
// parameter string.
var voiceTextPresets = [...]string{
	"speaker=takeru&speed=100&pitch=130&emotion=happiness&emotion_level=4",
	"speaker=hikari&speed=120&pitch=130&emotion=happiness&emotion_level=2",
	"speaker=bear&speed=120&pitch=100&emotion=anger&emotion_level=2",
	"speaker=haruka&speed=80&pitch=70&emotion=happiness&emotion_level=2",
	"speaker=santa&speed=120&pitch=90&emotion=happiness&emotion_level=4",
}

// NumVoicePresets is the count of selectable VoiceText presets.
const NumVoicePresets = len(voiceTextPresets)

// ParseParams parses a query-string style parameter string. Malformed
// pairs are dropped rather than failing the whole string.
func ParseParams(qs string) url.Values {
	values, err := url.ParseQuery(qs)
	if err != nil {
		values = url.Values{}
		for _, pair := range strings.Split(qs, "&") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				continue
			}
			values.Set(key, value)
		}
	}
	return values
}

// BuildParams renders values back into a stable, sorted query string.
func BuildParams(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// MergeVoicePreset merges the preset selected by hint into the stored
// parameter string. Keys named by the preset are overwritten; other
// stored keys survive unchanged. An empty hint returns stored as-is.
func MergeVoicePreset(stored, hint string) (string, error) {
	if hint == "" {
		return stored, nil
	}
	idx, err := strconv.Atoi(hint)
	if err != nil || idx < 0 || idx >= NumVoicePresets {
		return "", fmt.Errorf("unknown voice preset %q", hint)
	}

	merged := ParseParams(stored)
	for key, vals := range ParseParams(voiceTextPresets[idx]) {
		if len(vals) > 0 {
			merged.Set(key, vals[len(vals)-1])
		}
	}
	return BuildParams(merged), nil
}
