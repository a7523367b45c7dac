// Package texts provides sentence splitting and localized phrases for speech.
package texts

import "strings"

// Sentence-ending runes. The delimiter stays attached to the end of its chunk
// so TTS backends receive natural punctuation.
const sentenceDelims = ".。?？!！"

// SplitSentences splits text into sentence-sized chunks for the speech queue.
// Line breaks also split, but are not kept. Chunks are trimmed of surrounding
// whitespace; empty chunks are dropped.
//
// Splitting is idempotent: re-splitting any returned chunk yields the chunk
// itself, and concatenating all chunks reconstructs the input up to
// whitespace at the split boundaries.
func SplitSentences(s string) []string {
	var out []string
	var b strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(b.String())
		b.Reset()
		if chunk != "" {
			out = append(out, chunk)
		}
	}

	for _, r := range s {
		switch {
		case r == '\r' || r == '\n':
			flush()
		case strings.ContainsRune(sentenceDelims, r):
			b.WriteRune(r)
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}
