package texts_test

import (
	"strings"
	"testing"

	"github.com/stackchan/go-stackchan/pkg/texts"
)

func TestSplitSentences(t *testing.T) {
	t.Run("splits on terminal punctuation keeping delimiter", func(t *testing.T) {
		got := texts.SplitSentences("Hello world. Bye!")
		want := []string{"Hello world.", "Bye!"}
		assertChunks(t, got, want)
	})

	t.Run("splits on CJK punctuation", func(t *testing.T) {
		got := texts.SplitSentences("こんにちは。元気？はい！")
		want := []string{"こんにちは。", "元気？", "はい！"}
		assertChunks(t, got, want)
	})

	t.Run("line breaks split without being kept", func(t *testing.T) {
		got := texts.SplitSentences("one\ntwo\r\nthree")
		want := []string{"one", "two", "three"}
		assertChunks(t, got, want)
	})

	t.Run("empty chunks are dropped", func(t *testing.T) {
		got := texts.SplitSentences("..\n\n.")
		want := []string{".", ".", "."}
		assertChunks(t, got, want)
	})

	t.Run("trailing text without delimiter is kept", func(t *testing.T) {
		got := texts.SplitSentences("no punctuation here")
		want := []string{"no punctuation here"}
		assertChunks(t, got, want)
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		if got := texts.SplitSentences(""); len(got) != 0 {
			t.Errorf("expected no chunks, got %q", got)
		}
	})

	t.Run("concatenation reconstructs input up to boundary whitespace", func(t *testing.T) {
		in := "First. Second! Third? Unterminated tail"
		got := strings.Join(texts.SplitSentences(in), "")
		squash := func(s string) string { return strings.ReplaceAll(s, " ", "") }
		if squash(got) != squash(in) {
			t.Errorf("reconstruction mismatch:\n in: %q\nout: %q", in, got)
		}
	})

	t.Run("splitting is idempotent", func(t *testing.T) {
		for _, chunk := range texts.SplitSentences("One. Two! 三つ目。Four") {
			again := texts.SplitSentences(chunk)
			if len(again) != 1 || again[0] != chunk {
				t.Errorf("re-split of %q yielded %q", chunk, again)
			}
		}
	})
}

func assertChunks(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks %q, got %d chunks %q", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestT(t *testing.T) {
	t.Run("exact language match", func(t *testing.T) {
		if got := texts.T("ja", texts.KeyChatThinking); got != "考え中..." {
			t.Errorf("unexpected phrase: %q", got)
		}
	})

	t.Run("region code falls back to prefix", func(t *testing.T) {
		if got := texts.T("en-US", texts.KeyClockNowNoon); got != "It's %d o'clock" {
			t.Errorf("unexpected phrase: %q", got)
		}
	})

	t.Run("missing key falls back to english", func(t *testing.T) {
		if got := texts.T("ro", texts.KeyChatThinking); got != "Thinking..." {
			t.Errorf("unexpected phrase: %q", got)
		}
	})

	t.Run("unknown language falls back to english", func(t *testing.T) {
		if got := texts.T("de", texts.KeyClockNotSet); got != "The clock is not set" {
			t.Errorf("unexpected phrase: %q", got)
		}
	})

	t.Run("unknown key is returned as-is", func(t *testing.T) {
		if got := texts.T("en", "no_such_key"); got != "no_such_key" {
			t.Errorf("unexpected phrase: %q", got)
		}
	})
}
