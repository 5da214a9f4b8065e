package transcript

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullTranscript(t *testing.T) {
	blocks := []TimeBlock{
		{Start: "00:00:00", End: "00:00:20", Text: "intro"},
		{Start: "00:00:20", End: "00:00:31", Text: "outro"},
	}

	t.Run("Should prefer blocks over legacy lines", func(t *testing.T) {
		out := FullTranscript(blocks, []string{"00:00:01.000  legacy"}, 0)

		assert.Equal(t, "00:00:00 - 00:00:20 : intro\n00:00:20 - 00:00:31 : outro", out)
	})

	t.Run("Should fall back to legacy lines", func(t *testing.T) {
		out := FullTranscript(nil, []string{"00:00:01.000  a", "00:00:02.000  b"}, 0)

		assert.Equal(t, "00:00:01.000  a\n00:00:02.000  b", out)
	})

	t.Run("Should return input unchanged when under budget", func(t *testing.T) {
		line := strings.Repeat("x", DefaultMaxTranscriptChars-1)

		assert.Equal(t, line, FullTranscript(nil, []string{line}, DefaultMaxTranscriptChars))
	})

	t.Run("Should return input unchanged when exactly at budget", func(t *testing.T) {
		line := strings.Repeat("x", DefaultMaxTranscriptChars)

		assert.Equal(t, line, FullTranscript(nil, []string{line}, DefaultMaxTranscriptChars))
	})

	t.Run("Should truncate and mark long input", func(t *testing.T) {
		line := strings.Repeat("y", DefaultMaxTranscriptChars+500)

		out := FullTranscript(nil, []string{line}, DefaultMaxTranscriptChars)

		require.True(t, strings.HasSuffix(out, TruncationMarker))
		assert.Equal(t, DefaultMaxTranscriptChars+utf8.RuneCountInString(TruncationMarker), utf8.RuneCountInString(out))
	})

	t.Run("Should not split multi-byte characters", func(t *testing.T) {
		out := Truncate(strings.Repeat("é", 10), 4)

		assert.Equal(t, "éééé"+TruncationMarker, out)
		assert.True(t, utf8.ValidString(out))
	})
}

func TestRecord(t *testing.T) {
	t.Run("Should use legacy timed text when blocks are missing", func(t *testing.T) {
		r := &Record{TranscriptTimed: "00:00:01.000  a\n00:00:02.000  b"}

		assert.Equal(t, []string{"00:00:01.000  a", "00:00:02.000  b"}, r.LegacyLines())
		assert.Equal(t, "00:00:01.000  a\n00:00:02.000  b", r.FullText(100))
		assert.Equal(t, 0, r.ExpectedChunks())
	})

	t.Run("Should count one expected chunk per block", func(t *testing.T) {
		r := &Record{TranscriptBlocks: []TimeBlock{{Start: "00:00:00"}, {Start: "00:00:20"}}}

		assert.Equal(t, 2, r.ExpectedChunks())
		assert.Nil(t, (&Record{}).LegacyLines())
	})
}

func TestNormalize(t *testing.T) {
	t.Run("Should derive all three representations", func(t *testing.T) {
		raw := "WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nhello world\n00:00:03.000 --> 00:00:05.000\nhello world\n" +
			"00:00:05.000 --> 00:00:07.000\ngoodbye"

		res := Normalize(raw, 20)

		require.True(t, res.IsOk())
		n := res.Value()
		assert.Equal(t, "hello world goodbye", n.Plain)
		assert.Equal(t, "00:00:01.000  hello world\n00:00:05.000  goodbye", n.Timed)
		assert.Equal(t, []TimeBlock{{Start: "00:00:00", End: "00:00:07", Text: "hello world goodbye"}}, n.Blocks)
	})

	t.Run("Should keep malformed timing lines out of timed text and blocks", func(t *testing.T) {
		res := Normalize("00:00:01.000 --> 00:00:02.000\nfirst\n0:1 --> 0:2\nsecond", 20)

		require.True(t, res.IsOk())
		n := res.Value()
		assert.Equal(t, "first 0:1 --> 0:2 second", n.Plain)
		assert.Equal(t, "00:00:01.000  first\n00:00:01.000  second", n.Timed)
		require.Len(t, n.Blocks, 1)
		assert.Equal(t, "first second", n.Blocks[0].Text)
	})

	t.Run("Should report no transcript for header-only captions", func(t *testing.T) {
		res := Normalize("WEBVTT\nKind: captions\n", 20)

		require.False(t, res.IsOk())
		assert.Equal(t, "no_transcript", string(res.Kind()))
	})
}
