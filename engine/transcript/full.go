package transcript

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxTranscriptChars bounds the transcript handed to the chat model.
	DefaultMaxTranscriptChars = 60000
	TruncationMarker          = "\n\n[Transcript truncated]"
)

// RenderBlocks renders blocks one per line.
func RenderBlocks(blocks []TimeBlock) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		lines = append(lines, b.Render())
	}
	return strings.Join(lines, "\n")
}

// FullTranscript prefers block rendering over the legacy timed lines and cuts
// the result to maxChars characters, appending TruncationMarker when cut.
func FullTranscript(blocks []TimeBlock, legacy []string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxTranscriptChars
	}
	var text string
	if len(blocks) > 0 {
		text = RenderBlocks(blocks)
	} else {
		text = strings.Join(legacy, "\n")
	}
	return Truncate(text, maxChars)
}

// Truncate cuts s to at most maxChars runes and appends TruncationMarker when cut.
func Truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	count := 0
	for i := range s {
		if count == maxChars {
			return s[:i] + TruncationMarker
		}
		count++
	}
	return s
}
