package transcript

import (
	"strings"
	"time"
)

// Record is the persisted result of processing a video.
type Record struct {
	VideoID          string      `json:"videoId"          db:"video_id"`
	Title            string      `json:"title"            db:"title"`
	Duration         int         `json:"duration"         db:"duration"`
	ThumbnailURL     string      `json:"thumbnailUrl"     db:"thumbnail_url"`
	TranscriptPlain  string      `json:"transcriptPlain"  db:"transcript_plain"`
	TranscriptTimed  string      `json:"transcriptTimed"  db:"transcript_timed"`
	TranscriptBlocks []TimeBlock `json:"transcriptBlocks" db:"transcript_blocks"`
	Summary          string      `json:"summary"          db:"summary"`
	ProcessedAt      time.Time   `json:"processedAt"      db:"processed_at"`
}

// LegacyLines returns the flat timed array used by records without blocks.
func (r *Record) LegacyLines() []string {
	if strings.TrimSpace(r.TranscriptTimed) == "" {
		return nil
	}
	return strings.Split(r.TranscriptTimed, "\n")
}

// FullText returns the bounded full transcript for prompts.
func (r *Record) FullText(maxChars int) string {
	return FullTranscript(r.TranscriptBlocks, r.LegacyLines(), maxChars)
}

// ExpectedChunks is the number of chunks a complete index holds for the record.
func (r *Record) ExpectedChunks() int {
	return len(r.TranscriptBlocks)
}
