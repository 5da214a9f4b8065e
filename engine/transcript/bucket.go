package transcript

import (
	"math"
	"sort"
	"strings"
)

// DefaultWindowSize is the block width in seconds.
const DefaultWindowSize = 20

// TimeBlock groups the phrases whose start falls in [start, start+window).
type TimeBlock struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// StartSec returns the block start in whole seconds.
func (b TimeBlock) StartSec() int {
	sec, _ := ParseClock(b.Start)
	return int(sec)
}

// EndSec returns the block end in whole seconds.
func (b TimeBlock) EndSec() int {
	sec, _ := ParseClock(b.End)
	return int(sec)
}

// Render formats the block as "start - end : text".
func (b TimeBlock) Render() string {
	return b.Start + " - " + b.End + " : " + b.Text
}

// BucketCues assigns each cue to bucket floor(sec/window) and emits one block
// per populated bucket in ascending order. Block ends are clamped to the
// latest observed timestamp.
func BucketCues(cues []Cue, windowSize int) []TimeBlock {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	blocks := []TimeBlock{}
	if len(cues) == 0 {
		return blocks
	}
	buckets := make(map[int][]string)
	maxObserved := 0.0
	for _, c := range cues {
		sec := c.Seconds()
		idx := int(math.Floor(sec / float64(windowSize)))
		buckets[idx] = append(buckets[idx], c.Phrase)
		maxObserved = math.Max(maxObserved, c.EndSeconds())
	}
	indexes := make([]int, 0, len(buckets))
	for idx := range buckets {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		start := idx * windowSize
		end := math.Min(float64(start+windowSize), maxObserved)
		blocks = append(blocks, TimeBlock{
			Start: FormatClock(start),
			End:   FormatClock(int(math.Floor(end))),
			Text:  strings.Join(buckets[idx], " "),
		})
	}
	return blocks
}

// BucketTimedText buckets rendered timed text.
func BucketTimedText(timed string, windowSize int) []TimeBlock {
	if strings.TrimSpace(timed) == "" {
		return []TimeBlock{}
	}
	return BucketCues(ParseTimedText(timed), windowSize)
}
