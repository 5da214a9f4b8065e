package transcript

import (
	"regexp"
	"strings"
)

var (
	timingLineRe   = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d{3})`)
	inlineTimingRe = regexp.MustCompile(`<\d{2}:\d{2}:\d{2}\.\d{3}>`)
	styleTagRe     = regexp.MustCompile(`</?c(?:\.[\w.-]+)?>`)
	spaceRe        = regexp.MustCompile(`\s+`)
	cueIDRe        = regexp.MustCompile(`^\d+$`)
	headerPrefixes = []string{"kind:", "language:", "webvtt"}
)

const timingArrow = "-->"

// Cue is one retained caption phrase with the timing line it appeared under.
// End is empty when the cue was recovered from rendered timed text.
type Cue struct {
	Start  string
	End    string
	Phrase string
}

// Seconds returns the start offset of the cue.
func (c Cue) Seconds() float64 {
	sec, _ := ParseClock(c.Start)
	return sec
}

// EndSeconds returns the end offset, or the start when the end is unknown.
func (c Cue) EndSeconds() float64 {
	start := c.Seconds()
	if end, ok := ParseClock(c.End); ok && end > start {
		return end
	}
	return start
}

// Parsed holds the outputs of ParseCues.
// Phrases feeds the plain transcript and includes text seen before any timing line.
// Cues feeds the timed transcript and only holds phrases with a timing context.
type Parsed struct {
	Phrases []string
	Cues    []Cue
}

// ParseCues scans a raw caption document. It never fails: unrecognized lines
// are treated as caption text and an empty document yields empty output.
// Arrow lines with malformed timestamps stay in the plain text but never
// become timed cues.
func ParseCues(raw string) Parsed {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	out := Parsed{Phrases: []string{}, Cues: []Cue{}}
	var start, end, last string
	for i, line := range lines {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" || isHeader(line) {
			continue
		}
		if m := timingLineRe.FindStringSubmatch(line); m != nil {
			start, end = m[1], m[2]
			continue
		}
		if isCueID(line, lines[i+1:]) {
			continue
		}
		phrase := CleanPhrase(line)
		if phrase == "" || phrase == last {
			continue
		}
		last = phrase
		out.Phrases = append(out.Phrases, phrase)
		if start != "" && !strings.Contains(line, timingArrow) {
			out.Cues = append(out.Cues, Cue{Start: start, End: end, Phrase: phrase})
		}
	}
	return out
}

// CleanPhrase strips inline timing and style tags and collapses whitespace.
func CleanPhrase(line string) string {
	line = inlineTimingRe.ReplaceAllString(line, "")
	line = styleTagRe.ReplaceAllString(line, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
}

func isHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range headerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// isCueID reports whether line is a numeric cue identifier, i.e. a bare
// integer whose next non-blank line is a timing line.
func isCueID(line string, rest []string) bool {
	if !cueIDRe.MatchString(line) {
		return false
	}
	for _, next := range rest {
		next = strings.TrimSpace(next)
		if next == "" {
			continue
		}
		return timingLineRe.MatchString(next)
	}
	return false
}
