package transcript

import "strings"

// Transcript is the assembled plain and timed rendering of a caption document.
type Transcript struct {
	Plain string
	Timed string
	Cues  []Cue
}

// TimedLine renders a cue as "<timestamp>  <phrase>".
func TimedLine(c Cue) string {
	return c.Start + "  " + c.Phrase
}

// Assemble joins retained phrases with single spaces and timed lines with newlines.
func Assemble(p Parsed) Transcript {
	timed := make([]string, 0, len(p.Cues))
	for _, c := range p.Cues {
		timed = append(timed, TimedLine(c))
	}
	return Transcript{
		Plain: strings.Join(p.Phrases, " "),
		Timed: strings.Join(timed, "\n"),
		Cues:  p.Cues,
	}
}

// ParseTimedText recovers cues from rendered timed text. Lines without a
// leading timestamp are ignored.
func ParseTimedText(timed string) []Cue {
	cues := []Cue{}
	for _, line := range strings.Split(timed, "\n") {
		ts, phrase, ok := strings.Cut(strings.TrimSpace(line), "  ")
		if !ok {
			continue
		}
		if _, valid := ParseClock(ts); !valid {
			continue
		}
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		cues = append(cues, Cue{Start: ts, Phrase: phrase})
	}
	return cues
}
