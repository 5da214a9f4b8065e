package transcript

import "github.com/tubechat/tubechat/engine/core"

// Normalized bundles the three representations derived from one caption document.
type Normalized struct {
	Plain  string
	Timed  string
	Blocks []TimeBlock
}

// Normalize parses, assembles and buckets raw captions. A document with no
// usable text is the only failure.
func Normalize(raw string, windowSize int) core.Result[Normalized] {
	t := Assemble(ParseCues(raw))
	if t.Plain == "" {
		return core.Err[Normalized](core.KindNoTranscript, "no transcript content found in captions")
	}
	return core.Ok(Normalized{
		Plain:  t.Plain,
		Timed:  t.Timed,
		Blocks: BucketCues(t.Cues, windowSize),
	})
}
