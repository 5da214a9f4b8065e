package transcript

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketCues(t *testing.T) {
	t.Run("Should produce one block for a short clip", func(t *testing.T) {
		raw := "00:00:01.000 --> 00:00:03.000\nhello world\n00:00:03.000 --> 00:00:05.000\nhello world\n" +
			"00:00:05.000 --> 00:00:07.000\ngoodbye"

		blocks := BucketCues(ParseCues(raw).Cues, 20)

		require.Len(t, blocks, 1)
		assert.Equal(t, TimeBlock{Start: "00:00:00", End: "00:00:07", Text: "hello world goodbye"}, blocks[0])
	})

	t.Run("Should clamp a single cue block to its own timestamp", func(t *testing.T) {
		blocks := BucketCues([]Cue{{Start: "00:00:05.000", Phrase: "only"}}, 20)

		require.Len(t, blocks, 1)
		assert.Equal(t, TimeBlock{Start: "00:00:00", End: "00:00:05", Text: "only"}, blocks[0])
	})

	t.Run("Should end a parsed single cue block at the end of its timing line", func(t *testing.T) {
		blocks := BucketCues(ParseCues("00:00:05.000 --> 00:00:09.000\nonly").Cues, 20)

		require.Len(t, blocks, 1)
		assert.Equal(t, TimeBlock{Start: "00:00:00", End: "00:00:09", Text: "only"}, blocks[0])
	})

	t.Run("Should clamp a parsed cue that runs past its window to the window end", func(t *testing.T) {
		blocks := BucketCues(ParseCues("00:00:15.000 --> 00:00:25.000\nlong").Cues, 20)

		require.Len(t, blocks, 1)
		assert.Equal(t, TimeBlock{Start: "00:00:00", End: "00:00:20", Text: "long"}, blocks[0])
	})

	t.Run("Should let a cue at the window start end where it starts", func(t *testing.T) {
		blocks := BucketCues([]Cue{{Start: "00:00:40.000", Phrase: "edge"}}, 20)

		require.Len(t, blocks, 1)
		assert.Equal(t, "00:00:40", blocks[0].Start)
		assert.Equal(t, "00:00:40", blocks[0].End)
	})

	t.Run("Should skip empty windows and keep ascending order", func(t *testing.T) {
		cues := []Cue{
			{Start: "00:00:02.000", Phrase: "a"},
			{Start: "00:00:19.999", Phrase: "b"},
			{Start: "00:00:20.000", Phrase: "c"},
			{Start: "00:01:05.250", Phrase: "d"},
		}

		blocks := BucketCues(cues, 20)

		require.Len(t, blocks, 3)
		assert.Equal(t, TimeBlock{Start: "00:00:00", End: "00:00:20", Text: "a b"}, blocks[0])
		assert.Equal(t, TimeBlock{Start: "00:00:20", End: "00:00:40", Text: "c"}, blocks[1])
		assert.Equal(t, TimeBlock{Start: "00:01:00", End: "00:01:05", Text: "d"}, blocks[2])
	})

	t.Run("Should place every cue in exactly one containing block", func(t *testing.T) {
		var cues []Cue
		for i := 0; i < 200; i++ {
			ms := i * 1733
			cues = append(cues, Cue{
				Start:  fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, (ms/60000)%60, (ms/1000)%60, ms%1000),
				Phrase: fmt.Sprintf("p%d", i),
			})
		}
		blocks := BucketCues(cues, 15)

		maxSec := cues[len(cues)-1].Seconds()
		for _, c := range cues {
			sec := c.Seconds()
			matches := 0
			for _, b := range blocks {
				if sec >= float64(b.StartSec()) && sec < float64(b.StartSec()+15) &&
					strings.Contains(" "+b.Text+" ", " "+c.Phrase+" ") {
					matches++
				}
			}
			assert.Equal(t, 1, matches, c.Phrase)
		}
		for i, b := range blocks {
			assert.LessOrEqual(t, float64(b.EndSec()), maxSec)
			assert.Equal(t, 0, b.StartSec()%15)
			if i > 0 {
				assert.Greater(t, b.StartSec(), blocks[i-1].StartSec())
			}
		}
	})

	t.Run("Should fall back to the default window size", func(t *testing.T) {
		blocks := BucketCues([]Cue{{Start: "00:00:25.000", Phrase: "x"}}, 0)

		require.Len(t, blocks, 1)
		assert.Equal(t, "00:00:20", blocks[0].Start)
	})

	t.Run("Should return an empty list for empty input", func(t *testing.T) {
		assert.NotNil(t, BucketCues(nil, 20))
		assert.Empty(t, BucketCues(nil, 20))
		assert.Empty(t, BucketTimedText("", 20))
	})
}

func TestBucketTimedText(t *testing.T) {
	t.Run("Should bucket rendered timed lines", func(t *testing.T) {
		timed := "00:00:01.000  hello world\n00:00:05.000  goodbye\n00:00:21.500  next"

		blocks := BucketTimedText(timed, 20)

		require.Len(t, blocks, 2)
		assert.Equal(t, TimeBlock{Start: "00:00:00", End: "00:00:20", Text: "hello world goodbye"}, blocks[0])
		assert.Equal(t, TimeBlock{Start: "00:00:20", End: "00:00:21", Text: "next"}, blocks[1])
	})
}

func TestTimeBlock(t *testing.T) {
	t.Run("Should render and expose second offsets", func(t *testing.T) {
		b := TimeBlock{Start: "00:01:00", End: "00:01:20", Text: "hi there"}

		assert.Equal(t, "00:01:00 - 00:01:20 : hi there", b.Render())
		assert.Equal(t, 60, b.StartSec())
		assert.Equal(t, 80, b.EndSec())
	})
}
