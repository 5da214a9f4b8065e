package transcript

import (
	"fmt"
	"regexp"
	"strconv"
)

var clockRe = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2})(?:\.(\d{3}))?$`)

// ParseClock converts "HH:MM:SS.mmm" (milliseconds optional) to seconds.
func ParseClock(s string) (float64, bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if mi > 59 || sec > 59 {
		return 0, false
	}
	total := float64(h*3600 + mi*60 + sec)
	if m[4] != "" {
		ms, _ := strconv.Atoi(m[4])
		total += float64(ms) / 1000
	}
	return total, true
}

// FormatClock renders whole seconds as HH:MM:SS.
func FormatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}
