// Package timecode converts between second offsets and subtitle timestamps
// of the form HH:MM:SS,mmm.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Format renders seconds as HH:MM:SS,mmm, rounding to the nearest millisecond.
// Hours grow past two digits when needed. Negative input is treated as zero.
func Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	s := (total / 1000) % 60
	m := (total / 60000) % 60
	h := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Parse is the inverse of Format. A '.' is accepted in place of the comma so
// WebVTT-style stamps parse too.
func Parse(ts string) (float64, error) {
	ts = strings.TrimSpace(strings.Replace(ts, ".", ",", 1))
	clock, frac, ok := strings.Cut(ts, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q: missing milliseconds", ts)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q: want HH:MM:SS,mmm", ts)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid hours in %q", ts)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", ts)
	}
	s, err := strconv.Atoi(parts[2])
	if err != nil || s < 0 || s > 59 {
		return 0, fmt.Errorf("invalid seconds in %q", ts)
	}
	if len(frac) != 3 {
		return 0, fmt.Errorf("invalid milliseconds in %q", ts)
	}
	ms, err := strconv.Atoi(frac)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid milliseconds in %q", ts)
	}

	return float64(h*3600+m*60+s) + float64(ms)/1000, nil
}

// FromDuration converts a time.Duration to fractional seconds.
func FromDuration(d time.Duration) float64 {
	return d.Seconds()
}

// ToDuration converts fractional seconds to a time.Duration rounded to the millisecond.
func ToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}
