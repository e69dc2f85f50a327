// Package timecode converts between clip timestamps and seconds.
//
// Accepted inputs are "H:MM:SS[.mmm]", "MM:SS[.mmm]" and bare seconds.
// Anything else parses to 0, which callers treat as "unknown".
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse converts a timestamp into seconds. It never fails: empty, malformed,
// negative or non-finite input yields 0.
func Parse(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0
	}

	var total float64
	for i, part := range parts {
		value, ok := parseComponent(part, i == len(parts)-1)
		if !ok {
			return 0
		}
		total = total*60 + value
	}

	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return 0
	}
	return total
}

// parseComponent accepts a fractional part only on the last (seconds) field.
func parseComponent(part string, last bool) (float64, bool) {
	part = strings.TrimSpace(part)
	if part == "" {
		return 0, false
	}
	if !last {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		return float64(n), true
	}
	v, err := strconv.ParseFloat(part, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Format renders seconds as MM:SS.mmm below one hour and H:MM:SS.mmm
// otherwise, rounded to the nearest millisecond.
func Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}

	totalMs := int64(math.Round(seconds * 1000))
	ms := totalMs % 1000
	totalSec := totalMs / 1000
	sec := totalSec % 60
	totalMin := totalSec / 60

	if totalMin < 60 {
		return fmt.Sprintf("%02d:%02d.%03d", totalMin, sec, ms)
	}
	return fmt.Sprintf("%d:%02d:%02d.%03d", totalMin/60, totalMin%60, sec, ms)
}
