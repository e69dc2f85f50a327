package timecode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"minutes and seconds", "01:05.500", 65.5},
		{"hours minutes seconds", "1:02:03.250", 3723.25},
		{"bare seconds", "42.125", 42.125},
		{"integer seconds", "7", 7},
		{"padded", "  00:10  ", 10},
		{"empty", "", 0},
		{"garbage", "abc", 0},
		{"too many parts", "1:2:3:4", 0},
		{"negative", "-5", 0},
		{"negative component", "01:-05", 0},
		{"fraction on minutes", "1.5:00", 0},
		{"empty component", "01::05", 0},
		{"infinity", "Inf", 0},
		{"nan", "NaN", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Parse(tt.in), 1e-9)
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00.000"},
		{65.5, "01:05.500"},
		{59.9996, "01:00.000"},
		{3599.999, "59:59.999"},
		{3600, "1:00:00.000"},
		{3723.25, "1:02:03.250"},
		{-3, "00:00.000"},
		{math.NaN(), "00:00.000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	values := []float64{0, 0.0004, 0.5, 1.2345, 59.999, 61.0015, 599.5, 3599.9994, 3600.001, 7322.777, 86399.123}
	for _, v := range values {
		got := Parse(Format(v))
		assert.LessOrEqual(t, math.Abs(got-v), 0.001, "round trip of %v gave %v", v, got)
	}
}
