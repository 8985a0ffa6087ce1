package transcript

import "testing"

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00:05", 5},
		{"01:02:03", 3723},
		{"1:00:00", 3600},
		{"12:34", 754},
		{"00:75:00", 4500},
		{"5", 0},
		{"1:2:3:4", 0},
		{"aa:bb", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseTimestamp(tt.in); got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	for _, secs := range []int{0, 1, 59, 60, 61, 3599, 3600, 3661, 86399, 359999} {
		if got := ParseTimestamp(FormatTimestamp(secs)); got != secs {
			t.Errorf("round trip %d -> %q -> %d", secs, FormatTimestamp(secs), got)
		}
	}
}
