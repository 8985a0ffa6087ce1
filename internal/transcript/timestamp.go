package transcript

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTimestamp converts "HH:MM:SS" or "MM:SS" to seconds. Any other shape
// yields 0. Components are not range checked, so "00:75:00" is 4500.
func ParseTimestamp(ts string) int {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		nums[i] = n
	}

	switch len(nums) {
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2]
	case 2:
		return nums[0]*60 + nums[1]
	default:
		return 0
	}
}

// FormatTimestamp renders seconds as zero-padded "HH:MM:SS".
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
