package event

import "fmt"

// DefaultSlowThreshold is the duration in milliseconds at or above which a
// request is classified as slow when no threshold is configured.
const DefaultSlowThreshold = 1000

var byteUnits = []string{"B", "KB", "MB", "GB"}

// ByteSize returns the UTF-8 encoded length of s in bytes.
func ByteSize(s string) int {
	return len(s)
}

// FormatBytes renders n as a human-readable base-1024 size. Values below
// 1024 are printed without decimals, larger values with one decimal place.
func FormatBytes(n int) string {
	if n <= 0 {
		return "0 B"
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%.0f %s", value, byteUnits[unit])
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}

// IsSlow reports whether a duration in milliseconds meets the slow
// threshold. The boundary is inclusive.
func IsSlow(duration, threshold int64) bool {
	if threshold <= 0 {
		threshold = DefaultSlowThreshold
	}
	return duration >= threshold
}
