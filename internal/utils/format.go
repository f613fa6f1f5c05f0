package utils

import (
	"fmt"
	"strings"
)

// FormatCount renders a line or token count compactly: values of one thousand
// or more collapse to a "k" suffix with one decimal, truncated rather than
// rounded so the display never overstates the count.
func FormatCount(count int) string {
	if count >= 1000 {
		return fmt.Sprintf("%.1fk", float64(count/100)/10)
	}
	return fmt.Sprintf("%d", count)
}

// FormatFileSize converts a byte length into a human-readable lower-case unit string.
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		return "0b"
	}
	units := []string{"b", "kb", "mb", "gb", "tb", "pb"}
	value := float64(bytes)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(units)-1 {
		value /= 1024
		unitIndex++
	}
	if unitIndex == 0 {
		return fmt.Sprintf("%db", bytes)
	}
	if value < 10 {
		formatted := strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0")
		return formatted + units[unitIndex]
	}
	return fmt.Sprintf("%.0f%s", value, units[unitIndex])
}
