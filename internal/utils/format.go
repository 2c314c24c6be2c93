// Package utils provides shared utility functions
package utils

import (
	"fmt"
	"time"
)

// FormatBytes converts bytes to human-readable format (e.g., "1.5 GB")
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatContentLength renders an optional blob size; a missing size renders empty
func FormatContentLength(size *int64) string {
	if size == nil {
		return ""
	}
	if *size < 0 {
		return "0 B"
	}
	return FormatBytes(uint64(*size))
}

// FormatTimestamp renders an optional timestamp in UTC ISO 8601; a missing one renders empty
func FormatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
