package timex

import (
	"fmt"
	"strings"
	"time"
)

// StampLen is the width of a canonical timestamp: YYYYMMDDHHMMSSmmm, UTC.
// Lexicographic order on canonical stamps equals chronological order.
const StampLen = 17

const stampLayout = "20060102150405.000"

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatStamp renders t as a canonical timestamp.
func FormatStamp(t time.Time) string {
	return strings.Replace(t.UTC().Format(stampLayout), ".", "", 1)
}

// Now returns the current time as a canonical timestamp.
func Now() string {
	return FormatStamp(time.Now())
}

// IsStamp reports whether s is already in canonical form.
func IsStamp(s string) bool {
	return len(s) == StampLen && allDigits(s)
}

// ParseStamp converts a canonical timestamp back to a UTC time.
func ParseStamp(s string) (time.Time, error) {
	if !IsStamp(s) {
		return time.Time{}, fmt.Errorf("not a canonical timestamp: %q", s)
	}
	return time.ParseInLocation(stampLayout, s[:14]+"."+s[14:], time.UTC)
}

// ToStamp normalizes s to canonical form. Canonical input is returned as is,
// shorter all-digit input (at least YYYYMMDD) is padded with zeros, and
// ISO-8601 input is converted to UTC. Offset-less ISO input is read as UTC.
func ToStamp(s string) (string, error) {
	s = strings.TrimSpace(s)
	if IsStamp(s) {
		return s, nil
	}
	if len(s) >= 8 && len(s) < StampLen && allDigits(s) {
		return s + strings.Repeat("0", StampLen-len(s)), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return FormatStamp(t), nil
		}
	}
	return "", fmt.Errorf("unrecognized timestamp %q", s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
