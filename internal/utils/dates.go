package utils

import (
	"regexp"
	"strings"
	"time"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail performs a light syntactic email check.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ParseDate accepts ISO 8601 dates: YYYY-MM-DD or RFC3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// DurationDays computes the inclusive day count between two ISO dates.
// Unparseable input falls back to 1, matching the original behavior.
func DurationDays(startDate, endDate string) int {
	start, err := ParseDate(startDate)
	if err != nil {
		return 1
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return 1
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// FormatTimestamp renders a timestamp as RFC3339 for API responses.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
