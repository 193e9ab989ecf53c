package shared

import "time"

// DateLayout is the wire format for calendar dates: leave ranges and
// holidays are whole days, not instants.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or a full RFC3339 timestamp.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(DateLayout, value)
}
