package shared

import "time"

const dateLayout = "2006-01-02"

// ParseDate accepts a bare calendar date or a full RFC3339 timestamp. The
// empty string parses to the zero time so optional date fields stay
// optional.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(dateLayout, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
