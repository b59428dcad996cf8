package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a Go duration string. Empty means 0; negative
// values are rejected. path names the field in errors.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// Duration is ParseDurationField with def for empty or zero values.
// Call it only on validated configs; a parse error yields def.
func Duration(path, raw string, def time.Duration) time.Duration {
	d, err := ParseDurationField(path, raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
