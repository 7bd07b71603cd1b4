package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration reads the Go duration stored under key ("10s", "30m").
// An empty or zero value means def. Negative values are an error.
func Duration(key, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %q is not a duration: %w", key, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: %q is negative", key, raw)
	case d == 0:
		return def, nil
	}
	return d, nil
}
