package config

import (
	"fmt"
	"strings"
	"time"
)

// parseDuration reads a duration-valued config field. An empty or
// whitespace-only value means "unset" and yields zero, which callers treat
// as "use the built-in default". Negative durations are rejected; field
// names the offending key in the error.
func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", field, raw)
	}
	return d, nil
}
