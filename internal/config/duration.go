package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ageRegex = regexp.MustCompile(`(?i)^(\d+)\s*([wdhms]?)$`)

var ageUnits = map[string]time.Duration{
	"":  time.Second,
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses retention ages such as "30d", "2w" or "12h".
// Compound Go durations ("1h30m") are accepted too. A bare number is seconds
// and an empty string is 0, meaning keep forever.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	m := ageRegex.FindStringSubmatch(s)
	if m == nil {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid duration %q (want e.g. 30d, 2w, 12h)", s)
		}
		return d, nil
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(n) * ageUnits[strings.ToLower(m[2])], nil
}

// KeepFor parses Backup.KeepFor. Zero keeps snapshots forever.
func (c *Config) KeepFor() time.Duration {
	d, _ := ParseDuration(c.Backup.KeepFor)
	return d
}
