// Package size converts between byte counts and the human-readable sizes
// used in settings and reports.
package size

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// Parse reads a size such as "512M", "1.5 GB" or "2GiB".
// Units are binary: K, KB and KiB all mean 1024 bytes.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}

	n, err := humanize.ParseBytes(binaryUnit(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}
	return int64(n), nil
}

// binaryUnit rewrites K, KB, M, MB, ... as KiB, MiB, ... so humanize
// applies powers of 1024.
func binaryUnit(s string) string {
	i := strings.LastIndexFunc(s, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.' || r == ' '
	})
	num, unit := s[:i+1], strings.ToUpper(s[i+1:])

	unit = strings.TrimSuffix(unit, "B")
	switch unit {
	case "":
		return num + "B"
	case "K", "M", "G", "T", "P":
		return num + unit + "iB"
	case "KI", "MI", "GI", "TI", "PI":
		return num + unit + "B"
	}
	return s
}

// Format renders n with binary units, e.g. "1.5 GiB". Negative counts render as "0 B".
func Format(n int64) string {
	if n < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// Count renders an item count with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}
