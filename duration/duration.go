// Package duration parses duration strings that allow a day suffix, which
// time.ParseDuration does not ("10d", "-2d12h").
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var dayRe = regexp.MustCompile(`^(-?)(\d+)d(.*)$`)

// ParseDuration behaves like time.ParseDuration but additionally accepts a
// leading whole-day component.
func ParseDuration(s string) (time.Duration, error) {
	m := dayRe.FindStringSubmatch(s)
	if m == nil {
		return time.ParseDuration(s)
	}

	days, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("invalid day count in duration %q: %w", s, err)
	}
	d := time.Duration(days) * 24 * time.Hour

	if m[3] != "" {
		rest, err := time.ParseDuration(m[3])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d += rest
	}

	if m[1] == "-" {
		d = -d
	}
	return d, nil
}
