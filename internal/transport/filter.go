package transport

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter matches the sender of inbound data.
// An empty pattern or "*" accepts every sender.
type Filter struct {
	pattern string
}

// ParseFilter validates a sender glob such as "192.168.*.?" or "sensor-*"
func ParseFilter(pattern string) (Filter, error) {
	if strings.ContainsAny(pattern, "\t\n\r") {
		return Filter{}, fmt.Errorf("%w: control characters in %q", ErrInvalidFilter, pattern)
	}
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, pattern)
	}
	return Filter{pattern: pattern}, nil
}

// MustFilter is ParseFilter for static patterns
func MustFilter(pattern string) Filter {
	f, err := ParseFilter(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// String returns the raw pattern
func (f Filter) String() string { return f.pattern }

// Match reports whether sender passes the filter
func (f Filter) Match(sender string) bool {
	if f.pattern == "" || f.pattern == "*" {
		return true
	}
	ok, err := doublestar.Match(f.pattern, sender)
	return err == nil && ok
}
