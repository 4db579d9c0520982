// Package prodate parses the pro-subscription expiry timestamps the identity
// backend hands out.
//
// The backend's timestamp format has drifted across versions: ISO-8601 with
// or without fractional seconds, a space instead of the "T" separator, and
// numeric timezone offsets both with and without a colon have all been seen
// in the wild. This parser accepts all of them, never panics, and is
// order-stable — equivalent strings always resolve through the same layout,
// so two calls with the same input can never disagree.
//
// When nothing matches, the caller must treat the subscription as not
// verifiably active. Fail closed, not open.
package prodate

import (
	"strings"
	"time"
)

// layouts, in priority order. The first three carry an explicit zone; the
// trailing fallbacks have none and therefore parse as UTC.
var layouts = []string{
	time.RFC3339Nano,             // 2006-01-02T15:04:05.999999999Z07:00
	time.RFC3339,                 // 2006-01-02T15:04:05Z07:00
	"2006-01-02 15:04:05Z07:00",  // space-separated with zone
	"2006-01-02T15:04:05",        // no zone, assume UTC
	"2006-01-02 15:04:05",        // no zone, space separator, assume UTC
	"2006-01-02",                 // date only, assume UTC midnight
}

// Parse attempts to parse a free-form expiry timestamp. It returns the
// parsed instant and true, or the zero time and false if no candidate
// matches any layout. It never returns an error — an unparseable expiry is
// an expected input, not an exceptional one.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, candidate := range candidates(s) {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// candidates expands the raw string into the small set of normalized forms
// we are willing to try: the input itself, a "T"-separator substitution when
// the input uses a space, and a colon-form timezone rewrite for trailing
// +HHMM / -HHMM / +HH / -HH offsets.
func candidates(s string) []string {
	out := []string{s}
	if !strings.Contains(s, "T") && strings.Contains(s, " ") {
		out = append(out, strings.Replace(s, " ", "T", 1))
	}
	for _, c := range out {
		if fixed, ok := normalizeOffset(c); ok {
			out = append(out, fixed)
		}
	}
	return out
}

// normalizeOffset rewrites a trailing numeric offset without a colon into
// colon form: "+0530" → "+05:30", "-08" → "-08:00". Returns false when the
// string has no such trailing offset.
func normalizeOffset(s string) (string, bool) {
	i := strings.LastIndexAny(s, "+-")
	// The sign must come after the time part, not be a date separator.
	if i < 10 {
		return "", false
	}
	tail := s[i+1:]
	switch {
	case len(tail) == 4 && allDigits(tail):
		return s[:i+1] + tail[:2] + ":" + tail[2:], true
	case len(tail) == 2 && allDigits(tail):
		return s + ":00", true
	}
	return "", false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsProActive reports whether a pro entitlement is currently live: the pro
// flag must be set, the expiry must parse, and the parsed instant must be
// strictly after now. An unparseable expiry means not active.
func IsProActive(pro bool, expiryRaw string, now time.Time) bool {
	if !pro {
		return false
	}
	expiry, ok := Parse(expiryRaw)
	if !ok {
		return false
	}
	return expiry.After(now)
}

// CanLike reports whether the user may send a like: active pro subscribers
// have no quota, everyone else spends from the remaining-likes counter.
func CanLike(pro bool, expiryRaw string, likesRemaining int, now time.Time) bool {
	return IsProActive(pro, expiryRaw, now) || likesRemaining > 0
}
