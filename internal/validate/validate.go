// Package validate holds the pure credential validators.
//
// These are advisory gates: the orchestrator must reject bad input here
// BEFORE making any network call. They do no I/O and never panic — every
// check is a plain boolean.
package validate

import "regexp"

// emailPattern is a deliberately conservative email grammar: a local part,
// "@", a dotted domain, and an alphabetic TLD of 2–64 letters. It rejects
// plenty of RFC-valid oddities (quoted local parts, IP-literal domains) on
// purpose — the identity backend would reject them anyway.
var emailPattern = regexp.MustCompile(
	`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,64}$`,
)

// Email reports whether s looks like a deliverable email address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Phone reports whether s contains a plausible phone number: after stripping
// every non-digit character (spaces, dashes, parentheses, a leading +), the
// digit count must be between 7 and 15 (E.164's upper bound).
func Phone(s string) bool {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// PasswordLength reports whether the password meets the minimum length of 6.
// Length is the only local policy — strength scoring belongs to the backend.
func PasswordLength(s string) bool {
	return len(s) >= 6
}
