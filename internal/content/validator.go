// Package content validates and sanitizes guestbook message text.
package content

import (
	"strings"
	"unicode"
)

// Constraints configures a single validation pass. Root messages and
// replies carry different MaxLength budgets.
type Constraints struct {
	MaxLength      int
	MinLength      int
	AllowLinks     bool
	AllowProfanity bool
}

// ReasonCode identifies one violated rule.
type ReasonCode string

const (
	ReasonTooShort       ReasonCode = "TOO_SHORT"
	ReasonTooLong        ReasonCode = "TOO_LONG"
	ReasonLinkNotAllowed ReasonCode = "LINK_NOT_ALLOWED"
	ReasonProfanity      ReasonCode = "PROFANITY"
)

var linkMarkers = []string{"http://", "https://", "www."}

var profanityList = []string{
	"asshole",
	"bastard",
	"bitch",
	"fuck",
	"shit",
}

// Validate sanitizes text and reports every violated rule in a stable
// order. An empty reason slice means the text is accepted. Validate has
// no side effects.
func Validate(text string, c Constraints) (string, []ReasonCode) {
	sanitized := Sanitize(text)

	var reasons []ReasonCode

	length := len([]rune(sanitized))
	// Whitespace-only input fails the minimum regardless of configuration.
	if sanitized == "" || length < c.MinLength {
		reasons = append(reasons, ReasonTooShort)
	}
	if c.MaxLength > 0 && length > c.MaxLength {
		reasons = append(reasons, ReasonTooLong)
	}
	if !c.AllowLinks && containsLink(sanitized) {
		reasons = append(reasons, ReasonLinkNotAllowed)
	}
	if !c.AllowProfanity && containsProfanity(sanitized) {
		reasons = append(reasons, ReasonProfanity)
	}

	return sanitized, reasons
}

// Sanitize trims surrounding whitespace and strips control characters,
// keeping newlines.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func containsLink(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range linkMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func containsProfanity(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range profanityList {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
