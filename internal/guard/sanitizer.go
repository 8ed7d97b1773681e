// Package guard validates raw user input before it reaches the prompt
// builder. Matching input is rejected outright, never silently stripped.
package guard

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInjectionDetected is returned when the input matches an injection rule.
var ErrInjectionDetected = errors.New("input matches an injection pattern")

// TooLongError reports the trimmed length that exceeded the cap.
type TooLongError struct {
	Length int
	Max    int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("content is %d characters, maximum %d allowed", e.Length, e.Max)
}

// Sanitizer applies the injection rules and the length cap.
type Sanitizer struct {
	rules     []Rule
	maxLength int
}

// NewSanitizer creates a sanitizer with the default rules. A non-positive
// maxLength falls back to 5000 characters.
func NewSanitizer(maxLength int) *Sanitizer {
	if maxLength <= 0 {
		maxLength = 5000
	}
	return &Sanitizer{rules: DefaultRules(), maxLength: maxLength}
}

// MaxLength returns the configured character cap.
func (s *Sanitizer) MaxLength() int { return s.maxLength }

// Match returns the first rule the text matches, if any.
func (s *Sanitizer) Match(text string) (Rule, bool) {
	for _, r := range s.rules {
		if r.Regex.MatchString(text) {
			return r, true
		}
	}
	return Rule{}, false
}

// Sanitize trims the input, rejects it on any injection rule match or when
// the trimmed length exceeds the cap, and otherwise returns it capped at the
// maximum length. Empty input is the caller's responsibility to reject.
func (s *Sanitizer) Sanitize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if r, ok := s.Match(trimmed); ok {
		return "", fmt.Errorf("%w: rule %s (%s)", ErrInjectionDetected, r.Name, r.Category)
	}

	if n := utf8.RuneCountInString(trimmed); n > s.maxLength {
		return "", &TooLongError{Length: n, Max: s.maxLength}
	}

	// Unreachable once the length check passed; kept as a safety net only.
	return truncate(trimmed, s.maxLength), nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
