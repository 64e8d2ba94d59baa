package onboarding

import (
	"errors"
	"strings"
)

// ErrIncompletePreferences means the reply lacked a language or a state value
var ErrIncompletePreferences = errors.New("incomplete preferences")

// Preferences are the two fields captured during onboarding
type Preferences struct {
	Language string
	State    string
}

// HasPreferenceTokens reports whether body looks like a preferences reply
func HasPreferenceTokens(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "language:") && strings.Contains(lower, "state:")
}

// ParsePreferences extracts "Language: X" and "State: Y" lines. Any line
// mentioning language or state sets that field to the text after its first
// colon; later lines win. Both values must end up non-empty.
func ParsePreferences(body string) (Preferences, error) {
	var prefs Preferences

	for _, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "language") {
			prefs.Language = afterColon(line)
		}
		if strings.Contains(lower, "state") {
			prefs.State = afterColon(line)
		}
	}

	if prefs.Language == "" || prefs.State == "" {
		return prefs, ErrIncompletePreferences
	}
	return prefs, nil
}

func afterColon(line string) string {
	_, value, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(value)
}
