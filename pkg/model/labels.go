package model

import (
	"regexp"
	"strings"
)

var wordSeparators = regexp.MustCompile(`[_\-\s.]+`)

// Humanize converts a field name into a display label, splitting on
// separators and camelCase boundaries: `contactEmail` -> `Contact Email`,
// `vehicles.0.vin` -> `Vehicles 0 Vin`.
func Humanize(name string) string {
	if name == "" {
		return ""
	}

	var words []string
	for _, chunk := range wordSeparators.Split(name, -1) {
		if chunk == "" {
			continue
		}
		for _, word := range strings.Fields(splitCamel(chunk)) {
			words = append(words, capitalize(word))
		}
	}
	return strings.Join(words, " ")
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isWordBoundary(input[i-1], r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isWordBoundary(prev byte, r rune) bool {
	p := rune(prev)
	return (isLower(p) && isUpper(r)) || (isLetter(p) && isDigit(r)) || (isDigit(p) && isLetter(r))
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

func capitalize(word string) string {
	if word == "" {
		return ""
	}
	// keep acronyms such as EIFS or VIN intact
	if strings.ToUpper(word) == word {
		return word
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
