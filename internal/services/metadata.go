package services

import "regexp"

var (
	namePattern  = regexp.MustCompile(`\b([A-Z][a-z]+)\s([A-Z][a-z]+)\b`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// NoNameFound is what ExtractName returns when nothing matches. Clients
// compare against a single space, so it is not the empty string.
const NoNameFound = " "

// ExtractName returns the first pair of consecutive capitalized words.
func ExtractName(text string) string {
	if match := namePattern.FindString(text); match != "" {
		return match
	}
	return NoNameFound
}

// ExtractEmail returns the first email-shaped substring, or "".
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}
