package analysis

import "regexp"

var (
	urlPattern   = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	emailPattern = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.-]+\b`)
	// Helpline numbers like 1800-11-0001, 155261 or +91 11 2338 xxxx.
	phonePattern = regexp.MustCompile(`(\+?\d[\d\s-]{5,}\d)`)
)

// HasActionableReference reports whether the text contains a URL, an email
// address or a phone/helpline number.
func HasActionableReference(text string) bool {
	return urlPattern.MatchString(text) ||
		emailPattern.MatchString(text) ||
		phonePattern.MatchString(text)
}
