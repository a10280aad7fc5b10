package analysis

import (
	"unicode"

	"github.com/janyojana/sahayak/internal/profile"
)

// MatchesLanguage is a best-effort script plausibility check for the requested
// language. Hindi output should carry Devanagari; English output should be
// dominated by Latin letters. The check informs a log warning only; language
// fidelity of the upstream model is not fully verifiable from text, so a miss
// never blocks a result.
func MatchesLanguage(text, language string) bool {
	var latin, devanagari, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch {
		case unicode.In(r, unicode.Devanagari):
			devanagari++
		case unicode.In(r, unicode.Latin):
			latin++
		}
	}

	if letters == 0 {
		return false
	}

	if language == profile.LanguageHindi {
		// Hindi answers routinely keep scheme names and URLs in Latin script;
		// any meaningful Devanagari presence is enough.
		return devanagari*10 >= letters
	}
	return latin*2 >= letters
}
