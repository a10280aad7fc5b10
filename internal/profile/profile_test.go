package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() Profile {
	return Profile{
		State:          "Maharashtra",
		IncomeRange:    "50000-100000",
		EducationLevel: "graduate",
		Occupation:     "self-employed",
		Category:       "general",
		Language:       "en",
	}
}

func TestCompleteAcceptsValidProfile(t *testing.T) {
	require.NoError(t, validProfile().Complete())
}

func TestCompleteRejectsMissingAttributes(t *testing.T) {
	mutations := map[string]func(*Profile){
		"state":      func(p *Profile) { p.State = "" },
		"income":     func(p *Profile) { p.IncomeRange = "  " },
		"education":  func(p *Profile) { p.EducationLevel = "" },
		"occupation": func(p *Profile) { p.Occupation = "" },
		"category":   func(p *Profile) { p.Category = "" },
		"language":   func(p *Profile) { p.Language = "" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := validProfile()
			mutate(&p)
			require.ErrorIs(t, p.Complete(), ErrIncomplete)
		})
	}
}

func TestCompleteRejectsUnsupportedLanguage(t *testing.T) {
	p := validProfile()
	p.Language = "fr"
	require.ErrorIs(t, p.Complete(), ErrIncomplete)
}

func TestNormalized(t *testing.T) {
	p := Profile{
		State:          "  Maharashtra ",
		IncomeRange:    "50000-100000",
		EducationLevel: "Graduate",
		Occupation:     "Self-Employed",
		Category:       "GENERAL",
		Language:       "EN",
	}

	norm := p.Normalized()
	assert.Equal(t, "maharashtra", norm.State)
	assert.Equal(t, "graduate", norm.EducationLevel)
	assert.Equal(t, "self-employed", norm.Occupation)
	assert.Equal(t, "general", norm.Category)
	assert.Equal(t, "en", norm.Language)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "English", Profile{Language: "en"}.LanguageName())
	assert.Equal(t, "Hindi", Profile{Language: "hi"}.LanguageName())
	assert.Equal(t, "Hindi", Profile{Language: "HI"}.LanguageName())
}
