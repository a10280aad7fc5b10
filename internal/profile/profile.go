// Package profile holds the per-request description of a user's socio-economic
// situation. Profiles are built from validated external input, live for one
// request and are never persisted or logged as free text.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	LanguageEnglish = "en"
	LanguageHindi   = "hi"
)

// ErrIncomplete signals a caller-side precondition violation: a profile with
// missing attributes must never reach the matcher.
var ErrIncomplete = errors.New("profile is incomplete")

// Profile is the five-attribute categorical description plus language
// preference. All attribute values are categorical tokens, compared
// case-insensitively against catalog criteria.
type Profile struct {
	State          string `json:"state" validate:"required"`
	IncomeRange    string `json:"income_range" validate:"required"`
	EducationLevel string `json:"education_level" validate:"required"`
	Occupation     string `json:"occupation" validate:"required"`
	Category       string `json:"category" validate:"required"`
	Language       string `json:"language" validate:"required,oneof=en hi"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Complete validates the profile invariant: all five categorical fields
// non-empty and a supported language. The returned error wraps ErrIncomplete.
func (p Profile) Complete() error {
	if err := validate.Struct(p.normalized()); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return fmt.Errorf("%w: invalid field %q", ErrIncomplete, fields[0].Field())
		}
		return fmt.Errorf("%w: %w", ErrIncomplete, err)
	}
	return nil
}

// Normalized returns a copy with trimmed, lower-cased categorical tokens.
func (p Profile) Normalized() Profile {
	return p.normalized()
}

func (p Profile) normalized() Profile {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return Profile{
		State:          norm(p.State),
		IncomeRange:    norm(p.IncomeRange),
		EducationLevel: norm(p.EducationLevel),
		Occupation:     norm(p.Occupation),
		Category:       norm(p.Category),
		Language:       norm(p.Language),
	}
}

// LanguageName returns the human name of the profile language for prompt
// construction.
func (p Profile) LanguageName() string {
	if strings.EqualFold(p.Language, LanguageHindi) {
		return "Hindi"
	}
	return "English"
}
