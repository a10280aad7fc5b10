// Package matcher implements the pure eligibility matching step: a profile
// against the scheme catalog, no side effects, no AI involved.
package matcher

import (
	"github.com/janyojana/sahayak/internal/catalog"
	"github.com/janyojana/sahayak/internal/profile"
)

// Match returns the schemes whose five criteria sets all accept the profile's
// corresponding attributes. Callers must validate profile completeness first;
// an incomplete profile here is a programming error, not a runtime condition.
//
// Output preserves catalog order and an empty result is a valid outcome.
func Match(p profile.Profile, schemes *catalog.Schemes) []*catalog.Scheme {
	p = p.Normalized()

	matched := make([]*catalog.Scheme, 0, schemes.Len())
	for _, scheme := range schemes.Items {
		if Satisfies(p, scheme) {
			matched = append(matched, scheme)
		}
	}
	return matched
}

// Satisfies reports whether every criterion of the scheme accepts the profile.
// Each criterion matches iff its set contains the wildcard or the exact
// attribute value.
func Satisfies(p profile.Profile, scheme *catalog.Scheme) bool {
	c := scheme.Eligibility
	return catalog.Allows(c.States, p.State) &&
		catalog.Allows(c.IncomeRanges, p.IncomeRange) &&
		catalog.Allows(c.EducationLevels, p.EducationLevel) &&
		catalog.Allows(c.Occupations, p.Occupation) &&
		catalog.Allows(c.Categories, p.Category)
}

// ExactMatches counts the criteria the profile satisfies by exact value rather
// than by wildcard. The count feeds the reasoning prompt so confidence scores
// track how tightly a profile fits a scheme.
func ExactMatches(p profile.Profile, scheme *catalog.Scheme) int {
	p = p.Normalized()
	c := scheme.Eligibility

	count := 0
	pairs := []struct {
		set   []string
		value string
	}{
		{c.States, p.State},
		{c.IncomeRanges, p.IncomeRange},
		{c.EducationLevels, p.EducationLevel},
		{c.Occupations, p.Occupation},
		{c.Categories, p.Category},
	}
	for _, pair := range pairs {
		if exactMember(pair.set, pair.value) {
			count++
		}
	}
	return count
}

func exactMember(set []string, value string) bool {
	for _, allowed := range set {
		if allowed == catalog.Wildcard {
			continue
		}
		if catalog.Allows([]string{allowed}, value) {
			return true
		}
	}
	return false
}
