package catalog

import "strings"

// Wildcard is the criterion sentinel matching any profile value.
const Wildcard = "any"

// Criteria holds the allowed categorical values for each profile attribute.
// A set containing the wildcard sentinel accepts every value.
type Criteria struct {
	States          []string `json:"states"`
	IncomeRanges    []string `json:"income_ranges"`
	EducationLevels []string `json:"education_levels"`
	Occupations     []string `json:"occupations"`
	Categories      []string `json:"categories"`
}

// Scheme is a single immutable catalog record describing a government program.
type Scheme struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Eligibility Criteria `json:"eligibility"`
	OfficialURL string   `json:"official_url"`
	Benefits    []string `json:"benefits"`
}

// Schemes is an ordered collection of catalog records.
type Schemes struct {
	Items []*Scheme
}

func (s *Schemes) Len() int {
	return len(s.Items)
}

func (s *Schemes) FindByID(id string) *Scheme {
	for _, scheme := range s.Items {
		if scheme.ID == id {
			return scheme
		}
	}
	return nil
}

func (s *Schemes) IDs() []string {
	ids := make([]string, 0, len(s.Items))
	for _, scheme := range s.Items {
		ids = append(ids, scheme.ID)
	}
	return ids
}

// Allows reports whether the criterion set accepts the given value. The check
// is categorical: wildcard or case-insensitive exact membership, no fuzzy
// matching.
func Allows(set []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, allowed := range set {
		if strings.EqualFold(allowed, Wildcard) || strings.EqualFold(allowed, value) {
			return true
		}
	}
	return false
}
