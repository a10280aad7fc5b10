// Package prompt builds the structured prompts sent to the reasoning provider.
// Prompts are pure data: building one has no side effects and raw profile
// attributes embedded in a prompt are never retained beyond the call.
package prompt

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/janyojana/sahayak/internal/catalog"
	"github.com/janyojana/sahayak/internal/profile"
)

// Kind selects one of the three prompt payloads built per matched scheme.
type Kind string

const (
	KindReasoning Kind = "reasoning"
	KindDocuments Kind = "documents"
	KindSteps     Kind = "steps"
)

// Kinds lists every prompt kind in the order sub-calls are scheduled.
var Kinds = []Kind{KindReasoning, KindDocuments, KindSteps}

//go:embed templates/reasoning.md
var reasoningTemplate string

//go:embed templates/documents.md
var documentsTemplate string

//go:embed templates/steps.md
var stepsTemplate string

// Build renders the prompt of the given kind for one scheme and profile.
// exactMatches is the number of non-wildcard criteria the profile satisfies;
// the reasoning template uses it to anchor the confidence score.
func Build(kind Kind, scheme *catalog.Scheme, p profile.Profile, exactMatches int) (string, error) {
	if scheme == nil {
		return "", fmt.Errorf("scheme is required")
	}

	var template string
	switch kind {
	case KindReasoning:
		template = reasoningTemplate
	case KindDocuments:
		template = documentsTemplate
	case KindSteps:
		template = stepsTemplate
	default:
		return "", fmt.Errorf("unknown prompt kind %q", kind)
	}

	schemeJSON, err := json.MarshalIndent(scheme, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal scheme payload: %w", err)
	}

	p = p.Normalized()
	profileJSON, err := json.MarshalIndent(map[string]string{
		"state":           p.State,
		"income_range":    p.IncomeRange,
		"education_level": p.EducationLevel,
		"occupation":      p.Occupation,
		"category":        p.Category,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile payload: %w", err)
	}

	out := strings.ReplaceAll(template, "{{SCHEME_JSON}}", string(schemeJSON))
	out = strings.ReplaceAll(out, "{{PROFILE_JSON}}", string(profileJSON))
	out = strings.ReplaceAll(out, "{{LANGUAGE_NAME}}", p.LanguageName())
	out = strings.ReplaceAll(out, "{{EXACT_MATCHES}}", strconv.Itoa(exactMatches))

	return out, nil
}
