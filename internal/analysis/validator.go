// Package analysis parses raw reasoning-provider output into typed results and
// enforces the semantic contract: bounded scores, non-empty structured lists,
// actionable references. Malformed output becomes a typed ValidationError,
// never a silently repaired value.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Eligibility is the validated reasoning result for one scheme.
type Eligibility struct {
	Reasoning       string
	ConfidenceScore int
	MatchedCriteria []string
	Gaps            []string
}

// ValidationError is the typed failure returned when upstream output does not
// satisfy the expected shape. It is reported to the orchestrator for
// per-scheme handling, never thrown as an opaque fault.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

type eligibilityPayload struct {
	Reasoning       string   `mapstructure:"reasoning"`
	ConfidenceScore float64  `mapstructure:"confidence_score"`
	MatchedCriteria []string `mapstructure:"matched_criteria"`
	Gaps            []string `mapstructure:"gaps"`
}

type documentsPayload struct {
	Documents []string `mapstructure:"documents"`
}

type stepsPayload struct {
	Steps []string `mapstructure:"steps"`
}

// ParseEligibility validates the reasoning response. The confidence score must
// be an integer in [0,100]; out-of-range scores are rejected rather than
// clamped, since clamping would fabricate a certainty the model never stated.
func ParseEligibility(raw string) (*Eligibility, error) {
	var payload eligibilityPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}

	reasoning := strings.TrimSpace(payload.Reasoning)
	if reasoning == "" {
		return nil, &ValidationError{Field: "reasoning", Reason: "empty"}
	}

	score := payload.ConfidenceScore
	if score != math.Trunc(score) {
		return nil, &ValidationError{Field: "confidence_score", Reason: "not an integer"}
	}
	if score < 0 || score > 100 {
		return nil, &ValidationError{
			Field:  "confidence_score",
			Reason: fmt.Sprintf("out of range: %v", score),
		}
	}

	return &Eligibility{
		Reasoning:       reasoning,
		ConfidenceScore: int(score),
		MatchedCriteria: cleanList(payload.MatchedCriteria),
		Gaps:            cleanList(payload.Gaps),
	}, nil
}

// ParseDocuments validates the document checklist response.
func ParseDocuments(raw string) ([]string, error) {
	var payload documentsPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}

	documents := cleanList(payload.Documents)
	if len(documents) == 0 {
		return nil, &ValidationError{Field: "documents", Reason: "empty list"}
	}
	return documents, nil
}

// ParseSteps validates the application steps response. At least one step must
// carry an actionable reference: a URL, phone number or email address.
func ParseSteps(raw string) ([]string, error) {
	var payload stepsPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}

	steps := cleanList(payload.Steps)
	if len(steps) == 0 {
		return nil, &ValidationError{Field: "steps", Reason: "empty list"}
	}

	actionable := false
	for _, step := range steps {
		if HasActionableReference(step) {
			actionable = true
			break
		}
	}
	if !actionable {
		return nil, &ValidationError{Field: "steps", Reason: "no URL or contact reference"}
	}

	return steps, nil
}

// decode strips markdown fences, parses the JSON object and decodes the loose
// map into the typed payload. Weak typing tolerates numbers delivered as
// strings, which some models produce.
func decode(raw string, target any) error {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return &ValidationError{Field: "response", Reason: "empty"}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return &ValidationError{Field: "response", Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build payload decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return &ValidationError{Field: "response", Reason: fmt.Sprintf("unexpected shape: %v", err)}
	}

	return nil
}

// ExtractJSON strips markdown code fences the model may wrap around its
// output.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func cleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return cleaned
}
