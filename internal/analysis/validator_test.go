package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEligibility(t *testing.T) {
	raw := `{"reasoning": "Occupation farmer satisfies the occupations criterion.", "confidence_score": 82, "matched_criteria": ["occupation"], "gaps": ["verify land records"]}`

	result, err := ParseEligibility(raw)
	require.NoError(t, err)
	assert.Equal(t, 82, result.ConfidenceScore)
	assert.Contains(t, result.Reasoning, "farmer")
	assert.Equal(t, []string{"occupation"}, result.MatchedCriteria)
	assert.Equal(t, []string{"verify land records"}, result.Gaps)
}

func TestParseEligibilityStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"reasoning\": \"ok\", \"confidence_score\": 50}\n```"

	result, err := ParseEligibility(raw)
	require.NoError(t, err)
	assert.Equal(t, 50, result.ConfidenceScore)
}

func TestParseEligibilityAcceptsNumericString(t *testing.T) {
	result, err := ParseEligibility(`{"reasoning": "ok", "confidence_score": "85"}`)
	require.NoError(t, err)
	assert.Equal(t, 85, result.ConfidenceScore)
}

func TestParseEligibilityRejectsOutOfRangeScore(t *testing.T) {
	for _, raw := range []string{
		`{"reasoning": "ok", "confidence_score": 150}`,
		`{"reasoning": "ok", "confidence_score": -5}`,
		`{"reasoning": "ok", "confidence_score": 101}`,
	} {
		_, err := ParseEligibility(raw)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation, "raw: %s", raw)
		assert.Equal(t, "confidence_score", validation.Field)
	}
}

func TestParseEligibilityRejectsFractionalScore(t *testing.T) {
	_, err := ParseEligibility(`{"reasoning": "ok", "confidence_score": 85.5}`)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "confidence_score", validation.Field)
}

func TestParseEligibilityRejectsEmptyReasoning(t *testing.T) {
	_, err := ParseEligibility(`{"reasoning": "  ", "confidence_score": 80}`)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "reasoning", validation.Field)
}

func TestParseEligibilityRejectsNonJSON(t *testing.T) {
	_, err := ParseEligibility("I think the applicant qualifies.")

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestParseDocuments(t *testing.T) {
	documents, err := ParseDocuments(`{"documents": ["Aadhaar card", " Income certificate ", ""]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aadhaar card", "Income certificate"}, documents)
}

func TestParseDocumentsRejectsEmptyList(t *testing.T) {
	for _, raw := range []string{
		`{"documents": []}`,
		`{"documents": ["", "  "]}`,
		`{}`,
	} {
		_, err := ParseDocuments(raw)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation, "raw: %s", raw)
	}
}

func TestParseSteps(t *testing.T) {
	steps, err := ParseSteps(`{"steps": ["Register at https://pmkisan.gov.in", "Submit the form at your CSC"]}`)
	require.NoError(t, err)
	require.Len(t, steps, 2)
}

func TestParseStepsAcceptsHelplineAsReference(t *testing.T) {
	steps, err := ParseSteps(`{"steps": ["Call the helpline 1800-11-0001", "Visit the nearest office"]}`)
	require.NoError(t, err)
	require.Len(t, steps, 2)
}

func TestParseStepsRequiresActionableReference(t *testing.T) {
	_, err := ParseSteps(`{"steps": ["Fill the form", "Wait for approval"]}`)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "steps", validation.Field)
}

func TestHasActionableReference(t *testing.T) {
	assert.True(t, HasActionableReference("apply at https://scholarships.gov.in"))
	assert.True(t, HasActionableReference("see www.mudra.org.in for details"))
	assert.True(t, HasActionableReference("write to support@pmjay.gov.in"))
	assert.True(t, HasActionableReference("call 1800-11-0001 for help"))
	assert.True(t, HasActionableReference("हेल्पलाइन 155261 पर कॉल करें"))
	assert.False(t, HasActionableReference("visit the nearest bank branch"))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, ExtractJSON("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, ExtractJSON("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, ExtractJSON(`{"a": 1}`))
	assert.Equal(t, "", ExtractJSON("   "))
}

func TestMatchesLanguage(t *testing.T) {
	hindi := "आप इस योजना के लिए पात्र हैं क्योंकि आप किसान हैं। देखें https://pmkisan.gov.in"
	english := "You are eligible because your occupation is farmer."

	assert.True(t, MatchesLanguage(hindi, "hi"))
	assert.True(t, MatchesLanguage(english, "en"))
	assert.False(t, MatchesLanguage(english, "hi"))
	assert.False(t, MatchesLanguage(hindi, "en"))
	assert.False(t, MatchesLanguage("12345", "en"))
}
