package orchestrator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/janyojana/sahayak/internal/ai"
	"github.com/janyojana/sahayak/internal/catalog"
	"github.com/janyojana/sahayak/internal/profile"
	"github.com/janyojana/sahayak/internal/prompt"
)

const (
	goodReasoning = `{"reasoning": "Your occupation satisfies the occupations criterion.", "confidence_score": 82, "matched_criteria": ["occupation"], "gaps": []}`
	goodDocuments = `{"documents": ["Aadhaar card", "Income certificate"]}`
	goodSteps     = `{"steps": ["Register at https://example.gov.in", "Submit the printed form"]}`
)

// stubGenerator answers by scheme and prompt kind, derived from the prompt
// text itself.
type stubGenerator struct {
	mu        sync.Mutex
	calls     []stubCall
	respond   func(schemeID string, kind prompt.Kind) (string, error)
	delay     time.Duration
	active    atomic.Int64
	maxActive atomic.Int64
}

type stubCall struct {
	schemeID string
	kind     prompt.Kind
}

func newStub(respond func(schemeID string, kind prompt.Kind) (string, error)) *stubGenerator {
	if respond == nil {
		respond = func(string, prompt.Kind) (string, error) {
			return "", nil
		}
	}
	return &stubGenerator{respond: respond}
}

func defaultRespond(schemeID string, kind prompt.Kind) (string, error) {
	switch kind {
	case prompt.KindReasoning:
		return goodReasoning, nil
	case prompt.KindDocuments:
		return goodDocuments, nil
	default:
		return goodSteps, nil
	}
}

func (s *stubGenerator) Generate(ctx context.Context, payload string) (string, error) {
	current := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		peak := s.maxActive.Load()
		if current <= peak || s.maxActive.CompareAndSwap(peak, current) {
			break
		}
	}

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", &ai.Failure{Kind: ai.KindTimeout, CorrelationID: "stub"}
		case <-time.After(s.delay):
		}
	}

	call := stubCall{schemeID: schemeOf(payload), kind: kindOf(payload)}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	return s.respond(call.schemeID, call.kind)
}

func (s *stubGenerator) Model() string { return "stub-model" }

func (s *stubGenerator) callsFor(schemeID string, kind prompt.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, call := range s.calls {
		if call.schemeID == schemeID && call.kind == kind {
			count++
		}
	}
	return count
}

func kindOf(payload string) prompt.Kind {
	switch {
	case strings.Contains(payload, "confidence score"):
		return prompt.KindReasoning
	case strings.Contains(payload, "List the documents"):
		return prompt.KindDocuments
	default:
		return prompt.KindSteps
	}
}

func schemeOf(payload string) string {
	for _, id := range []string{"alpha", "beta", "gamma"} {
		if strings.Contains(payload, `"id": "`+id+`"`) {
			return id
		}
	}
	return ""
}

func wildcardCriteria() catalog.Criteria {
	return catalog.Criteria{
		States:          []string{catalog.Wildcard},
		IncomeRanges:    []string{catalog.Wildcard},
		EducationLevels: []string{catalog.Wildcard},
		Occupations:     []string{catalog.Wildcard},
		Categories:      []string{catalog.Wildcard},
	}
}

func testStore(t *testing.T, ids ...string) *catalog.Store {
	t.Helper()
	schemes := &catalog.Schemes{}
	for _, id := range ids {
		schemes.Items = append(schemes.Items, &catalog.Scheme{
			ID:          id,
			Name:        "Scheme " + id,
			Description: "test scheme",
			OfficialURL: "https://" + id + ".gov.in",
			Benefits:    []string{"benefit"},
			Eligibility: wildcardCriteria(),
		})
	}
	store, err := catalog.New(schemes, zap.NewNop())
	require.NoError(t, err)
	return store
}

func testProfile() profile.Profile {
	return profile.Profile{
		State:          "maharashtra",
		IncomeRange:    "50000-100000",
		EducationLevel: "graduate",
		Occupation:     "self-employed",
		Category:       "general",
		Language:       "en",
	}
}

func newService(store *catalog.Store, generator ai.Generator, cfg Config) *Service {
	return New(store, generator, cfg, zap.NewNop())
}

func TestDiscoverCompleted(t *testing.T) {
	stub := newStub(defaultRespond)
	service := newService(testStore(t, "alpha", "beta"), stub, Config{})

	outcome, err := service.Discover(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, outcome.Status)
	assert.Empty(t, outcome.Failures)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "alpha", outcome.Results[0].Scheme.ID)
	assert.Equal(t, "beta", outcome.Results[1].Scheme.ID)

	first := outcome.Results[0]
	assert.Equal(t, 82, first.Analysis.ConfidenceScore)
	assert.NotEmpty(t, first.Documents)
	assert.NotEmpty(t, first.Steps)
	assert.NotEmpty(t, outcome.RequestID)
	assert.NotEmpty(t, outcome.Message)
}

func TestDiscoverRejectsIncompleteProfile(t *testing.T) {
	stub := newStub(defaultRespond)
	service := newService(testStore(t, "alpha"), stub, Config{})

	p := testProfile()
	p.Occupation = ""

	_, err := service.Discover(context.Background(), p)
	require.ErrorIs(t, err, profile.ErrIncomplete)
	assert.Empty(t, stub.calls, "matcher and fan-out must not run for incomplete profiles")
}

func TestDiscoverNoMatches(t *testing.T) {
	criteria := wildcardCriteria()
	criteria.Occupations = []string{"farmer"}
	store, err := catalog.New(&catalog.Schemes{Items: []*catalog.Scheme{{
		ID:          "alpha",
		Name:        "Scheme alpha",
		Description: "test scheme",
		OfficialURL: "https://alpha.gov.in",
		Benefits:    []string{"benefit"},
		Eligibility: criteria,
	}}}, zap.NewNop())
	require.NoError(t, err)

	stub := newStub(defaultRespond)
	service := newService(store, stub, Config{})

	outcome, err := service.Discover(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, StatusNoMatches, outcome.Status)
	assert.NotEmpty(t, outcome.Message)
	assert.Empty(t, outcome.Results)
	assert.Empty(t, outcome.Failures)
	assert.Empty(t, stub.calls)
}

func TestDiscoverOmitsSchemeWithOutOfRangeScore(t *testing.T) {
	stub := newStub(func(schemeID string, kind prompt.Kind) (string, error) {
		if schemeID == "alpha" && kind == prompt.KindReasoning {
			return `{"reasoning": "ok", "confidence_score": 150}`, nil
		}
		return defaultRespond(schemeID, kind)
	})
	service := newService(testStore(t, "alpha", "beta"), stub, Config{})

	outcome, err := service.Discover(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, outcome.Status)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "beta", outcome.Results[0].Scheme.ID)

	require.NotEmpty(t, outcome.Failures)
	failure := outcome.Failures[0]
	assert.Equal(t, "alpha", failure.SchemeID)
	assert.Equal(t, string(prompt.KindReasoning), failure.PromptKind)
	assert.Equal(t, failureKindValidation, failure.Kind)

	// Malformed output gets exactly one repair retry.
	assert.Equal(t, 2, stub.callsFor("alpha", prompt.KindReasoning))
}

func TestDiscoverOmitsSchemeWithTimedOutSubCall(t *testing.T) {
	stub := newStub(func(schemeID string, kind prompt.Kind) (string, error) {
		if schemeID == "alpha" && kind == prompt.KindDocuments {
			return "", &ai.Failure{Kind: ai.KindTimeout, CorrelationID: "corr-1"}
		}
		return defaultRespond(schemeID, kind)
	})
	service := newService(testStore(t, "alpha", "beta"), stub, Config{})

	outcome, err := service.Discover(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, outcome.Status)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "beta", outcome.Results[0].Scheme.ID)

	require.Len(t, outcome.Failures, 1)
	failure := outcome.Failures[0]
	assert.Equal(t, "alpha", failure.SchemeID)
	assert.Equal(t, string(prompt.KindDocuments), failure.PromptKind)
	assert.Equal(t, string(ai.KindTimeout), failure.Kind)
	assert.Equal(t, "corr-1", failure.CorrelationID)

	// Sibling sub-calls of the failed scheme still ran to completion.
	assert.Equal(t, 1, stub.callsFor("alpha", prompt.KindReasoning))
	assert.Equal(t, 1, stub.callsFor("alpha", prompt.KindSteps))
}

func TestDiscoverFailsWhenEverySchemeFails(t *testing.T) {
	stub := newStub(func(string, prompt.Kind) (string, error) {
		return "", &ai.Failure{Kind: ai.KindTransient, CorrelationID: "corr"}
	})
	service := newService(testStore(t, "alpha", "beta"), stub, Config{})

	outcome, err := service.Discover(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Empty(t, outcome.Results)
	assert.NotEmpty(t, outcome.Failures)
}

func TestDiscoverPreservesMatcherOrderUnderRandomCompletion(t *testing.T) {
	delays := map[string]time.Duration{
		"alpha": 30 * time.Millisecond,
		"beta":  time.Millisecond,
		"gamma": 15 * time.Millisecond,
	}
	stub := newStub(func(schemeID string, kind prompt.Kind) (string, error) {
		time.Sleep(delays[schemeID])
		return defaultRespond(schemeID, kind)
	})
	service := newService(testStore(t, "alpha", "beta", "gamma"), stub, Config{})

	outcome, err := service.Discover(context.Background(), testProfile())
	require.NoError(t, err)

	require.Len(t, outcome.Results, 3)
	assert.Equal(t, "alpha", outcome.Results[0].Scheme.ID)
	assert.Equal(t, "beta", outcome.Results[1].Scheme.ID)
	assert.Equal(t, "gamma", outcome.Results[2].Scheme.ID)
}

func TestDiscoverRespectsConcurrencyCap(t *testing.T) {
	stub := newStub(defaultRespond)
	stub.delay = 10 * time.Millisecond

	service := newService(testStore(t, "alpha", "beta", "gamma"), stub, Config{Concurrency: 2})

	_, err := service.Discover(context.Background(), testProfile())
	require.NoError(t, err)

	assert.LessOrEqual(t, stub.maxActive.Load(), int64(2))
}

func TestDiscoverDeadlineYieldsPartialOutcome(t *testing.T) {
	stub := newStub(defaultRespond)
	stub.delay = 200 * time.Millisecond

	service := newService(testStore(t, "alpha"), stub, Config{RequestTimeout: 30 * time.Millisecond})

	start := time.Now()
	outcome, err := service.Discover(context.Background(), testProfile())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second, "deadline expiry must not block")
	assert.Equal(t, StatusFailed, outcome.Status)
	require.NotEmpty(t, outcome.Failures)
	assert.Equal(t, string(ai.KindTimeout), outcome.Failures[0].Kind)
}

func TestDiscoverLocalizedMessages(t *testing.T) {
	stub := newStub(defaultRespond)
	service := newService(testStore(t, "alpha"), stub, Config{})

	p := testProfile()
	p.Language = "hi"

	outcome, err := service.Discover(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, messages["hi"][outcome.Status], outcome.Message)
	assert.NotEqual(t, messages["en"][outcome.Status], outcome.Message)
}
