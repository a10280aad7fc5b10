// Package orchestrator coordinates one discovery request: eligibility
// matching, bounded concurrent fan-out of the three AI calls per matched
// scheme, validation, and matcher-ordered aggregation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/janyojana/sahayak/internal/ai"
	"github.com/janyojana/sahayak/internal/analysis"
	"github.com/janyojana/sahayak/internal/catalog"
	"github.com/janyojana/sahayak/internal/logger"
	"github.com/janyojana/sahayak/internal/matcher"
	"github.com/janyojana/sahayak/internal/profile"
	"github.com/janyojana/sahayak/internal/prompt"
)

const (
	defaultConcurrency     = 8
	defaultRequestTimeout  = 10 * time.Second
	defaultMatchingTimeout = 5 * time.Second

	// A failed validation is re-invoked once, but only when this much of the
	// request budget remains.
	validationRetryHeadroom = 2 * time.Second
)

// failureKindValidation classifies malformed upstream output in audit records,
// alongside the ai.Kind values.
const failureKindValidation = "validation"

type phase string

const (
	phaseMatching    phase = "matching"
	phaseFanningOut  phase = "fanning_out"
	phaseAggregating phase = "aggregating"
	phaseCompleted   phase = "completed"
	phaseFailed      phase = "failed"
)

// Config tunes per-request budgets and the process-wide outbound call cap.
type Config struct {
	Concurrency     int64
	RequestTimeout  time.Duration
	MatchingTimeout time.Duration
}

// Service implements the discoverSchemes operation. One Service is shared by
// all requests of the process; the admission gate bounding outbound AI calls
// is its only mutable state.
type Service struct {
	store           *catalog.Store
	generator       ai.Generator
	gate            *semaphore.Weighted
	logger          *zap.Logger
	requestTimeout  time.Duration
	matchingTimeout time.Duration
}

func New(store *catalog.Store, generator ai.Generator, cfg Config, log *zap.Logger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MatchingTimeout <= 0 {
		cfg.MatchingTimeout = defaultMatchingTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		store:           store,
		generator:       generator,
		gate:            semaphore.NewWeighted(cfg.Concurrency),
		logger:          log,
		requestTimeout:  cfg.RequestTimeout,
		matchingTimeout: cfg.MatchingTimeout,
	}
}

// schemeSlot collects the three sub-results of one matched scheme. Each field
// is written by exactly one goroutine; failures are shared and locked.
type schemeSlot struct {
	scheme    *catalog.Scheme
	analysis  *analysis.Eligibility
	documents []string
	steps     []string

	mu       sync.Mutex
	failures []SchemeFailure
}

func (slot *schemeSlot) fail(kind prompt.Kind, classification, corrID string) {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.failures = append(slot.failures, SchemeFailure{
		SchemeID:      slot.scheme.ID,
		PromptKind:    string(kind),
		Kind:          classification,
		CorrelationID: corrID,
	})
}

func (slot *schemeSlot) complete() bool {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return len(slot.failures) == 0 &&
		slot.analysis != nil && len(slot.documents) > 0 && len(slot.steps) > 0
}

// Discover runs the full pipeline for one validated profile. An incomplete
// profile or an unavailable catalog returns an error; everything downstream is
// reported through the Outcome.
func (s *Service) Discover(ctx context.Context, p profile.Profile) (*Outcome, error) {
	requestID := uuid.NewString()
	log := s.logger.With(zap.String(logger.FieldRequestID, requestID))

	if err := p.Complete(); err != nil {
		return nil, fmt.Errorf("rejecting request: %w", err)
	}
	p = p.Normalized()

	schemes := s.store.Snapshot()
	if schemes == nil || schemes.Len() == 0 {
		return nil, catalog.ErrUnavailable
	}

	s.transition(log, phaseMatching)
	matchStart := time.Now()
	matched := matcher.Match(p, schemes)
	matchLatency := time.Since(matchStart)

	log.Info("eligibility matching finished",
		zap.Int("catalog_size", schemes.Len()),
		zap.Int("matched", len(matched)),
		zap.Duration("latency", matchLatency),
	)
	if matchLatency > s.matchingTimeout {
		log.Warn("matching exceeded its ceiling", zap.Duration("ceiling", s.matchingTimeout))
	}

	if len(matched) == 0 {
		s.transition(log, phaseCompleted)
		return &Outcome{
			RequestID: requestID,
			Status:    StatusNoMatches,
			Message:   messageFor(p.Language, StatusNoMatches),
			Results:   []*SchemeResult{},
		}, nil
	}

	s.transition(log, phaseFanningOut)
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	slots := make([]*schemeSlot, len(matched))
	var group errgroup.Group
	for i, scheme := range matched {
		slot := &schemeSlot{scheme: scheme}
		slots[i] = slot

		group.Go(func() error {
			s.analyzeScheme(ctx, log, p, slot)
			return nil
		})
	}
	// Sub-call failures are collected per slot; the group never errors.
	_ = group.Wait()

	s.transition(log, phaseAggregating)
	outcome := s.aggregate(requestID, p, slots, ctx.Err() != nil)

	if outcome.Status == StatusFailed {
		s.transition(log, phaseFailed)
	} else {
		s.transition(log, phaseCompleted)
	}

	log.Info("discovery finished",
		zap.String("status", string(outcome.Status)),
		zap.Int("results", len(outcome.Results)),
		zap.Int("failures", len(outcome.Failures)),
	)

	return outcome, nil
}

// analyzeScheme schedules the three prompt kinds for one scheme. All three
// sub-calls finish (with a result or a classified failure) before the scheme
// is aggregated; a failing sub-call never aborts its siblings.
func (s *Service) analyzeScheme(ctx context.Context, log *zap.Logger, p profile.Profile, slot *schemeSlot) {
	exact := matcher.ExactMatches(p, slot.scheme)

	var group errgroup.Group
	for _, kind := range prompt.Kinds {
		group.Go(func() error {
			s.runSubCall(ctx, log, p, slot, kind, exact)
			return nil
		})
	}
	_ = group.Wait()
}

func (s *Service) runSubCall(ctx context.Context, log *zap.Logger, p profile.Profile, slot *schemeSlot, kind prompt.Kind, exact int) {
	payload, err := prompt.Build(kind, slot.scheme, p, exact)
	if err != nil {
		slot.fail(kind, failureKindValidation, "")
		log.Error("prompt build failed", append(
			logger.AttemptFields("", slot.scheme.ID, string(kind)), zap.Error(err))...)
		return
	}

	raw, err := s.generate(ctx, log, slot, kind, payload)
	if err != nil {
		return
	}

	if parseErr := s.parseInto(p, slot, kind, raw, log); parseErr != nil {
		// One bounded retry on malformed output, sharing the request budget:
		// regenerating against a non-deterministic model may repair the shape.
		if !s.retryHeadroom(ctx) {
			s.recordValidationFailure(log, slot, kind, parseErr)
			return
		}

		log.Debug("retrying after validation failure",
			logger.AttemptFields("", slot.scheme.ID, string(kind))...)

		raw, err = s.generate(ctx, log, slot, kind, payload)
		if err != nil {
			return
		}
		if parseErr = s.parseInto(p, slot, kind, raw, log); parseErr != nil {
			s.recordValidationFailure(log, slot, kind, parseErr)
		}
	}
}

// generate performs one admission-gated call to the reasoning provider and
// records classified failures on the slot.
func (s *Service) generate(ctx context.Context, log *zap.Logger, slot *schemeSlot, kind prompt.Kind, payload string) (string, error) {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		classification := ai.KindCanceled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			classification = ai.KindTimeout
		}
		slot.fail(kind, string(classification), "")
		return "", err
	}
	defer s.gate.Release(1)

	start := time.Now()
	raw, err := s.generator.Generate(ctx, payload)
	latency := time.Since(start)

	if err != nil {
		classification := ai.ClassifyError(err)
		corrID := ""
		var failure *ai.Failure
		if errors.As(err, &failure) {
			corrID = failure.CorrelationID
		}

		slot.fail(kind, string(classification), corrID)
		log.Warn("reasoning call failed", append(
			logger.AttemptFields(corrID, slot.scheme.ID, string(kind)),
			zap.String("outcome", string(classification)),
			zap.Duration("latency", latency),
		)...)
		return "", err
	}

	log.Debug("reasoning call succeeded", append(
		logger.AttemptFields("", slot.scheme.ID, string(kind)),
		zap.Duration("latency", latency),
	)...)
	return raw, nil
}

// parseInto validates the raw response for the kind and stores the typed
// result on the slot. The language conformance check warns but never fails.
func (s *Service) parseInto(p profile.Profile, slot *schemeSlot, kind prompt.Kind, raw string, log *zap.Logger) error {
	switch kind {
	case prompt.KindReasoning:
		eligibility, err := analysis.ParseEligibility(raw)
		if err != nil {
			return err
		}
		s.checkLanguage(log, slot, kind, eligibility.Reasoning, p.Language)
		slot.analysis = eligibility
	case prompt.KindDocuments:
		documents, err := analysis.ParseDocuments(raw)
		if err != nil {
			return err
		}
		s.checkLanguage(log, slot, kind, strings.Join(documents, " "), p.Language)
		slot.documents = documents
	case prompt.KindSteps:
		steps, err := analysis.ParseSteps(raw)
		if err != nil {
			return err
		}
		s.checkLanguage(log, slot, kind, strings.Join(steps, " "), p.Language)
		slot.steps = steps
	}
	return nil
}

func (s *Service) checkLanguage(log *zap.Logger, slot *schemeSlot, kind prompt.Kind, text, language string) {
	if !analysis.MatchesLanguage(text, language) {
		log.Warn("response language looks wrong", append(
			logger.AttemptFields("", slot.scheme.ID, string(kind)),
			zap.String("requested_language", language),
		)...)
	}
}

func (s *Service) recordValidationFailure(log *zap.Logger, slot *schemeSlot, kind prompt.Kind, err error) {
	slot.fail(kind, failureKindValidation, "")
	log.Warn("validation failure", append(
		logger.AttemptFields("", slot.scheme.ID, string(kind)),
		zap.Error(err),
	)...)
}

func (s *Service) retryHeadroom(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) > validationRetryHeadroom
}

// aggregate assembles the outcome in matcher order. Schemes with any failed
// sub-call are omitted from the result list and recorded for audit; the user
// never sees a half-filled result.
func (s *Service) aggregate(requestID string, p profile.Profile, slots []*schemeSlot, deadlineHit bool) *Outcome {
	results := make([]*SchemeResult, 0, len(slots))
	var failures []SchemeFailure

	for _, slot := range slots {
		if slot.complete() {
			results = append(results, &SchemeResult{
				Scheme:    slot.scheme,
				Analysis:  slot.analysis,
				Documents: slot.documents,
				Steps:     slot.steps,
			})
			continue
		}
		failures = append(failures, slot.failures...)
	}

	status := StatusCompleted
	switch {
	case len(results) == 0:
		status = StatusFailed
	case len(failures) > 0 || deadlineHit:
		status = StatusPartial
	}

	return &Outcome{
		RequestID: requestID,
		Status:    status,
		Message:   messageFor(p.Language, status),
		Results:   results,
		Failures:  failures,
	}
}

func (s *Service) transition(log *zap.Logger, next phase) {
	log.Debug("request phase", zap.String("phase", string(next)))
}
