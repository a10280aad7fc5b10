package ai

import (
	"errors"
	"fmt"
)

// Kind is the closed classification of reasoning-call failures. Upstream error
// internals never cross this boundary; callers branch on Kind only.
type Kind string

const (
	// KindTimeout marks a call that exceeded its per-call or request budget.
	KindTimeout Kind = "timeout"
	// KindTransient marks retryable upstream failures: rate limits, network
	// blips, 5xx-equivalent responses.
	KindTransient Kind = "transient"
	// KindAuth marks authentication or authorization failures. Never retried.
	KindAuth Kind = "auth"
	// KindBadRequest marks malformed-request-equivalent failures. Never retried.
	KindBadRequest Kind = "bad_request"
	// KindCanceled marks calls abandoned because the request was canceled.
	KindCanceled Kind = "canceled"
	// KindEmptyResponse marks a completed call that produced no usable text.
	KindEmptyResponse Kind = "empty_response"
)

// Retryable reports whether the classification permits another attempt.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// Failure is the only error type returned by a Generator. The correlation id
// links the failure to the audit events of its attempts.
type Failure struct {
	Kind          Kind
	CorrelationID string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("ai call failed: %s (correlation_id=%s)", f.Kind, f.CorrelationID)
}

// Retryable reports whether the failure class permits another attempt.
func (f *Failure) Retryable() bool {
	return f.Kind.Retryable()
}

// ClassifyError extracts the failure kind from an error returned by a
// Generator. Unknown errors classify as transient so a stray error type does
// not silently become permanent.
func ClassifyError(err error) Kind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return KindTransient
}
