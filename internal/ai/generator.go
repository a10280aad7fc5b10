// Package ai defines the provider-neutral boundary to the generative reasoning
// capability: a single text-in/text-out call plus a closed failure
// classification. Nothing in this package knows about schemes or profiles.
package ai

import "context"

// Generator is the opaque reasoning capability. Implementations own per-call
// timeouts and retry policy; callers control the overall deadline through ctx.
type Generator interface {
	// Generate sends the prompt and returns the provider's text output. On
	// failure the returned error is always a *Failure.
	Generate(ctx context.Context, prompt string) (string, error)
	// Model returns the underlying model identifier for logging.
	Model() string
}
