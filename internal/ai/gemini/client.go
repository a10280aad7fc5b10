// Package gemini adapts the Google GenAI client to the ai.Generator boundary:
// per-call timeout enforcement, bounded retries with exponential backoff and a
// closed failure classification.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/janyojana/sahayak/internal/ai"
	"github.com/janyojana/sahayak/internal/logger"
)

const (
	defaultModel       = "gemini-2.5-flash"
	defaultCallTimeout = 8 * time.Second
	defaultMaxRetries  = 2
	defaultBackoffBase = 500 * time.Millisecond

	// A retry is pointless when less than this remains before the deadline:
	// the call could not possibly complete.
	minCallHeadroom = 500 * time.Millisecond
)

// sleep is swappable in tests.
var sleep = time.Sleep

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type realChats struct {
	client *genai.Client
}

func (r *realChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return r.client.Chats.Create(ctx, model, config, history)
}

// Client implements ai.Generator against the Gemini API backend.
type Client struct {
	chats       chatCreator
	model       string
	maxRetries  int
	callTimeout time.Duration
	backoffBase time.Duration
	logger      *zap.Logger
}

// Options tune the adapter. Zero values fall back to defaults.
type Options struct {
	Model       string
	MaxRetries  int
	CallTimeout time.Duration
}

// New creates a Client configured for the Gemini API backend.
func New(ctx context.Context, apiKey string, opts Options, log *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	return &Client{
		chats:       &realChats{client: client},
		model:       model,
		maxRetries:  maxRetries,
		callTimeout: callTimeout,
		backoffBase: defaultBackoffBase,
		logger:      logger.WithCommonFields(log, "gemini", model),
	}, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Generate sends the prompt and returns the first textual response. Each
// attempt runs under the per-call timeout; transient failures are retried with
// doubling backoff, but never when the remaining request budget could not fit
// another call.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	corrID := uuid.NewString()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &ai.Failure{Kind: ai.KindBadRequest, CorrelationID: corrID}
	}

	var lastKind ai.Kind
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		start := time.Now()
		output, kind := c.attempt(ctx, prompt)
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String(logger.FieldCorrelationID, corrID),
			zap.Int("attempt", attempt+1),
			zap.Duration("latency", latency),
		}
		if kind == "" {
			c.logger.Debug("gemini attempt succeeded", append(fields,
				zap.String("preview", logger.TruncateForLog(output, 120)))...)
			return output, nil
		}

		c.logger.Warn("gemini attempt failed", append(fields, zap.String("failure_kind", string(kind)))...)
		lastKind = kind

		if kind == ai.KindCanceled || (kind == ai.KindTimeout && ctx.Err() != nil) {
			break
		}
		if !kind.Retryable() || attempt == c.maxRetries {
			break
		}

		delay := c.backoffBase << attempt
		if !c.retryFits(ctx, delay) {
			c.logger.Debug("skipping retry, deadline headroom exhausted",
				zap.String(logger.FieldCorrelationID, corrID),
				zap.Duration("backoff", delay),
			)
			break
		}
		if err := waitFor(ctx, delay); err != nil {
			lastKind = ai.KindCanceled
			break
		}
	}

	return "", &ai.Failure{Kind: lastKind, CorrelationID: corrID}
}

// attempt runs one call under the per-call timeout. An empty kind means
// success.
func (c *Client) attempt(ctx context.Context, prompt string) (string, ai.Kind) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	chat, err := c.chats.Create(callCtx, c.model, config, nil)
	if err != nil {
		return "", c.classify(ctx, callCtx, err)
	}

	resp, err := chat.SendMessage(callCtx, genai.Part{Text: prompt})
	if err != nil {
		return "", c.classify(ctx, callCtx, err)
	}

	output := extractText(resp)
	if output == "" {
		return "", ai.KindEmptyResponse
	}
	return output, ""
}

// retryFits applies the deadline-propagation rule: no retry is started whose
// earliest possible completion exceeds the aggregate deadline.
func (c *Client) retryFits(ctx context.Context, delay time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) > delay+minCallHeadroom
}

func (c *Client) classify(parent, call context.Context, err error) ai.Kind {
	switch {
	case parent.Err() != nil:
		// The request-scoped cancellation fired; the deadline owns this
		// failure regardless of what the transport reported.
		if errors.Is(parent.Err(), context.DeadlineExceeded) {
			return ai.KindTimeout
		}
		return ai.KindCanceled
	case errors.Is(call.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return ai.KindTimeout
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return ai.KindAuth
		case apiErr.Code == 400 || apiErr.Code == 404:
			return ai.KindBadRequest
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return ai.KindTransient
		}
	}

	// Network-level errors without an API status are treated as transient.
	return ai.KindTransient
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// waitFor sleeps for d but aborts as soon as the request is canceled.
func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
