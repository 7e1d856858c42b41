// Package completion wraps a single text-generation call with bounded retries,
// defensive JSON extraction and strict schema decoding.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
)

// AIProcessingError is returned once every attempt of a completion failed.
type AIProcessingError struct {
	Attempts int
	Err      error
}

func (e *AIProcessingError) Error() string {
	return fmt.Sprintf("ai processing failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *AIProcessingError) Unwrap() error { return e.Err }

// Client implements ports.Completer on top of a raw transport.
type Client struct {
	transport      ports.CompletionTransport
	policy         RetryPolicy
	attemptTimeout time.Duration
	logger         *slog.Logger
}

var _ ports.Completer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides the default three-attempt policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p.normalized()
	}
}

// WithAttemptTimeout bounds every individual transport call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.attemptTimeout = d
	}
}

// WithLogger sets the logger used for attempt failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a resilient client around transport.
func NewClient(transport ports.CompletionTransport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		policy:    DefaultRetryPolicy(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends the prompt pair and returns the decoded analysis. Each failed
// attempt is logged and followed by the policy delay unless it was the last.
func (c *Client) Complete(ctx context.Context, system, user string) (domain.AnalysisResult, error) {
	if c == nil || c.transport == nil {
		return domain.AnalysisResult{}, &AIProcessingError{Err: errors.New("completion transport is not configured")}
	}

	var lastErr error
	attempt := 0
	for attempt < c.policy.MaxAttempts {
		attempt++
		result, err := c.attempt(ctx, system, user)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("completion recovered", "attempt", attempt)
			}
			return result, nil
		}
		lastErr = err
		c.logger.Warn("completion attempt failed", "attempt", attempt, "max_attempts", c.policy.MaxAttempts, "error", err)

		if attempt == c.policy.MaxAttempts {
			break
		}
		if sleepErr := c.policy.Sleep(ctx, c.policy.Delay(attempt)); sleepErr != nil {
			lastErr = fmt.Errorf("retry wait interrupted: %w (last failure: %v)", sleepErr, err)
			break
		}
	}

	c.logger.Error("completion failed", "attempts", attempt, "error", lastErr)
	return domain.AnalysisResult{}, &AIProcessingError{Attempts: attempt, Err: lastErr}
}

func (c *Client) attempt(ctx context.Context, system, user string) (domain.AnalysisResult, error) {
	callCtx := ctx
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	raw, err := c.transport.Chat(callCtx, []ports.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("chat: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return domain.AnalysisResult{}, ErrEmptyResponse
	}

	object, err := ExtractJSON(raw)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return Decode(object)
}
