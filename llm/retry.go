package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/aluiziolira/maps-harvester/backoff"
	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/metrics"
)

// Retrying retries a Generator with capped exponential backoff.
type Retrying struct {
	next    Generator
	retries int
	base    time.Duration
	max     time.Duration
	metrics *metrics.Metrics
}

var _ Generator = (*Retrying)(nil)

// WithRetry wraps next using cfg's LLM retry budget and backoff.
func WithRetry(next Generator, cfg *config.Config, m *metrics.Metrics) *Retrying {
	return &Retrying{
		next:    next,
		retries: cfg.LLMRetries,
		base:    cfg.RetryBackoff,
		max:     cfg.RetryBackoffMax,
		metrics: m,
	}
}

func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			r.metrics.IncRetries()
			if err := backoff.Wait(ctx, backoff.Delay(r.base, r.max, attempt)); err != nil {
				return "", err
			}
		}

		attempts++
		start := time.Now()
		text, err := r.next.Generate(ctx, prompt)
		r.metrics.ObserveLLM(time.Since(start))
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !Retryable(err) {
			break
		}
		slog.Warn("llm call failed",
			slog.Int("attempt", attempts),
			slog.Any("error", err),
		)
	}
	return "", fmt.Errorf("llm call failed after %d attempts: %w", attempts, lastErr)
}

// Retryable reports whether err may clear up on another attempt. API errors
// other than rate limiting and server faults are final.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, config.ErrConfiguration) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		return true
	}
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
