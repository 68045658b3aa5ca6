package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/metrics"
)

func fastConfig(retries int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.LLMRetries = retries
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 2 * time.Millisecond
	return cfg
}

func TestRetryingRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	gen := GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "answer to " + prompt, nil
	})

	out, err := WithRetry(gen, fastConfig(2), metrics.New()).Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "answer to q", out)
	assert.Equal(t, 3, calls)
}

func TestRetryingGivesUpAfterBudget(t *testing.T) {
	calls := 0
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("unavailable")
	})

	_, err := WithRetry(gen, fastConfig(1), nil).Generate(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestRetryingStopsOnPermanentError(t *testing.T) {
	calls := 0
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		return "", fmt.Errorf("gemini generate: %w", genai.APIError{Code: 400, Message: "bad request"})
	})

	_, err := WithRetry(gen, fastConfig(3), nil).Generate(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryingHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		cancel()
		return "", errors.New("interrupted")
	})

	_, err := WithRetry(gen, fastConfig(5), nil).Generate(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "network", err: errors.New("dial tcp: i/o timeout"), want: true},
		{name: "rate limited", err: genai.APIError{Code: 429}, want: true},
		{name: "server", err: &genai.APIError{Code: 503}, want: true},
		{name: "bad request", err: genai.APIError{Code: 400}, want: false},
		{name: "configuration", err: config.Invalid("gemini key", "is required"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GeminiKey = ""
	_, err := NewGemini(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}
