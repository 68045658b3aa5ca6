package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/aluiziolira/maps-harvester/config"
)

var _ Generator = (*Gemini)(nil)

// Gemini is a Generator backed by the Gemini API. One client is built at
// startup and shared by every caller.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini builds a client from cfg's key and model.
func NewGemini(ctx context.Context, cfg *config.Config) (*Gemini, error) {
	if cfg.GeminiKey == "" {
		return nil, config.Invalid("gemini key", "is required (set GEMINI_KEY)")
	}
	if cfg.LLMModel == "" {
		return nil, config.Invalid("llm model", "cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.LLMModel, timeout: cfg.LLMTimeout}, nil
}

// Generate sends prompt as a single user turn and returns the concatenated
// text of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
