// Package llm talks to the language model used for query resolution and
// corpus questions.
package llm

import "context"

// Generator turns a prompt into free-form text. No response schema is
// enforced.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
