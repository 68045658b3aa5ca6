// Package query resolves free-text requests into a search term and quantity.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/llm"
	"github.com/aluiziolira/maps-harvester/models"
	"github.com/aluiziolira/maps-harvester/parser"
)

const promptTemplate = "You are tasked with extracting two pieces of information from the following user query: %s. " +
	"1. **Extract the core search term** that would be entered in the Google Maps search bar (e.g., restaurants, hotels, or places of interest). " +
	"2. **Extract the quantity** (a number) if explicitly mentioned. If no quantity is mentioned, return 0. " +
	"3. **Ignore extra details** such as adjectives, irrelevant words, or extra information. " +
	"4. The extracted search term should be formatted as a location-based search term for Google Maps. " +
	"5. **No Extra Content:** Do not include any additional text, comments, or explanations in your response. " +
	"6. Return the results as a tuple: (search_term, quantity)."

// Prompt builds the resolution prompt for input.
func Prompt(input string) string {
	return fmt.Sprintf(promptTemplate, input)
}

// Resolver asks the language model to split a request into a Query.
type Resolver struct {
	gen llm.Generator
}

// NewResolver returns a Resolver using gen.
func NewResolver(gen llm.Generator) *Resolver {
	return &Resolver{gen: gen}
}

// Resolve turns input into a validated Query. A response without a number
// yields an unbounded query.
func (r *Resolver) Resolve(ctx context.Context, input string) (models.Query, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return models.Query{}, config.Invalid("request", "cannot be empty")
	}

	response, err := r.gen.Generate(ctx, Prompt(input))
	if err != nil {
		return models.Query{}, fmt.Errorf("resolve query: %w", err)
	}
	slog.Debug("query response", slog.String("response", response))

	q, err := parser.ParseQuery(response)
	if err != nil {
		return models.Query{}, fmt.Errorf("resolve query from %q: %w", response, err)
	}
	return q, nil
}
