// Package answer answers questions over a chunked corpus, one model call per
// chunk.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/corpus"
	"github.com/aluiziolira/maps-harvester/llm"
	"github.com/aluiziolira/maps-harvester/metrics"
)

// Separator joins per-chunk answers.
const Separator = "\n\n"

const promptTemplate = "You are tasked with answering a question using only the following text content: %s. " +
	"Please follow these instructions carefully: " +
	"1. **Answer the question:** %s " +
	"2. **Use only the given content:** Do not rely on outside knowledge. " +
	"3. **Empty response:** If the content does not help answer the question, return an empty string (''). " +
	"4. **No Extra Content:** Do not include any additional text, comments, or explanations in your response."

// Prompt builds the prompt for one chunk.
func Prompt(content, question string) string {
	return fmt.Sprintf(promptTemplate, content, question)
}

// ChunkError records a chunk whose model call failed.
type ChunkError struct {
	Index int
	Total int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d/%d: %v", e.Index+1, e.Total, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Marker is the text placed in the merged answer where the chunk's answer
// would have been.
func (e *ChunkError) Marker() string {
	return fmt.Sprintf("[chunk %d/%d failed: %v]", e.Index+1, e.Total, e.Err)
}

// Result is a merged answer.
type Result struct {
	Text   string
	Chunks int
	Failed []*ChunkError
}

// Complete reports whether every chunk was answered.
func (r *Result) Complete() bool {
	return len(r.Failed) == 0
}

// Aggregator asks the question of each chunk in turn and concatenates the
// answers in chunk order.
type Aggregator struct {
	gen     llm.Generator
	metrics *metrics.Metrics
}

// NewAggregator returns an Aggregator that calls gen.
func NewAggregator(gen llm.Generator, m *metrics.Metrics) *Aggregator {
	return &Aggregator{gen: gen, metrics: m}
}

// Answer evaluates question against every chunk. A chunk whose call fails is
// replaced by its marker and the rest still run; only cancellation of ctx
// aborts the whole answer.
func (a *Aggregator) Answer(ctx context.Context, chunks []corpus.Chunk, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, config.Invalid("question", "cannot be empty")
	}

	res := &Result{Chunks: len(chunks)}
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := a.gen.Generate(ctx, Prompt(c.Text, question))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ce := &ChunkError{Index: i, Total: len(chunks), Err: err}
			res.Failed = append(res.Failed, ce)
			parts = append(parts, ce.Marker())
			a.metrics.IncChunk("failed")
			slog.Warn("chunk answer failed",
				slog.Int("chunk", i+1),
				slog.Int("total", len(chunks)),
				slog.Any("error", err),
			)
			continue
		}

		a.metrics.IncChunk("answered")
		slog.Debug("chunk answered", slog.Int("chunk", i+1), slog.Int("total", len(chunks)))
		parts = append(parts, text)
	}

	res.Text = strings.Join(parts, Separator)
	return res, nil
}

// Ask splits text with the given bound and answers question over it.
func (a *Aggregator) Ask(ctx context.Context, text string, chunkSize int, question string) (*Result, error) {
	chunks, err := corpus.Split(text, chunkSize)
	if err != nil {
		return nil, err
	}
	return a.Answer(ctx, chunks, question)
}
