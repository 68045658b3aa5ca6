package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/llm"
	"github.com/aluiziolira/maps-harvester/models"
)

func stub(response string, err error) (llm.Generator, *string) {
	var seen string
	return llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		seen = prompt
		return response, err
	}), &seen
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     models.Query
	}{
		{name: "tuple", response: `("cafes in Vienna", 20)`, want: models.Query{SearchTerm: "cafes in Vienna", Quantity: 20}},
		{name: "no quantity", response: `("dentists in Graz", 0)`, want: models.Query{SearchTerm: "dentists in Graz", Quantity: models.Unbounded}},
		{name: "bare words", response: "plumbers in Linz", want: models.Query{SearchTerm: "plumbers in Linz", Quantity: models.Unbounded}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, _ := stub(tt.response, nil)
			got, err := NewResolver(gen).Resolve(context.Background(), "find me things")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEmbedsInput(t *testing.T) {
	gen, seen := stub(`("bakeries in Salzburg", 5)`, nil)
	_, err := NewResolver(gen).Resolve(context.Background(), "  5 good bakeries in Salzburg ")
	require.NoError(t, err)
	assert.Contains(t, *seen, "5 good bakeries in Salzburg.")
}

func TestResolveRejectsEmptyInput(t *testing.T) {
	gen, seen := stub("unused", nil)
	_, err := NewResolver(gen).Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, config.ErrConfiguration)
	assert.Empty(t, *seen)
}

func TestResolveRejectsEmptyTerm(t *testing.T) {
	gen, _ := stub(`("", 10)`, nil)
	_, err := NewResolver(gen).Resolve(context.Background(), "10 of something")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestResolvePropagatesModelFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen, _ := stub("", boom)
	_, err := NewResolver(gen).Resolve(context.Background(), "hotels in Wien")
	assert.ErrorIs(t, err, boom)
}
