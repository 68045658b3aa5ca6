// Package corpus builds the question-answering corpus from harvested records
// and splits it into bounded chunks.
package corpus

import (
	"strings"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/models"
)

// DefaultChunkSize is the chunk bound used when none is configured.
const DefaultChunkSize = 6000

// Chunk is one contiguous slice of a corpus.
type Chunk struct {
	Index int
	Text  string
}

// Split cuts text into consecutive chunks of exactly max characters (Unicode
// code points), the last one possibly shorter. Joining the chunk texts in
// order gives back text.
func Split(text string, max int) ([]Chunk, error) {
	if max <= 0 {
		return nil, config.Invalid("chunk size", "must be positive, got %d", max)
	}

	var chunks []Chunk
	start, runes := 0, 0
	for i := range text {
		if runes == max {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: text[start:i]})
			start, runes = i, 0
		}
		runes++
	}
	if start < len(text) {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: text[start:]})
	}
	return chunks, nil
}

// Join concatenates chunk texts in order.
func Join(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

// FromRecords renders records as labelled text blocks separated by blank
// lines, in record order.
func FromRecords(records []*models.BusinessRecord) string {
	blocks := make([]string, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		blocks = append(blocks, block(r))
	}
	return strings.Join(blocks, "\n\n")
}

func block(r *models.BusinessRecord) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	line("Name", r.Name)
	line("Address", r.Address)
	line("Website", r.Website.String())
	line("Phone", r.PhoneNumber)
	line("Email", strings.Join(r.Email, ", "))
	for _, p := range models.Platforms {
		line(string(p), string(r.Socials.Get(p)))
	}
	if r.Details != "" {
		line("Details", r.Details)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
