package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aluiziolira/maps-harvester/models"
)

// ValidateRecord ensures the extractor produced a finalized record.
func ValidateRecord(r *models.BusinessRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("record missing name")
	}
	if !r.Socials.Resolved() {
		return fmt.Errorf("record %s has unresolved social links", r.Name)
	}
	return nil
}

// NormalizeField strips icon glyphs and collapses whitespace in text read
// from the detail pane.
func NormalizeField(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Co, r) || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeEmails trims and de-duplicates addresses case-insensitively,
// keeping the first spelling seen.
func NormalizeEmails(emails []string) []string {
	if len(emails) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, email)
	}
	return out
}

// DedupeKey identifies a business across listings.
func DedupeKey(r *models.BusinessRecord) string {
	return strings.ToLower(NormalizeField(r.Name)) + "|" + strings.ToLower(NormalizeField(r.Address))
}
