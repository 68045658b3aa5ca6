// Package contact mines email addresses and social profile links from
// business websites.
package contact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/maps-harvester/models"
	"github.com/aluiziolira/maps-harvester/parser"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Result is what a page yields. Emails has set semantics: no duplicates and
// no promised order.
type Result struct {
	Emails  []string
	Socials models.Socials
}

// Mine extracts contact data from rendered page markup. It never modifies
// the page it was read from.
func Mine(markup string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Result{}, fmt.Errorf("parse page: %w", err)
	}
	return MineDocument(doc), nil
}

// MineDocument is Mine for an already parsed document.
func MineDocument(doc *goquery.Document) Result {
	var socials models.Socials
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		claimSocial(&socials, href)
	})

	return Result{
		Emails:  ExtractEmails(parser.TextContent(doc.Selection)),
		Socials: socials.Finalize(),
	}
}

// ExtractEmails returns the distinct addresses found in text.
func ExtractEmails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	emails := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		emails = append(emails, m)
	}
	return emails
}

// claimSocial assigns href to the first platform it matches that is still
// unclaimed. Earlier links win.
func claimSocial(s *models.Socials, href string) {
	for _, p := range models.Platforms {
		if strings.Contains(href, p.Domain()) && !s.Get(p).Resolved() {
			s.Set(p, models.SocialLink(href))
			return
		}
	}
}

// Merge folds other into r. Emails are unioned; a platform keeps r's link
// unless r had none.
func (r Result) Merge(other Result) Result {
	merged := Result{
		Emails:  parser.NormalizeEmails(append(append([]string{}, r.Emails...), other.Emails...)),
		Socials: r.Socials,
	}
	for _, p := range models.Platforms {
		if !merged.Socials.Get(p).Found() && other.Socials.Get(p).Found() {
			merged.Socials.Set(p, other.Socials.Get(p))
		}
	}
	merged.Socials = merged.Socials.Finalize()
	return merged
}
