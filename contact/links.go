package contact

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var contactKeywords = []string{
	"contact",
	"kontakt",
	"contacto",
	"impressum",
	"imprint",
	"about",
	"über uns",
	"uber uns",
	"team",
}

// ContactLinks lists up to limit same-site links from markup (served at
// pageURL) that look like contact or imprint pages, in document order.
func ContactLinks(markup, pageURL string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	self := canonical(base)
	seen := map[string]struct{}{self: {}}
	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		if hostKey(abs.Host) != hostKey(base.Host) {
			return true
		}
		if !looksLikeContact(s.Text(), abs.Path) {
			return true
		}
		key := canonical(abs)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		links = append(links, key)
		return len(links) < limit
	})
	return links
}

func looksLikeContact(text, path string) bool {
	haystack := strings.ToLower(text + " " + path)
	for _, keyword := range contactKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

func hostKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return c.String()
}
