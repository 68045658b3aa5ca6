package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// paneNoise are section titles whose enclosing element is dropped from
// captured pane text.
var paneNoise = []string{
	"Specialty",
	"Community Engagement:",
	"Related Searches:",
	"Note:",
	"Last Updated",
}

// CleanPaneText turns the detail pane markup into plain text.
func CleanPaneText(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse pane html: %w", err)
	}

	doc.Find("script, style, img, link, iframe").Remove()

	var noisy []*goquery.Selection
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Contents().Nodes {
			if node.Type != html.TextNode {
				continue
			}
			text := strings.TrimSpace(node.Data)
			for _, title := range paneNoise {
				if text == title {
					noisy = append(noisy, s)
					return
				}
			}
		}
	})
	for _, s := range noisy {
		s.Remove()
	}

	return TextContent(doc.Selection), nil
}

// TextContent joins the trimmed, non-empty text nodes under sel with single
// spaces. Script and style bodies are skipped.
func TextContent(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
