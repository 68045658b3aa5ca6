package contact

import (
	"sort"
	"testing"

	"github.com/aluiziolira/maps-harvester/models"
)

func TestMineDeduplicatesEmails(t *testing.T) {
	markup := `<html><body>
		<p>Write to a@x.com for bookings.</p>
		<footer>a@x.com</footer>
		<p>Press: press@x.com</p>
	</body></html>`

	res, err := Mine(markup)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	got := append([]string(nil), res.Emails...)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "a@x.com" || got[1] != "press@x.com" {
		t.Fatalf("emails = %v, want [a@x.com press@x.com]", got)
	}
}

func TestMineSingleRepeatedEmail(t *testing.T) {
	res, err := Mine(`<p>a@x.com</p><p>a@x.com</p>`)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if len(res.Emails) != 1 || res.Emails[0] != "a@x.com" {
		t.Fatalf("emails = %v, want [a@x.com]", res.Emails)
	}
}

func TestMineIgnoresScriptBodies(t *testing.T) {
	res, err := Mine(`<script>var e = "tracker@analytics.io";</script><p>hello</p>`)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if len(res.Emails) != 0 {
		t.Fatalf("emails = %v, want none", res.Emails)
	}
}

func TestMineSocialFirstMatchWins(t *testing.T) {
	markup := `<html><body>
		<a href="https://www.facebook.com/first">fb</a>
		<a href="https://www.facebook.com/second">fb again</a>
		<a href="https://instagram.com/cafe">ig</a>
		<a href="/about">about</a>
	</body></html>`

	res, err := Mine(markup)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if res.Socials.Facebook != "https://www.facebook.com/first" {
		t.Fatalf("facebook = %q, want first link", res.Socials.Facebook)
	}
	if res.Socials.Instagram != "https://instagram.com/cafe" {
		t.Fatalf("instagram = %q", res.Socials.Instagram)
	}
	if res.Socials.Twitter != models.NotFound || res.Socials.LinkedIn != models.NotFound {
		t.Fatalf("missing platforms should be NotFound, got %+v", res.Socials)
	}
}

func TestMineEmptyPageResolvesEverySocial(t *testing.T) {
	res, err := Mine("")
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if !res.Socials.Resolved() {
		t.Fatalf("socials should all be resolved, got %+v", res.Socials)
	}
	if res.Socials.Get(models.LinkedIn) != models.NotFound {
		t.Fatalf("linkedin = %q", res.Socials.LinkedIn)
	}
}

func TestResultMergeKeepsEarlierLinks(t *testing.T) {
	landing := Result{
		Emails:  []string{"info@cafe.at"},
		Socials: models.Socials{Facebook: "https://facebook.com/landing"}.Finalize(),
	}
	followUp := Result{
		Emails: []string{"INFO@cafe.at", "jobs@cafe.at"},
		Socials: models.Socials{
			Facebook: "https://facebook.com/other",
			LinkedIn: "https://linkedin.com/company/cafe",
		}.Finalize(),
	}

	merged := landing.Merge(followUp)
	if merged.Socials.Facebook != "https://facebook.com/landing" {
		t.Fatalf("facebook = %q, want landing link", merged.Socials.Facebook)
	}
	if merged.Socials.LinkedIn != "https://linkedin.com/company/cafe" {
		t.Fatalf("linkedin = %q, want follow-up link", merged.Socials.LinkedIn)
	}
	if merged.Socials.Twitter != models.NotFound {
		t.Fatalf("twitter = %q, want NotFound", merged.Socials.Twitter)
	}
	if len(merged.Emails) != 2 {
		t.Fatalf("emails = %v, want 2 distinct", merged.Emails)
	}
}

func TestContactLinks(t *testing.T) {
	markup := `<html><body>
		<a href="/kontakt">Kontakt</a>
		<a href="https://www.cafe.at/impressum#top">Imprint</a>
		<a href="https://other.example/contact">Partner contact</a>
		<a href="mailto:info@cafe.at">Contact us</a>
		<a href="/menu">Menu</a>
		<a href="/kontakt">Kontakt (footer)</a>
		<a href="/about-us">About</a>
	</body></html>`

	links := ContactLinks(markup, "https://cafe.at/", 2)
	want := []string{"https://cafe.at/kontakt", "https://www.cafe.at/impressum"}
	if len(links) != len(want) {
		t.Fatalf("links = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("links[%d] = %q, want %q", i, links[i], want[i])
		}
	}

	if got := ContactLinks(markup, "https://cafe.at/", 0); got != nil {
		t.Fatalf("limit 0 should yield nothing, got %v", got)
	}
}
