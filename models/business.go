// Package models defines data structures for the harvester.
package models

import (
	"encoding/json"
	"time"
)

// Unbounded is the Quantity sentinel meaning "take every listing available".
const Unbounded = 0

// Query is a resolved user request.
type Query struct {
	SearchTerm string `json:"search_term"`
	Quantity   int    `json:"quantity"`
}

// IsUnbounded reports whether the query asks for every available listing.
func (q Query) IsUnbounded() bool {
	return q.Quantity == Unbounded
}

// Website is the external site advertised by a listing. The zero value is
// the absent sentinel, which is distinct from a listed website with empty text.
type Website struct {
	Text   string
	Listed bool
}

// ListedWebsite returns a present website with the given display text.
func ListedWebsite(text string) Website {
	return Website{Text: text, Listed: true}
}

// NoWebsite is the absent sentinel.
var NoWebsite = Website{}

func (w Website) String() string {
	if !w.Listed {
		return "absent"
	}
	return w.Text
}

// MarshalJSON encodes an absent website as null.
func (w Website) MarshalJSON() ([]byte, error) {
	if !w.Listed {
		return []byte("null"), nil
	}
	return json.Marshal(w.Text)
}

// UnmarshalJSON decodes null as the absent sentinel.
func (w *Website) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*w = NoWebsite
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*w = ListedWebsite(text)
	return nil
}

// SocialLink is a social profile URL or NotFound. The empty value means the
// platform has not been checked yet and never appears in a finalized record.
type SocialLink string

// NotFound marks a platform that was checked and had no link.
const NotFound SocialLink = "None"

// Resolved reports whether the link holds a URL or the NotFound sentinel.
func (s SocialLink) Resolved() bool {
	return s != ""
}

// Found reports whether the link holds a URL.
func (s SocialLink) Found() bool {
	return s != "" && s != NotFound
}

// Platform names a social network scanned for profile links.
type Platform string

const (
	Facebook  Platform = "Facebook"
	Instagram Platform = "Instagram"
	Twitter   Platform = "Twitter"
	LinkedIn  Platform = "LinkedIn"
)

// Platforms lists the scanned platforms in match priority order.
var Platforms = []Platform{Facebook, Instagram, Twitter, LinkedIn}

// Domain returns the host fragment that identifies a platform link.
func (p Platform) Domain() string {
	switch p {
	case Facebook:
		return "facebook.com"
	case Instagram:
		return "instagram.com"
	case Twitter:
		return "twitter.com"
	case LinkedIn:
		return "linkedin.com"
	default:
		return ""
	}
}

// Socials holds one link per platform.
type Socials struct {
	Facebook  SocialLink `csv:"facebook" json:"facebook"`
	Instagram SocialLink `csv:"instagram" json:"instagram"`
	Twitter   SocialLink `csv:"twitter" json:"twitter"`
	LinkedIn  SocialLink `csv:"linkedin" json:"linkedin"`
}

// AllNotFound returns Socials with every platform set to NotFound.
func AllNotFound() Socials {
	return Socials{
		Facebook:  NotFound,
		Instagram: NotFound,
		Twitter:   NotFound,
		LinkedIn:  NotFound,
	}
}

// Get returns the link stored for p.
func (s Socials) Get(p Platform) SocialLink {
	switch p {
	case Facebook:
		return s.Facebook
	case Instagram:
		return s.Instagram
	case Twitter:
		return s.Twitter
	case LinkedIn:
		return s.LinkedIn
	default:
		return ""
	}
}

// Set stores link for p.
func (s *Socials) Set(p Platform, link SocialLink) {
	switch p {
	case Facebook:
		s.Facebook = link
	case Instagram:
		s.Instagram = link
	case Twitter:
		s.Twitter = link
	case LinkedIn:
		s.LinkedIn = link
	}
}

// Finalize replaces every unchecked platform with NotFound.
func (s Socials) Finalize() Socials {
	for _, p := range Platforms {
		if !s.Get(p).Resolved() {
			s.Set(p, NotFound)
		}
	}
	return s
}

// Resolved reports whether every platform is either a URL or NotFound.
func (s Socials) Resolved() bool {
	for _, p := range Platforms {
		if !s.Get(p).Resolved() {
			return false
		}
	}
	return true
}

// BusinessRecord is one harvested listing. Records are built once by the
// extractor and must not be mutated afterwards.
type BusinessRecord struct {
	Name        string   `csv:"name" json:"name"`
	Address     string   `csv:"address" json:"address"`
	Website     Website  `csv:"website" json:"website"`
	PhoneNumber string   `csv:"phone_number" json:"phone_number"`
	Email       []string `csv:"email" json:"email"`
	Socials
	Details   string    `csv:"details" json:"details,omitempty"`
	ScrapedAt time.Time `csv:"scraped_at" json:"scraped_at"`
}

// HarvestResult holds the overall result of a harvest run.
type HarvestResult struct {
	Query          Query
	Records        []*BusinessRecord
	StartTime      time.Time
	EndTime        time.Time
	Discovered     int
	FailedListings int
	ErrorsByType   map[string]int
	WebsiteVisits  int
}
