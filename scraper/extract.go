package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/maps-harvester/backoff"
	"github.com/aluiziolira/maps-harvester/browser"
	"github.com/aluiziolira/maps-harvester/contact"
	"github.com/aluiziolira/maps-harvester/models"
	"github.com/aluiziolira/maps-harvester/parser"
)

// Extract opens listing l and builds its record. Fields missing from the
// detail pane come back empty and a website that cannot be mined leaves every
// social platform NotFound. Errors are returned as *ListingError.
func (h *Harvester) Extract(ctx context.Context, s browser.Session, l Listing) (rec *models.BusinessRecord, err error) {
	var name string
	defer func() {
		if err != nil {
			err = &ListingError{Index: l.Index, Name: name, Err: err}
		}
	}()

	if l.session != s.ID() {
		return nil, ErrStaleListing
	}
	page := s.Page()
	sel := h.cfg.Selectors

	name, _, err = page.Attribute(ctx, sel.ResultAnchor, l.Index, "aria-label")
	if err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	if err := page.Click(ctx, sel.ResultAnchor, l.Index); err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	if err := backoff.Wait(ctx, h.cfg.SettleDelay); err != nil {
		return nil, err
	}

	rec = &models.BusinessRecord{
		Name:      parser.NormalizeField(name),
		ScrapedAt: time.Now(),
	}
	if rec.Address, err = h.field(ctx, page, sel.Address); err != nil {
		return nil, err
	}
	if rec.PhoneNumber, err = h.field(ctx, page, sel.Phone); err != nil {
		return nil, err
	}

	n, err := page.Count(ctx, sel.WebsiteLink)
	if err != nil {
		return nil, fmt.Errorf("check website control: %w", err)
	}
	if n > 0 {
		text, err := h.field(ctx, page, sel.WebsiteText)
		if err != nil {
			return nil, err
		}
		rec.Website = models.ListedWebsite(text)
		found, err := h.visitWebsite(ctx, page, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("website visit failed",
				slog.String("name", name),
				slog.String("website", text),
				slog.Any("error", err),
			)
			found = contact.Result{Emails: []string{}, Socials: models.AllNotFound()}
		}
		rec.Email = found.Emails
		rec.Socials = found.Socials
	} else {
		rec.Website = models.NoWebsite
		rec.Email = []string{}
		rec.Socials = models.AllNotFound()
	}

	if h.cfg.CapturePaneText && name != "" {
		rec.Details = h.paneText(ctx, page, name)
	}

	h.Metrics.IncRecord()
	return rec, nil
}

// field reads the text under sel. An element that is missing or does not
// appear in time yields "".
func (h *Harvester) field(ctx context.Context, page browser.Page, sel string) (string, error) {
	text, ok, err := page.Text(ctx, sel)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", sel, err)
	}
	if !ok {
		return "", nil
	}
	return parser.NormalizeField(text), nil
}

// visitWebsite opens the listing's website in a nested page and mines it,
// then follows a few contact pages over plain HTTP. Opening, the idle wait
// and the reads are each bounded by NestedPageTimeout. The nested page is
// closed before returning.
func (h *Harvester) visitWebsite(ctx context.Context, page browser.Page, website string) (contact.Result, error) {
	key := siteKey(website)
	if key != "" && h.cache != nil {
		if cached, ok := h.cache.Get(key); ok {
			h.Metrics.IncWebsiteVisit("cached")
			return cached, nil
		}
	}

	openCtx, cancel := context.WithTimeout(ctx, h.cfg.NestedPageTimeout)
	nested, err := page.OpenNested(openCtx, h.cfg.Selectors.WebsiteLink)
	cancel()
	if err != nil {
		h.Metrics.IncWebsiteVisit("failed")
		return contact.Result{}, fmt.Errorf("open website: %w", err)
	}
	defer func() {
		if cerr := nested.Close(); cerr != nil {
			slog.Debug("close website page", slog.String("website", website), slog.Any("error", cerr))
		}
	}()

	idleCtx, cancel := context.WithTimeout(ctx, h.cfg.NestedPageTimeout)
	err = nested.WaitNetworkIdle(idleCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return contact.Result{}, ctx.Err()
		}
		slog.Debug("website never went idle", slog.String("website", website), slog.Any("error", err))
	}

	// Reads get a budget separate from the idle wait.
	readCtx, cancel := context.WithTimeout(ctx, h.cfg.NestedPageTimeout)
	defer cancel()
	markup, err := nested.Content(readCtx)
	if err != nil {
		h.Metrics.IncWebsiteVisit("failed")
		return contact.Result{}, fmt.Errorf("read website: %w", err)
	}
	found, err := contact.Mine(markup)
	if err != nil {
		h.Metrics.IncWebsiteVisit("failed")
		return contact.Result{}, fmt.Errorf("mine website: %w", err)
	}

	if h.crawler != nil && h.cfg.ContactPages > 0 {
		location, err := nested.Location(readCtx)
		if err != nil {
			slog.Debug("website location unavailable", slog.String("website", website), slog.Any("error", err))
		}
		if links := contact.ContactLinks(markup, location, h.cfg.ContactPages); len(links) > 0 {
			extra, err := h.crawler.Crawl(ctx, links)
			if err != nil && ctx.Err() != nil {
				return contact.Result{}, err
			}
			found = found.Merge(extra)
		}
	}

	h.mu.Lock()
	h.websiteVisits++
	h.mu.Unlock()
	h.Metrics.IncWebsiteVisit("visited")

	if key != "" && h.cache != nil {
		h.cache.Add(key, found)
	}
	return found, nil
}

// paneText captures the cleaned text of the listing's detail pane. Failures
// only cost the text.
func (h *Harvester) paneText(ctx context.Context, page browser.Page, name string) string {
	sel := fmt.Sprintf(h.cfg.Selectors.DetailPane, browser.CSSString(name))
	markup, ok, err := page.InnerHTML(ctx, sel)
	if err != nil || !ok {
		if err != nil {
			slog.Debug("detail pane unavailable", slog.String("name", name), slog.Any("error", err))
		}
		return ""
	}
	text, err := parser.CleanPaneText(markup)
	if err != nil {
		slog.Debug("clean detail pane", slog.String("name", name), slog.Any("error", err))
		return ""
	}
	return text
}

// siteKey reduces the website text shown in the pane to a cache key.
func siteKey(website string) string {
	website = strings.TrimSpace(strings.ToLower(website))
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "http://" + website
	}
	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}
