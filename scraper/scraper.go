// Package scraper harvests business records from the map search surface.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/maps-harvester/browser"
	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/contact"
	"github.com/aluiziolira/maps-harvester/metrics"
	"github.com/aluiziolira/maps-harvester/models"
	"github.com/aluiziolira/maps-harvester/parser"
)

// Harvester runs searches in a browser session and extracts one record per
// listing. A Harvester runs one harvest at a time.
type Harvester struct {
	cfg     *config.Config
	launch  browser.Launcher
	crawler *contact.Crawler
	cache   *lru.Cache[string, contact.Result]
	Metrics *metrics.Metrics

	mu            sync.Mutex
	errorsByType  map[string]int
	failed        int
	websiteVisits int
}

// NewHarvester builds a harvester that opens sessions with launch.
func NewHarvester(cfg *config.Config, launch browser.Launcher) (*Harvester, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Harvester{
		cfg:          cfg,
		launch:       launch,
		Metrics:      metrics.New(),
		errorsByType: make(map[string]int),
	}

	if cfg.ContactPages > 0 {
		crawler, err := contact.NewCrawler(cfg, h.Metrics)
		if err != nil {
			return nil, fmt.Errorf("build contact crawler: %w", err)
		}
		h.crawler = crawler
	}
	if cfg.ContactCacheSize > 0 {
		cache, err := lru.New[string, contact.Result](cfg.ContactCacheSize)
		if err != nil {
			return nil, fmt.Errorf("build contact cache: %w", err)
		}
		h.cache = cache
	}
	return h, nil
}

// Run harvests records for q. A listing that fails is logged and skipped.
// Anything that aborts the batch yields a *BatchError and a result without
// records.
func (h *Harvester) Run(ctx context.Context, q models.Query) (*models.HarvestResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	h.reset()
	start := time.Now()

	if err := parser.ValidateQuery(q); err != nil {
		return h.emptyResult(q, start), err
	}

	slog.Info("harvest started",
		slog.String("term", q.SearchTerm),
		slog.Int("quantity", q.Quantity),
	)

	var records []*models.BusinessRecord
	discovered := 0
	err := browser.WithSession(ctx, h.launch, func(ctx context.Context, s browser.Session) error {
		page := s.Page()

		navCtx, cancel := context.WithTimeout(ctx, h.cfg.PageLoadTimeout)
		err := page.Navigate(navCtx, h.cfg.SearchURL)
		cancel()
		if err != nil {
			return &BatchError{Stage: "navigate", Err: err}
		}
		browser.DismissConsent(ctx, page, h.cfg.Selectors.Consent, h.cfg.ConsentTimeout)

		listings, err := h.Discover(ctx, s, q)
		if err != nil {
			return &BatchError{Stage: "discover", Err: err}
		}
		discovered = len(listings)
		slog.Info("listings discovered", slog.Int("count", discovered))

		for _, l := range listings {
			if err := ctx.Err(); err != nil {
				return &BatchError{Stage: "extract", Err: err}
			}
			rec, err := h.extractIsolated(ctx, s, l)
			if err != nil {
				if ctx.Err() != nil {
					return &BatchError{Stage: "extract", Err: ctx.Err()}
				}
				h.recordFailure(err)
				continue
			}
			records = append(records, rec)
		}
		return nil
	})

	if err != nil {
		var batchErr *BatchError
		if !errors.As(err, &batchErr) {
			err = &BatchError{Stage: "session", Err: err}
		}
		slog.Error("harvest failed", slog.Any("error", err))
		return h.emptyResult(q, start), err
	}

	if records == nil {
		records = []*models.BusinessRecord{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	result := &models.HarvestResult{
		Query:          q,
		Records:        records,
		StartTime:      start,
		EndTime:        time.Now(),
		Discovered:     discovered,
		FailedListings: h.failed,
		ErrorsByType:   h.snapshotErrorsLocked(),
		WebsiteVisits:  h.websiteVisits,
	}
	slog.Info("harvest finished",
		slog.Int("records", len(result.Records)),
		slog.Int("failed", result.FailedListings),
		slog.Duration("duration", result.EndTime.Sub(start)),
	)
	return result, nil
}

// extractIsolated runs Extract and turns a panic into a *ListingError.
func (h *Harvester) extractIsolated(ctx context.Context, s browser.Session, l Listing) (rec *models.BusinessRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &ListingError{Index: l.Index, Err: fmt.Errorf("%w: %v", errListingPanic, r)}
		}
	}()
	return h.Extract(ctx, s, l)
}

func (h *Harvester) recordFailure(err error) {
	label := failureLabel(err)
	attrs := []any{
		slog.String("category", label),
		slog.Any("error", err),
	}
	var le *ListingError
	if errors.As(err, &le) {
		attrs = append(attrs, slog.Int("index", le.Index), slog.String("name", le.Name))
	}
	slog.Error("listing skipped", attrs...)

	h.Metrics.IncListingFailure(label)
	h.mu.Lock()
	h.failed++
	h.errorsByType[label]++
	h.mu.Unlock()
}

func (h *Harvester) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = 0
	h.websiteVisits = 0
	h.errorsByType = make(map[string]int)
}

func (h *Harvester) emptyResult(q models.Query, start time.Time) *models.HarvestResult {
	return &models.HarvestResult{
		Query:        q,
		Records:      []*models.BusinessRecord{},
		StartTime:    start,
		EndTime:      time.Now(),
		ErrorsByType: map[string]int{},
	}
}

func (h *Harvester) snapshotErrorsLocked() map[string]int {
	out := make(map[string]int, len(h.errorsByType))
	for k, v := range h.errorsByType {
		out[k] = v
	}
	return out
}
