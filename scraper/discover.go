package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/maps-harvester/backoff"
	"github.com/aluiziolira/maps-harvester/browser"
	"github.com/aluiziolira/maps-harvester/models"
)

// Listing refers to the Index-th result anchor of one live session. It is
// only meaningful while that session is open.
type Listing struct {
	Index   int
	session uint64
}

// Discover searches for q.SearchTerm and scrolls the result feed until the
// requested quantity is visible, the count stops growing, or the poll
// ceiling is reached. Listings come back in visual order.
func (h *Harvester) Discover(ctx context.Context, s browser.Session, q models.Query) ([]Listing, error) {
	page := s.Page()
	sel := h.cfg.Selectors

	if err := page.Fill(ctx, sel.SearchInput, q.SearchTerm); err != nil {
		return nil, fmt.Errorf("fill search input: %w", err)
	}
	if err := page.PressEnter(ctx, sel.SearchInput); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.cfg.ResultWaitTimeout)
	err := page.WaitVisible(waitCtx, sel.ResultAnchor)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			slog.Info("no results found", slog.String("term", q.SearchTerm))
			return []Listing{}, nil
		}
		return nil, fmt.Errorf("wait for results: %w", err)
	}

	previous, count := 0, 0
	for poll := 1; poll <= h.cfg.MaxScrollPolls; poll++ {
		if err := page.ScrollBy(ctx, sel.ResultFeed, h.cfg.ScrollStep); err != nil {
			return nil, fmt.Errorf("scroll results: %w", err)
		}
		if err := backoff.Wait(ctx, h.cfg.SettleDelay); err != nil {
			return nil, err
		}
		count, err = page.Count(ctx, sel.ResultAnchor)
		if err != nil {
			return nil, fmt.Errorf("count results: %w", err)
		}
		h.Metrics.IncPoll()
		slog.Debug("result poll", slog.Int("poll", poll), slog.Int("count", count))

		if !q.IsUnbounded() && count >= q.Quantity {
			return h.listings(s, q.Quantity), nil
		}
		if count == previous {
			return h.listings(s, count), nil
		}
		previous = count
	}

	slog.Warn("scroll ceiling reached",
		slog.Int("polls", h.cfg.MaxScrollPolls),
		slog.Int("count", count),
	)
	if !q.IsUnbounded() && count > q.Quantity {
		count = q.Quantity
	}
	return h.listings(s, count), nil
}

func (h *Harvester) listings(s browser.Session, n int) []Listing {
	out := make([]Listing, n)
	for i := range out {
		out[i] = Listing{Index: i, session: s.ID()}
	}
	h.Metrics.AddDiscovered(n)
	return out
}
