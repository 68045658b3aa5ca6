package contact

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/maps-harvester/backoff"
	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/metrics"
)

const maxPageBytes = 2 * 1024 * 1024

// Crawler fetches follow-up contact pages over plain HTTP. The business
// landing page itself is rendered by the browser; these pages are not.
type Crawler struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *metrics.Metrics
}

// NewCrawler builds a crawler configured from cfg.
func NewCrawler(cfg *config.Config, m *metrics.Metrics) (*Crawler, error) {
	collector := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
		colly.MaxBodySize(maxPageBytes),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &Crawler{cfg: cfg, collector: collector, metrics: m}, nil
}

// Crawl fetches links and mines each page. Results are merged in link order
// so an earlier page's social link beats a later one. Pages that fail after
// retries are skipped.
func (c *Crawler) Crawl(ctx context.Context, links []string) (Result, error) {
	merged := Result{Emails: []string{}}
	if len(links) == 0 {
		merged.Socials = merged.Socials.Finalize()
		return merged, nil
	}

	collector := c.collector.Clone()
	retry := newRetryManager(c.cfg, c.metrics)
	defer retry.Stop()

	var mu sync.Mutex
	pages := make([]*Result, len(links))

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Ctx.Put("start", time.Now())
		c.metrics.IncRequest("started")
	})

	collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			c.metrics.ObserveDuration(time.Since(start))
		}
		c.metrics.IncRequest("completed")

		if ct := r.Headers.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
			slog.Debug("skipping non-html contact page",
				slog.String("url", r.Request.URL.String()),
				slog.String("content_type", ct),
			)
			return
		}
		index, ok := r.Ctx.GetAny("index").(int)
		if !ok {
			return
		}
		page, err := Mine(string(r.Body))
		if err != nil {
			slog.Debug("mine contact page", slog.String("url", r.Request.URL.String()), slog.Any("error", err))
			return
		}
		mu.Lock()
		pages[index] = &page
		mu.Unlock()
	})

	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		url := ""
		if r != nil {
			statusCode = r.StatusCode
			if r.Request != nil && r.Request.URL != nil {
				url = r.Request.URL.String()
			}
		}
		classified := classifyError(url, err, statusCode)
		category := errorTypeLabel(classified)
		c.metrics.IncError(category)

		if classified != nil && classified.Retryable() && r != nil && r.Request != nil {
			if delay, ok := retry.Schedule(ctx, url); ok {
				if err := backoff.Wait(ctx, delay); err != nil {
					return
				}
				if err := r.Request.Retry(); err != nil {
					slog.Debug("retry contact page failed", slog.String("url", url), slog.Any("error", err))
				}
				return
			}
		}

		slog.Debug("contact page failed",
			slog.String("url", url),
			slog.String("category", category),
			slog.Any("error", err),
		)
	})

	for i, link := range links {
		reqCtx := colly.NewContext()
		reqCtx.Put("index", i)
		if err := collector.Request(http.MethodGet, link, nil, reqCtx, nil); err != nil {
			slog.Debug("queue contact page", slog.String("url", link), slog.Any("error", err))
		}
	}
	collector.Wait()
	slog.Debug("contact pages crawled",
		slog.Int("links", len(links)),
		slog.Int("retries", retry.TotalRetries()),
	)

	for _, page := range pages {
		if page != nil {
			merged = merged.Merge(*page)
		}
	}
	merged.Socials = merged.Socials.Finalize()
	return merged, ctx.Err()
}
