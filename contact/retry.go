package contact

import (
	"context"
	"sync"
	"time"

	"github.com/aluiziolira/maps-harvester/backoff"
	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/metrics"
)

// retryManager hands out capped exponential backoff delays per URL.
type retryManager struct {
	cfg     *config.Config
	metrics *metrics.Metrics

	mu           sync.Mutex
	attempts     map[string]int
	totalRetries int
	stopped      bool
}

func newRetryManager(cfg *config.Config, m *metrics.Metrics) *retryManager {
	return &retryManager{
		cfg:      cfg,
		metrics:  m,
		attempts: make(map[string]int),
	}
}

// Schedule reserves another attempt for url and returns how long to wait
// before it. It reports false once the budget is spent or ctx is done.
func (rm *retryManager) Schedule(ctx context.Context, url string) (time.Duration, bool) {
	if rm.cfg.MaxRetries == 0 {
		return 0, false
	}
	if ctx != nil && ctx.Err() != nil {
		return 0, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return 0, false
	}
	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		return 0, false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()
	return rm.backoff(attempt), true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	return backoff.Delay(rm.cfg.RetryBackoff, rm.cfg.RetryBackoffMax, attempt)
}

func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.stopped = true
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}
