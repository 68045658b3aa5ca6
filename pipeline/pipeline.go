// Package pipeline projects harvested records onto output files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/models"
	"github.com/aluiziolira/maps-harvester/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: timed out draining workers")
)

// drainTimeout bounds how long Close waits for workers.
var drainTimeout = 30 * time.Second

// OutputWriter receives batches of records.
type OutputWriter interface {
	Write(records []*models.BusinessRecord) error
	Close() error
	Validate() error
}

// Stats is a snapshot of what the pipeline has done.
type Stats struct {
	Processed int64
	Skipped   map[string]int
}

// Pipeline validates, de-duplicates and batches records for an OutputWriter.
// Records are never modified.
type Pipeline struct {
	ctx       context.Context
	writer    OutputWriter
	recordCh  chan *models.BusinessRecord
	batchSize int

	wg sync.WaitGroup

	seen *lru.Cache[string, struct{}]

	statsMu   sync.Mutex
	processed int64
	skipped   map[string]int

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline sized from cfg. Workers stop early when ctx
// is cancelled.
func NewPipeline(ctx context.Context, writer OutputWriter, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	bufferSize := cfg.PipelineBufferSize
	if bufferSize <= 0 {
		bufferSize = 1
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	dedupeSize := cfg.DedupeMaxSize
	if dedupeSize <= 0 {
		dedupeSize = 1024
	}
	// lru.New only fails for a non-positive size.
	seen, _ := lru.New[string, struct{}](dedupeSize)

	return &Pipeline{
		ctx:       ctx,
		writer:    writer,
		recordCh:  make(chan *models.BusinessRecord, bufferSize),
		batchSize: batchSize,
		seen:      seen,
		skipped:   make(map[string]int),
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues records for writing.
func (p *Pipeline) Process(records ...*models.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		if err := p.enqueue(r); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting records and waits up to drainTimeout for workers to
// flush what is queued.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.closeOnce.Do(func() {
		close(p.recordCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		p.signalShutdown()
		return ErrPipelineCloseTimeout
	}

	p.signalShutdown()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	skipped := make(map[string]int, len(p.skipped))
	for k, v := range p.skipped {
		skipped[k] = v
	}
	return Stats{Processed: p.processed, Skipped: skipped}
}

// StartProgressLogging logs the counters every interval until Close.
func (p *Pipeline) StartProgressLogging(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := p.Stats()
				slog.Info("pipeline progress",
					slog.Int64("processed", stats.Processed),
					slog.Any("skipped", stats.Skipped),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.BusinessRecord, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = make([]*models.BusinessRecord, 0, p.batchSize)
		return nil
	}

	for {
		select {
		case <-p.ctx.Done():
			p.setErr(p.ctx.Err())
			return
		case r, ok := <-p.recordCh:
			if !ok {
				if err := flush(); err != nil {
					p.setErr(fmt.Errorf("write batch: %w", err))
				}
				return
			}
			if !p.accept(r) {
				continue
			}
			batch = append(batch, r)
			if len(batch) >= p.batchSize {
				if err := flush(); err != nil {
					p.setErr(fmt.Errorf("write batch: %w", err))
					return
				}
			}
		}
	}
}

// accept reports whether r is valid and not seen before.
func (p *Pipeline) accept(r *models.BusinessRecord) bool {
	if err := parser.ValidateRecord(r); err != nil {
		p.skip("invalid_record")
		slog.Debug("record skipped", slog.Any("error", err))
		return false
	}

	key := parser.DedupeKey(r)
	if ok, _ := p.seen.ContainsOrAdd(key, struct{}{}); ok {
		p.skip("duplicate_record")
		return false
	}

	p.statsMu.Lock()
	p.processed++
	p.statsMu.Unlock()
	return true
}

func (p *Pipeline) skip(reason string) {
	p.statsMu.Lock()
	p.skipped[reason]++
	p.statsMu.Unlock()
}

func (p *Pipeline) enqueue(r *models.BusinessRecord) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.recordCh <- r:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}
