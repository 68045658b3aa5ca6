package pipeline

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/models"
)

type mockWriter struct {
	mu       sync.Mutex
	batches  [][]*models.BusinessRecord
	closed   bool
	writeErr error
}

func (mw *mockWriter) Write(records []*models.BusinessRecord) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	batch := make([]*models.BusinessRecord, len(records))
	copy(batch, records)
	mw.batches = append(mw.batches, batch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return nil
}

func (mw *mockWriter) totalWritten() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	total := 0
	for _, batch := range mw.batches {
		total += len(batch)
	}
	return total
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

type blockingWriter struct {
	blockCh chan struct{}
}

func (bw *blockingWriter) Write([]*models.BusinessRecord) error {
	<-bw.blockCh
	return nil
}

func (bw *blockingWriter) Close() error    { return nil }
func (bw *blockingWriter) Validate() error { return nil }

func record(name, address string) *models.BusinessRecord {
	return &models.BusinessRecord{
		Name:      name,
		Address:   address,
		Website:   models.NoWebsite,
		Email:     []string{},
		Socials:   models.AllNotFound(),
		ScrapedAt: time.Now(),
	}
}

func TestPipelineSkipsInvalidAndDuplicateRecords(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(context.Background(), writer, cfg)
	p.Start(1)

	valid := record("Cafe Central", "Herrengasse 14")
	nameless := record("", "Somewhere 1")
	duplicate := record("CAFE CENTRAL", "herrengasse 14")
	unresolved := record("Bar", "Gasse 2")
	unresolved.Socials = models.Socials{}

	if err := p.Process(valid, nameless, duplicate, unresolved); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 1 {
		t.Fatalf("written records = %d, want 1", got)
	}
	stats := p.Stats()
	if stats.Processed != 1 {
		t.Fatalf("processed = %d, want 1", stats.Processed)
	}
	if stats.Skipped["invalid_record"] != 2 {
		t.Fatalf("invalid_record = %d, want 2", stats.Skipped["invalid_record"])
	}
	if stats.Skipped["duplicate_record"] != 1 {
		t.Fatalf("duplicate_record = %d, want 1", stats.Skipped["duplicate_record"])
	}
}

func TestPipelineDoesNotModifyRecords(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(context.Background(), writer, cfg)
	p.Start(1)

	r := record("  Cafe  Sperl ", "Gumpendorfer Str. 11")
	before := *r
	if err := p.Process(r); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if r.Name != before.Name || r.Address != before.Address {
		t.Fatalf("record was modified: %+v", r)
	}
}

func TestPipelineBatchFlushThreshold(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 64
	writer := &mockWriter{}
	p := NewPipeline(context.Background(), writer, cfg)
	p.Start(1)

	for i := 0; i < 65; i++ {
		if err := p.Process(record("Shop "+strconv.Itoa(i), "Street")); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sizes := writer.batchSizes()
	if len(sizes) != 2 {
		t.Fatalf("batch writes = %d, want 2", len(sizes))
	}
	if sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
}

func TestPipelineCloseDrainsPendingItems(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(context.Background(), writer, cfg)
	p.Start(2)

	for i := 0; i < 100; i++ {
		if err := p.Process(record("Shop "+strconv.Itoa(i), "Street")); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 100 {
		t.Fatalf("written records = %d, want 100", got)
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewPipeline(context.Background(), &mockWriter{}, cfg)
	p.Start(1)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := p.Process(record("Late", "Street")); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("err = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineWriteErrorSurfaces(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 1
	boom := errors.New("disk full")
	p := NewPipeline(context.Background(), &mockWriter{writeErr: boom}, cfg)
	p.Start(1)

	if err := p.Process(record("Shop", "Street")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); !errors.Is(err, boom) {
		t.Fatalf("close err = %v, want %v", err, boom)
	}
}

func TestPipelineCloseTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 1

	writer := &blockingWriter{blockCh: make(chan struct{})}
	p := NewPipeline(context.Background(), writer, cfg)
	p.Start(1)

	if err := p.Process(record("Blocked", "Street")); err != nil {
		t.Fatalf("process: %v", err)
	}

	previousTimeout := drainTimeout
	drainTimeout = 25 * time.Millisecond
	t.Cleanup(func() {
		drainTimeout = previousTimeout
		close(writer.blockCh)
	})

	if err := p.Close(); err == nil || !errors.Is(err, ErrPipelineCloseTimeout) {
		t.Fatalf("expected close timeout error, got %v", err)
	}
}
