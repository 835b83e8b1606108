package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/aluiziolira/go-scrape-leads/scraper"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]*models.Result
	closed      bool
	validateErr error
}

func (mw *mockWriter) Write(results []*models.Result) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	copyBatch := make([]*models.Result, len(results))
	copy(copyBatch, results)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
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

func (mw *mockWriter) targets() []string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	var out []string
	for _, batch := range mw.batches {
		for _, result := range batch {
			out = append(out, result.Target)
		}
	}
	sort.Strings(out)
	return out
}

type blockingWriter struct {
	blockCh chan struct{}
}

func (bw *blockingWriter) Write(results []*models.Result) error {
	<-bw.blockCh
	return nil
}

func (bw *blockingWriter) Close() error {
	return nil
}

func (bw *blockingWriter) Validate() error {
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]*models.Result) error { return errors.New("disk full") }

func (failingWriter) Close() error { return nil }

func (failingWriter) Validate() error { return nil }

type countingRunner struct {
	calls atomic.Int64
}

func (r *countingRunner) run(_ context.Context, target string) *models.Result {
	r.calls.Add(1)
	return &models.Result{
		Status: models.StatusSuccess,
		Source: "Website Scan",
		Target: target,
		Leads:  []models.Lead{models.NewLead("info@"+target, "https://"+target+"/", models.TierTeamInbox)},
	}
}

func TestPipelineProcessDedupesTargets(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	runner := &countingRunner{}
	p := NewPipeline(context.Background(), runner.run, writer, cfg)
	p.Start(1)

	if err := p.Process("acme.com", "", "https://www.acme.com/", "ACME.com", "globex.com", "   "); err != nil {
		t.Fatalf("process: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 2 {
		t.Fatalf("written results = %d, want 2", got)
	}
	if got := runner.calls.Load(); got != 2 {
		t.Fatalf("runner calls = %d, want 2", got)
	}

	metrics := p.GetMetrics()
	skipped, ok := metrics["skipped"].(map[string]int)
	if !ok {
		t.Fatalf("expected skipped map")
	}
	if skipped["duplicate_target"] != 2 {
		t.Fatalf("duplicate_target = %d, want 2", skipped["duplicate_target"])
	}
	if metrics["processed_targets"].(int64) != 2 || metrics["leads"].(int64) != 2 {
		t.Fatalf("metrics = %v", metrics)
	}
}

func TestPipelineBatchFlushThreshold(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 16
	writer := &mockWriter{}
	runner := &countingRunner{}
	p := NewPipeline(context.Background(), runner.run, writer, cfg)
	p.Start(1)

	for i := 0; i < 17; i++ {
		if err := p.Process(fmt.Sprintf("site%d.com", i)); err != nil {
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
	if sizes[0] != 16 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [16 1]", sizes)
	}
}

func TestPipelineCloseDrainsPendingItems(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	runner := &countingRunner{}
	p := NewPipeline(context.Background(), runner.run, writer, cfg)
	p.Start(4)

	for i := 0; i < 100; i++ {
		if err := p.Process(fmt.Sprintf("site%d.com", i+200)); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 100 {
		t.Fatalf("written results = %d, want 100", got)
	}
	if got := writer.targets(); got[0] != "site200.com" || got[len(got)-1] != "site299.com" {
		t.Fatalf("targets = %v", got)
	}
}

func TestPipelineRecordsTargetMetrics(t *testing.T) {
	cfg := config.DefaultConfig()
	metrics := scraper.NewMetrics()
	writer := &mockWriter{}
	runner := func(_ context.Context, target string) *models.Result {
		if target == "broken" {
			return &models.Result{Status: models.StatusError, Target: target, Leads: []models.Lead{},
				Error: &models.ErrorInfo{Kind: models.ErrorInvalidTarget, Message: "invalid target"}}
		}
		return &models.Result{Status: models.StatusNoResults, Target: target, Leads: []models.Lead{}}
	}
	p := NewPipeline(context.Background(), runner, writer, cfg)
	p.Metrics = metrics
	p.Start(2)

	if err := p.Process("acme.com", "broken", "acme.com"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	byStatus := p.GetMetrics()["by_status"].(map[string]int)
	if byStatus["error"] != 1 || byStatus["no_results"] != 1 {
		t.Fatalf("by_status = %v", byStatus)
	}

	families, err := metrics.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "leadscout_bulk_targets_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" {
					counts[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	if counts["duplicate"] != 1 || counts["error"] != 1 || counts["no_results"] != 1 {
		t.Fatalf("target counters = %v", counts)
	}
}

func TestPipelinePacesDispatch(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BulkRate = 20
	writer := &mockWriter{}
	runner := &countingRunner{}
	p := NewPipeline(context.Background(), runner.run, writer, cfg)
	p.Start(4)

	start := time.Now()
	if err := p.Process("a.com", "b.com", "c.com", "d.com", "e.com"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Burst of one, then four more at 50ms intervals.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("elapsed = %s, want pacing of at least 150ms", elapsed)
	}
	if got := writer.totalWritten(); got != 5 {
		t.Fatalf("written results = %d, want 5", got)
	}
}

func TestPipelineCancelledContextSkipsTargets(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BulkRate = 0.001
	writer := &mockWriter{}
	runner := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPipeline(ctx, runner.run, writer, cfg)
	p.Start(1)

	if err := p.Process("a.com", "b.com", "c.com"); err != nil {
		t.Fatalf("process: %v", err)
	}
	cancel()

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := runner.calls.Load(); got > 1 {
		t.Fatalf("runner calls = %d, want at most 1", got)
	}
	if err := p.Process("d.com"); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineWriteErrorStopsIntake(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 1
	runner := &countingRunner{}
	p := NewPipeline(context.Background(), runner.run, failingWriter{}, cfg)
	p.Start(1)

	if err := p.Process("a.com"); err != nil {
		t.Fatalf("process: %v", err)
	}

	err := p.Close()
	if err == nil || !errors.Is(err, p.Err()) {
		t.Fatalf("close = %v, want write error", err)
	}
	if err := p.Process("b.com"); err == nil {
		t.Fatal("expected error after write failure")
	}
}

func TestPipelineCloseTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 1

	writer := &blockingWriter{blockCh: make(chan struct{})}
	runner := &countingRunner{}
	p := NewPipeline(context.Background(), runner.run, writer, cfg)
	p.Start(1)

	if err := p.Process("blocked.com"); err != nil {
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

func TestDedupeKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"acme.com", "acme.com"},
		{"https://WWW.Acme.com/contact", "acme.com"},
		{"  Not A Domain ", "not a domain"},
	}

	for _, tt := range tests {
		if got := DedupeKey(tt.input); got != tt.expected {
			t.Errorf("DedupeKey(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
