// Package pipeline runs discovery over many targets and writes the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/aluiziolira/go-scrape-leads/parser"
	"github.com/aluiziolira/go-scrape-leads/scraper"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")

	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds how long Close waits for in-flight targets.
var drainTimeout = 30 * time.Minute

// Runner performs one discovery request for a raw target.
type Runner func(ctx context.Context, target string) *models.Result

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(results []*models.Result) error
	Close() error
	Validate() error
}

// Pipeline fans targets out to a pool of workers, skips targets already
// seen in this run, paces dispatch and writes results in batches.
type Pipeline struct {
	ctx       context.Context
	runner    Runner
	writer    OutputWriter
	targetCh  chan string
	batchSize int
	limiter   *rate.Limiter

	// Metrics is optional; nil disables Prometheus accounting.
	Metrics *scraper.Metrics

	wg sync.WaitGroup

	seen *lru.Cache[string, struct{}]

	stats stats

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline sized from cfg. ctx bounds every request the
// workers make.
func NewPipeline(ctx context.Context, runner Runner, writer OutputWriter, cfg *config.Config) *Pipeline {
	seen, err := lru.New[string, struct{}](max(cfg.DedupeMaxSize, 1))
	if err != nil {
		// Only a non-positive size fails.
		panic(fmt.Sprintf("pipeline: dedupe cache: %v", err))
	}

	limit := rate.Inf
	if cfg.BulkRate > 0 {
		limit = rate.Limit(cfg.BulkRate)
	}

	return &Pipeline{
		ctx:       ctx,
		runner:    runner,
		writer:    writer,
		targetCh:  make(chan string, max(cfg.PipelineBufferSize, 1)),
		batchSize: max(cfg.BatchSize, 1),
		limiter:   rate.NewLimiter(limit, 1),
		seen:      seen,
		stats:     newStats(),
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

// Process enqueues targets. Blank targets and targets already seen in this
// run are skipped.
func (p *Pipeline) Process(targets ...string) error {
	if len(targets) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if found, _ := p.seen.ContainsOrAdd(DedupeKey(target), struct{}{}); found {
			p.stats.addSkipped("duplicate_target")
			p.Metrics.IncTarget("duplicate")
			continue
		}
		if err := p.enqueue(target); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for workers to finish and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.targetCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return p.Err()
	case <-time.After(drainTimeout):
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.stats.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("bulk progress",
					slog.Int64("processed_targets", metrics["processed_targets"].(int64)),
					slog.Int64("leads", metrics["leads"].(int64)),
					slog.Any("by_status", metrics["by_status"]),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

// DedupeKey is the comparison form of a bulk target: its bare domain when
// it normalizes, otherwise the lower-cased input.
func DedupeKey(raw string) string {
	if target, err := parser.NormalizeTarget(raw); err == nil {
		return target.Domain
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.Result, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for target := range p.targetCh {
		result := p.run(target)
		if result == nil {
			continue
		}
		batch = append(batch, result)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) run(target string) *models.Result {
	if err := p.limiter.Wait(p.ctx); err != nil {
		p.stats.addSkipped("cancelled")
		p.Metrics.IncTarget("cancelled")
		return nil
	}

	result := p.runner(p.ctx, target)
	if result == nil {
		p.stats.addSkipped("no_result")
		p.Metrics.IncTarget("error")
		return nil
	}

	p.stats.record(result)
	p.Metrics.IncTarget(string(result.Status))
	slog.Debug("bulk target done",
		slog.String("target", target),
		slog.String("status", string(result.Status)),
		slog.Int("leads", len(result.Leads)),
	)
	return result
}

func (p *Pipeline) enqueue(target string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.targetCh <- target:
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

type stats struct {
	mu        sync.Mutex
	processed int64
	leads     int64
	byStatus  map[string]int
	skipped   map[string]int
}

func newStats() stats {
	return stats{
		byStatus: make(map[string]int),
		skipped:  make(map[string]int),
	}
}

func (s *stats) record(result *models.Result) {
	s.mu.Lock()
	s.processed++
	s.leads += int64(len(result.Leads))
	s.byStatus[string(result.Status)]++
	s.mu.Unlock()
}

func (s *stats) addSkipped(kind string) {
	s.mu.Lock()
	s.skipped[kind]++
	s.mu.Unlock()
}

func (s *stats) snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	byStatus := make(map[string]int, len(s.byStatus))
	for k, v := range s.byStatus {
		byStatus[k] = v
	}
	skipped := make(map[string]int, len(s.skipped))
	for k, v := range s.skipped {
		skipped[k] = v
	}

	return map[string]interface{}{
		"processed_targets": s.processed,
		"leads":             s.leads,
		"by_status":         byStatus,
		"skipped":           skipped,
	}
}
