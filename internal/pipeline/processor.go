// Package pipeline runs a document through rendering, the per-page stages
// and the final deduplication, and reports what happened to every page and
// pattern.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
	"github.com/joseph-ayodele/rol-extractor/internal/finalize"
	"github.com/joseph-ayodele/rol-extractor/internal/metrics"
	"github.com/joseph-ayodele/rol-extractor/internal/render"
)

// DocumentRenderer turns a document into page images.
type DocumentRenderer interface {
	Render(ctx context.Context, path string) ([]render.PageImage, func(), error)
}

// Result is the outcome of a completed run.
type Result struct {
	RunID  string
	Rows   []entity.OutputRow
	Report Report
}

type Processor struct {
	renderer DocumentRenderer
	stage    *PageStage
	workers  int
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

type Option func(*Processor)

func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Processor) { p.metrics = m }
}

func NewProcessor(renderer DocumentRenderer, stage *PageStage, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		renderer: renderer,
		stage:    stage,
		workers:  runtime.NumCPU(),
		logger:   logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run processes the document at path. A document that cannot be rendered
// fails the run with a fatal input error before any page is processed; a
// cancelled ctx fails it with common.ErrAborted. Page failures never fail
// the run.
func (p *Processor) Run(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	logger := p.logger.With("run_id", runID)
	res := Result{RunID: runID, Report: Report{Document: path}}

	pages, cleanup, err := p.renderer.Render(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%w: %w", common.ErrAborted, ctxErr)
		}
		logger.Error("document rejected", "path", path, "error", err)
		return res, err
	}
	defer cleanup()

	logger.Info("run started", "path", path, "pages", len(pages), "workers", p.workers)
	results, err := p.processPages(ctx, logger, pages)
	res.Report = buildReport(path, results, p.stage.extractor.Errors())
	res.Report.Duration = time.Since(start)
	if err != nil {
		logger.Warn("run aborted", "path", path, "error", err)
		return res, err
	}

	var records []entity.ValidatedRecord
	for _, r := range results {
		records = append(records, r.Records...)
	}
	rows, st, err := finalize.Finalize(records)
	if err != nil {
		logger.Error("finalize failed", "error", err)
		return res, err
	}
	p.metrics.ObserveFinalize(st.Duplicates, st.Rows)

	res.Rows = rows
	res.Report.Duplicates = st.Duplicates
	res.Report.Rows = st.Rows
	res.Report.Duration = time.Since(start)

	logger.Debug("first rows", "rows", rows[:min(5, len(rows))])
	return res, nil
}

// ProcessPages runs every page through the page stage on a pool of workers
// and returns the results indexed like pages. Cancellation is checked before
// each page starts; pages not started are reported as skipped and the error
// wraps common.ErrAborted.
func (p *Processor) ProcessPages(ctx context.Context, pages []render.PageImage) ([]PageResult, error) {
	return p.processPages(ctx, p.logger, pages)
}

func (p *Processor) processPages(ctx context.Context, logger *slog.Logger, pages []render.PageImage) ([]PageResult, error) {
	results := make([]PageResult, len(pages))
	if len(pages) == 0 {
		return results, ctxAbort(ctx)
	}

	workers := min(p.workers, len(pages))
	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		done atomic.Int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				page := pages[i]
				if ctx.Err() != nil {
					results[i] = p.skipped(page.Index)
					continue
				}
				r := p.stage.Process(common.WithPage(ctx, page.Index), page)
				results[i] = r
				n := done.Add(1)
				logger.Info("page processed",
					"worker_id", workerID,
					"page", common.PageNumber(page.Index),
					"progress", fmt.Sprintf("%d/%d", n, len(pages)),
					"status", r.Status,
					"valid", len(r.Records),
					"duration_ms", r.Duration.Milliseconds(),
				)
			}
		}(w + 1)
	}

	sent := 0
feed:
	for ; sent < len(pages); sent++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- sent:
		}
	}
	close(jobs)
	wg.Wait()

	for i := sent; i < len(pages); i++ {
		results[i] = p.skipped(pages[i].Index)
	}
	return results, ctxAbort(ctx)
}

func (p *Processor) skipped(index int) PageResult {
	p.metrics.SkipPage(string(constants.PageStatusSkipped))
	return PageResult{Index: index, Status: constants.PageStatusSkipped}
}

func ctxAbort(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrAborted, err)
	}
	return nil
}
