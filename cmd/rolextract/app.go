package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/rol-extractor/internal/cache"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/export"
	"github.com/joseph-ayodele/rol-extractor/internal/extract"
	"github.com/joseph-ayodele/rol-extractor/internal/metrics"
	"github.com/joseph-ayodele/rol-extractor/internal/normalize"
	"github.com/joseph-ayodele/rol-extractor/internal/ocr"
	"github.com/joseph-ayodele/rol-extractor/internal/ocr/tesseract"
	"github.com/joseph-ayodele/rol-extractor/internal/pipeline"
	"github.com/joseph-ayodele/rol-extractor/internal/preprocess"
	"github.com/joseph-ayodele/rol-extractor/internal/render"
	"github.com/joseph-ayodele/rol-extractor/internal/resilience"
	"github.com/joseph-ayodele/rol-extractor/internal/rules"
	"github.com/joseph-ayodele/rol-extractor/internal/validate"
)

// app holds the components built from one configuration.
type app struct {
	cfg        *common.Config
	logger     *slog.Logger
	metrics    *metrics.Recorder
	renderer   *render.Renderer
	normalizer *normalize.Normalizer
	adapter    *ocr.Adapter
	processor  *pipeline.Processor
	exporter   *export.Service
	closers    []func() error
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	rs, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	normalizer, err := normalize.New(rs.Corrections)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics.NewRecorder(),
		normalizer: normalizer,
		exporter:   export.NewService(logger),
	}

	opts := []ocr.Option{
		ocr.WithExecutor(resilience.NewExecutor(resilience.FromOCRConfig(cfg.OCR), logger)),
		ocr.WithTimeout(cfg.OCR.Timeout),
		ocr.WithObserver(a.metrics),
	}
	if cfg.OCR.CachePath != "" {
		c, err := cache.Open(ctx, cfg.OCR.CachePath, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		opts = append(opts, ocr.WithCache(c))
	}
	a.adapter = ocr.NewAdapter(newEngine(cfg.OCR, logger), ocr.SettingsFromConfig(cfg.OCR), cfg.Render.DPI, logger, opts...)

	extractor := extract.New(extract.Config{
		MinProcedureLength: cfg.Extract.MinProcedureLength,
		ExtraPatterns:      rs.Patterns,
	}, logger)
	stage := pipeline.NewPageStage(
		preprocess.FromConfig(cfg.Preprocess),
		a.adapter,
		normalizer,
		extractor,
		validate.New(rs.Keywords, logger),
		a.metrics,
		logger,
	)

	a.renderer = render.NewRenderer(render.FromConfig(cfg.Render), common.ExecRunner{}, logger)
	a.processor = pipeline.NewProcessor(a.renderer, stage, logger,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithMetrics(a.metrics),
	)

	logger.Debug("components ready",
		"engine", a.adapter.Engine(),
		"patterns", extractor.Patterns(),
		"normalizer_rules", len(normalizer.Rules()),
		"workers", cfg.Pipeline.Workers,
		"cache", cfg.OCR.CachePath != "",
	)
	return a, nil
}

func newEngine(c common.OCRConfig, logger *slog.Logger) ocr.Engine {
	if c.Engine == "gosseract" {
		return tesseract.NewEngine(logger)
	}
	return ocr.NewCLIEngine(c.Tesseract, common.ExecRunner{}, logger)
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
