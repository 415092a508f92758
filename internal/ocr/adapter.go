package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/tiff"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/cache"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/preprocess"
	"github.com/joseph-ayodele/rol-extractor/internal/resilience"
)

// TextCache stores recognized text by content key.
type TextCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, text string) error
}

// Executor runs an engine call under a retry and breaker policy.
type Executor interface {
	Execute(ctx context.Context, operation string, fn func(context.Context) error, classifier resilience.ErrorClassifier) error
}

// Observer is told about every page recognition.
type Observer interface {
	ObserveOCR(engine string, cacheHit bool, elapsed time.Duration, err error)
}

type Option func(*Adapter)

func WithCache(c TextCache) Option { return func(a *Adapter) { a.cache = c } }

func WithExecutor(e Executor) Option { return func(a *Adapter) { a.exec = e } }

func WithObserver(o Observer) Option { return func(a *Adapter) { a.observer = o } }

// WithTimeout bounds each engine call; zero means no bound.
func WithTimeout(d time.Duration) Option { return func(a *Adapter) { a.timeout = d } }

// Adapter turns a binary page image into raw text. It never fails a run:
// every error comes back as a page-scoped *common.PageError alongside "".
type Adapter struct {
	engine   Engine
	settings Settings
	dpi      int
	timeout  time.Duration
	cache    TextCache
	exec     Executor
	observer Observer
	logger   *slog.Logger
}

func NewAdapter(engine Engine, settings Settings, dpi int, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.PayloadFormat != constants.TIFF {
		settings.PayloadFormat = constants.PNG
	}
	a := &Adapter{engine: engine, settings: settings, dpi: dpi, logger: logger}
	for _, o := range opts {
		o(a)
	}
	if a.exec == nil {
		a.exec = resilience.NewExecutor(resilience.DefaultConfig(), logger)
	}
	return a
}

// Engine returns the wrapped engine name.
func (a *Adapter) Engine() string { return a.engine.Name() }

// ExtractText recognizes the text of one page.
func (a *Adapter) ExtractText(ctx context.Context, page int, img preprocess.BinaryImage) (string, error) {
	start := time.Now()
	if img.Width == 0 || img.Height == 0 {
		return "", nil
	}

	payload, err := a.encode(img)
	if err != nil {
		return "", a.fail(page, start, fmt.Errorf("encode page: %w", err))
	}

	key := a.cacheKey(payload)
	if a.cache != nil {
		text, ok, err := a.cache.Get(ctx, key)
		if err != nil {
			a.logger.Warn("ocr cache read failed", "page", common.PageNumber(page), "error", err)
		} else if ok {
			a.observe(true, time.Since(start), nil)
			return text, nil
		}
	}

	in := Input{
		Image:       payload,
		Format:      a.settings.PayloadFormat,
		PageIndex:   page,
		DPI:         a.dpi,
		Languages:   a.settings.Languages,
		PSM:         a.settings.PSM,
		OEM:         a.settings.OEM,
		Whitelist:   a.settings.Whitelist,
		TessdataDir: a.settings.TessdataDir,
	}
	var text string
	err = a.exec.Execute(common.WithPage(ctx, page), "ocr:"+a.engine.Name(), func(ctx context.Context) error {
		callCtx := ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		t, err := a.engine.Recognize(callCtx, in)
		if err != nil {
			return err
		}
		text = t
		return nil
	}, resilience.ClassifyOCR)
	if err != nil {
		return "", a.fail(page, start, err)
	}

	if a.cache != nil {
		if err := a.cache.Put(ctx, key, text); err != nil {
			a.logger.Warn("ocr cache write failed", "page", common.PageNumber(page), "error", err)
		}
	}
	a.observe(false, time.Since(start), nil)
	a.logger.Debug("page recognized",
		"page", common.PageNumber(page),
		"engine", a.engine.Name(),
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (a *Adapter) fail(page int, start time.Time, err error) error {
	a.observe(false, time.Since(start), err)
	a.logger.Warn("ocr failed", "page", common.PageNumber(page), "engine", a.engine.Name(), "error", err)
	return &common.PageError{Page: page, Stage: common.StageOCR, Err: err}
}

func (a *Adapter) observe(cached bool, d time.Duration, err error) {
	if a.observer != nil {
		a.observer.ObserveOCR(a.engine.Name(), cached, d, err)
	}
}

func (a *Adapter) encode(img preprocess.BinaryImage) ([]byte, error) {
	var buf bytes.Buffer
	g := img.Gray()
	var err error
	if a.settings.PayloadFormat == constants.TIFF {
		err = tiff.Encode(&buf, g, &tiff.Options{Compression: tiff.Deflate})
	} else {
		err = png.Encode(&buf, g)
	}
	return buf.Bytes(), err
}

func (a *Adapter) cacheKey(payload []byte) string {
	return cache.Key(payload,
		a.engine.Name(),
		languageArg(a.settings.Languages),
		strconv.Itoa(a.settings.PSM),
		strconv.Itoa(a.settings.OEM),
		strconv.Itoa(a.dpi),
		a.settings.Whitelist,
		strings.TrimSpace(a.settings.TessdataDir),
	)
}
