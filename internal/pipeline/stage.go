package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
	"github.com/joseph-ayodele/rol-extractor/internal/extract"
	"github.com/joseph-ayodele/rol-extractor/internal/metrics"
	"github.com/joseph-ayodele/rol-extractor/internal/normalize"
	"github.com/joseph-ayodele/rol-extractor/internal/preprocess"
	"github.com/joseph-ayodele/rol-extractor/internal/render"
	"github.com/joseph-ayodele/rol-extractor/internal/validate"
)

// TextRecognizer is the OCR step as seen by a page.
type TextRecognizer interface {
	ExtractText(ctx context.Context, page int, img preprocess.BinaryImage) (string, error)
}

// PageResult is everything one page contributed to the run.
type PageResult struct {
	Index      int
	Status     constants.PageStatus
	Records    []entity.ValidatedRecord
	Candidates int
	Patterns   []extract.PatternStats
	Rejections validate.Rejections
	Err        error
	Duration   time.Duration
}

// PageStage carries one page from image to validated records. It holds no
// per-page state and is shared by all workers.
type PageStage struct {
	preprocess preprocess.Config
	ocr        TextRecognizer
	normalizer *normalize.Normalizer
	extractor  *extract.Extractor
	validator  *validate.Validator
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

func NewPageStage(
	pre preprocess.Config,
	ocr TextRecognizer,
	normalizer *normalize.Normalizer,
	extractor *extract.Extractor,
	validator *validate.Validator,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *PageStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageStage{
		preprocess: pre,
		ocr:        ocr,
		normalizer: normalizer,
		extractor:  extractor,
		validator:  validator,
		metrics:    rec,
		logger:     logger,
	}
}

// Process never fails: a stage error is recorded on the result as a
// *common.PageError and the page contributes no records.
func (s *PageStage) Process(ctx context.Context, page render.PageImage) (res PageResult) {
	start := time.Now()
	res = PageResult{Index: page.Index, Status: constants.PageStatusOK}
	s.metrics.StartPage()
	defer func() {
		res.Duration = time.Since(start)
		s.metrics.FinishPage(string(res.Status), res.Duration)
	}()

	img, err := page.Image()
	if err != nil {
		return s.failed(res, constants.PageStatusRenderFailed, common.StageRender, err)
	}

	bin, err := safePreprocess(img, s.preprocess)
	if err != nil {
		return s.failed(res, constants.PageStatusPreprocessFailed, common.StagePreprocess, err)
	}

	raw, err := s.ocr.ExtractText(ctx, page.Index, bin)
	if err != nil {
		var pe *common.PageError
		if errors.As(err, &pe) {
			res.Status, res.Err = constants.PageStatusOCRFailed, err
			return res
		}
		return s.failed(res, constants.PageStatusOCRFailed, common.StageOCR, err)
	}

	text := s.normalizer.Normalize(raw)
	cands, stats, err := s.extractor.Extract(page.Index, text)
	if err != nil {
		return s.failed(res, constants.PageStatusExtractFailed, common.StageExtract, err)
	}
	res.Candidates = len(cands)
	res.Patterns = stats
	for _, st := range stats {
		s.metrics.ObservePattern(st.Pattern, st.Matches, st.Candidates)
	}

	res.Records, res.Rejections = s.validator.Validate(cands)
	s.metrics.ObserveRejections(validate.ReasonSegmentation, res.Rejections.Segmentation)
	s.metrics.ObserveRejections(validate.ReasonKeyword, res.Rejections.Keyword)
	return res
}

func (s *PageStage) failed(res PageResult, status constants.PageStatus, stage common.Stage, err error) PageResult {
	res.Status = status
	res.Err = &common.PageError{Page: res.Index, Stage: stage, Err: err}
	s.logger.Warn("page failed", "page", common.PageNumber(res.Index), "stage", stage, "error", err)
	return res
}

// safePreprocess confines a panic raised by an image.Image implementation
// to its page.
func safePreprocess(img image.Image, cfg preprocess.Config) (bin preprocess.BinaryImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("preprocess panic: %v", r)
		}
	}()
	bin = preprocess.Preprocess(img, cfg)
	if bin.Width == 0 || bin.Height == 0 {
		return bin, errors.New("empty page image")
	}
	return bin, nil
}
