// Package tesseract provides an in-process OCR engine backed by the
// gosseract bindings to libtesseract. It needs cgo and the tesseract
// development libraries at build time.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/ocr"
)

// Engine implements ocr.Engine with a fresh gosseract client per page.
type Engine struct {
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{clientFactory: gosseract.NewClient, logger: logger}
}

func (e *Engine) Name() string { return "tesseract-lib" }

// Recognize performs OCR on a single page. libtesseract cannot be
// interrupted, so ctx is only checked before the call.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer func() {
		if err := c.Close(); err != nil {
			e.logger.Warn("gosseract close failed", "page", common.PageNumber(in.PageIndex), "error", err)
		}
	}()

	if in.TessdataDir != "" {
		if err := c.SetTessdataPrefix(in.TessdataDir); err != nil {
			return "", fmt.Errorf("set tessdata dir: %w", err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if in.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(in.PSM)); err != nil {
			return "", fmt.Errorf("set psm: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	if in.Whitelist != "" {
		if err := c.SetWhitelist(in.Whitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
