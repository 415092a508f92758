// Package ocr recognizes text on preprocessed page images through a
// pluggable engine.
package ocr

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
)

// Input is one page handed to an engine.
type Input struct {
	Image       []byte // encoded page
	Format      string // png | tiff
	PageIndex   int
	DPI         int
	Languages   []string
	PSM         int
	OEM         int
	Whitelist   string
	TessdataDir string
}

// Engine recognizes the text of a single page image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (string, error)
}

// Settings are the recognition options shared by every page of a run.
type Settings struct {
	Languages     []string
	PSM           int
	OEM           int
	Whitelist     string
	TessdataDir   string
	PayloadFormat string
}

// SettingsFromConfig copies the recognition options of the OCR section.
func SettingsFromConfig(c common.OCRConfig) Settings {
	return Settings{
		Languages:     c.Languages,
		PSM:           c.PSM,
		OEM:           c.OEM,
		Whitelist:     c.Whitelist,
		TessdataDir:   c.TessdataDir,
		PayloadFormat: c.PayloadFormat,
	}
}

func languageArg(langs []string) string {
	if len(langs) == 0 {
		return "por"
	}
	return strings.Join(langs, "+")
}
