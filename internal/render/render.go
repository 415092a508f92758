// Package render turns a PDF into one raster image per page using pdfcpu for
// inspection and poppler's pdftoppm for rasterization.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
)

type Config struct {
	Pdftoppm    string // binary name or absolute path; if empty -> "pdftoppm"
	DPI         int    // default 300
	Grayscale   bool
	MaxPages    int    // 0 = no limit
	ImageFormat string // png | tiff
}

// FromConfig copies the render section of the app config.
func FromConfig(c common.RenderConfig) Config {
	return Config{
		Pdftoppm:    c.Pdftoppm,
		DPI:         c.DPI,
		Grayscale:   c.Grayscale,
		MaxPages:    c.MaxPages,
		ImageFormat: c.ImageFormat,
	}
}

type Renderer struct {
	cfg    Config
	runner common.Runner
	logger *slog.Logger
}

func NewRenderer(cfg Config, runner common.Runner, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = common.ExecRunner{}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.ImageFormat != constants.TIFF {
		cfg.ImageFormat = constants.PNG
	}
	return &Renderer{cfg: cfg, runner: runner, logger: logger}
}

// Inspect opens and validates the document and returns its page count. An
// unreadable, corrupt or empty document is a fatal input error.
func Inspect(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, common.FatalInput("open "+path, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, common.FatalInput("read "+path, err)
	}
	if ctx.PageCount <= 0 {
		return 0, common.FatalInput(path+" has no pages", nil)
	}
	return ctx.PageCount, nil
}

// Render rasterizes every page of the document at path into a temporary
// directory. The returned cleanup func removes it and must be called once the
// pages are no longer needed. Pages are returned in document order.
func (r *Renderer) Render(ctx context.Context, path string) ([]PageImage, func(), error) {
	start := time.Now()
	noop := func() {}

	count, err := Inspect(path)
	if err != nil {
		return nil, noop, err
	}
	if r.cfg.MaxPages > 0 && count > r.cfg.MaxPages {
		count = r.cfg.MaxPages
	}

	tmpDir, err := os.MkdirTemp("", "rol-pp-*")
	if err != nil {
		return nil, noop, common.FatalInput("create render dir", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("failed to remove render dir", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 [-gray] -png|-tiff [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(r.cfg.DPI)}
	if r.cfg.Grayscale {
		args = append(args, "-gray")
	}
	args = append(args, "-"+r.cfg.ImageFormat)
	if r.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(r.cfg.MaxPages))
	}
	args = append(args, path, prefix)

	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, r.logger, args...)
	if err != nil {
		cleanup()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, noop, ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %w", common.ErrEngineMissing, err)
		}
		return nil, noop, common.FatalInput("rasterize "+path+": "+common.Truncate(strings.TrimSpace(string(errb)), 512), err)
	}

	files, err := collectPages(prefix, r.cfg.ImageFormat)
	if err != nil {
		cleanup()
		return nil, noop, common.FatalInput("collect rendered pages", err)
	}
	if len(files) == 0 {
		cleanup()
		return nil, noop, common.FatalInput("pdftoppm produced no images", nil)
	}
	if len(files) > count {
		files = files[:count]
	}
	if len(files) != count {
		r.logger.Warn("rendered page count differs from document", "path", path, "expected", count, "rendered", len(files))
	}

	pages := make([]PageImage, len(files))
	for i, f := range files {
		pages[i] = PageImage{Index: i, DPI: r.cfg.DPI, path: f}
	}
	r.logger.Info("document rendered",
		"path", path,
		"pages", len(pages),
		"dpi", r.cfg.DPI,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, cleanup, nil
}

// collectPages globs prefix-N.ext and orders the files by page number;
// pdftoppm zero-pads N only as wide as the page count needs.
func collectPages(prefix, format string) ([]string, error) {
	ext := "png"
	if format == constants.TIFF {
		ext = "tif"
	}
	matches, err := filepath.Glob(prefix + "-*." + ext)
	if err != nil {
		return nil, err
	}
	num := func(p string) int {
		s := strings.TrimSuffix(strings.TrimPrefix(p, prefix+"-"), "."+ext)
		n, err := strconv.Atoi(s)
		if err != nil {
			return -1
		}
		return n
	}
	sort.SliceStable(matches, func(i, j int) bool { return num(matches[i]) < num(matches[j]) })
	return matches, nil
}
