// Package export writes the final procedure table to disk as CSV or XLSX.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
)

// Options selects the output encoding. An empty Format is taken from the
// destination extension.
type Options struct {
	Format    string
	Delimiter rune
}

// OptionsFromConfig converts the output section of the app config.
func OptionsFromConfig(cfg common.OutputConfig) Options {
	opts := Options{Format: cfg.Format}
	if r, _ := utf8.DecodeRuneInString(cfg.Delimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}
	return opts
}

// Service writes row tables to files.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Export writes rows to path. The table is first written to a temporary file
// next to path and renamed over it, so a failed export leaves any previous
// file untouched. An empty row set produces a header-only table.
func (s *Service) Export(ctx context.Context, rows []entity.OutputRow, path string, opts Options) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}

	format := opts.Format
	if format == "" {
		format = constants.FormatForPath(path)
	}
	var write func(io.Writer, []entity.OutputRow) error
	switch format {
	case constants.CSV:
		write = func(w io.Writer, rows []entity.OutputRow) error {
			return WriteCSV(w, rows, opts.Delimiter)
		}
	case constants.XLSX:
		write = WriteXLSX
	default:
		return common.ExportFailure("unsupported format "+format, nil)
	}

	if err := writeAtomic(path, rows, write); err != nil {
		s.logger.Error("export failed", "path", path, "format", format, "error", err)
		return common.ExportFailure("write "+path, err)
	}

	s.logger.Info("export.ok",
		"path", path,
		"format", format,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeAtomic(path string, rows []entity.OutputRow, write func(io.Writer, []entity.OutputRow) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp, rows); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	committed = true
	return nil
}
