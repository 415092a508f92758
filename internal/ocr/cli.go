package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
)

// CLIEngine runs the tesseract binary once per page.
type CLIEngine struct {
	binary string
	runner common.Runner
	logger *slog.Logger
}

func NewCLIEngine(binary string, runner common.Runner, logger *slog.Logger) *CLIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = common.ExecRunner{}
	}
	if binary == "" {
		binary = "tesseract"
	}
	return &CLIEngine{binary: binary, runner: runner, logger: logger}
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

func (e *CLIEngine) Recognize(ctx context.Context, in Input) (string, error) {
	ext := ".png"
	if in.Format == constants.TIFF {
		ext = ".tif"
	}
	f, err := os.CreateTemp("", "rol-page-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create page file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(in.Image); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write page file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close page file: %w", err)
	}

	// tesseract <file> stdout -l <lang> --psm N --oem N ...
	out, errb, err := e.runner.Run(ctx, e.binary, e.logger, cliArgs(f.Name(), in)...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: %w", common.ErrEngineMissing, e.binary, err)
		}
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, common.Truncate(msg, 512))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}

func cliArgs(path string, in Input) []string {
	args := []string{path, "stdout", "-l", languageArg(in.Languages)}
	if in.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(in.PSM))
	}
	if in.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(in.OEM))
	}
	if in.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(in.DPI))
	}
	if in.TessdataDir != "" {
		args = append(args, "--tessdata-dir", in.TessdataDir)
	}
	if in.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+in.Whitelist)
	}
	return args
}
