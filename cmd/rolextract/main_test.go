package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/normalize"
	"github.com/joseph-ayodele/rol-extractor/internal/preprocess"
	"github.com/joseph-ayodele/rol-extractor/internal/render"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", usageError{errors.New("accepts 1 arg(s), received 0")}, 2},
		{"invalid config", fmt.Errorf("%w: OCR_ENGINE must be one of", common.ErrInvalidConfig), 2},
		{"unknown command", errors.New(`unknown command "frob" for "rolextract"`), 2},
		{"fatal input", common.FatalInput("not a pdf", errors.New("eof")), 1},
		{"export", common.ExportFailure("rename", os.ErrPermission), 1},
		{"aborted", fmt.Errorf("%w: %w", common.ErrAborted, context.Canceled), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"run"},
		{"run", "a.pdf", "b.pdf"},
		{"run", "--no-such-flag", "a.pdf"},
		{"frobnicate"},
		{"ocr", "a.pdf", "--page", "0"},
	} {
		t.Run(fmt.Sprint(args), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 2, execute(context.Background(), args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), "Error:")
		})
	}
}

func TestExecute_InvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{"run", "--engine", "abbyy", "a.pdf"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "OCR_ENGINE")
}

func TestExecute_UnreadableDocument(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "rol.csv")
	report := filepath.Join(dir, "report.json")

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{
		"run", filepath.Join(dir, "missing.pdf"),
		"--out", out,
		"--report", report,
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.NoFileExists(t, out)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, filepath.Join(dir, "missing.pdf"), got["document"])
}

func TestApplyRunFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--out", "rol.xlsx",
		"--workers", "3",
		"--threshold", "otsu",
		"--rules", "extra.yaml",
	}))

	cfg := common.LoadConfig()
	engine := cfg.OCR.Engine
	require.NoError(t, applyRunFlags(cmd, cfg))

	assert.Equal(t, "rol.xlsx", cfg.Output.Path)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, "otsu", cfg.Preprocess.Threshold)
	assert.Equal(t, "extra.yaml", cfg.RulesFile)
	assert.Equal(t, engine, cfg.OCR.Engine, "unset flags leave the config alone")
}

type stubRenderer struct {
	pages []render.PageImage
}

func (s stubRenderer) Render(context.Context, string) ([]render.PageImage, func(), error) {
	return s.pages, func() {}, nil
}

type stubRecognizer struct {
	text  string
	pages []int
}

func (s *stubRecognizer) ExtractText(_ context.Context, page int, _ preprocess.BinaryImage) (string, error) {
	s.pages = append(s.pages, page)
	return s.text, nil
}

func TestRecognizePage(t *testing.T) {
	r := stubRenderer{pages: []render.PageImage{
		render.FromImage(0, 300, image.NewGray(image.Rect(0, 0, 20, 20))),
		render.FromImage(1, 300, image.NewGray(image.Rect(0, 0, 20, 20))),
	}}
	ocr := &stubRecognizer{text: "Cordotornia  percutanea unilateral OD"}

	raw, text, err := recognizePage(context.Background(), r, preprocess.DefaultConfig(), ocr, normalize.Default(), "rol.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, "Cordotornia  percutanea unilateral OD", raw)
	assert.Equal(t, "Cordotomia percutânea unilateral OD", text)
	assert.Equal(t, []int{1}, ocr.pages)

	_, _, err = recognizePage(context.Background(), r, preprocess.DefaultConfig(), ocr, normalize.Default(), "rol.pdf", 5)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}
