package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/normalize"
	"github.com/joseph-ayodele/rol-extractor/internal/pipeline"
	"github.com/joseph-ayodele/rol-extractor/internal/preprocess"
)

func newOCRCmd() *cobra.Command {
	var (
		page   int
		raw    bool
		engine string
	)
	cmd := &cobra.Command{
		Use:   "ocr <document.pdf>",
		Short: "Print the recognized text of one page",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return usageError{fmt.Errorf("--page must be 1 or greater, got %d", page)}
			}
			cfg, err := loadConfig(cmd, func(c *common.Config) error {
				if cmd.Flags().Changed("engine") {
					c.OCR.Engine = engine
				}
				// Pages after the requested one are never rendered.
				if c.Render.MaxPages == 0 || c.Render.MaxPages > page {
					c.Render.MaxPages = page
				}
				return nil
			})
			if err != nil {
				return err
			}
			logger := common.NewLogger(cfg.Log)
			slog.SetDefault(logger)

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(); cerr != nil {
					logger.Warn("close components", "error", cerr)
				}
			}()

			rawText, text, err := recognizePage(cmd.Context(), a.renderer, preprocess.FromConfig(cfg.Preprocess), a.adapter, a.normalizer, args[0], page-1)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				if _, err := fmt.Fprintf(out, "--- raw ---\n%s\n--- normalized ---\n", rawText); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(out, text)
			return err
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number, starting at 1")
	cmd.Flags().BoolVar(&raw, "raw", false, "also print the text before normalization")
	cmd.Flags().StringVar(&engine, "engine", "", "OCR engine: cli or gosseract")
	return cmd
}

// recognizePage renders the document and runs one page through preprocessing,
// OCR and normalization. index is zero-based.
func recognizePage(
	ctx context.Context,
	r pipeline.DocumentRenderer,
	pre preprocess.Config,
	ocr pipeline.TextRecognizer,
	n *normalize.Normalizer,
	path string,
	index int,
) (string, string, error) {
	pages, cleanup, err := r.Render(ctx, path)
	if err != nil {
		return "", "", err
	}
	defer cleanup()
	if index >= len(pages) {
		return "", "", usageError{fmt.Errorf("page %d out of range, document has %d pages", index+1, len(pages))}
	}

	img, err := pages[index].Image()
	if err != nil {
		return "", "", err
	}
	bin := preprocess.Preprocess(img, pre)
	rawText, err := ocr.ExtractText(ctx, index, bin)
	if err != nil {
		return "", "", err
	}
	return rawText, n.Normalize(rawText), nil
}
