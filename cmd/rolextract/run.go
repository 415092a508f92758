package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/export"
	"github.com/joseph-ayodele/rol-extractor/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <document.pdf>",
		Short: "Run the full extraction and write the procedures table",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtraction(cmd, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringP("out", "o", "", "output table path (default "+constants.DefaultOutputPath+")")
	fl.String("format", "", "output format: csv or xlsx (default from the --out extension)")
	fl.IntP("workers", "w", 0, "pages processed in parallel (default number of CPUs)")
	fl.String("threshold", "", "binarization: adaptive or otsu")
	fl.String("engine", "", "OCR engine: cli or gosseract")
	fl.String("rules", "", "YAML rules file with extra corrections, keywords and patterns")
	fl.String("metrics-file", "", "write run counters in Prometheus text format to this path")
	fl.String("report", "", "write the JSON diagnostics report to this path")
	return cmd
}

// applyRunFlags copies the flags the user set over the environment config.
func applyRunFlags(cmd *cobra.Command, cfg *common.Config) error {
	fl := cmd.Flags()
	strs := map[string]*string{
		"out":       &cfg.Output.Path,
		"format":    &cfg.Output.Format,
		"threshold": &cfg.Preprocess.Threshold,
		"engine":    &cfg.OCR.Engine,
		"rules":     &cfg.RulesFile,
	}
	for name, dst := range strs {
		if !fl.Changed(name) {
			continue
		}
		v, err := fl.GetString(name)
		if err != nil {
			return usageError{err}
		}
		*dst = v
	}
	if fl.Changed("workers") {
		n, err := fl.GetInt("workers")
		if err != nil {
			return usageError{err}
		}
		cfg.Pipeline.Workers = n
	}
	return nil
}

func runExtraction(cmd *cobra.Command, document string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, func(c *common.Config) error { return applyRunFlags(cmd, c) })
	if err != nil {
		return err
	}
	reportPath, _ := cmd.Flags().GetString("report")
	metricsPath, _ := cmd.Flags().GetString("metrics-file")
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("close components", "error", cerr)
		}
	}()

	res, runErr := a.processor.Run(ctx, document)
	runLogger := logger.With("run_id", res.RunID)
	if runErr == nil || len(res.Report.Pages) > 0 {
		res.Report.Log(runLogger)
	}
	if reportPath != "" {
		if err := writeReport(reportPath, res.Report); err != nil {
			runLogger.Warn("report not written", "path", reportPath, "error", err)
		}
	}
	if metricsPath != "" {
		if err := a.metrics.WriteTextfile(metricsPath); err != nil {
			runLogger.Warn("metrics not written", "path", metricsPath, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if err := a.exporter.Export(ctx, res.Rows, cfg.Output.Path, export.OptionsFromConfig(cfg.Output)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d procedures written to %s\n", len(res.Rows), cfg.Output.Path)
	return err
}

func writeReport(path string, r pipeline.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
