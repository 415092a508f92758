// Command rolextract turns a scanned procedure-list PDF into a table of
// procedures and their segmentation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
)

// usageError marks bad invocations so they exit with status 2.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if _, werr := fmt.Fprintf(stderr, "Error: %v\n", err); werr != nil {
		fmt.Printf("Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue), errors.Is(err, common.ErrInvalidConfig):
		return 2
	case strings.HasPrefix(err.Error(), "unknown command"):
		return 2
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rolextract",
		Short:         "Extract procedures and segmentation codes from a scanned procedure list",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.AddCommand(newRunCmd(), newOCRCmd())
	return root
}

// exactArgs is cobra.ExactArgs with the failure reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// loadConfig reads the environment, applies the flags the command was given
// and validates the result.
func loadConfig(cmd *cobra.Command, apply func(*common.Config) error) (*common.Config, error) {
	cfg := common.LoadConfig()
	if lvl, _ := cmd.Flags().GetString("log-level"); cmd.Flags().Changed("log-level") {
		cfg.Log.Level = lvl
	}
	if apply != nil {
		if err := apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
