package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/banking/fraud-analysis/internal/app"
	"github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataPath string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "fraudctl",
	Short: "Fraud analysis from the command line",
	Long: `fraudctl runs customer fraud-risk analysis against the configured
risk extract without starting the HTTP service. Output is JSON.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Override the data file path (local path or s3://bucket/key)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp loads configuration, wires the components and runs fn
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataPath != "" {
		cfg.Data.FilePath = dataPath
		cfg.Data.Source = config.SourceFile
		if strings.HasPrefix(dataPath, "s3://") {
			cfg.Data.Source = config.SourceS3
		}
	}

	logger := zap.NewNop()
	if verbose {
		cfg.Logging.OutputPath = "stderr"
		if logger, err = logging.New(cfg.Logging, true); err != nil {
			return err
		}
	}
	defer logger.Sync()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
