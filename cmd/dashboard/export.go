package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
	"github.com/kjstillabower/bike-usage-dashboard/internal/observability"
	"github.com/kjstillabower/bike-usage-dashboard/internal/presenter"
	"github.com/kjstillabower/bike-usage-dashboard/internal/validation"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load the data once and write a report file",
	Long: `Runs a single load against the configured sources and writes the report as
xlsx, pdf or csv. Load warnings and errors are printed to stderr; the file is still
written with whatever data loaded.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx, pdf or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default is bike-usage-YYYYMMDD.<format>)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := validation.ValidateExportFormat(exportFormat)
	if err != nil {
		return fmt.Errorf("%w: %q", err, exportFormat)
	}

	logger, err := observability.NewLogger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close(logger)

	ctx, cancel := context.WithTimeout(cmdContext(cmd), cfg.BuildTimeout)
	defer cancel()
	report, err := st.service.Report(ctx)
	if err != nil {
		return fmt.Errorf("loading report: %w", err)
	}
	printNotices(cmd, report.Notices)

	out := exportOut
	if out == "" {
		out = presenter.FileName(format, report)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := presenter.Export(f, format, report); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	logger.Info("report exported",
		zap.String("format", format),
		zap.String("path", out),
		zap.Int("total_rides", report.TotalRides))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d rides, %s kg CO2 saved)\n",
		out, report.TotalRides, presenter.FormatKilograms(report.CarbonKg))
	return nil
}

func printNotices(cmd *cobra.Command, notices []models.Notice) {
	for _, n := range notices {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", n.Level, n.Message)
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
