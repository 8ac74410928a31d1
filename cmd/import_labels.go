package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/eras/internal/adapters/repository"
	"github.com/okian/eras/internal/config"
	"github.com/okian/eras/pkg/logger"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var importLabelsCmd = &cobra.Command{
	Use:   "import-labels <periods.csv>",
	Short: "Replace the stored labeled period table",
	Long: `Import-labels validates a labeled period table (NOC, System, Start_Year,
End_Year) and stores it in the configured repository, replacing the previous
table. Row order is kept; it decides ties between overlapping periods.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportLabels,
}

func init() {
	rootCmd.AddCommand(importLabelsCmd)
}

func runImportLabels(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.StoreDriver == config.StoreNone {
		return fmt.Errorf("import-labels: %w", repository.ErrNotConfigured)
	}

	table, err := readLabeledPeriods(args[0])
	if err != nil {
		return err
	}

	svc, err := startService(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer svc.Stop()

	if err := svc.LoadLabeledPeriods(ctx, table); err != nil {
		return err
	}

	idx := svc.Index()
	logger.Get().Info(ctx, "labeled periods imported",
		logger.Int("rows", len(table)),
		logger.Int("codes", len(idx.Codes())),
		logger.Int("overlaps", len(idx.Overlaps())),
	)
	return nil
}
