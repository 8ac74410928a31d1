package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/eras/internal/adapters/csvio"
	"github.com/okian/eras/internal/domain/period"
	"github.com/okian/eras/pkg/logger"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	extractRecords string
	extractRegions string
	extractOut     string
	extractSorted  bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract gap-tolerant participation periods per code",
	Long: `Extract groups records by code, sorts each group by year and closes a
period whenever two consecutive years are more than gap_threshold apart.

Examples:
  # Periods in code order, written to stdout
  eras extract --records athlete_events.csv

  # Fill regions from a directory and sort by region then start year
  eras extract --records athlete_events.csv --regions noc_regions.csv --sorted --out noc_periods_sorted.csv`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractRecords, "records", "", "participation records CSV (- for stdin)")
	extractCmd.Flags().StringVar(&extractRegions, "regions", "", "optional code -> region directory CSV")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output CSV (default stdout)")
	extractCmd.Flags().BoolVar(&extractSorted, "sorted", false, "order periods by region then start year")

	_ = extractCmd.MarkFlagRequired("records")
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	records, err := readRecords(extractRecords, extractRegions)
	if err != nil {
		return err
	}

	svc, err := startService(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer svc.Stop()

	res, err := svc.ExtractPeriods(ctx, records)
	if err != nil {
		return err
	}
	periods := res.Periods
	if extractSorted {
		period.SortForPresentation(periods)
	}

	out, err := createOutput(extractOut, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()
	if err := csvio.WritePeriods(out, periods); err != nil {
		return err
	}

	logger.Get().Info(ctx, "extraction written",
		logger.Int("periods", len(periods)),
		logger.String("run", res.RunID),
		logger.Bool("cached", res.Cached),
	)
	return nil
}
