package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/eras/internal/loadtest"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var loadtestCfg = loadtest.DefaultConfig()

//nolint:gochecknoglobals // Cobra commands are typically global
var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive a running server with synthetic records",
	Long: `Loadtest generates synthetic participation records, annotates them in
concurrent batches against a running eras server, extracts periods for the
whole set and verifies that no record was dropped or reordered and that
every record year is covered by exactly one period of its code.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		stats, err := loadtest.Run(cmd.Context(), loadtestCfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(),
			"records=%d batches=%d annotated=%d unknown=%d ambiguous=%d periods=%d duration=%s\n",
			stats.RecordsGenerated, stats.Batches, stats.Annotated, stats.Unknown,
			stats.Ambiguous, stats.Periods, stats.Duration.Round(time.Millisecond))
		return err
	},
}

func init() {
	rootCmd.AddCommand(loadtestCmd)

	f := loadtestCmd.Flags()
	f.StringVar(&loadtestCfg.BaseURL, "url", loadtestCfg.BaseURL, "base URL of the eras server")
	f.IntVar(&loadtestCfg.Records, "records", loadtestCfg.Records, "number of records to generate")
	f.IntVar(&loadtestCfg.Codes, "codes", loadtestCfg.Codes, "number of distinct entity codes")
	f.IntVar(&loadtestCfg.BatchSize, "batch-size", loadtestCfg.BatchSize, "records per request")
	f.IntVar(&loadtestCfg.Workers, "workers", loadtestCfg.Workers, "concurrent requests")
	f.DurationVar(&loadtestCfg.Timeout, "timeout", loadtestCfg.Timeout, "HTTP request timeout")
	f.Uint64Var(&loadtestCfg.Seed, "seed", loadtestCfg.Seed, "generator seed")
}
