package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/eras/internal/adapters/csvio"
	"github.com/okian/eras/internal/domain/join"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	annotateRecords   string
	annotateRegions   string
	annotatePeriods   string
	annotateOut       string
	annotateKnownOnly bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Label records with the period that covers their year",
	Long: `Annotate attaches to every record the label of the first labeled period,
in table order, whose range contains the record's year. Records with no
covering period are labeled Unknown and kept unless --known-only is set.

Examples:
  # Use the labeled table stored by import-labels
  eras annotate --records athlete_events.csv

  # Use a labeled table file directly
  eras annotate --records athlete_events.csv --periods noc_periods.csv --known-only`,
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().StringVar(&annotateRecords, "records", "", "participation records CSV (- for stdin)")
	annotateCmd.Flags().StringVar(&annotateRegions, "regions", "", "optional code -> region directory CSV")
	annotateCmd.Flags().StringVar(&annotatePeriods, "periods", "", "labeled periods CSV (default: stored table)")
	annotateCmd.Flags().StringVar(&annotateOut, "out", "", "output CSV (default stdout)")
	annotateCmd.Flags().BoolVar(&annotateKnownOnly, "known-only", false, "drop records labeled Unknown")

	_ = annotateCmd.MarkFlagRequired("records")
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	svc, annotated, err := annotateFile(cmd.Context(), annotateRecords, annotateRegions, annotatePeriods)
	if err != nil {
		return err
	}
	defer svc.Stop()

	if annotateKnownOnly {
		annotated = join.FilterKnown(annotated)
	}

	out, err := createOutput(annotateOut, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()
	return csvio.WriteAnnotated(out, annotated)
}
