package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/eras/internal/adapters/csvio"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	efficiencyRecords string
	efficiencyRegions string
	efficiencyPeriods string
	efficiencyOut     string
	efficiencyByYear  bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var efficiencyCmd = &cobra.Command{
	Use:   "efficiency",
	Short: "Aggregate medal efficiency per label",
	Long: `Efficiency annotates the records, drops those labeled Unknown and
reports participants, medals, medal points and points per participant for
every label, or for every label and year with --by-year.

Medal weights and the participant counting mode come from the
medal_points and participant_mode config keys.`,
	RunE: runEfficiency,
}

func init() {
	rootCmd.AddCommand(efficiencyCmd)

	efficiencyCmd.Flags().StringVar(&efficiencyRecords, "records", "", "participation records CSV (- for stdin)")
	efficiencyCmd.Flags().StringVar(&efficiencyRegions, "regions", "", "optional code -> region directory CSV")
	efficiencyCmd.Flags().StringVar(&efficiencyPeriods, "periods", "", "labeled periods CSV (default: stored table)")
	efficiencyCmd.Flags().StringVar(&efficiencyOut, "out", "", "output CSV (default stdout)")
	efficiencyCmd.Flags().BoolVar(&efficiencyByYear, "by-year", false, "one row per label and year")

	_ = efficiencyCmd.MarkFlagRequired("records")
}

func runEfficiency(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	svc, annotated, err := annotateFile(ctx, efficiencyRecords, efficiencyRegions, efficiencyPeriods)
	if err != nil {
		return err
	}
	defer svc.Stop()

	report, err := svc.Efficiency(ctx, annotated)
	if err != nil {
		return err
	}

	out, err := createOutput(efficiencyOut, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()
	if efficiencyByYear {
		return csvio.WriteEfficiencyByYear(out, report.ByYear)
	}
	return csvio.WriteEfficiency(out, report.ByLabel)
}
