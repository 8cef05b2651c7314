// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/inspireq/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a numbered publication list from an exported CSV",
	Long: `Report reads a CSV written by "fetch --csv" and prints one numbered line
per publication in the date window:

  N) <prepend> "<title>", <journal>, <url>

By default only published records (journal info present, publication date
in the window) are listed. --preprints also accepts records whose preprint
date is in the window; --preprints-only lists only records without a
journal.`,
	RunE: runReport,
}

func init() {
	addReportFlags(reportCmd)
	reportCmd.Flags().StringP("input", "i", "", "CSV file written by fetch --csv")
	reportCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(reportCmd)
}

// addReportFlags registers the window and policy flags shared by report
// and catalog list.
func addReportFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int("calendar-year", 0, "January to December of this year")
	flags.Int("fiscal-year", 0, "October of the previous year to September of this year")
	flags.Int("pmp-year", 0, "July of the previous year to June of this year")
	flags.String("after-date", "", "first date to include (YYYY-MM-DD)")
	flags.String("before-date", "", "first date to exclude (YYYY-MM-DD)")
	flags.String("prepend", "", `text placed before each title, e.g. "ALICE Collaboration,"`)
	flags.Bool("preprints", false, "accept preprints, dated by the preprint date")
	flags.Bool("preprints-only", false, "list only preprints")
	flags.Bool("show-date", false, "append the date to each line")

	cmd.MarkFlagsMutuallyExclusive("calendar-year", "fiscal-year", "pmp-year")
	cmd.MarkFlagsMutuallyExclusive("preprints", "preprints-only")
}

// reportOptions builds report options from the flags. Bad dates are
// rejected before any row is read.
func reportOptions(cmd *cobra.Command) (report.Options, error) {
	var opts report.Options

	calendar, _ := cmd.Flags().GetInt("calendar-year")
	fiscal, _ := cmd.Flags().GetInt("fiscal-year")
	pmp, _ := cmd.Flags().GetInt("pmp-year")
	switch {
	case calendar != 0:
		opts.Window = report.CalendarYear(calendar)
	case fiscal != 0:
		opts.Window = report.FiscalYear(fiscal)
	case pmp != 0:
		opts.Window = report.PMPYear(pmp)
	}

	after, _ := cmd.Flags().GetString("after-date")
	before, _ := cmd.Flags().GetString("before-date")
	w, err := opts.Window.WithBounds(after, before)
	if err != nil {
		return opts, err
	}
	opts.Window = w

	if only, _ := cmd.Flags().GetBool("preprints-only"); only {
		opts.Policy = report.PolicyPreprintsOnly
	} else if pre, _ := cmd.Flags().GetBool("preprints"); pre {
		opts.Policy = report.PolicyPreprints
	}
	opts.Prepend, _ = cmd.Flags().GetString("prepend")
	opts.ShowDate, _ = cmd.Flags().GetBool("show-date")
	return opts, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	opts, err := reportOptions(cmd)
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	rows, err := report.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	_, err = report.Run(os.Stdout, rows, opts)
	return err
}
