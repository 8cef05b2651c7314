// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/inspireq/internal/catalog"
	"github.com/pdiddy/inspireq/internal/format"
	"github.com/pdiddy/inspireq/internal/report"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the catalog of fetched records",
	Long: `Catalog reads the SQLite database filled by "fetch --catalog". Records are
kept once per identifier and updated by later runs.`,
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Report on catalog records",
	Long: `List runs the publication report over the catalog records, newest
first. It accepts the same window and policy flags as report. Use --table
for a plain table instead.`,
	RunE: runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	opts, err := reportOptions(cmd)
	if err != nil {
		return err
	}

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(context.Background(), catalogQuery(cmd))
	if err != nil {
		return err
	}

	if table, _ := cmd.Flags().GetBool("table"); table {
		format.WriteTable(os.Stdout, recs)
		return nil
	}
	_, err = report.Run(os.Stdout, report.FromRecords(recs), opts)
	return err
}

// --- runs subcommand ---

var catalogRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List fetch runs recorded in the catalog",
	RunE:  runCatalogRuns,
}

func runCatalogRuns(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-19s  %-8s  %8s  %7s  %10s  %6s\n",
		"Run", "Started", "Duration", "Resolved", "Invalid", "Unresolved", "Failed")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range runs {
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-19s  %-8s  %8d  %7d  %10d  %6d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), duration,
			r.Resolved, r.Invalid, r.Unresolved, r.Failed)
	}
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write catalog identifiers as a records file",
	Long: `Export writes the matching catalog records as a YAML records file that
"fetch --file" accepts, keeping notes and other hints.`,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	return outputWriter(cmd)(func(w io.Writer) error {
		return store.ExportRecords(context.Background(), w, catalogQuery(cmd))
	})
}

// --- shared helpers ---

func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog.Open(path)
}

func catalogQuery(cmd *cobra.Command) catalog.QueryOptions {
	title, _ := cmd.Flags().GetString("title")
	runID, _ := cmd.Flags().GetString("run")
	since, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")
	return catalog.QueryOptions{Title: title, RunID: runID, Since: since, Limit: limit}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("db", catalog.DefaultPath, "catalog database")

	for _, c := range []*cobra.Command{catalogListCmd, catalogExportCmd} {
		c.Flags().String("title", "", "filter by title substring")
		c.Flags().String("run", "", "filter by run id")
		c.Flags().String("since", "", "keep records dated on or after this date (YYYY-MM-DD)")
		c.Flags().Int("limit", 0, "maximum records (0 = all)")
	}

	addReportFlags(catalogListCmd)
	catalogListCmd.Flags().Bool("table", false, "print a table instead of the report")

	catalogExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogRunsCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
