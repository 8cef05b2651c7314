// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/inspireq/internal/batch"
	"github.com/pdiddy/inspireq/internal/cache"
	"github.com/pdiddy/inspireq/internal/catalog"
	"github.com/pdiddy/inspireq/internal/fetch"
	"github.com/pdiddy/inspireq/internal/format"
	"github.com/pdiddy/inspireq/internal/logging"
	"github.com/pdiddy/inspireq/internal/records"
	"github.com/pdiddy/inspireq/internal/resolve"
	"github.com/pdiddy/inspireq/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [identifiers...]",
	Short: "Resolve identifiers to INSPIRE records and print them",
	Long: `Fetch resolves arXiv identifiers, INSPIRE record ids or record URLs to
INSPIRE-HEP literature records. Identifiers come from the arguments and from
a records file (--file). Each identifier may carry key=value hints, for
example "2301.00001 inspire_id=1234567 note=plenary".

Every response is cached; rerunning with the same cache directory does not
touch the network unless --update is given. Records are sorted by preprint
date, newest first, and written as a table, a {.tag} template, CSV, JSON or
CSL-YAML.`,
	RunE: runFetch,
}

func init() {
	flags := fetchCmd.Flags()
	flags.StringP("file", "f", "", "records file (YAML) or text list of identifiers")
	flags.String("format", "", `output template, e.g. '{.arxiv_id},{.title}'`)
	flags.Bool("csv", false, "write CSV (the input of the report command)")
	flags.Bool("json", false, "write JSON")
	flags.Bool("csl", false, "write CSL-YAML")
	flags.StringP("query-json", "x", "", "print a path from each record document ('.', 'path' or 'path@member')")
	flags.Bool("protect-latex", false, "escape titles for Jekyll and Markdown tables")
	flags.StringP("output", "o", "", "write records to this file instead of stdout")
	flags.String("catalog", "", "also store valid records in this catalog database")
	flags.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	flags.Bool("update", false, "refresh every response from the network")
	flags.Int("concurrency", 0, "maximum concurrent resolutions (0 = twice the CPU count)")
	flags.Float64("rate", 0, "maximum requests per second (0 = unlimited)")
	flags.Bool("quiet", false, "do not print progress")

	fetchCmd.MarkFlagsMutuallyExclusive("format", "csv", "json", "csl", "query-json")

	viper.BindPFlag("update", flags.Lookup("update"))
	viper.BindPFlag("batch.concurrency", flags.Lookup("concurrency"))
	viper.BindPFlag("http.requests_per_second", flags.Lookup("rate"))

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger("cli")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ids, err := inputIdentifiers(cmd, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("provide identifiers as arguments or with --file")
	}

	if src, _ := cmd.Flags().GetString("format"); src != "" {
		if _, err := format.Compile(src); err != nil {
			return err
		}
	}
	write := outputWriter(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := newResolver(cfg)
	runner := batch.New(r, cfg.Batch.Concurrency)
	var progress *batch.WriterProgress
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		progress = batch.NewWriterProgress(os.Stderr)
		runner.Progress = progress
	}

	log.Info().
		Str("run_id", runner.RunID).
		Int("identifiers", len(ids)).
		Bool("update", cfg.Update).
		Msg("fetch started")

	started := time.Now()
	summary := batch.Collect(runner.Run(ctx, ids))
	if progress != nil {
		progress.Done()
	}
	summary.Print(os.Stderr)

	recs := summary.Records
	if protect, _ := cmd.Flags().GetBool("protect-latex"); protect {
		for _, rec := range recs {
			format.ProtectLaTeX(rec)
		}
	}
	recs, dups := format.Dedup(recs)
	format.SortByDate(recs)

	if err := writeRecords(cmd, write, recs); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		if err := storeInCatalog(ctx, path, runner.RunID, started, summary, recs); err != nil {
			return err
		}
	}

	for _, key := range dups {
		log.Warn().Str("identifier", key).Msg("identifier duplicated in the input")
	}

	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fetch interrupted: %w", err)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d identifier(s) failed", summary.Failed)
	}
	return nil
}

// inputIdentifiers collects identifiers from the arguments, then the
// records file.
func inputIdentifiers(cmd *cobra.Command, args []string) ([]types.Identifier, error) {
	ids := make([]types.Identifier, 0, len(args))
	for _, a := range args {
		ids = append(ids, resolve.ParseLine(a))
	}
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		fromFile, err := records.Load(file)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	return ids, nil
}

// newResolver wires the cache, fetcher and resolver from cfg. With a
// per-record cache every identifier reads and writes <dir>/<identifier>.
func newResolver(cfg types.Config) *resolve.Resolver {
	log := logging.NewLogger("cli")

	var shared *cache.Cache
	if !cfg.Cache.PerRecord {
		c, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			log.Debug().Err(err).Msg("continuing without cache")
		}
		shared = c
	}

	f := fetch.New(cfg, shared)
	r := resolve.New(f, cfg.Inspire)
	if cfg.Cache.PerRecord {
		tree := cache.NewTree(cfg.Cache.Dir)
		r.FetcherFor = func(id types.Identifier) resolve.Fetcher {
			c, _ := tree.Open(id.Value)
			return f.WithCache(c)
		}
	}
	return r
}

// outputWriter returns a function that opens the record destination.
func outputWriter(cmd *cobra.Command) func(func(io.Writer) error) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return func(fn func(io.Writer) error) error { return fn(os.Stdout) }
	}
	return func(fn func(io.Writer) error) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		if err := fn(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

func writeRecords(cmd *cobra.Command, write func(func(io.Writer) error) error, recs []*types.ResolvedRecord) error {
	tmplSrc, _ := cmd.Flags().GetString("format")
	asCSV, _ := cmd.Flags().GetBool("csv")
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")
	query, _ := cmd.Flags().GetString("query-json")

	switch {
	case tmplSrc != "":
		tmpl, err := format.Compile(tmplSrc)
		if err != nil {
			return err
		}
		return write(func(w io.Writer) error { return format.WriteTemplate(w, tmpl, recs) })
	case asCSV:
		return write(func(w io.Writer) error { return format.WriteCSV(w, recs) })
	case asJSON:
		return write(func(w io.Writer) error { return format.WriteJSON(w, recs) })
	case asCSL:
		return write(func(w io.Writer) error { return format.WriteCSL(w, recs) })
	case query != "":
		return write(func(w io.Writer) error {
			for _, rec := range recs {
				format.WriteQuery(w, rec, query)
			}
			return nil
		})
	default:
		return write(func(w io.Writer) error {
			format.WriteTable(w, recs)
			return nil
		})
	}
}

func storeInCatalog(ctx context.Context, path, runID string, started time.Time, s batch.Summary, recs []*types.ResolvedRecord) error {
	store, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	// Records fetched before an interrupt are still stored.
	ctx = context.WithoutCancel(ctx)

	up, err := store.Upsert(ctx, runID, recs)
	if err != nil {
		return err
	}
	err = store.RecordRun(ctx, catalog.Run{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Resolved:   s.Resolved,
		Invalid:    s.Invalid,
		Unresolved: s.Unresolved,
		Failed:     s.Failed,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "catalog %s: %d inserted, %d updated, %d skipped\n",
		path, up.Inserted, up.Updated, up.Skipped)
	return nil
}
