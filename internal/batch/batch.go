// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch resolves a list of identifiers concurrently. At most Limit
// resolutions are in flight; each identifier is independent, so a failure
// is reported in its Result and never stops the others. Results arrive in
// completion order.
package batch

import (
	"context"
	"iter"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/inspireq/internal/logging"
	"github.com/pdiddy/inspireq/pkg/types"
)

var (
	// InFlight tracks resolutions currently running.
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inspireq_batch_in_flight",
			Help: "Number of resolutions currently in flight",
		},
	)

	// Outcomes counts finished resolutions by outcome.
	Outcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspireq_batch_results_total",
			Help: "Total number of batch results by outcome",
		},
		[]string{"outcome"}, // "resolved", "invalid", "failed"
	)
)

// Resolver resolves one identifier. Resolve must return a non-nil record
// even when it returns an error.
type Resolver interface {
	Resolve(ctx context.Context, id types.Identifier) (*types.ResolvedRecord, error)
}

// Result is the outcome of resolving one identifier.
type Result struct {
	// Index is the position of the identifier in the input.
	Index      int
	Identifier types.Identifier
	Record     *types.ResolvedRecord
	Err        error
	Elapsed    time.Duration
}

// OK reports whether the result carries a usable record.
func (r Result) OK() bool {
	return r.Err == nil && r.Record != nil && r.Record.Valid
}

func (r Result) outcome() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Record == nil || !r.Record.Valid:
		return "invalid"
	default:
		return "resolved"
	}
}

// DefaultLimit returns the default concurrency cap: twice the CPU count.
func DefaultLimit() int {
	return 2 * runtime.NumCPU()
}

// Runner drives batch resolution.
type Runner struct {
	Resolver Resolver

	// Limit caps concurrent resolutions (<= 0 uses DefaultLimit).
	Limit int

	// Progress, when set, is told about admissions and completions.
	Progress Progress

	// RunID tags log lines of this run.
	RunID string
}

// New returns a Runner with a fresh run id.
func New(r Resolver, limit int) *Runner {
	return &Runner{Resolver: r, Limit: limit, RunID: uuid.NewString()}
}

// Run resolves ids and returns the results as a lazy sequence. Work starts
// when iteration starts. Stopping the iteration early cancels the
// resolutions still in flight and waits for them to exit. The sequence can
// be iterated only once; later iterations yield nothing.
func (b *Runner) Run(ctx context.Context, ids []types.Identifier) iter.Seq[Result] {
	var started atomic.Bool
	return func(yield func(Result) bool) {
		if !started.CompareAndSwap(false, true) {
			return
		}
		b.run(ctx, ids, yield)
	}
}

func (b *Runner) run(ctx context.Context, ids []types.Identifier, yield func(Result) bool) {
	limit := b.Limit
	if limit <= 0 {
		limit = DefaultLimit()
	}
	total := len(ids)
	progress := b.Progress
	if progress == nil {
		progress = nopProgress{}
	}

	log := logging.NewLogger("batch").With().Str("run_id", b.RunID).Logger()
	log.Info().Int("identifiers", total).Int("limit", limit).Msg("batch started")
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Result)

	var g errgroup.Group
	g.SetLimit(limit)

	go func() {
		defer close(results)
		admitted := 0
		for i, id := range ids {
			if ctx.Err() != nil {
				break
			}
			// Go blocks until a slot is free.
			g.Go(func() error {
				InFlight.Inc()
				defer InFlight.Dec()

				t0 := time.Now()
				rec, err := b.Resolver.Resolve(ctx, id)
				if rec == nil {
					rec = &types.ResolvedRecord{Identifier: id}
				}
				res := Result{Index: i, Identifier: id, Record: rec, Err: err, Elapsed: time.Since(t0)}

				select {
				case results <- res:
				case <-ctx.Done():
				}
				return nil
			})
			admitted++
			progress.Admitted(admitted, total)
		}
		g.Wait()
	}()

	completed := 0
	var failed int
	stopped := false
	for res := range results {
		if stopped {
			continue
		}
		completed++
		Outcomes.WithLabelValues(res.outcome()).Inc()
		if res.Err != nil {
			failed++
			log.Warn().Str("identifier", res.Identifier.String()).Err(res.Err).Msg("resolution failed")
		}
		progress.Completed(completed, total)
		if !yield(res) {
			stopped = true
			cancel()
		}
	}

	log.Info().
		Int("completed", completed).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Bool("stopped_early", stopped).
		Msg("batch finished")
}
