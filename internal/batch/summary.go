// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/pdiddy/inspireq/internal/resolve"
	"github.com/pdiddy/inspireq/pkg/types"
)

// Summary holds the outcome of a batch run.
type Summary struct {
	Resolved   int
	Invalid    int
	Unresolved int
	Failed     int

	// Records holds the valid records in input order.
	Records []*types.ResolvedRecord

	// Problems holds the results that did not yield a valid record, in
	// input order.
	Problems []Result
}

// Total returns the number of identifiers processed.
func (s Summary) Total() int {
	return s.Resolved + s.Invalid + s.Unresolved + s.Failed
}

// HasFailures reports whether any identifier did not yield a valid record.
func (s Summary) HasFailures() bool {
	return s.Invalid+s.Unresolved+s.Failed > 0
}

// Collect drains seq into a Summary.
func Collect(seq iter.Seq[Result]) Summary {
	var s Summary
	var ok []Result
	for res := range seq {
		switch {
		case res.Err != nil && errors.Is(res.Err, resolve.ErrUnresolved):
			s.Unresolved++
			s.Problems = append(s.Problems, res)
		case res.Err != nil:
			s.Failed++
			s.Problems = append(s.Problems, res)
		case res.Record == nil || !res.Record.Valid:
			s.Invalid++
			s.Problems = append(s.Problems, res)
		default:
			s.Resolved++
			ok = append(ok, res)
		}
	}
	sort.Slice(ok, func(i, j int) bool { return ok[i].Index < ok[j].Index })
	sort.Slice(s.Problems, func(i, j int) bool { return s.Problems[i].Index < s.Problems[j].Index })
	for _, res := range ok {
		s.Records = append(s.Records, res.Record)
	}
	return s
}

// Print writes per-problem lines and a one-line summary to w.
func (s Summary) Print(w io.Writer) {
	for _, res := range s.Problems {
		switch {
		case errors.Is(res.Err, resolve.ErrUnresolved):
			fmt.Fprintf(w, "unresolved: %s (%v)\n", res.Identifier.Value, res.Err)
		case res.Err != nil:
			fmt.Fprintf(w, "failed:     %s (%v)\n", res.Identifier.Value, res.Err)
		default:
			fmt.Fprintf(w, "invalid:    %s (%s)\n", res.Identifier.Value, invalidReason(res.Record))
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d resolved, %d invalid, %d unresolved, %d failed (total: %d)\n",
		s.Resolved, s.Invalid, s.Unresolved, s.Failed, s.Total())
}

func invalidReason(rec *types.ResolvedRecord) string {
	if rec != nil && rec.Fields.Title != nil && *rec.Fields.Title == resolve.FailedTitle {
		return "no title"
	}
	return "incomplete record"
}
