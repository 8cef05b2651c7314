package format

import (
	"slices"
	"strings"

	"github.com/pdiddy/inspireq/pkg/types"
)

// SortByDate orders recs by SortDate, most recent first. Records without a
// date go last; equal dates keep their input order.
func SortByDate(recs []*types.ResolvedRecord) {
	slices.SortStableFunc(recs, func(a, b *types.ResolvedRecord) int {
		return strings.Compare(b.SortDate(), a.SortDate())
	})
}

// Dedup drops every record whose Key was already seen, keeping the first.
// It returns the kept records and the duplicated keys in first-seen order.
func Dedup(recs []*types.ResolvedRecord) ([]*types.ResolvedRecord, []string) {
	seen := make(map[string]bool, len(recs))
	kept := recs[:0:0]
	var dups []string
	for _, rec := range recs {
		key := rec.Key()
		if key != "" && seen[key] {
			if !slices.Contains(dups, key) {
				dups = append(dups, key)
			}
			continue
		}
		seen[key] = true
		kept = append(kept, rec)
	}
	return kept, dups
}

var latexReplacer = strings.NewReplacer("{{", "{ {", "|", `\|`)

// ProtectLaTeX rewrites the title so it survives Liquid templates and
// Markdown tables.
func ProtectLaTeX(rec *types.ResolvedRecord) {
	if rec.Fields.Title == nil {
		return
	}
	rec.Fields.Title = types.StringPtr(latexReplacer.Replace(*rec.Fields.Title))
}
