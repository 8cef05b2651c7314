// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package format renders resolved records: {.tag} templates, CSV, JSON,
// CSL-YAML and a plain table. Field values are looked up by name; a missing
// value renders as None.
package format

import (
	"sort"
	"strconv"

	"github.com/pdiddy/inspireq/internal/resolve"
	"github.com/pdiddy/inspireq/pkg/types"
)

// Null is how a missing field value is rendered.
const Null = "None"

type accessor func(*types.ResolvedRecord) *string

func str(get func(*types.DerivedFields) *string) accessor {
	return func(r *types.ResolvedRecord) *string { return get(&r.Fields) }
}

func num(get func(*types.DerivedFields) *int) accessor {
	return func(r *types.ResolvedRecord) *string {
		n := get(&r.Fields)
		if n == nil {
			return nil
		}
		return types.StringPtr(strconv.Itoa(*n))
	}
}

func hint(key string) accessor {
	return func(r *types.ResolvedRecord) *string {
		if v, ok := r.Identifier.Hint(key); ok {
			return &v
		}
		return nil
	}
}

// fields maps every tag name to its accessor.
var fields = map[string]accessor{
	"arxiv_id":             str(func(f *types.DerivedFields) *string { return f.ArxivID }),
	"inspire_id":           str(func(f *types.DerivedFields) *string { return f.InspireID }),
	"title":                str(func(f *types.DerivedFields) *string { return f.Title }),
	"doi":                  str(func(f *types.DerivedFields) *string { return f.DOI }),
	"url_doi":              str(func(f *types.DerivedFields) *string { return f.URLDOI }),
	"url_record":           str(func(f *types.DerivedFields) *string { return f.URLRecord }),
	"url_inspire":          str(func(f *types.DerivedFields) *string { return f.URLInspire }),
	"url_json":             str(func(f *types.DerivedFields) *string { return f.URLJSON }),
	"url_arxiv":            str(func(f *types.DerivedFields) *string { return f.URLArxiv }),
	"journal_info":         str(func(f *types.DerivedFields) *string { return f.JournalInfo }),
	"preprint_date":        str(func(f *types.DerivedFields) *string { return f.PreprintDate }),
	"pub_date":             str(func(f *types.DerivedFields) *string { return f.PubDate }),
	"created_date":         str(func(f *types.DerivedFields) *string { return f.CreatedDate }),
	"created_date_noT":     str(func(f *types.DerivedFields) *string { return f.CreatedDateNoT }),
	"updated_date":         str(func(f *types.DerivedFields) *string { return f.UpdatedDate }),
	"legacy_creation_date": str(func(f *types.DerivedFields) *string { return f.LegacyCreationDate }),
	"date_guess":           str(func(f *types.DerivedFields) *string { return f.DateGuess }),
	"latex_us":             str(func(f *types.DerivedFields) *string { return f.LatexUS }),
	"bibtex":               str(func(f *types.DerivedFields) *string { return f.BibTeX }),
	"citation_count":       num(func(f *types.DerivedFields) *int { return f.CitationCount }),
	"citation_count_wsc":   num(func(f *types.DerivedFields) *int { return f.CitationCountWSC }),
	"refers_to_count":      num(func(f *types.DerivedFields) *int { return f.RefersToCount }),
	"citeable": func(r *types.ResolvedRecord) *string {
		if r.Fields.Citeable == nil {
			return nil
		}
		if *r.Fields.Citeable {
			return types.StringPtr("True")
		}
		return types.StringPtr("False")
	},
	"note":      hint(resolve.HintNote),
	"PI":        hint(resolve.HintPI),
	"id":        func(r *types.ResolvedRecord) *string { return &r.Identifier.Value },
	"source":    func(r *types.ResolvedRecord) *string { return types.StringPtr(r.Identifier.Namespace.String()) },
	"remote_id": func(r *types.ResolvedRecord) *string { return nilIfEmpty(r.RemoteID) },
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FieldNames returns every tag name, sorted.
func FieldNames() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the value of the named field, and false for unknown names.
// A known field without a value yields nil.
func Lookup(rec *types.ResolvedRecord, name string) (*string, bool) {
	get, ok := fields[name]
	if !ok {
		return nil, false
	}
	return get(rec), true
}

// Value renders the named field, with Null for missing values and unknown
// names.
func Value(rec *types.ResolvedRecord, name string) string {
	v, _ := Lookup(rec, name)
	if v == nil {
		return Null
	}
	return *v
}
