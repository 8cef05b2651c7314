// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the inspireq pipeline:
// starting identifiers, resolved records and their derived fields, and the
// configuration options every stage reads.
package types

import (
	"strings"

	"github.com/pdiddy/inspireq/internal/jsonq"
)

// Namespace classifies the identifier space a starting identifier lives in.
type Namespace int

const (
	NamespaceUnknown Namespace = iota
	NamespacePreprint
	NamespaceRemoteRecord
)

func (n Namespace) String() string {
	switch n {
	case NamespacePreprint:
		return "arxiv"
	case NamespaceRemoteRecord:
		return "inspire"
	default:
		return "unknown"
	}
}

// NamespaceFromSource maps a records-file source label ("arXiv", "INSPIRE",
// ...) to a Namespace by prefix, case-insensitively.
func NamespaceFromSource(source string) Namespace {
	s := strings.ToLower(strings.TrimSpace(source))
	switch {
	case strings.HasPrefix(s, "arxiv"):
		return NamespacePreprint
	case strings.HasPrefix(s, "inspire"):
		return NamespaceRemoteRecord
	default:
		return NamespaceUnknown
	}
}

// Identifier is a starting identifier as supplied by the caller. It is
// immutable once classified.
type Identifier struct {
	// Value is the normalized identifier (e.g. "2301.00001", "hep-th/9901001", "1234567").
	Value string `json:"id" yaml:"id"`

	// Namespace is the classified identifier space.
	Namespace Namespace `json:"-" yaml:"-"`

	// Extra holds key=value hints attached to the input (inspire_id, note, PI, ...).
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Hint returns the trailing key=value hint named key, if present.
func (id Identifier) Hint(key string) (string, bool) {
	v, ok := id.Extra[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// String returns "<namespace>:<value>".
func (id Identifier) String() string {
	return id.Namespace.String() + ":" + id.Value
}

// ResolvedRecord is the result of resolving one starting identifier. It is
// written only by the resolver goroutine that built it and is read-only once
// handed back to the caller.
type ResolvedRecord struct {
	// Identifier is the starting identifier as supplied by the caller.
	Identifier Identifier `json:"identifier" yaml:"identifier"`

	// RemoteID is the canonical record id; empty when unresolved.
	RemoteID string `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`

	// Document is the full fetched metadata document (null when not fetched).
	Document jsonq.Value `json:"-" yaml:"-"`

	// Fields holds the values extracted from Document.
	Fields DerivedFields `json:"fields" yaml:"fields"`

	// Valid is false when the record could not be fully populated
	// (e.g. the document carries no title).
	Valid bool `json:"valid" yaml:"valid"`
}

// DerivedFields holds the computed and extracted values of a record. Every
// field is nullable: a nil pointer means the document did not carry it.
type DerivedFields struct {
	ArxivID            *string `json:"arxiv_id" yaml:"arxiv_id"`
	InspireID          *string `json:"inspire_id" yaml:"inspire_id"`
	Title              *string `json:"title" yaml:"title"`
	DOI                *string `json:"doi" yaml:"doi"`
	URLDOI             *string `json:"url_doi" yaml:"url_doi"`
	URLRecord          *string `json:"url_record" yaml:"url_record"`
	URLInspire         *string `json:"url_inspire" yaml:"url_inspire"`
	URLJSON            *string `json:"url_json" yaml:"url_json"`
	URLArxiv           *string `json:"url_arxiv" yaml:"url_arxiv"`
	JournalInfo        *string `json:"journal_info" yaml:"journal_info"`
	PreprintDate       *string `json:"preprint_date" yaml:"preprint_date"`
	PubDate            *string `json:"pub_date" yaml:"pub_date"`
	CreatedDate        *string `json:"created_date" yaml:"created_date"`
	CreatedDateNoT     *string `json:"created_date_noT" yaml:"created_date_noT"`
	UpdatedDate        *string `json:"updated_date" yaml:"updated_date"`
	LegacyCreationDate *string `json:"legacy_creation_date" yaml:"legacy_creation_date"`
	DateGuess          *string `json:"date_guess" yaml:"date_guess"`
	CitationCount      *int    `json:"citation_count" yaml:"citation_count"`
	CitationCountWSC   *int    `json:"citation_count_wsc" yaml:"citation_count_wsc"`
	RefersToCount      *int    `json:"refers_to_count" yaml:"refers_to_count"`
	Citeable           *bool   `json:"citeable" yaml:"citeable"`
	LatexUS            *string `json:"latex_us" yaml:"latex_us"`
	BibTeX             *string `json:"bibtex" yaml:"bibtex"`
}

// SortDate returns the date used to order records for output: the preprint
// date when present, the date guess otherwise, or "" when neither is known.
func (r *ResolvedRecord) SortDate() string {
	if r.Fields.PreprintDate != nil {
		return *r.Fields.PreprintDate
	}
	if r.Fields.DateGuess != nil {
		return *r.Fields.DateGuess
	}
	return ""
}

// Key returns the identifier used for duplicate detection: the preprint id
// when known, the remote record id otherwise.
func (r *ResolvedRecord) Key() string {
	if r.Fields.ArxivID != nil && *r.Fields.ArxivID != "" && *r.Fields.ArxivID != "n/a" {
		return *r.Fields.ArxivID
	}
	return r.RemoteID
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
