// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report turns exported records into a numbered publication list for
// a date window, such as a fiscal-year progress report.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdiddy/inspireq/internal/format"
	"github.com/pdiddy/inspireq/internal/logging"
	"github.com/pdiddy/inspireq/pkg/types"
)

// NoJournal marks a row without publication info.
const NoJournal = "n/a"

// Policy selects which rows qualify for a report.
type Policy int

const (
	// PolicyPublished keeps rows with a publication date in the window and
	// a journal.
	PolicyPublished Policy = iota
	// PolicyPreprints also accepts rows whose preprint date is in the window.
	PolicyPreprints
	// PolicyPreprintsOnly keeps only rows without a journal, dated by
	// publication or preprint date.
	PolicyPreprintsOnly
)

func (p Policy) String() string {
	switch p {
	case PolicyPreprints:
		return "preprints"
	case PolicyPreprintsOnly:
		return "preprints-only"
	default:
		return "published"
	}
}

func (p Policy) acceptsPreprints() bool { return p != PolicyPublished }

// Row is one exported record as the report sees it.
type Row struct {
	PubDate      string
	PreprintDate string
	JournalInfo  string
	Title        string
	DOI          string
	URLRecord    string
}

// Options configure Select and Write.
type Options struct {
	Window   Window
	Policy   Policy
	Prepend  string
	ShowDate bool
}

// Entry is a row selected for the report.
type Entry struct {
	Row
	// Date is the row date that placed it in the window.
	Date string
	// URL is the DOI link, or the record URL for preprints without a DOI.
	URL string
}

// Skip records why a row was left out.
type Skip struct {
	Reason string
	Value  string
	Row    Row
}

// Select applies the window and policy to rows, in order.
func Select(rows []Row, opts Options) ([]Entry, []Skip) {
	var (
		entries []Entry
		skipped []Skip
	)
	for _, row := range rows {
		date := row.PubDate
		if !opts.Window.Contains(date) {
			if !opts.Policy.acceptsPreprints() {
				skipped = append(skipped, Skip{Reason: "publication date outside window", Value: date, Row: row})
				continue
			}
			date = row.PreprintDate
			if !opts.Window.Contains(date) {
				skipped = append(skipped, Skip{Reason: "preprint date outside window", Value: date, Row: row})
				continue
			}
		}

		hasJournal := !strings.Contains(row.JournalInfo, NoJournal)
		switch opts.Policy {
		case PolicyPublished:
			if !hasJournal {
				skipped = append(skipped, Skip{Reason: "no journal info", Value: row.JournalInfo, Row: row})
				continue
			}
		case PolicyPreprintsOnly:
			if hasJournal {
				skipped = append(skipped, Skip{Reason: "published", Value: row.JournalInfo, Row: row})
				continue
			}
		}

		url := "https://doi.org/" + row.DOI
		if opts.Policy.acceptsPreprints() && (row.DOI == "" || strings.Contains(row.DOI, format.Null)) {
			url = row.URLRecord
		}
		entries = append(entries, Entry{Row: row, Date: date, URL: url})
	}
	return entries, skipped
}

var htmlPattern = regexp.MustCompile(`<.*?>|&([a-z0-9]+|#[0-9]{1,6}|#x[0-9a-f]{1,6});`)

// CleanHTML removes tags and character entities from s.
func CleanHTML(s string) string {
	return htmlPattern.ReplaceAllString(s, "")
}

// Line renders entry n of the report.
func Line(n int, e Entry, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d) ", n)
	if opts.Prepend != "" {
		b.WriteString(opts.Prepend)
		b.WriteByte(' ')
	}
	b.WriteString(`"` + CleanHTML(e.Title) + `"`)
	if !strings.Contains(e.JournalInfo, NoJournal) {
		b.WriteString(", " + e.JournalInfo)
	}
	b.WriteString(", " + e.URL)
	if opts.ShowDate {
		b.WriteString(", " + e.Date)
	}
	return b.String()
}

// Run selects rows and writes the numbered list to w. Skipped rows are
// logged at debug level.
func Run(w io.Writer, rows []Row, opts Options) (int, error) {
	log := logging.NewLogger("report")
	entries, skipped := Select(rows, opts)
	for _, s := range skipped {
		log.Debug().Str("reason", s.Reason).Str("value", s.Value).Str("title", s.Row.Title).Msg("row skipped")
	}
	for i, e := range entries {
		if _, err := fmt.Fprintln(w, Line(i+1, e, opts)); err != nil {
			return i, err
		}
	}
	log.Debug().
		Int("rows", len(rows)).
		Int("selected", len(entries)).
		Str("policy", opts.Policy.String()).
		Msg("report written")
	return len(entries), nil
}

// ReadCSV reads rows from a CSV export with a header line. Only the report
// columns are used; other columns are ignored.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"pub_date", "preprint_date", "journal_info", "title", "doi", "url_record"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		get := func(name string) string {
			if i := col[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}
		rows = append(rows, Row{
			PubDate:      get("pub_date"),
			PreprintDate: get("preprint_date"),
			JournalInfo:  get("journal_info"),
			Title:        get("title"),
			DOI:          get("doi"),
			URLRecord:    get("url_record"),
		})
	}
	return rows, nil
}

// FromRecords converts resolved records to rows, rendering missing values
// the way the CSV export does.
func FromRecords(recs []*types.ResolvedRecord) []Row {
	rows := make([]Row, len(recs))
	for i, rec := range recs {
		rows[i] = Row{
			PubDate:      format.Value(rec, "pub_date"),
			PreprintDate: format.Value(rec, "preprint_date"),
			JournalInfo:  format.Value(rec, "journal_info"),
			Title:        format.Value(rec, "title"),
			DOI:          format.Value(rec, "doi"),
			URLRecord:    format.Value(rec, "url_record"),
		}
	}
	return rows
}
