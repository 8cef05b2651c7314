// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/inspireq/pkg/types"
)

// CSVColumns are the columns written by WriteCSV. The report command reads
// pub_date, preprint_date, journal_info, title, doi and url_record.
var CSVColumns = []string{
	"arxiv_id", "inspire_id", "pub_date", "preprint_date", "date_guess",
	"journal_info", "title", "doi", "url_record", "url_arxiv",
	"citation_count", "note", "PI",
}

// WriteTemplate writes the template header followed by one line per record.
func WriteTemplate(w io.Writer, t *Template, recs []*types.ResolvedRecord) error {
	if _, err := fmt.Fprintln(w, t.Header()); err != nil {
		return err
	}
	for _, rec := range recs {
		if _, err := fmt.Fprintln(w, t.Execute(rec)); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes recs as CSV with a CSVColumns header.
func WriteCSV(w io.Writer, recs []*types.ResolvedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return err
	}
	row := make([]string, len(CSVColumns))
	for _, rec := range recs {
		for i, col := range CSVColumns {
			row[i] = Value(rec, col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonRecord is the JSON export shape: identifier, hints and every derived
// field, with nulls kept.
type jsonRecord struct {
	ID       string              `json:"id"`
	Source   string              `json:"source"`
	RemoteID string              `json:"remote_id,omitempty"`
	Extra    map[string]string   `json:"extra,omitempty"`
	Fields   types.DerivedFields `json:"fields"`
}

// WriteJSON writes recs as an indented JSON array.
func WriteJSON(w io.Writer, recs []*types.ResolvedRecord) error {
	out := make([]jsonRecord, len(recs))
	for i, rec := range recs {
		out[i] = jsonRecord{
			ID:       rec.Identifier.Value,
			Source:   rec.Identifier.Namespace.String(),
			RemoteID: rec.RemoteID,
			Extra:    rec.Identifier.Extra,
			Fields:   rec.Fields,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Volume         string    `yaml:"volume,omitempty"`
	Page           string    `yaml:"page,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL form using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes recs as a CSL-YAML list.
func WriteCSL(w io.Writer, recs []*types.ResolvedRecord) error {
	items := make([]CSLItem, len(recs))
	for i, rec := range recs {
		items[i] = toCSLItem(rec)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(rec *types.ResolvedRecord) CSLItem {
	item := CSLItem{
		ID:    rec.Key(),
		Type:  "article",
		Title: deref(rec.Fields.Title),
		DOI:   deref(rec.Fields.DOI),
		URL:   deref(rec.Fields.URLRecord),
		Note:  deref(rec.Fields.ArxivID),
	}
	if item.ID == "" {
		item.ID = rec.Identifier.Value
	}
	if item.Note != "" {
		item.Note = "arXiv:" + item.Note
	}

	doc := rec.Document
	for _, a := range doc.Get("metadata.authors").Elements() {
		if name, ok := a.Key("full_name").String(); ok {
			item.Author = append(item.Author, parseAuthorName(name))
		}
	}

	pub := doc.Get("metadata.publication_info.0")
	if jt, ok := pub.Key("journal_title").Text(); ok {
		item.Type = "article-journal"
		item.ContainerTitle = jt
	}
	if v, ok := pub.Key("journal_volume").Text(); ok {
		item.Volume = v
	}
	if p, ok := pub.Key("artid").Text(); ok {
		item.Page = p
	} else if p, ok := pub.Key("page_start").Text(); ok {
		item.Page = p
		if end, ok := pub.Key("page_end").Text(); ok {
			item.Page += "-" + end
		}
	}

	date := rec.Fields.PubDate
	if date == nil {
		date = rec.Fields.PreprintDate
	}
	if date != nil {
		if parts := dateParts(*date); len(parts) > 0 {
			item.Issued = &CSLDate{DateParts: [][]int{parts}}
		}
	}
	return item
}

// parseAuthorName splits a database author name into CSL family/given parts.
// Names are "Family, Given"; names without a comma go to the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	family, given, ok := strings.Cut(name, ",")
	if !ok {
		return CSLName{Literal: name}
	}
	return CSLName{
		Family: strings.TrimSpace(family),
		Given:  strings.TrimSpace(given),
	}
}

// dateParts converts "YYYY", "YYYY-MM" or "YYYY-MM-DD" to CSL date parts.
func dateParts(s string) []int {
	var parts []int
	for _, p := range strings.SplitN(s, "-", 3) {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	return parts
}

// WriteTable writes recs as a fixed-width table for the terminal.
func WriteTable(w io.Writer, recs []*types.ResolvedRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-10s  %-10s  %-50s  %s\n",
		"#", "arXiv", "INSPIRE", "Date", "Title", "Journal")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, rec := range recs {
		fmt.Fprintf(w, "%-4d  %-16s  %-10s  %-10s  %-50s  %s\n",
			i+1,
			truncate(Value(rec, "arxiv_id"), 16),
			Value(rec, "inspire_id"),
			truncate(rec.SortDate(), 10),
			truncate(Value(rec, "title"), 50),
			Value(rec, "journal_info"))
	}

	fmt.Fprintf(w, "\n%d records\n", len(recs))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
