// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package records loads the list of starting identifiers. A records file is
// YAML:
//
//	records:
//	  - id: "2301.00001"
//	    source: arXiv
//	    note: plenary talk
//	    PI: Smith
//
// Any other file is a text list with one identifier per line, optionally
// followed by key=value hints; it is converted to a records file next to it.
package records

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/inspireq/internal/resolve"
	"github.com/pdiddy/inspireq/pkg/types"
)

// Entry is one item of a records file.
type Entry struct {
	ID     string            `yaml:"id"`
	Source string            `yaml:"source"`
	Note   string            `yaml:"note,omitempty"`
	PI     string            `yaml:"PI,omitempty"`
	Extra  map[string]string `yaml:",inline"`
}

// File is the top-level structure of a records file.
type File struct {
	Records []Entry `yaml:"records"`
}

// Identifier converts the entry to a starting identifier. An entry without
// a source is classified from its id.
func (e Entry) Identifier() types.Identifier {
	extra := make(map[string]string, len(e.Extra)+2)
	for k, v := range e.Extra {
		extra[k] = v
	}
	if e.Note != "" {
		extra[resolve.HintNote] = e.Note
	}
	if e.PI != "" {
		extra[resolve.HintPI] = e.PI
	}
	if len(extra) == 0 {
		extra = nil
	}

	if strings.TrimSpace(e.Source) == "" {
		id := resolve.Classify(e.ID)
		id.Extra = extra
		return id
	}
	return resolve.FromRecord(e.ID, e.Source, extra)
}

// EntryFor converts a starting identifier back to a records-file entry.
func EntryFor(id types.Identifier) Entry {
	e := Entry{ID: id.Value, Source: id.Namespace.String()}
	for k, v := range id.Extra {
		switch k {
		case resolve.HintNote:
			e.Note = v
		case resolve.HintPI:
			e.PI = v
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]string)
			}
			e.Extra[k] = v
		}
	}
	return e
}

// IsRecordsFile reports whether path names a YAML records file.
func IsRecordsFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load returns the identifiers listed in path. Text lists are first
// rewritten to "<path>.yaml", which is then read.
func Load(path string) ([]types.Identifier, error) {
	if !IsRecordsFile(path) {
		out, err := RewriteText(path)
		if err != nil {
			return nil, err
		}
		path = out
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	ids := make([]types.Identifier, 0, len(f.Records))
	for _, e := range f.Records {
		if strings.TrimSpace(e.ID) == "" {
			continue
		}
		ids = append(ids, e.Identifier())
	}
	return ids, nil
}

// ReadFile parses a YAML records file.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading records %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing records %s: %w", path, err)
	}
	return f, nil
}

// WriteFile writes entries as a records file.
func WriteFile(path string, entries []Entry) error {
	data, err := yaml.Marshal(File{Records: entries})
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing records %s: %w", path, err)
	}
	return nil
}

// ParseText reads a text list: one identifier per non-empty line, with
// optional trailing key=value hints. Lines starting with # are skipped.
func ParseText(r io.Reader) ([]types.Identifier, error) {
	var ids []types.Identifier
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, resolve.ParseLine(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading identifier list: %w", err)
	}
	return ids, nil
}

// RewriteText converts the text list at path to a records file named
// "<path>.yaml" and returns the new path.
func RewriteText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening identifier list: %w", err)
	}
	defer f.Close()

	ids, err := ParseText(f)
	if err != nil {
		return "", err
	}
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = EntryFor(id)
	}

	out := path + ".yaml"
	if err := WriteFile(out, entries); err != nil {
		return "", err
	}
	return out, nil
}
