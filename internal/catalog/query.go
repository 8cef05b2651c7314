// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/inspireq/internal/records"
	"github.com/pdiddy/inspireq/pkg/types"
)

// QueryOptions filter List.
type QueryOptions struct {
	// Title matches records whose title contains the string, case-insensitively.
	Title string

	// RunID restricts results to records last written by that run.
	RunID string

	// Since keeps records whose sort date is on or after it (YYYY-MM-DD).
	Since string

	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// List returns the stored records, most recent sort date first. The
// returned records carry fields and identifiers but no document.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]*types.ResolvedRecord, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT input_id, namespace, remote_id, extra, fields FROM records WHERE 1=1`)

	if opts.Title != "" {
		qb.WriteString(` AND title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(opts.Title)+"%")
	}
	if opts.RunID != "" {
		qb.WriteString(` AND run_id = ?`)
		args = append(args, opts.RunID)
	}
	if opts.Since != "" {
		qb.WriteString(` AND sort_date >= ?`)
		args = append(args, opts.Since)
	}

	qb.WriteString(` ORDER BY sort_date IS NULL, sort_date DESC, key`)
	if opts.Limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var out []*types.ResolvedRecord
	for rows.Next() {
		var (
			inputID, namespace string
			remoteID, extra    sql.NullString
			fields             string
		)
		if err := rows.Scan(&inputID, &namespace, &remoteID, &extra, &fields); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		rec := &types.ResolvedRecord{
			Identifier: types.Identifier{
				Value:     inputID,
				Namespace: types.NamespaceFromSource(namespace),
			},
			RemoteID: remoteID.String,
			Valid:    true,
		}
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decoding fields of %s: %w", inputID, err)
		}
		if extra.Valid {
			json.Unmarshal([]byte(extra.String), &rec.Identifier.Extra)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// ExportRecords writes the matching records to w as a records file, so the
// catalog can be fetched again from scratch.
func (s *Store) ExportRecords(ctx context.Context, w io.Writer, opts QueryOptions) error {
	recs, err := s.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]records.Entry, len(recs))
	for i, rec := range recs {
		entries[i] = records.EntryFor(rec.Identifier)
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(records.File{Records: entries}); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
