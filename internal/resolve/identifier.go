// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"regexp"
	"strings"

	"github.com/pdiddy/inspireq/pkg/types"
)

const arxivAbsPrefix = "https://arxiv.org/abs/"

// Hint keys recognized in trailing key=value tokens.
const (
	HintRemoteID   = "inspire_id"
	HintURLInspire = "url_inspire"
	HintNote       = "note"
	HintPI         = "PI"
)

// tokenHints name the hints whose value is a single token; any words after
// it belong to no hint.
var tokenHints = map[string]bool{
	HintRemoteID:   true,
	HintURLInspire: true,
}

// hintKeyPattern matches the start of a key=value token.
var hintKeyPattern = regexp.MustCompile(`\w+=`)

// Classify determines the namespace of a raw identifier and returns its
// normalized value.
//
//   - strings mentioning arxiv: the last path segment, or for old-style ids
//     ("hep-th/9901001") everything after the abs/ prefix, without an
//     "arXiv:" scheme; Preprint.
//   - strings mentioning inspire: the last path segment; RemoteRecord.
//   - other strings with a slash: old-style preprint ids; Preprint.
//   - other strings with a dot (YYMM.NNNNN): Preprint.
//   - anything else non-empty (a bare record number): RemoteRecord.
func Classify(raw string) types.Identifier {
	s := strings.TrimSpace(raw)
	if s == "" {
		return types.Identifier{Namespace: types.NamespaceUnknown}
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "arxiv"):
		v := lastSegment(s)
		if !strings.Contains(v, ".") {
			v = strings.TrimPrefix(s, arxivAbsPrefix)
		}
		if len(v) > len("arxiv:") && strings.EqualFold(v[:len("arxiv:")], "arxiv:") {
			v = v[len("arxiv:"):]
		}
		return types.Identifier{Value: v, Namespace: types.NamespacePreprint}
	case strings.Contains(lower, "inspire"):
		return types.Identifier{Value: lastSegment(s), Namespace: types.NamespaceRemoteRecord}
	case strings.Contains(s, "/"):
		return types.Identifier{Value: strings.TrimPrefix(s, arxivAbsPrefix), Namespace: types.NamespacePreprint}
	case strings.Contains(s, "."):
		return types.Identifier{Value: s, Namespace: types.NamespacePreprint}
	default:
		return types.Identifier{Value: s, Namespace: types.NamespaceRemoteRecord}
	}
}

// ParseLine parses an input line of the form "<id> [key=value ...]". The
// first whitespace-separated token is classified; the remainder is parsed
// into hints, where a value runs until the next key= token and may contain
// spaces. Identifier hints (inspire_id, url_inspire) keep only their first
// word.
func ParseLine(line string) types.Identifier {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return types.Identifier{Namespace: types.NamespaceUnknown}
	}
	id := Classify(fields[0])
	if len(fields) > 1 {
		id.Extra = ParseHints(strings.Join(fields[1:], " "))
	}
	return id
}

// ParseHints parses "a=one b=two words" into {"a": "one", "b": "two words"}.
// Values of tokenHints are cut at the first whitespace.
func ParseHints(s string) map[string]string {
	locs := hintKeyPattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}
	hints := make(map[string]string, len(locs))
	for i, loc := range locs {
		end := len(s)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		key := s[loc[0] : loc[1]-1]
		val := strings.TrimSpace(s[loc[1]:end])
		if tokenHints[key] {
			val, _, _ = strings.Cut(val, " ")
		}
		hints[key] = val
	}
	return hints
}

// FromRecord builds an identifier from a records-file entry. The namespace
// comes from the source label; extra carries every other entry field.
func FromRecord(id, source string, extra map[string]string) types.Identifier {
	return types.Identifier{
		Value:     strings.TrimSpace(id),
		Namespace: types.NamespaceFromSource(source),
		Extra:     extra,
	}
}

func lastSegment(s string) string {
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
