// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inspireq/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantNS   types.Namespace
		wantNorm string
	}{
		{"new-style preprint", "2301.00001", types.NamespacePreprint, "2301.00001"},
		{"preprint with version", "2301.00001v2", types.NamespacePreprint, "2301.00001v2"},
		{"arxiv abs url", "https://arxiv.org/abs/2301.00001", types.NamespacePreprint, "2301.00001"},
		{"arxiv scheme", "arXiv:2301.00001", types.NamespacePreprint, "2301.00001"},
		{"old-style abs url", "https://arxiv.org/abs/hep-th/9901001", types.NamespacePreprint, "hep-th/9901001"},
		{"old-style bare", "hep-th/9901001", types.NamespacePreprint, "hep-th/9901001"},
		{"inspire url", "https://inspirehep.net/literature/1234567", types.NamespaceRemoteRecord, "1234567"},
		{"bare record id", "1234567", types.NamespaceRemoteRecord, "1234567"},
		{"whitespace", "  2301.00001 \n", types.NamespacePreprint, "2301.00001"},
		{"empty", "", types.NamespaceUnknown, ""},
		{"blank", "   ", types.NamespaceUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			assert.Equal(t, tt.wantNS, got.Namespace)
			assert.Equal(t, tt.wantNorm, got.Value)
		})
	}
}

func TestParseLine(t *testing.T) {
	id := ParseLine("2301.00001 inspire_id=1234567 note=plenary talk PI=Smith")
	assert.Equal(t, "2301.00001", id.Value)
	assert.Equal(t, types.NamespacePreprint, id.Namespace)
	assert.Equal(t, map[string]string{
		"inspire_id": "1234567",
		"note":       "plenary talk",
		"PI":         "Smith",
	}, id.Extra)

	hint, ok := id.Hint(HintRemoteID)
	assert.True(t, ok)
	assert.Equal(t, "1234567", hint)

	_, ok = id.Hint("missing")
	assert.False(t, ok)
}

func TestParseLineWithoutHints(t *testing.T) {
	id := ParseLine("1234567")
	assert.Equal(t, types.NamespaceRemoteRecord, id.Namespace)
	assert.Nil(t, id.Extra)

	empty := ParseLine("   ")
	assert.Equal(t, types.NamespaceUnknown, empty.Namespace)
}

func TestParseLineIdentifierHintIsOneWord(t *testing.T) {
	id := ParseLine("2301.00001 inspire_id=555 plenary talk")
	hint, ok := id.Hint(HintRemoteID)
	require.True(t, ok)
	assert.Equal(t, "555", hint)

	id = ParseLine("1234567 url_inspire=https://inspirehep.net/literature/1234567 seen twice note=keep these words")
	assert.Equal(t, map[string]string{
		"url_inspire": "https://inspirehep.net/literature/1234567",
		"note":        "keep these words",
	}, id.Extra)
}

func TestParseHints(t *testing.T) {
	assert.Nil(t, ParseHints(""))
	assert.Nil(t, ParseHints("no hints here"))
	assert.Equal(t, map[string]string{"a": "", "b": "two"}, ParseHints("a= b=two"))
}

func TestFromRecord(t *testing.T) {
	tests := []struct {
		source string
		want   types.Namespace
	}{
		{"arXiv", types.NamespacePreprint},
		{"arxiv.org", types.NamespacePreprint},
		{"INSPIRE", types.NamespaceRemoteRecord},
		{"inspirehep", types.NamespaceRemoteRecord},
		{"", types.NamespaceUnknown},
		{"doi", types.NamespaceUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			id := FromRecord(" 42 ", tt.source, nil)
			assert.Equal(t, tt.want, id.Namespace)
			assert.Equal(t, "42", id.Value)
		})
	}
}
