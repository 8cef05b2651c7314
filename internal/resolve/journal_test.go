package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inspireq/internal/jsonq"
)

func TestJournalString(t *testing.T) {
	tests := []struct {
		name string
		info string
		want string
	}{
		{
			"article id",
			`{"journal_title": "Phys.Rev.D", "journal_volume": "107", "artid": "014501", "year": 2023}`,
			"Phys.Rev.D 107 014501 (2023)",
		},
		{
			"article id wins over pages",
			`{"journal_title": "JHEP", "journal_volume": "01", "artid": "123", "page_start": "1", "page_end": "30", "year": 2024}`,
			"JHEP 01 123 (2024)",
		},
		{
			"page range",
			`{"journal_title": "Nucl.Phys.A", "journal_volume": "1005", "page_start": "121", "page_end": "130", "year": 2021}`,
			"Nucl.Phys.A 1005 p.121-130 (2021)",
		},
		{
			"first page without article id",
			`{"journal_title": "Nucl.Phys.A", "journal_volume": "1005", "page_start": "121", "year": 2021}`,
			"Nucl.Phys.A (2021)",
		},
		{
			"empty article id shows first page",
			`{"journal_title": "Nucl.Phys.A", "journal_volume": "1005", "artid": "", "page_start": "121", "page_end": "130", "year": 2021}`,
			"Nucl.Phys.A 1005 p.121 (2021)",
		},
		{
			"empty article id without pages",
			`{"journal_title": "Phys.Lett.B", "journal_volume": "840", "artid": "", "year": 2023}`,
			"Phys.Lett.B (2023)",
		},
		{
			"title and year",
			`{"journal_title": "PoS", "year": 2022}`,
			"PoS (2022)",
		},
		{
			"freetext",
			`{"pubinfo_freetext": "Proceedings of Quark Matter 2023"}`,
			"Proceedings of Quark Matter 2023",
		},
		{
			"incomplete shape falls back to freetext",
			`{"journal_volume": "12", "artid": "7", "pubinfo_freetext": "Conf. Proc."}`,
			"Conf. Proc.",
		},
		{
			"nothing usable",
			`{"journal_volume": "12"}`,
			NoJournal,
		},
		{
			"empty string field is absent",
			`{"journal_title": "", "year": 2020}`,
			NoJournal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := jsonq.Parse([]byte(`{"metadata": {"publication_info": [` + tt.info + `]}}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, JournalString(doc))
		})
	}
}

func TestJournalStringWithoutPublicationInfo(t *testing.T) {
	for _, raw := range []string{`{}`, `{"metadata": {}}`, `{"metadata": {"publication_info": []}}`} {
		doc, err := jsonq.Parse([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, NoJournal, JournalString(doc), raw)
	}
	assert.Equal(t, NoJournal, JournalString(jsonq.Null))
}
