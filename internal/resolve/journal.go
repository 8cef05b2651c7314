// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"fmt"
	"strings"

	"github.com/pdiddy/inspireq/internal/jsonq"
)

// NoJournal marks a record without publication information.
const NoJournal = "n/a"

// JournalString synthesizes a citation string from the first publication
// info entry of doc:
//
//	title volume artid (year)       artid non-empty
//	title volume p.start (year)     artid present but empty
//	title volume p.start-end (year) no artid
//	title (year)
//
// When the entry has no title and year the provider's freetext is returned,
// and failing that NoJournal. Empty fields count as absent.
func JournalString(doc jsonq.Value) string {
	info := doc.Get("metadata.publication_info.0")
	field := func(name string) (string, bool) {
		s, ok := info.Key(name).Text()
		return s, ok && strings.TrimSpace(s) != ""
	}

	title, hasTitle := field("journal_title")
	year, hasYear := field("year")
	if hasTitle && hasYear {
		if vol, ok := field("journal_volume"); ok {
			_, artidKey := info.Key("artid").Text()
			artid, hasArtid := field("artid")
			start, hasStart := field("page_start")
			end, hasEnd := field("page_end")
			switch {
			case hasArtid:
				return fmt.Sprintf("%s %s %s (%s)", title, vol, artid, year)
			case artidKey && hasStart:
				return fmt.Sprintf("%s %s p.%s (%s)", title, vol, start, year)
			case hasStart && hasEnd:
				return fmt.Sprintf("%s %s p.%s-%s (%s)", title, vol, start, end, year)
			}
		}
		return fmt.Sprintf("%s (%s)", title, year)
	}

	if s, ok := field("pubinfo_freetext"); ok {
		return s
	}
	return NoJournal
}
