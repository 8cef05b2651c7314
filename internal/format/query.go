package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/inspireq/pkg/types"
)

// WriteQuery prints a path query against the record's document.
//
//	.            the whole document
//	path         "[x] path = <json>"
//	path@sub     each element of path, showing member sub of objects
func WriteQuery(w io.Writer, rec *types.ResolvedRecord, query string) {
	if query == "." {
		fmt.Fprintln(w, rec.Document.MarshalIndent())
		return
	}

	path, sub, iterate := strings.Cut(query, "@")
	v := rec.Document.Get(path)
	if !iterate {
		fmt.Fprintf(w, "[x] %s = %s\n", query, v.MarshalIndent())
		return
	}

	fmt.Fprintf(w, "[x] %s\n", query)
	elems := v.Elements()
	if elems == nil {
		fmt.Fprintf(w, "    = %s\n", v.MarshalIndent())
		return
	}
	for i, e := range elems {
		if sub != "" && e.Len() > 0 && e.Elements() == nil {
			fmt.Fprintf(w, "  %d %s\n", i, e.Key(sub).MarshalIndent())
			continue
		}
		fmt.Fprintf(w, "  %d %s\n", i, e.MarshalIndent())
	}
}
