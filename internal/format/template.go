package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/inspireq/pkg/types"
)

var tagPattern = regexp.MustCompile(`\{\.([a-zA-Z0-9_]+)\}`)

// Template is a compiled output format such as "{.arxiv_id},{.title}".
type Template struct {
	src string
}

// Compile parses src and rejects tags that name no field.
func Compile(src string) (*Template, error) {
	t := &Template{src: src}
	var unknown []string
	for _, m := range tagPattern.FindAllStringSubmatch(src, -1) {
		name := m[1]
		if _, ok := fields[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown format tags %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(FieldNames(), ", "))
	}
	return t, nil
}

// Header returns the template with its braces and dots removed, which
// turns "{.arxiv_id},{.title}" into "arxiv_id,title".
func (t *Template) Header() string {
	return strings.NewReplacer("{", "", "}", "", ".", "").Replace(t.src)
}

// Execute renders rec.
func (t *Template) Execute(rec *types.ResolvedRecord) string {
	return tagPattern.ReplaceAllStringFunc(t.src, func(tag string) string {
		return Value(rec, tag[2:len(tag)-1])
	})
}
