package scenario

import (
	"regexp"

	"github.com/wesleyorama2/riposte/pkg/jsonpath"
)

// JSONExtract binds every match of a JSONPath expression over a
// response body to a reference name, as an ordered list. Zero matches
// bind the declared default instead, as a one-element list, so a
// downstream for-each still sees a value rather than an absent name.
type JSONExtract struct {
	Name    string
	Path    string
	Default string
}

// Apply evaluates the extraction against body and writes the result
// into scope. Unparseable bodies count as zero matches.
func (e *JSONExtract) Apply(scope *Scope, body string) {
	values, err := jsonpath.ExtractAll(body, e.Path)
	if err != nil || len(values) == 0 {
		if e.Default != "" {
			scope.Set(e.Name, []string{e.Default})
		}
		return
	}
	scope.Set(e.Name, values)
}

// HeaderExtract binds capture group 1 of the first pattern match over
// the response header block to a reference name. On no match nothing is
// written: a previously bound value survives untouched, and a never
// bound name stays missing.
type HeaderExtract struct {
	Name    string
	Pattern *regexp.Regexp
}

// NewHeaderExtract compiles pattern into a HeaderExtract.
func NewHeaderExtract(name, pattern string) (*HeaderExtract, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &HeaderExtract{Name: name, Pattern: re}, nil
}

// Apply matches the pattern against the header block and writes group 1
// of the first match into scope.
func (e *HeaderExtract) Apply(scope *Scope, headerBlock string) {
	match := e.Pattern.FindStringSubmatch(headerBlock)
	if len(match) < 2 {
		return
	}
	scope.Set(e.Name, match[1])
}
