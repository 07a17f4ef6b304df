package worker

import (
	"strings"

	"github.com/wavesentry/wavesentry/pkg/registry"
)

// StringMatchWorker selects devices where any of the supplied resolved field
// paths, rendered as text, contains the query as a case-insensitive
// substring. The path set comes from the request's searchable columns.
type StringMatchWorker struct {
	query string
	paths [][]int
}

// NewStringMatchWorker builds a substring filter over the given field paths.
func NewStringMatchWorker(query string, paths [][]int) *StringMatchWorker {
	return &StringMatchWorker{query: strings.ToLower(query), paths: paths}
}

func (w *StringMatchWorker) Match(d *registry.Device) (bool, bool) {
	if w.query == "" {
		return false, false
	}

	for _, path := range w.paths {
		el := d.Field(path)
		if el == nil {
			continue
		}

		if strings.Contains(strings.ToLower(el.SearchText()), w.query) {
			return true, false
		}
	}

	return false, false
}
