package worker

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/wavesentry/wavesentry/pkg/registry"
	"github.com/wavesentry/wavesentry/pkg/tracker"
)

var errBadRegexPair = errors.New("expected [field, regex] pair")

type regexFilter struct {
	path []int
	re   *regexp.Regexp
}

// RegexWorker selects devices where any of the configured fields, rendered
// as text, matches its regular expression.
type RegexWorker struct {
	filters []regexFilter
}

// NewRegexWorker builds a regex filter from a decoded request "regex" array
// of [field, pattern] pairs. Unknown fields and bad patterns are request
// errors surfaced before any scan starts.
func NewRegexWorker(reg *tracker.Registry, spec []interface{}) (*RegexWorker, error) {
	w := &RegexWorker{}

	for _, raw := range spec {
		pair, ok := raw.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, errBadRegexPair
		}

		fieldSpec, ok1 := pair[0].(string)
		pattern, ok2 := pair[1].(string)

		if !ok1 || !ok2 {
			return nil, errBadRegexPair
		}

		path, err := reg.ResolvePath(fieldSpec)
		if err != nil {
			return nil, err
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling regex for %q: %w", fieldSpec, err)
		}

		w.filters = append(w.filters, regexFilter{path: path, re: re})
	}

	return w, nil
}

func (w *RegexWorker) Match(d *registry.Device) (bool, bool) {
	for _, f := range w.filters {
		el := d.Field(f.path)
		if el == nil {
			continue
		}

		if text := el.SearchText(); text != "" && f.re.MatchString(text) {
			return true, false
		}
	}

	return false, false
}
