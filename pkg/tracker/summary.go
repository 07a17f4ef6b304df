package tracker

import (
	"errors"
	"fmt"
)

var errBadRenamePair = errors.New("expected [field, rename] pair")

// Summary is one entry of a summary vector: a textual field specification
// resolved to an id path, with an optional output rename.
type Summary struct {
	FieldSpec    string
	Rename       string
	ResolvedPath []int
}

// NewSummary resolves a field specification against the schema registry.
func NewSummary(reg *Registry, spec string) (*Summary, error) {
	path, err := reg.ResolvePath(spec)
	if err != nil {
		return nil, err
	}

	return &Summary{FieldSpec: spec, ResolvedPath: path}, nil
}

// NewSummaryRename resolves a field specification with an output rename.
func NewSummaryRename(reg *Registry, spec, rename string) (*Summary, error) {
	s, err := NewSummary(reg, spec)
	if err != nil {
		return nil, err
	}

	s.Rename = rename

	return s, nil
}

// ParseSummaryList builds a summary vector from a decoded request "fields"
// array. Each entry is either a field string or a two-string [field, rename]
// pair; anything else is a request error.
func ParseSummaryList(reg *Registry, fields []interface{}) ([]*Summary, error) {
	out := make([]*Summary, 0, len(fields))

	for _, raw := range fields {
		switch v := raw.(type) {
		case string:
			s, err := NewSummary(reg, v)
			if err != nil {
				return nil, err
			}

			out = append(out, s)
		case []interface{}:
			if len(v) != 2 {
				return nil, errBadRenamePair
			}

			spec, ok1 := v[0].(string)
			rename, ok2 := v[1].(string)

			if !ok1 || !ok2 {
				return nil, errBadRenamePair
			}

			s, err := NewSummaryRename(reg, spec, rename)
			if err != nil {
				return nil, err
			}

			out = append(out, s)
		default:
			return nil, fmt.Errorf("%w, got %T", errBadRenamePair, raw)
		}
	}

	return out, nil
}

// RenameMap records per-request output names for projected elements. It is
// built during summarization, read-only afterward, and consumed by the
// serializers.
type RenameMap map[*Element]string

// Summarize projects a record down to the requested summary vector: a fresh
// map holding a clone of each resolved field, with renames recorded in the
// rename map. A path absent from this record is silently omitted. An empty
// summary vector returns the record itself, unprojected. The source record
// is never mutated.
func Summarize(root *Element, summary []*Summary, renames RenameMap) (*Element, error) {
	if len(summary) == 0 {
		return root, nil
	}

	out := NewMap()

	for _, s := range summary {
		found := root.ChildPath(s.ResolvedPath)
		if found == nil {
			continue
		}

		child := found.Clone()

		if err := out.Insert(child); err != nil {
			return nil, fmt.Errorf("projecting %q: %w", s.FieldSpec, err)
		}

		if s.Rename != "" && renames != nil {
			renames[child] = s.Rename
		}
	}

	return out, nil
}
