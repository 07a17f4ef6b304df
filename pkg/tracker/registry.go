package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	errUnknownField   = errors.New("unknown field")
	errEmptyFieldSpec = errors.New("empty field specification")
)

// FieldDef describes one registered schema field.
type FieldDef struct {
	ID          int
	Name        string
	Type        Type
	Description string
}

// Registry is the process-wide schema: it hands out stable field ids for
// dotted field names and constructs fresh typed Elements for them. It is
// built once at startup, before any Element referencing it, and passed
// explicitly to every component that translates ids and names.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]int
	fields []FieldDef // index == id - 1; ids start at 1
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// RegisterField assigns a stable id to a named field. Registering an
// existing name returns the id already assigned to it.
func (r *Registry) RegisterField(name string, typ Type, description string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		return id
	}

	id := len(r.fields) + 1
	r.fields = append(r.fields, FieldDef{ID: id, Name: name, Type: typ, Description: description})
	r.byName[name] = id

	return id
}

// FieldID resolves a field name to its id.
func (r *Registry) FieldID(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]

	return id, ok
}

// Field returns the definition for an id.
func (r *Registry) Field(id int) (FieldDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id < 1 || id > len(r.fields) {
		return FieldDef{}, false
	}

	return r.fields[id-1], true
}

// FieldName returns the registered name for an id, empty if unknown.
func (r *Registry) FieldName(id int) string {
	def, ok := r.Field(id)
	if !ok {
		return ""
	}

	return def.Name
}

// NewElement constructs a fresh Element for a registered field, typed per
// the registration and carrying the field's name as its default local name.
func (r *Registry) NewElement(id int) (*Element, error) {
	def, ok := r.Field(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", errUnknownField, id)
	}

	e := NewElementID(def.Type, def.ID)
	e.SetLocalName(def.Name)

	return e, nil
}

// ResolvePath turns a textual field specification into the resolved id
// sequence. Nesting segments are separated by "/"; each segment is a full
// dotted field name. A specification with no "/" resolves to a single-id
// path. An unknown segment fails resolution; callers must reject the
// request before any locking or scanning happens.
func (r *Registry) ResolvePath(spec string) ([]int, error) {
	spec = strings.Trim(strings.TrimSpace(spec), "/")
	if spec == "" {
		return nil, errEmptyFieldSpec
	}

	segments := strings.Split(spec, "/")
	path := make([]int, 0, len(segments))

	for _, seg := range segments {
		id, ok := r.FieldID(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %q", errUnknownField, seg, spec)
		}

		path = append(path, id)
	}

	return path, nil
}
