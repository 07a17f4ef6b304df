// Package serializer streams Element trees to bytes, choosing the codec by
// the requested format suffix of the path.
package serializer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wavesentry/wavesentry/pkg/tracker"
)

var errUnknownSuffix = errors.New("unsupported serialization format")

// Codec renders one Element tree. The rename table overrides the local or
// default name of projected fields.
type Codec interface {
	Name() string
	Serialize(w io.Writer, el *tracker.Element, renames tracker.RenameMap) error
}

// Registry maps format suffixes to codecs.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry returns a registry with the built-in codecs: "json" for
// aggregate documents, "ekjson" for line-delimited per-record export, and
// "msgpack" for the compact binary map-pack form.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}

	r.Register(JSONCodec{})
	r.Register(EKJSONCodec{})
	r.Register(MsgpackCodec{})

	return r
}

// Register adds a codec under its suffix.
func (r *Registry) Register(c Codec) {
	r.codecs[c.Name()] = c
}

// Lookup finds the codec for a suffix.
func (r *Registry) Lookup(suffix string) (Codec, bool) {
	c, ok := r.codecs[suffix]
	return c, ok
}

// CanSerialize reports whether the path's trailing format token names a
// registered codec. Requests with an unsupported suffix are rejected before
// any other work.
func (r *Registry) CanSerialize(path string) bool {
	_, ok := r.codecs[Suffix(path)]
	return ok
}

// Serialize renders the element with the codec registered for the suffix.
func (r *Registry) Serialize(suffix string, w io.Writer, el *tracker.Element, renames tracker.RenameMap) error {
	c, ok := r.codecs[suffix]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownSuffix, suffix)
	}

	return c.Serialize(w, el, renames)
}

// Suffix returns the trailing format token of a path, empty if none.
func Suffix(path string) string {
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}

	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}

	return ""
}

// StripSuffix removes the trailing format token, if any.
func StripSuffix(path string) string {
	if sfx := Suffix(path); sfx != "" {
		return strings.TrimSuffix(path, "."+sfx)
	}

	return path
}
