package serializer

import (
	"encoding/json"
	"io"

	"github.com/wavesentry/wavesentry/pkg/tracker"
)

// JSONCodec renders one aggregate JSON document.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Serialize(w io.Writer, el *tracker.Element, renames tracker.RenameMap) error {
	enc := json.NewEncoder(w)
	return enc.Encode(exportValue(el, renames))
}

// EKJSONCodec renders one record per line. It is used for full-store
// exports where callers serialize each record individually instead of
// building one aggregate document; the output is a newline-delimited JSON
// stream, not a JSON array.
type EKJSONCodec struct{}

func (EKJSONCodec) Name() string { return "ekjson" }

func (EKJSONCodec) Serialize(w io.Writer, el *tracker.Element, renames tracker.RenameMap) error {
	enc := json.NewEncoder(w)
	// json.Encoder terminates each document with a newline, which is
	// exactly the line-delimited contract.
	return enc.Encode(exportValue(el, renames))
}
