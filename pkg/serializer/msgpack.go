package serializer

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wavesentry/wavesentry/pkg/tracker"
)

// MsgpackCodec renders the compact binary map-pack form.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Serialize(w io.Writer, el *tracker.Element, renames tracker.RenameMap) error {
	enc := msgpack.NewEncoder(w)
	return enc.Encode(exportValue(el, renames))
}
