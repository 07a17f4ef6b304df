package serializer

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wavesentry/wavesentry/pkg/tracker"
)

// orderedMap preserves Element map insertion order through both JSON and
// msgpack encoding, where plain Go maps would not.
type orderedMap struct {
	keys   []string
	values []interface{}
}

func (m *orderedMap) add(key string, value interface{}) {
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

func (m *orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := json.Marshal(m.values[i])
		if err != nil {
			return nil, err
		}

		buf.Write(vb)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

var _ msgpack.CustomEncoder = (*orderedMap)(nil)

func (m *orderedMap) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(m.keys)); err != nil {
		return err
	}

	for i, key := range m.keys {
		if err := enc.EncodeString(key); err != nil {
			return err
		}

		if err := enc.Encode(m.values[i]); err != nil {
			return err
		}
	}

	return nil
}

// displayName picks the output name for a map entry: the per-request rename
// wins, then the element's local name, then the bare field id.
func displayName(el *tracker.Element, renames tracker.RenameMap) string {
	if renames != nil {
		if name, ok := renames[el]; ok && name != "" {
			return name
		}
	}

	if name := el.LocalName(); name != "" {
		return name
	}

	return strconv.Itoa(el.FieldID())
}

// exportValue converts an Element tree to the value the codecs encode.
// Integer widths and signedness are preserved by exporting exact Go types;
// addresses and UUIDs export as their canonical string form.
func exportValue(el *tracker.Element, renames tracker.RenameMap) interface{} {
	if el == nil {
		return nil
	}

	switch el.Type() {
	case tracker.TypeMap:
		out := &orderedMap{}
		for _, child := range el.MapEntries() {
			out.add(displayName(child, renames), exportValue(child, renames))
		}

		return out
	case tracker.TypeVector:
		items := el.Items()
		out := make([]interface{}, 0, len(items))

		for _, child := range items {
			out = append(out, exportValue(child, renames))
		}

		return out
	case tracker.TypeString:
		v, _ := el.StringVal()
		return v
	case tracker.TypeBytes:
		v, _ := el.BytesVal()
		return v
	case tracker.TypeFloat64:
		v, _ := el.FloatVal()
		return v
	case tracker.TypeMAC, tracker.TypeUUID:
		return el.SearchText()
	case tracker.TypeInt8:
		v, _ := el.IntVal()
		return int8(v)
	case tracker.TypeInt16:
		v, _ := el.IntVal()
		return int16(v)
	case tracker.TypeInt32:
		v, _ := el.IntVal()
		return int32(v)
	case tracker.TypeInt64:
		v, _ := el.IntVal()
		return v
	case tracker.TypeUInt8:
		v, _ := el.UintVal()
		return uint8(v)
	case tracker.TypeUInt16:
		v, _ := el.UintVal()
		return uint16(v)
	case tracker.TypeUInt32:
		v, _ := el.UintVal()
		return uint32(v)
	case tracker.TypeUInt64:
		v, _ := el.UintVal()
		return v
	default:
		return nil
	}
}
