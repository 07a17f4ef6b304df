package tracker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrTypeMismatch is returned when an Element is accessed through a typed
// view that disagrees with its tag.
var ErrTypeMismatch = errors.New("element type mismatch")

// Type tags an Element variant. The tag is fixed at construction; an Element
// is never retagged in place.
type Type int

const (
	TypeString Type = iota
	TypeInt8
	TypeUInt8
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat64
	TypeMAC
	TypeUUID
	TypeBytes
	TypeMap
	TypeVector
)

var typeNames = map[Type]string{
	TypeString:  "string",
	TypeInt8:    "int8",
	TypeUInt8:   "uint8",
	TypeInt16:   "int16",
	TypeUInt16:  "uint16",
	TypeInt32:   "int32",
	TypeUInt32:  "uint32",
	TypeInt64:   "int64",
	TypeUInt64:  "uint64",
	TypeFloat64: "float64",
	TypeMAC:     "mac",
	TypeUUID:    "uuid",
	TypeBytes:   "bytes",
	TypeMap:     "map",
	TypeVector:  "vector",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}

	return "unknown"
}

// IsSigned reports whether the type is a signed integer variant.
func (t Type) IsSigned() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return true
	default:
		return false
	}
}

// IsUnsigned reports whether the type is an unsigned integer variant.
func (t Type) IsUnsigned() bool {
	switch t {
	case TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64:
		return true
	default:
		return false
	}
}

// Element is a tagged tree value: a scalar, an id-keyed map, or a vector.
// Every Element optionally carries a schema field id and a local display
// name used only for output. Containers exclusively own their direct
// children; sharing a subtree between two parents is not allowed.
type Element struct {
	typ       Type
	fieldID   int
	localName string

	str  string
	bin  []byte
	ival int64
	uval uint64
	fval float64
	mac  MAC
	uid  uuid.UUID

	entries map[int]*Element
	order   []int
	items   []*Element
}

// NewElement creates an untagged-id Element of the given type.
func NewElement(typ Type) *Element {
	return NewElementID(typ, 0)
}

// NewElementID creates an Element of the given type carrying a field id.
func NewElementID(typ Type, fieldID int) *Element {
	e := &Element{typ: typ, fieldID: fieldID}

	if typ == TypeMap {
		e.entries = make(map[int]*Element)
	}

	return e
}

func NewString(s string) *Element {
	e := NewElement(TypeString)
	e.str = s

	return e
}

func NewInt(typ Type, v int64) *Element {
	e := NewElement(typ)
	e.ival = v

	return e
}

func NewUInt(typ Type, v uint64) *Element {
	e := NewElement(typ)
	e.uval = v

	return e
}

func NewFloat64(v float64) *Element {
	e := NewElement(TypeFloat64)
	e.fval = v

	return e
}

func NewMACElement(m MAC) *Element {
	e := NewElement(TypeMAC)
	e.mac = m

	return e
}

func NewUUIDElement(u uuid.UUID) *Element {
	e := NewElement(TypeUUID)
	e.uid = u

	return e
}

func NewBytes(b []byte) *Element {
	e := NewElement(TypeBytes)
	e.bin = append([]byte(nil), b...)

	return e
}

func NewMap() *Element    { return NewElement(TypeMap) }
func NewVector() *Element { return NewElement(TypeVector) }

// Type returns the immutable variant tag.
func (e *Element) Type() Type { return e.typ }

// FieldID returns the schema field id, zero if unset.
func (e *Element) FieldID() int { return e.fieldID }

// LocalName returns the human-readable output name, empty if unset.
func (e *Element) LocalName() string { return e.localName }

// SetLocalName overrides the name used for external representation.
func (e *Element) SetLocalName(name string) { e.localName = name }

func (e *Element) mismatch(want Type) error {
	return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, e.typ, want)
}

// SetString assigns a string scalar.
func (e *Element) SetString(s string) error {
	if e.typ != TypeString {
		return e.mismatch(TypeString)
	}

	e.str = s

	return nil
}

// SetInt assigns any signed integer variant.
func (e *Element) SetInt(v int64) error {
	if !e.typ.IsSigned() {
		return e.mismatch(TypeInt64)
	}

	e.ival = v

	return nil
}

// SetUInt assigns any unsigned integer variant.
func (e *Element) SetUInt(v uint64) error {
	if !e.typ.IsUnsigned() {
		return e.mismatch(TypeUInt64)
	}

	e.uval = v

	return nil
}

// SetFloat assigns a float scalar.
func (e *Element) SetFloat(v float64) error {
	if e.typ != TypeFloat64 {
		return e.mismatch(TypeFloat64)
	}

	e.fval = v

	return nil
}

// SetMAC assigns a hardware-address scalar.
func (e *Element) SetMAC(m MAC) error {
	if e.typ != TypeMAC {
		return e.mismatch(TypeMAC)
	}

	e.mac = m

	return nil
}

// SetUUID assigns a UUID scalar.
func (e *Element) SetUUID(u uuid.UUID) error {
	if e.typ != TypeUUID {
		return e.mismatch(TypeUUID)
	}

	e.uid = u

	return nil
}

// SetBytes assigns a byte-string scalar.
func (e *Element) SetBytes(b []byte) error {
	if e.typ != TypeBytes {
		return e.mismatch(TypeBytes)
	}

	e.bin = append([]byte(nil), b...)

	return nil
}

func (e *Element) StringVal() (string, error) {
	if e.typ != TypeString {
		return "", e.mismatch(TypeString)
	}

	return e.str, nil
}

func (e *Element) IntVal() (int64, error) {
	if !e.typ.IsSigned() {
		return 0, e.mismatch(TypeInt64)
	}

	return e.ival, nil
}

func (e *Element) UintVal() (uint64, error) {
	if !e.typ.IsUnsigned() {
		return 0, e.mismatch(TypeUInt64)
	}

	return e.uval, nil
}

func (e *Element) FloatVal() (float64, error) {
	if e.typ != TypeFloat64 {
		return 0, e.mismatch(TypeFloat64)
	}

	return e.fval, nil
}

func (e *Element) MACVal() (MAC, error) {
	if e.typ != TypeMAC {
		return MAC{}, e.mismatch(TypeMAC)
	}

	return e.mac, nil
}

func (e *Element) UUIDVal() (uuid.UUID, error) {
	if e.typ != TypeUUID {
		return uuid.UUID{}, e.mismatch(TypeUUID)
	}

	return e.uid, nil
}

func (e *Element) BytesVal() ([]byte, error) {
	if e.typ != TypeBytes {
		return nil, e.mismatch(TypeBytes)
	}

	return append([]byte(nil), e.bin...), nil
}

// AsMap returns the element as a map view, or ErrTypeMismatch.
func (e *Element) AsMap() (*Element, error) {
	if e.typ != TypeMap {
		return nil, e.mismatch(TypeMap)
	}

	return e, nil
}

// AsVector returns the element as a vector view, or ErrTypeMismatch.
func (e *Element) AsVector() (*Element, error) {
	if e.typ != TypeVector {
		return nil, e.mismatch(TypeVector)
	}

	return e, nil
}

// Get looks up a direct map child by field id.
func (e *Element) Get(fieldID int) (*Element, bool) {
	if e.typ != TypeMap {
		return nil, false
	}

	child, ok := e.entries[fieldID]

	return child, ok
}

// Insert adds a child to a map keyed by the child's own field id. Inserting
// an id already present replaces the value but keeps its serialization slot;
// field ids are unique within one map.
func (e *Element) Insert(child *Element) error {
	if e.typ != TypeMap {
		return e.mismatch(TypeMap)
	}

	if child == nil || child.fieldID == 0 {
		return fmt.Errorf("%w: map children require a field id", ErrTypeMismatch)
	}

	if _, exists := e.entries[child.fieldID]; !exists {
		e.order = append(e.order, child.fieldID)
	}

	e.entries[child.fieldID] = child

	return nil
}

// MapEntries returns the direct map children in insertion order.
func (e *Element) MapEntries() []*Element {
	if e.typ != TypeMap {
		return nil
	}

	out := make([]*Element, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.entries[id])
	}

	return out
}

// Append adds a child to a vector.
func (e *Element) Append(child *Element) error {
	if e.typ != TypeVector {
		return e.mismatch(TypeVector)
	}

	e.items = append(e.items, child)

	return nil
}

// Len returns the child count of a container, zero for scalars.
func (e *Element) Len() int {
	switch e.typ {
	case TypeMap:
		return len(e.entries)
	case TypeVector:
		return len(e.items)
	default:
		return 0
	}
}

// Items returns the vector children in order.
func (e *Element) Items() []*Element {
	if e.typ != TypeVector {
		return nil
	}

	return e.items
}

// ChildPath walks nested containers by the resolved id path. Maps are walked
// by field id, vectors by index. It returns nil the moment any segment is
// absent or the current node is not a container.
func (e *Element) ChildPath(ids []int) *Element {
	cur := e

	for _, id := range ids {
		if cur == nil {
			return nil
		}

		switch cur.typ {
		case TypeMap:
			child, ok := cur.Get(id)
			if !ok {
				return nil
			}

			cur = child
		case TypeVector:
			if id < 0 || id >= len(cur.items) {
				return nil
			}

			cur = cur.items[id]
		default:
			return nil
		}
	}

	return cur
}

// Clone produces a structurally independent deep copy. Mutating the clone
// never aliases back into the source tree.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}

	out := *e
	out.bin = append([]byte(nil), e.bin...)

	if e.typ == TypeMap {
		out.entries = make(map[int]*Element, len(e.entries))
		out.order = append([]int(nil), e.order...)

		for id, child := range e.entries {
			out.entries[id] = child.Clone()
		}
	}

	if e.typ == TypeVector {
		out.items = make([]*Element, len(e.items))
		for i, child := range e.items {
			out.items[i] = child.Clone()
		}
	}

	return &out
}

// SearchText renders a scalar as matchable text: strings verbatim, numbers
// in decimal, addresses and UUIDs in canonical form. Containers yield "".
func (e *Element) SearchText() string {
	if e == nil {
		return ""
	}

	switch {
	case e.typ == TypeString:
		return e.str
	case e.typ == TypeBytes:
		return string(e.bin)
	case e.typ.IsSigned():
		return strconv.FormatInt(e.ival, 10)
	case e.typ.IsUnsigned():
		return strconv.FormatUint(e.uval, 10)
	case e.typ == TypeFloat64:
		return strconv.FormatFloat(e.fval, 'g', -1, 64)
	case e.typ == TypeMAC:
		return e.mac.String()
	case e.typ == TypeUUID:
		return e.uid.String()
	default:
		return ""
	}
}

// Compare orders two elements for sorting. Numeric kinds compare by value,
// text-like kinds by canonical string, containers by length. Dissimilar
// kinds fall back to tag order. A nil element sorts first.
func (e *Element) Compare(other *Element) int {
	if e == nil && other == nil {
		return 0
	}

	if e == nil {
		return -1
	}

	if other == nil {
		return 1
	}

	if e.numericKind() && other.numericKind() {
		return compareFloat(e.numericValue(), other.numericValue())
	}

	if e.textKind() && other.textKind() {
		return strings.Compare(e.SearchText(), other.SearchText())
	}

	if e.typ == other.typ && (e.typ == TypeMap || e.typ == TypeVector) {
		return compareInt(e.Len(), other.Len())
	}

	return compareInt(int(e.typ), int(other.typ))
}

func (e *Element) numericKind() bool {
	return e.typ.IsSigned() || e.typ.IsUnsigned() || e.typ == TypeFloat64
}

func (e *Element) textKind() bool {
	switch e.typ {
	case TypeString, TypeBytes, TypeMAC, TypeUUID:
		return true
	default:
		return false
	}
}

func (e *Element) numericValue() float64 {
	switch {
	case e.typ.IsSigned():
		return float64(e.ival)
	case e.typ.IsUnsigned():
		return float64(e.uval)
	default:
		return e.fval
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
