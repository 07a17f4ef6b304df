package tracker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementScalarTyping(t *testing.T) {
	e := NewElement(TypeUInt64)

	require.NoError(t, e.SetUInt(42))

	v, err := e.UintVal()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	// Tags are immutable; a string write on an integer element must fail.
	assert.ErrorIs(t, e.SetString("nope"), ErrTypeMismatch)

	_, err = e.StringVal()
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestElementMapInsertOrder(t *testing.T) {
	m := NewMap()

	a := NewElementID(TypeString, 3)
	b := NewElementID(TypeString, 1)
	c := NewElementID(TypeString, 2)

	require.NoError(t, m.Insert(a))
	require.NoError(t, m.Insert(b))
	require.NoError(t, m.Insert(c))

	entries := m.MapEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{entries[0].FieldID(), entries[1].FieldID(), entries[2].FieldID()})

	// Replacing an id keeps its serialization slot.
	b2 := NewElementID(TypeString, 1)
	require.NoError(t, m.Insert(b2))

	entries = m.MapEntries()
	require.Len(t, entries, 3)
	assert.Same(t, b2, entries[1])
}

func TestElementMapRejectsUnkeyedChild(t *testing.T) {
	m := NewMap()
	assert.ErrorIs(t, m.Insert(NewString("anon")), ErrTypeMismatch)
}

func TestElementTypedViews(t *testing.T) {
	m := NewMap()

	_, err := m.AsVector()
	assert.ErrorIs(t, err, ErrTypeMismatch)

	mv, err := m.AsMap()
	require.NoError(t, err)
	assert.Same(t, m, mv)
}

func TestChildPath(t *testing.T) {
	inner := NewElementID(TypeMap, 2)
	leaf := NewElementID(TypeUInt32, 3)
	require.NoError(t, leaf.SetUInt(11))
	require.NoError(t, inner.Insert(leaf))

	vec := NewElementID(TypeVector, 4)
	require.NoError(t, vec.Append(NewString("zero")))
	require.NoError(t, vec.Append(NewString("one")))

	root := NewMap()
	require.NoError(t, root.Insert(inner))
	require.NoError(t, root.Insert(vec))

	assert.Same(t, leaf, root.ChildPath([]int{2, 3}))
	assert.Equal(t, "one", root.ChildPath([]int{4, 1}).SearchText())

	// Absent segment, non-container node, and out-of-range index all stop
	// the walk with nil.
	assert.Nil(t, root.ChildPath([]int{9}))
	assert.Nil(t, root.ChildPath([]int{2, 3, 1}))
	assert.Nil(t, root.ChildPath([]int{4, 7}))
}

func TestCloneIsIndependent(t *testing.T) {
	leaf := NewElementID(TypeString, 2)
	require.NoError(t, leaf.SetString("original"))

	root := NewMap()
	require.NoError(t, root.Insert(leaf))

	dup := root.Clone()

	cloned, ok := dup.Get(2)
	require.True(t, ok)
	require.NoError(t, cloned.SetString("changed"))

	got, err := leaf.StringVal()
	require.NoError(t, err)
	assert.Equal(t, "original", got, "mutating the clone must not reach the source")
}

func TestCompare(t *testing.T) {
	small := NewUInt(TypeUInt64, 100)
	big := NewUInt(TypeUInt64, 200)
	negative := NewInt(TypeInt32, -5)

	assert.Negative(t, small.Compare(big))
	assert.Positive(t, big.Compare(small))
	assert.Zero(t, small.Compare(small))
	assert.Negative(t, negative.Compare(small))

	a := NewString("alpha")
	b := NewString("beta")
	assert.Negative(t, a.Compare(b))

	var missing *Element

	assert.Negative(t, missing.Compare(a))
	assert.Positive(t, a.Compare(nil))
}

func TestSearchText(t *testing.T) {
	mac, err := ParseMAC("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)

	u := uuid.MustParse("6f1c6a02-8a51-4c9a-9a09-3f7a3f9f0001")

	assert.Equal(t, "aa:bb:cc:dd:ee:ff", NewMACElement(mac).SearchText())
	assert.Equal(t, u.String(), NewUUIDElement(u).SearchText())
	assert.Equal(t, "-17", NewInt(TypeInt16, -17).SearchText())
	assert.Equal(t, "", NewMap().SearchText())
}

func TestMACParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"aa:bb:cc:dd:ee:ff", "aa:bb:cc:dd:ee:ff", true},
		{"AA-BB-CC-DD-EE-FF", "aa:bb:cc:dd:ee:ff", true},
		{"aabbccddeeff", "aa:bb:cc:dd:ee:ff", true},
		{"aa:bb:cc:dd:ee", "", false},
		{"zz:bb:cc:dd:ee:ff", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseMAC(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestDeviceKeyRoundTrip(t *testing.T) {
	mac, err := ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)

	key := NewDeviceKey(0x1F, mac)
	parsed, err := ParseDeviceKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestDeviceKeyParseErrors(t *testing.T) {
	for _, bad := range []string{"", "nounderscore", "0000001F", "xxxxxxxx_aabbccddeeff", "0000001F_zzbbccddeeff", "1F_aabbccddeeff"} {
		_, err := ParseDeviceKey(bad)
		assert.Error(t, err, "key %q should not parse", bad)
	}
}
