package storage

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
		want any
	}{
		{"nil", nil, NullKind, nil},
		{"int", 42, IntKind, int64(42)},
		{"int32", int32(-3), IntKind, int64(-3)},
		{"uint8", uint8(7), IntKind, int64(7)},
		{"float32", float32(0.5), FloatKind, 0.5},
		{"float64", 3.14, FloatKind, 3.14},
		{"string", "Pi", TextKind, "Pi"},
		{"bool", true, BoolKind, true},
		{"value", Int(9), IntKind, int64(9)},
		{"map", map[string]any{"b": 2, "a": "x"}, RecordKind, map[string]any{"a": "x", "b": int64(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Of(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.Any())
		})
	}
}

func TestOf_Unsupported(t *testing.T) {
	_, err := Of(struct{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = Of(uint64(1 << 63))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	assert.Panics(t, func() { MustOf([]int{1}) })
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Int(2).Equal(Float(2.0)))
	assert.True(t, Null().Equal(Null()))
	assert.False(t, Null().Equal(Int(0)))
	assert.False(t, Text("1").Equal(Int(1)))
	assert.True(t, Bool(false).Equal(Bool(false)))
	assert.True(t, Nested(MustRecord("a", 1, "b", 2)).Equal(Nested(MustRecord("b", 2, "a", 1))))
}

func TestValue_Compare(t *testing.T) {
	c, err := Int(1).Compare(Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Text("b").Compare(Text("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Bool(false).Compare(Bool(true))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = Null().Compare(Int(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Text("1").Compare(Int(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Nested(nil).Compare(Nested(nil))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestValue_Key(t *testing.T) {
	assert.Equal(t, Int(3).Key(), Float(3).Key())
	assert.NotEqual(t, Int(3).Key(), Text("3").Key())
	assert.NotEqual(t, Float(3.5).Key(), Float(3.25).Key())
	assert.NotEqual(t, Null().Key(), Text("").Key())
	assert.Equal(t,
		Nested(MustRecord("a", 1, "b", "x")).Key(),
		Nested(MustRecord("b", "x", "a", 1.0)).Key())
}

func TestValue_KeyAgreesWithEqualBeyondExactFloats(t *testing.T) {
	big := Int(1<<53 + 1)
	img := Float(float64(1<<53 + 1))
	require.True(t, big.Equal(img))
	assert.Equal(t, big.Key(), img.Key())

	top := Int(math.MaxInt64)
	require.True(t, top.Equal(Float(math.MaxInt64)))
	assert.Equal(t, top.Key(), Float(math.MaxInt64).Key())
	assert.Equal(t, Int(-(1<<53)).Key(), Float(-(1 << 53)).Key())
}

func TestValue_Truthy(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, Int(0).Truthy())
	assert.True(t, Float(0.1).Truthy())
	assert.False(t, Text("").Truthy())
	assert.True(t, Bool(true).Truthy())
}

func TestValue_Accessors(t *testing.T) {
	n, ok := Float(2.9).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)

	_, ok = Text("x").AsFloat()
	assert.False(t, ok)

	s, ok := Text("x").AsText()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	rec, ok := Nested(MustRecord("a", 1)).AsRecord()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, rec.Names())
}

func TestValue_StringAndJSON(t *testing.T) {
	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, "3.14", Float(3.14).String())
	assert.Equal(t, `"Pi"`, Text("Pi").String())

	b, err := Nested(MustRecord("b", 1, "a", nil)).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":1,"a":null}`, string(b))
}
