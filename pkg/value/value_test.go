package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONPreservesObjectOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"b": 1, "a": 2, "c": 3}`))
	require.NoError(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok, "expected object, got %s", v.Kind())
	assert.Equal(t, []string{"b", "a", "c"}, obj.Keys())
}

func TestParseJSONIntVsFloat(t *testing.T) {
	v, err := ParseJSON([]byte(`25.5`))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind())

	v, err = ParseJSON([]byte(`42`))
	require.NoError(t, err)
	assert.Equal(t, KindInt, v.Kind())
}

func TestEncodeJSONRoundTripsOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"z":1,"a":2}`))
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2}`, EncodeJSON(v))
}

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		in   Value
		want float64
	}{
		{Bool(true), 1.0},
		{Int(5), 5.0},
		{Str("3.14"), 3.14},
	}
	for _, c := range cases {
		got, err := Coerce(c.in, TypeFloat)
		require.NoError(t, err)
		f, _ := got.AsFloat()
		assert.Equal(t, c.want, f)
	}

	_, err := Coerce(Null(), TypeFloat)
	assert.Error(t, err, "expected error coercing Null to float")
}

func TestCoerceBoolStrings(t *testing.T) {
	truthy := []string{"true", "1", "on", "yes", "TRUE", "Yes"}
	falsy := []string{"false", "0", "off", "no", "FALSE"}
	for _, s := range truthy {
		got, err := Coerce(Str(s), TypeBool)
		require.NoError(t, err)
		b, _ := got.AsBool()
		assert.True(t, b, "Coerce(%q, bool) should be true", s)
	}
	for _, s := range falsy {
		got, err := Coerce(Str(s), TypeBool)
		require.NoError(t, err)
		b, _ := got.AsBool()
		assert.False(t, b, "Coerce(%q, bool) should be false", s)
	}
	_, err := Coerce(Str("maybe"), TypeBool)
	assert.Error(t, err, "expected error coercing \"maybe\" to bool")
}

func TestCoerceBoolToInt(t *testing.T) {
	got, err := Coerce(Str("yes"), TypeBoolToInt)
	require.NoError(t, err)
	i, _ := got.AsInt()
	assert.Equal(t, int64(1), i)
}

func TestCoerceIntOverflowErrors(t *testing.T) {
	_, err := Coerce(Str("99999999999999999999"), TypeInt)
	assert.Error(t, err, "expected error coercing an out-of-range decimal string to int")
}

func TestCoerceStrJSONReencode(t *testing.T) {
	arr := Array([]Value{Int(1), Int(2)})
	got, err := Coerce(arr, TypeStr)
	require.NoError(t, err)
	s, _ := got.AsStr()
	assert.Equal(t, "[1,2]", s)
}

func TestArithIntegralityPreserved(t *testing.T) {
	sum, err := Arith(OpAdd, Int(2), Int(3))
	require.NoError(t, err)
	assert.Equal(t, KindInt, sum.Kind())

	div, err := Arith(OpDiv, Int(10), Int(2))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, div.Kind(), "division always widens")

	_, err = Arith(OpDiv, Int(1), Int(0))
	assert.Error(t, err, "expected division by zero error")
}

func TestArithModSignOfDivisor(t *testing.T) {
	got, err := Arith(OpMod, Int(-7), Int(3))
	require.NoError(t, err)
	i, _ := got.AsInt()
	assert.Equal(t, int64(2), i, "-7 %% 3 should take the sign of the divisor")
}

func TestArithPowAlwaysFloat(t *testing.T) {
	got, err := Arith(OpPow, Int(2), Int(3))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, got.Kind())
	f, _ := got.AsFloat()
	assert.Equal(t, 8.0, f)
}
