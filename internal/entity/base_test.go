package entity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBigInt_Scan(t *testing.T) {
	var b BigInt
	require.NoError(t, b.Scan("123456789012345678901234567890"))
	expected, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.Equal(t, 0, b.Big().Cmp(expected))

	require.NoError(t, b.Scan([]byte("42")))
	require.Equal(t, int64(42), b.Int64())

	require.NoError(t, b.Scan(int64(7)))
	require.Equal(t, int64(7), b.Int64())

	require.NoError(t, b.Scan(nil))
	require.Equal(t, 0, b.Sign())

	require.Error(t, b.Scan("abc"))
	require.Error(t, b.Scan(1.5))
}

func TestBigInt_Value(t *testing.T) {
	v, err := NewBigInt(big.NewInt(-15)).Value()
	require.NoError(t, err)
	require.Equal(t, "-15", v)

	v, err = NewBigInt(nil).Value()
	require.NoError(t, err)
	require.Equal(t, "0", v)
}

func TestBigInt_BigIsCopy(t *testing.T) {
	b := NewBigInt(big.NewInt(10))
	c := b.Big()
	c.SetInt64(11)
	require.Equal(t, int64(10), b.Int64())
}

func TestMap(t *testing.T) {
	m := Map{"a": "b"}
	v, err := m.Value()
	require.NoError(t, err)

	var out Map
	require.NoError(t, out.Scan(v))
	require.Equal(t, "b", out["a"])
}
