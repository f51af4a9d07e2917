package enum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnum(t *testing.T) {
	t.Run("string enum", func(t *testing.T) {
		type Kind string

		bar := New(Kind("bar"))
		New(Kind("alpha"))
		require.Equal(t, Kind("bar"), bar)

		v, err := ToEnum[Kind]("bar")
		require.NoError(t, err)
		require.Equal(t, bar, v)

		_, err = ToEnum[Kind]("Bar")
		require.Error(t, err)

		require.Equal(t, []string{"alpha", "bar"}, Values[Kind]())
	})

	t.Run("int enum", func(t *testing.T) {
		type Level int

		high := New(Level(100))

		v, err := ToEnum[Level]("100")
		require.NoError(t, err)
		require.Equal(t, high, v)

		_, err = ToEnum[Level]("200")
		require.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		type Unused string

		_, err := ToEnum[Unused]("x")
		require.Error(t, err)
		require.Empty(t, Values[Unused]())
	})
}
