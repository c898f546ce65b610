package generics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringToInt(t *testing.T) {
	require.Equal(t, 12, StringToInt("12"))
	require.Equal(t, 0, StringToInt("abc"))
	require.Equal(t, 0, StringToInt(""))
}

func TestUnique(t *testing.T) {
	require.Equal(t, []string{"b", "a", "c"}, Unique([]string{"b", "a", "b", "c", "a"}))
	require.Empty(t, Unique([]int{}))
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"u1", "u2"}, SplitList(" u1, ,u2,"))
	require.Nil(t, SplitList(""))
}
