package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKnownMatchesPublishedCounts(t *testing.T) {
	cases := map[int]uint64{
		1: 1,
		2: 1,
		3: 2,
		4: 8,
		5: 29,
		6: 166,
		7: 1023,
	}
	for n, want := range cases {
		got, ok := Known(n)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestKnownOutOfRangeIsNotOk(t *testing.T) {
	_, ok := Known(0)
	require.False(t, ok)

	_, ok = Known(Max() + 1)
	require.False(t, ok)
}

func TestMaxMatchesTableLength(t *testing.T) {
	_, ok := Known(Max())
	require.True(t, ok)
	_, ok = Known(Max() + 1)
	require.False(t, ok)
}
