package interval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"2s", 2_000_000},
		{"1.5s", 1_500_000},
		{"1.5S", 1_500_000},
		{"500us", 500},
		{"50ms", 50_000},
		{"3m", 180_000_000},
		{"1h", 3_600_000_000},
		{"1d", 86_400_000_000},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestParseBareNumberPassesThroughAsMicroseconds(t *testing.T) {
	got, err := Parse("100")
	require.NoError(t, err)
	require.Equal(t, int64(100), got)
}

func TestParseRejectsMultipleUnits(t *testing.T) {
	_, err := Parse("50s40us")
	require.Error(t, err)
}

func TestParseRejectsMissingNumber(t *testing.T) {
	_, err := Parse("s")
	require.Error(t, err)
}

func TestParseRejectsUnknownUnit(t *testing.T) {
	_, err := Parse("5x")
	require.Error(t, err)
}

func TestNormalizeOffsetClampsAtHalfInterval(t *testing.T) {
	require.Equal(t, int64(500), NormalizeOffset(1000, 900))
	require.Equal(t, int64(400), NormalizeOffset(1000, 400))
	require.Equal(t, int64(0), NormalizeOffset(1000, 0))
	require.Equal(t, int64(0), NormalizeOffset(1000, -5))
}
