package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	parsed, err := Parse("02/01/2006 15:04:05", "31/01/2016 14:05:09")
	require.NoError(t, err)
	require.Equal(t, Location, parsed.Location())
	// brasilia was on daylight saving time (UTC-2) in january 2016
	require.Equal(t, time.Date(2016, 1, 31, 16, 5, 9, 0, time.UTC), parsed.UTC())

	parsed, err = Parse("02/01/2006", "24/12/2020")
	require.NoError(t, err)
	require.Equal(t, time.Date(2020, 12, 24, 3, 0, 0, 0, time.UTC), parsed.UTC())

	_, err = Parse("02/01/2006", "2020-12-24")
	require.Error(t, err)
}

func TestNow(t *testing.T) {
	require.Equal(t, Location, Now().Location())
}
