package availability

import (
	"testing"

	"padelscout-backend/lib/supabase"

	"github.com/stretchr/testify/require"
)

func TestSameCourt(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Padel Court 1", "Padel Court 1", true},
		{"Padel Court 1", "padel court  1", true},
		{"Padel Court 1", "Padel court 1", true},
		// numbered courts never merge across numbers
		{"Padel Court 1", "Padel Court 2", false},
		{"Court 10", "Court 1", false},
		{"Panoramic Court", "Panoramic court", true},
		{"Panoramic Court", "Central Court", false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, sameCourt(c.a, c.b), "%q vs %q", c.a, c.b)
	}
}

func TestCourtIndexFind(t *testing.T) {
	index := newCourtIndex([]supabase.Court{
		{Id: "court-1", Name: "Padel Court 1"},
		{Id: "court-2", Name: "Padel Court 2"},
	})

	court, ok := index.find("padel court 2")
	require.True(t, ok)
	require.Equal(t, "court-2", court.Id)

	_, ok = index.find("Padel Court 3")
	require.False(t, ok)
}

func TestDurationMinutes(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"18:00", "19:30", 90},
		{"10:00", "10:30", 30},
		// wraps past midnight
		{"23:00", "01:00", 120},
		{"23:30", "00:00", 30},
	}
	for _, c := range cases {
		got, err := durationMinutes(c.start, c.end)
		require.NoError(t, err)
		require.Equal(t, c.want, got, "%s to %s", c.start, c.end)
	}

	_, err := durationMinutes("garbage", "10:00")
	require.Error(t, err)
}
