package daterange

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOffsetAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-10 is a 23 hour day in New York, 2024-11-03 a 25 hour day.
	before := time.Date(2024, 3, 9, 23, 30, 0, 0, ny)
	after := time.Date(2024, 3, 11, 0, 15, 0, 0, ny)
	assert.Equal(t, 2, DayOffset(after, before))

	fallStart := time.Date(2024, 11, 2, 0, 0, 0, 0, ny)
	fallEnd := time.Date(2024, 11, 4, 23, 59, 0, 0, ny)
	assert.Equal(t, 2, DayOffset(fallEnd, fallStart))
	assert.Equal(t, -2, DayOffset(fallStart, fallEnd))
}

func TestDateKeyRoundTrip(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cases := []time.Time{
		time.Date(2024, 3, 10, 1, 59, 0, 0, ny),
		time.Date(2024, 3, 10, 3, 0, 0, 0, ny),
		time.Date(2024, 11, 3, 1, 30, 0, 0, ny),
		time.Date(2024, 12, 31, 23, 59, 59, 0, ny),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range cases {
		got, err := FromDateKey(ToDateKey(d))
		require.NoError(t, err)
		y, m, day := d.Date()
		gy, gm, gd := got.Date()
		assert.Equal(t, []int{y, int(m), day}, []int{gy, int(gm), gd}, d.String())
	}
}

func TestFromDateKeyRejectsGarbage(t *testing.T) {
	_, err := FromDateKey("2024-13-01")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = FromDateKey("2024-01-01T00:00:00Z")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewRejectsDegenerateRange(t *testing.T) {
	_, err := Parse("2024-01-03", "2024-01-03")
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = Parse("2024-01-03", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	dr, err := Parse("2024-01-01", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 1, dr.Nights())
}

func TestOverlapAndAdjacency(t *testing.T) {
	a := MustParse("2024-01-01", "2024-01-03")
	b := MustParse("2024-01-03", "2024-01-05")
	c := MustParse("2024-01-02", "2024-01-04")

	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Adjacent(b))
	assert.True(t, a.Overlaps(c))

	inter, ok := a.Intersection(c)
	require.True(t, ok)
	assert.Equal(t, "2024-01-02/2024-01-03", inter.String())

	merged, ok := a.Merge(b)
	require.True(t, ok)
	assert.Equal(t, 4, merged.Nights())
}

func TestDaysAndContainsDate(t *testing.T) {
	dr := MustParse("2024-01-30", "2024-02-02")
	days := dr.Days()
	require.Len(t, days, 3)
	assert.Equal(t, "2024-02-01", ToDateKey(days[2]))
	assert.True(t, dr.ContainsDate(MustDateKey("2024-02-01")))
	assert.False(t, dr.ContainsDate(MustDateKey("2024-02-02")))
}
