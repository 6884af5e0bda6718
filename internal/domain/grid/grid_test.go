package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/domain/shared/daterange"
)

func window(t *testing.T) Window {
	t.Helper()
	w, err := NewWindow(daterange.MustDateKey("2024-01-01"), 14)
	require.NoError(t, err)
	return w
}

func TestNewWindowRejectsEmpty(t *testing.T) {
	_, err := NewWindow(daterange.MustDateKey("2024-01-01"), 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = NewWindow(daterange.MustDateKey("2024-01-01"), MaxDays+1)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestDaysFlags(t *testing.T) {
	w := window(t)
	days := w.Days(daterange.MustDateKey("2024-01-03"))
	require.Len(t, days, 14)

	assert.Equal(t, "2024-01-01", days[0].Key())
	assert.False(t, days[0].IsWeekend) // Monday
	assert.True(t, days[5].IsWeekend)  // Saturday
	assert.True(t, days[6].IsWeekend)  // Sunday
	assert.True(t, days[2].IsToday)
	assert.False(t, days[3].IsToday)
}

func TestIndexOf(t *testing.T) {
	w := window(t)
	i, ok := w.IndexOf(daterange.MustDateKey("2024-01-05"))
	assert.True(t, ok)
	assert.Equal(t, 4, i)

	i, ok = w.IndexOf(daterange.MustDateKey("2023-12-31"))
	assert.False(t, ok)
	assert.Equal(t, -1, i)

	_, ok = w.IndexOf(w.End())
	assert.False(t, ok)
}

func TestProjectClipsAndOmits(t *testing.T) {
	w := window(t)
	cases := []struct {
		name    string
		r       daterange.DateRange
		want    Span
		visible bool
	}{
		{"inside", daterange.MustParse("2024-01-03", "2024-01-05"), Span{2, 2}, true},
		{"starts before", daterange.MustParse("2023-12-28", "2024-01-03"), Span{0, 2}, true},
		{"ends after", daterange.MustParse("2024-01-13", "2024-01-20"), Span{12, 2}, true},
		{"covers all", daterange.MustParse("2023-12-01", "2024-02-01"), Span{0, 14}, true},
		{"before window", daterange.MustParse("2023-12-20", "2024-01-01"), Span{}, false},
		{"after window", daterange.MustParse("2024-01-15", "2024-01-17"), Span{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := w.Project(tc.r)
			assert.Equal(t, tc.visible, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIndexSpanNormalizesDirection(t *testing.T) {
	w := window(t)
	a, ok := w.IndexSpan(5, 2)
	require.True(t, ok)
	b, _ := w.IndexSpan(2, 5)
	assert.Equal(t, a, b)
	assert.Equal(t, Span{ColumnStart: 2, ColumnSpan: 4}, a)

	clipped, ok := w.IndexSpan(-3, 20)
	require.True(t, ok)
	assert.Equal(t, Span{ColumnStart: 0, ColumnSpan: 14}, clipped)

	_, ok = w.IndexSpan(20, 30)
	assert.False(t, ok)
}
