package drag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/domain/grid"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

type recordingFastPath struct {
	writes []grid.Span
	clears int
}

func (f *recordingFastPath) WriteSpan(_ reservation.SiteID, span grid.Span) {
	f.writes = append(f.writes, span)
}

func (f *recordingFastPath) Clear() { f.clears++ }

type recordingPublisher struct {
	snapshots []*Snapshot
}

func (p *recordingPublisher) Publish(s *Snapshot) { p.snapshots = append(p.snapshots, s) }

func newMachine(t *testing.T) (*Machine, *recordingFastPath, *recordingPublisher) {
	t.Helper()
	w, err := grid.NewWindow(daterange.MustDateKey("2024-01-01"), 30)
	require.NoError(t, err)
	fast := &recordingFastPath{}
	pub := &recordingPublisher{}
	return NewMachine(w, fast, pub), fast, pub
}

func TestNewSelectionScenario(t *testing.T) {
	m, _, _ := newMachine(t)
	_, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 0})
	require.NoError(t, err)
	require.NoError(t, m.Update("s1", 1))
	require.NoError(t, m.Update("s1", 2))

	res, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", res.Range.ArrivalKey())
	assert.Equal(t, "2024-01-04", res.Range.DepartureKey())
	assert.Equal(t, 3, daterange.DayOffset(res.Range.Departure, res.Range.Arrival))
	assert.Equal(t, reservation.SiteID("s1"), res.SiteID)
	assert.True(t, res.Dragged)
	assert.False(t, m.Active())
}

func TestRangeIndependentOfDirection(t *testing.T) {
	for a := 0; a < 6; a++ {
		for b := 0; b < 6; b++ {
			m, _, _ := newMachine(t)
			_, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: a})
			require.NoError(t, err)
			require.NoError(t, m.Update("s1", b))
			forward, err := m.Finalize()
			require.NoError(t, err)

			_, err = m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: b})
			require.NoError(t, err)
			require.NoError(t, m.Update("s1", a))
			backward, err := m.Finalize()
			require.NoError(t, err)

			assert.True(t, forward.Range.Equal(backward.Range), "a=%d b=%d", a, b)
			want := daterange.AddDays(m.Window().DateAt(max(a, b)), 1)
			assert.True(t, want.Equal(forward.Range.Departure))
			assert.Greater(t, forward.Range.Nights(), 0)
		}
	}
}

func TestClickWithoutMoveIsOneNight(t *testing.T) {
	m, _, _ := newMachine(t)
	_, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 4})
	require.NoError(t, err)
	res, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 1, daterange.DayOffset(res.Range.Departure, res.Range.Arrival))
	assert.False(t, res.Dragged)
	assert.Equal(t, KindNewSelection, res.Mode.Kind())
}

func TestSiteChangesOnlyInMoveMode(t *testing.T) {
	stay := reservation.Reservation{
		ID:     "r1",
		SiteID: "s1",
		Range:  daterange.MustParse("2024-01-05", "2024-01-08"),
		Status: reservation.StatusConfirmed,
	}

	m, _, _ := newMachine(t)
	_, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 2})
	require.NoError(t, err)
	require.NoError(t, m.Update("s2", 3))
	res, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, reservation.SiteID("s1"), res.SiteID)

	_, err = m.Start(Target{Kind: TargetPillEndHandle, Index: 6, Reservation: &stay})
	require.NoError(t, err)
	require.NoError(t, m.Update("s2", 9))
	res, err = m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, reservation.SiteID("s1"), res.SiteID)
	assert.Equal(t, "2024-01-05", res.Range.ArrivalKey())
	assert.Equal(t, "2024-01-11", res.Range.DepartureKey())

	_, err = m.Start(Target{Kind: TargetPillBody, Index: 5, Reservation: &stay})
	require.NoError(t, err)
	require.NoError(t, m.Update("s2", 7))
	res, err = m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, reservation.SiteID("s2"), res.SiteID)
	assert.Equal(t, reservation.SiteID("s1"), res.OriginSite)
	assert.Equal(t, "2024-01-07", res.Range.ArrivalKey())
	assert.Equal(t, "2024-01-10", res.Range.DepartureKey())
	mv, ok := res.Mode.(Move)
	require.True(t, ok)
	assert.Equal(t, reservation.ID("r1"), mv.Reservation.ID)
}

func TestExtendStartKeepsDeparture(t *testing.T) {
	stay := reservation.Reservation{ID: "r1", SiteID: "s1", Range: daterange.MustParse("2024-01-05", "2024-01-08")}
	m, _, _ := newMachine(t)
	_, err := m.Start(Target{Kind: TargetPillStartHandle, Index: 4, Reservation: &stay})
	require.NoError(t, err)
	require.NoError(t, m.Update("s1", 2))
	res, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", res.Range.ArrivalKey())
	assert.Equal(t, "2024-01-08", res.Range.DepartureKey())

	// Dragging the start handle past the end collapses to the last night.
	_, err = m.Start(Target{Kind: TargetPillStartHandle, Index: 4, Reservation: &stay})
	require.NoError(t, err)
	require.NoError(t, m.Update("s1", 20))
	res, err = m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Range.Nights())
}

func TestMovesWriteFastPathButPublishRarely(t *testing.T) {
	m, fast, pub := newMachine(t)
	_, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 0})
	require.NoError(t, err)
	for i := 1; i < 25; i++ {
		require.NoError(t, m.Update("s1", i))
	}
	assert.Len(t, fast.writes, 25)
	assert.Equal(t, grid.Span{ColumnStart: 0, ColumnSpan: 25}, fast.writes[len(fast.writes)-1])
	// start and the first real movement
	assert.Len(t, pub.snapshots, 2)

	_, err = m.Finalize()
	require.NoError(t, err)
	assert.Len(t, pub.snapshots, 3)
	assert.Nil(t, pub.snapshots[2])
	assert.Equal(t, 1, fast.clears)
}

func TestReleaseOutsideGridFinalizesLastPosition(t *testing.T) {
	m, _, _ := newMachine(t)
	_, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 3})
	require.NoError(t, err)
	require.NoError(t, m.Update("s1", 5))
	require.NoError(t, m.Update("s1", 99))
	require.NoError(t, m.Update("s1", -1))

	res, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-04", res.Range.ArrivalKey())
	assert.Equal(t, "2024-01-07", res.Range.DepartureKey())

	_, err = m.Finalize()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCancelClearsBothRepresentations(t *testing.T) {
	m, fast, pub := newMachine(t)
	assert.False(t, m.Cancel())

	_, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 3})
	require.NoError(t, err)
	assert.True(t, m.Cancel())
	assert.Nil(t, m.Snapshot())
	assert.Equal(t, 1, fast.clears)
	assert.Nil(t, pub.snapshots[len(pub.snapshots)-1])
	assert.ErrorIs(t, m.Update("s1", 4), ErrNoSession)
}

func TestStartRejectsBadTargets(t *testing.T) {
	m, _, _ := newMachine(t)
	_, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 30})
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = m.Start(Target{Kind: TargetPillBody, Index: 2})
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.False(t, m.Active())
}

func TestStartReplacesDanglingSession(t *testing.T) {
	m, _, _ := newMachine(t)
	first, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 1})
	require.NoError(t, err)
	second, err := m.Start(Target{Kind: TargetCell, SiteID: "s2", Index: 8})
	require.NoError(t, err)
	assert.Greater(t, second.Token, first.Token)
	assert.Equal(t, reservation.SiteID("s2"), m.Snapshot().SiteID)
}

func TestPartlyVisiblePillKeepsRealDates(t *testing.T) {
	stay := reservation.Reservation{ID: "r1", SiteID: "s1", Range: daterange.MustParse("2023-12-28", "2024-01-03")}
	m, fast, _ := newMachine(t)
	_, err := m.Start(Target{Kind: TargetPillEndHandle, Index: 1, Reservation: &stay})
	require.NoError(t, err)
	require.NoError(t, m.Update("s1", 3))
	assert.Equal(t, grid.Span{ColumnStart: 0, ColumnSpan: 4}, fast.writes[len(fast.writes)-1])

	res, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "2023-12-28", res.Range.ArrivalKey())
	assert.Equal(t, "2024-01-05", res.Range.DepartureKey())
}

type fixedTokens struct{ n uint64 }

func (f *fixedTokens) Next() uint64 {
	f.n += 10
	return f.n
}

func TestSessionTokensComeFromSharedSource(t *testing.T) {
	m, _, _ := newMachine(t)
	src := &fixedTokens{}
	m.WithTokens(src)

	snap, err := m.Start(Target{Kind: TargetCell, SiteID: "s1", Index: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), snap.Token)

	res, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), res.Token)
}
