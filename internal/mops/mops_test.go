// Public domain.

package mops_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mopsworks/linktracklets/internal/mops"
)

const mitiSample = `# synthetic sample
0 5300.000000 50.000000 50.000000 21.0 566 obj0 0.0 0.0
1 5300.010000 50.001000 50.001000 21.0 566 obj0 0.0 0.0 30.0
2 5301.000000 50.100000 50.100000 21.0 566 obj0 0.0 0.0
`

func TestReadDetections(t *testing.T) {
	ds, err := mops.ReadDetections(strings.NewReader(mitiSample))
	require.NoError(t, err)
	require.Len(t, ds.Dets, 3)
	require.Equal(t, mops.Detection{ID: 1, MJD: 5300.01, RA: 50.001, Dec: 50.001}, ds.Dets[1])
	x, ok := ds.Index(2)
	require.True(t, ok)
	require.Equal(t, 2, x)
	_, ok = ds.Index(9)
	require.False(t, ok)
}

func TestReadDetectionsBadInput(t *testing.T) {
	for _, in := range []string{
		"0 5300.0 50.0 50.0\n", // too few fields
		"x 5300.0 50.0 50.0 21 566 o 0 0\n",
		"0 zzz 50.0 50.0 21 566 o 0 0\n",
		"0 5300.0 ra 50.0 21 566 o 0 0\n",
		"0 5300.0 50.0 dec 21 566 o 0 0\n",
		"0 5300.0 50.0 50.0 21 566 o 0 0\n0 5301.0 50.1 50.1 21 566 o 0 0\n", // dup id
	} {
		_, err := mops.ReadDetections(strings.NewReader(in))
		require.Error(t, err, "input %q", in)
		require.True(t, errors.Is(err, mops.ErrBadInput), "input %q: %v", in, err)
	}
}

func TestReadTracklets(t *testing.T) {
	ds, err := mops.ReadDetections(strings.NewReader(mitiSample))
	require.NoError(t, err)

	tks, err := mops.ReadTracklets(strings.NewReader("1 0\n0 2\n"), ds)
	require.NoError(t, err)
	require.Len(t, tks, 2)
	// order within a line is irrelevant; indices come out sorted
	require.Equal(t, []int{0, 1}, tks[0].Indices)

	for _, in := range []string{
		"0 0\n",  // duplicate within line
		"0 99\n", // unknown id
		"0\n",    // single detection
		"0 x\n",
	} {
		_, err := mops.ReadTracklets(strings.NewReader(in), ds)
		require.Error(t, err, "input %q", in)
		require.True(t, errors.Is(err, mops.ErrBadInput), "input %q: %v", in, err)
	}
}

func TestTrackletFirstAndSpan(t *testing.T) {
	dets := []mops.Detection{
		{ID: 0, MJD: 5301},
		{ID: 1, MJD: 5300},
		{ID: 2, MJD: 5302.5},
	}
	tk := mops.Tracklet{Indices: []int{0, 1, 2}}
	require.Equal(t, 1, tk.First(dets))
	require.InDelta(t, 2.5, tk.Span(dets), 1e-12)
}

func TestTrackOrderingAndKey(t *testing.T) {
	a := mops.NewTrack([]int{2, 1}, []int{5, 3, 3})
	require.Equal(t, []int{1, 2}, a.TrackletIndices)
	require.Equal(t, []int{3, 5}, a.DetIndices)

	b := mops.NewTrack([]int{1, 2}, []int{3, 5})
	require.Equal(t, a.Key(), b.Key())

	c := mops.NewTrack([]int{1, 2}, []int{3, 6})
	require.NotEqual(t, a.Key(), c.Key())
	require.True(t, a.Less(&c))
	require.False(t, c.Less(&a))

	// detection set dominates the ordering
	d := mops.NewTrack([]int{0}, []int{3, 5, 7})
	require.True(t, a.Less(&d))
}

func TestTrackSetDedup(t *testing.T) {
	s := mops.NewTrackSet()
	added, err := s.Insert(mops.NewTrack([]int{1, 2}, []int{3, 5}))
	require.NoError(t, err)
	require.True(t, added)
	added, err = s.Insert(mops.NewTrack([]int{2, 1}, []int{5, 3}))
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, 1, s.Size())

	// same detections, different tracklets: a distinct track
	added, err = s.Insert(mops.NewTrack([]int{1, 4}, []int{3, 5}))
	require.NoError(t, err)
	require.True(t, added)
	require.Equal(t, 2, s.Size())
}

func TestTrackSetSpill(t *testing.T) {
	dets := []mops.Detection{
		{ID: 10}, {ID: 11}, {ID: 12}, {ID: 13},
	}
	s, err := mops.NewSpillingTrackSet(t.TempDir(), 1, dets)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 3; i++ {
		_, err := s.Insert(mops.NewTrack([]int{0}, []int{i, i + 1}))
		require.NoError(t, err)
	}
	// duplicate of a spilled track must still dedup
	added, err := s.Insert(mops.NewTrack([]int{0}, []int{2, 3}))
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, 3, s.Size())

	var sb strings.Builder
	require.NoError(t, s.WriteTo(&sb, dets))
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	seen := make(map[string]bool)
	for _, l := range lines {
		require.False(t, seen[l], "duplicate output line %q", l)
		seen[l] = true
	}
	require.True(t, seen["10 11"])
	require.True(t, seen["11 12"])
	require.True(t, seen["12 13"])
}

func TestNight(t *testing.T) {
	require.Equal(t, 5300, mops.Night(5300.0))
	require.Equal(t, 5300, mops.Night(5300.97))
	require.Equal(t, 5301, mops.Night(5301.0))
}

func TestParseEpoch(t *testing.T) {
	mjd, err := mops.ParseEpoch("54321.25")
	require.NoError(t, err)
	require.InDelta(t, 54321.25, mjd, 1e-9)

	// round trip through the calendar
	mjd, err = mops.ParseEpoch("2011-05-04")
	require.NoError(t, err)
	require.Equal(t, "2011-05-04", mops.NightDate(mops.Night(mjd)))

	_, err = mops.ParseEpoch("yesterday")
	require.Error(t, err)
	require.True(t, errors.Is(err, mops.ErrBadInput))
}
