// Public domain.

package linker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mopsworks/linktracklets/internal/geom"
	"github.com/mopsworks/linktracklets/internal/linker"
	"github.com/mopsworks/linktracklets/internal/mops"
	"github.com/mopsworks/linktracklets/internal/quadfit"
)

// runScenario builds a linker over in-memory detections and tracklets and
// runs it to completion.
func runScenario(t *testing.T, dets []mops.Detection, tracklets [][]int,
	cfg linker.Config) (*mops.TrackSet, *linker.Stats) {
	t.Helper()
	ds, err := mops.NewDetectionSet(dets)
	require.NoError(t, err)
	tks := make([]mops.Tracklet, len(tracklets))
	for i, ix := range tracklets {
		tks[i] = mops.Tracklet{Indices: ix}
	}
	l, err := linker.New(ds, tks, cfg)
	require.NoError(t, err)
	results := mops.NewTrackSet()
	stats, err := l.Run(context.Background(), results)
	require.NoError(t, err)
	return results, stats
}

func baseConfig() linker.Config {
	cfg := linker.DefaultConfig()
	cfg.DetErr = .002
	cfg.VelErr = .002
	cfg.Workers = 2
	return cfg
}

// three nights of linear motion; one track with all six detections
func linearDets(raOffset float64) []mops.Detection {
	return []mops.Detection{
		{ID: 0, MJD: 5300.00, RA: 50.000 + raOffset, Dec: 50.000},
		{ID: 1, MJD: 5300.01, RA: 50.001 + raOffset, Dec: 50.001},
		{ID: 2, MJD: 5301.00, RA: 50.100 + raOffset, Dec: 50.100},
		{ID: 3, MJD: 5301.01, RA: 50.101 + raOffset, Dec: 50.101},
		{ID: 4, MJD: 5302.00, RA: 50.200 + raOffset, Dec: 50.200},
		{ID: 5, MJD: 5302.01, RA: 50.201 + raOffset, Dec: 50.201},
	}
}

func TestSimpleLinearTrack(t *testing.T) {
	results, stats := runScenario(t, linearDets(0),
		[][]int{{0, 1}, {2, 3}, {4, 5}}, baseConfig())
	require.Equal(t, 1, results.Size())
	tr := results.Tracks()[0]
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, tr.DetIndices)
	require.Equal(t, []int{0, 1, 2}, tr.TrackletIndices)
	require.Equal(t, int64(1), stats.PairsExamined)
}

func TestMultipleParallelTracks(t *testing.T) {
	var dets []mops.Detection
	var tracklets [][]int
	for k := 0; k < 10; k++ {
		base := len(dets)
		for _, d := range linearDets(float64(k)) {
			d.ID = base + d.ID
			dets = append(dets, d)
		}
		tracklets = append(tracklets,
			[]int{base, base + 1}, []int{base + 2, base + 3}, []int{base + 4, base + 5})
	}
	results, _ := runScenario(t, dets, tracklets, baseConfig())
	require.Equal(t, 10, results.Size())
	for _, tr := range results.Tracks() {
		require.Len(t, tr.DetIndices, 6)
		require.Len(t, tr.TrackletIndices, 3)
		// all six detections of one object, none borrowed
		k := tr.DetIndices[0] / 6
		for _, dx := range tr.DetIndices {
			require.Equal(t, k, dx/6)
		}
	}
}

func TestWrapAroundRA(t *testing.T) {
	dets := []mops.Detection{
		{ID: 0, MJD: 5300.00, RA: 359.900, Dec: 50.000},
		{ID: 1, MJD: 5300.01, RA: 359.901, Dec: 50.001},
		{ID: 2, MJD: 5301.00, RA: 0.000, Dec: 50.100},
		{ID: 3, MJD: 5301.01, RA: 0.001, Dec: 50.101},
		{ID: 4, MJD: 5302.00, RA: 0.100, Dec: 50.200},
		{ID: 5, MJD: 5302.01, RA: 0.101, Dec: 50.201},
	}
	results, _ := runScenario(t, dets,
		[][]int{{0, 1}, {2, 3}, {4, 5}}, baseConfig())
	require.Equal(t, 1, results.Size())
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, results.Tracks()[0].DetIndices)
}

// quadDets samples a quadratic ground truth as a pair of detections per
// night, 0.03 days apart, starting at firstID.
func quadDets(firstID int, ra0, dec0, vRA, vDec, aRA, aDec float64,
	nights int) ([]mops.Detection, [][]int) {
	var dets []mops.Detection
	var tracklets [][]int
	id := firstID
	for n := 0; n < nights; n++ {
		var pair []int
		for i := 0; i < 2; i++ {
			t := float64(n) + float64(i)*.03
			dets = append(dets, mops.Detection{
				ID:  id,
				MJD: 5300 + t,
				RA:  ra0 + vRA*t + aRA*t*t,
				Dec: dec0 + vDec*t + aDec*t*t,
			})
			pair = append(pair, id)
			id++
		}
		tracklets = append(tracklets, pair)
	}
	return dets, tracklets
}

func TestQuadraticTrackWithSupport(t *testing.T) {
	dets, tracklets := quadDets(0, 20, 20, .25, .01, 2e-4, 2e-3, 7)
	cfg := baseConfig()
	cfg.MinDetectionsPerTrack = 14
	cfg.MinUniqueNights = 7
	results, _ := runScenario(t, dets, tracklets, cfg)
	require.Equal(t, 1, results.Size())
	require.Len(t, results.Tracks()[0].DetIndices, 14)
	require.Len(t, results.Tracks()[0].TrackletIndices, 7)
}

func TestDistractorTracksDoNotMerge(t *testing.T) {
	dets, tracklets := quadDets(0, 20, 20, .25, .01, 2e-4, 2e-3, 7)
	dets2, tracklets2 := quadDets(100, 20.5, 20, -.25, .01, 2e-4, 2e-3, 7)
	base := len(dets)
	for _, d := range dets2 {
		dets = append(dets, d)
	}
	for _, pair := range tracklets2 {
		tracklets = append(tracklets, []int{base + pair[0] - 100, base + pair[1] - 100})
	}
	cfg := baseConfig()
	cfg.MinDetectionsPerTrack = 14
	cfg.MinUniqueNights = 7
	results, _ := runScenario(t, dets, tracklets, cfg)
	require.Equal(t, 2, results.Size())
	for _, tr := range results.Tracks() {
		require.Len(t, tr.DetIndices, 14)
		// a track never mixes the two objects
		obj := tr.DetIndices[0] / 14
		for _, dx := range tr.DetIndices {
			require.Equal(t, obj, dx/14)
		}
	}
}

// every detection of an emitted track sits within quadErr+detErr of a
// quadratic refit over the track's own detections
func TestEmittedTrackResidualBound(t *testing.T) {
	dets, tracklets := quadDets(0, 20, 20, .25, .01, 2e-4, 2e-3, 7)
	cfg := baseConfig()
	cfg.MinDetectionsPerTrack = 14
	cfg.MinUniqueNights = 7
	results, _ := runScenario(t, dets, tracklets, cfg)
	require.Equal(t, 1, results.Size())

	for _, tr := range results.Tracks() {
		t0 := dets[tr.DetIndices[0]].MJD
		var times, ras, decs []float64
		for _, dx := range tr.DetIndices {
			times = append(times, dets[dx].MJD-t0)
			ras = append(ras, dets[dx].RA)
			decs = append(decs, dets[dx].Dec)
		}
		raFit, err := quadfit.Quad(quadfit.UnwrapRA(ras), times)
		require.NoError(t, err)
		decFit, err := quadfit.Quad(decs, times)
		require.NoError(t, err)
		for i, dt := range times {
			resid := geom.AngularDistance(raFit.At(dt), decFit.At(dt), ras[i], decs[i])
			require.LessOrEqual(t, resid, cfg.QuadErr+cfg.DetErr)
		}
	}
}

func TestInsufficientSupport(t *testing.T) {
	dets := []mops.Detection{
		{ID: 0, MJD: 5300.00, RA: 50.000, Dec: 50.000},
		{ID: 1, MJD: 5300.01, RA: 50.001, Dec: 50.001},
		{ID: 2, MJD: 5305.00, RA: 50.500, Dec: 50.500},
		{ID: 3, MJD: 5305.01, RA: 50.501, Dec: 50.501},
	}
	cfg := baseConfig()
	cfg.MinSupportTracklets = 1
	cfg.MinDetectionsPerTrack = 4
	cfg.MinUniqueNights = 2
	results, _ := runScenario(t, dets, [][]int{{0, 1}, {2, 3}}, cfg)
	require.Zero(t, results.Size())
}

func TestEmptyInput(t *testing.T) {
	results, stats := runScenario(t, nil, nil, baseConfig())
	require.Zero(t, results.Size())
	require.Zero(t, stats.PairsExamined)
}

func TestSingleTracklet(t *testing.T) {
	dets := linearDets(0)[:2]
	results, _ := runScenario(t, dets, [][]int{{0, 1}}, baseConfig())
	require.Zero(t, results.Size())
}

func TestAllTrackletsOneImage(t *testing.T) {
	dets := []mops.Detection{
		{ID: 0, MJD: 5300.00, RA: 50.0, Dec: 50.0},
		{ID: 1, MJD: 5300.01, RA: 50.001, Dec: 50.001},
		{ID: 2, MJD: 5300.00, RA: 60.0, Dec: 10.0},
		{ID: 3, MJD: 5300.01, RA: 60.001, Dec: 10.001},
	}
	results, _ := runScenario(t, dets, [][]int{{0, 1}, {2, 3}}, baseConfig())
	require.Zero(t, results.Size())
}

func TestIterationsPerSplitPreservesResults(t *testing.T) {
	dets, tracklets := quadDets(0, 20, 20, .25, .01, 2e-4, 2e-3, 7)
	cfg := baseConfig()
	cfg.MinDetectionsPerTrack = 14
	cfg.MinUniqueNights = 7
	cfg.IterationsPerSplit = 3
	results, _ := runScenario(t, dets, tracklets, cfg)
	require.Equal(t, 1, results.Size())
	require.Len(t, results.Tracks()[0].DetIndices, 14)
}

func TestCanceledContext(t *testing.T) {
	ds, err := mops.NewDetectionSet(linearDets(0))
	require.NoError(t, err)
	l, err := linker.New(ds, []mops.Tracklet{
		{Indices: []int{0, 1}}, {Indices: []int{2, 3}}, {Indices: []int{4, 5}},
	}, baseConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := mops.NewTrackSet()
	_, err = l.Run(ctx, results)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, results.Size())
}

func TestPairTimeoutIsNotFatal(t *testing.T) {
	// ten objects with single-point leaves give the recursion enough
	// work that a nanosecond deadline expires mid-search
	var dets []mops.Detection
	var tracklets [][]int
	for k := 0; k < 10; k++ {
		base := len(dets)
		for _, d := range linearDets(float64(k)) {
			d.ID = base + d.ID
			dets = append(dets, d)
		}
		tracklets = append(tracklets,
			[]int{base, base + 1}, []int{base + 2, base + 3}, []int{base + 4, base + 5})
	}
	cfg := baseConfig()
	cfg.MaxLeafSize = 1
	cfg.Workers = 1
	cfg.PairTimeout = time.Nanosecond
	_, stats := runScenario(t, dets, tracklets, cfg)
	require.GreaterOrEqual(t, stats.PairsTimedOut, int64(1))
}

func TestInvalidConfig(t *testing.T) {
	ds, err := mops.NewDetectionSet(nil)
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.MaxLeafSize = 0
	_, err = linker.New(ds, nil, cfg)
	require.ErrorIs(t, err, mops.ErrBadInput)

	cfg = baseConfig()
	cfg.DetErr = -1
	_, err = linker.New(ds, nil, cfg)
	require.ErrorIs(t, err, mops.ErrBadInput)

	cfg = baseConfig()
	cfg.MaxRAAccel = -1
	_, err = linker.New(ds, nil, cfg)
	require.ErrorIs(t, err, mops.ErrInvalidConfig)

	cfg = baseConfig()
	cfg.LatestFirstEndpoint = 5400
	cfg.EarliestLastEndpoint = 5300
	_, err = linker.New(ds, nil, cfg)
	require.ErrorIs(t, err, mops.ErrInvalidConfig)
}

func TestEndpointTimeBounds(t *testing.T) {
	// restricting the first endpoint past the first image kills the
	// only qualifying pair
	cfg := baseConfig()
	cfg.LatestFirstEndpoint = 5299
	results, stats := runScenario(t, linearDets(0),
		[][]int{{0, 1}, {2, 3}, {4, 5}}, cfg)
	require.Zero(t, results.Size())
	require.Zero(t, stats.PairsExamined)

	cfg = baseConfig()
	cfg.EarliestLastEndpoint = 5303
	results, stats = runScenario(t, linearDets(0),
		[][]int{{0, 1}, {2, 3}, {4, 5}}, cfg)
	require.Zero(t, results.Size())
	require.Zero(t, stats.PairsExamined)
}
