// Public domain.

package linker

import (
	"sort"

	"github.com/mopsworks/linktracklets/internal/geom"
	"github.com/mopsworks/linktracklets/internal/mops"
	"github.com/mopsworks/linktracklets/internal/quadfit"
)

// motionFit is the quadratic sky-plane motion fitted to an endpoint
// tracklet pair: per-axis coefficients at the union's earliest time.
type motionFit struct {
	ra, dec quadfit.Fit
	t0      float64
}

func (m *motionFit) residual(t, ra, dec float64) float64 {
	dt := t - m.t0
	return geom.AngularDistance(m.ra.At(dt), m.dec.At(dt), ra, dec)
}

// buildTracks enumerates tracklet pairs from two endpoint leaves, fits a
// quadratic to each pair, and emits every track that picks up enough
// support detections.  All nodes passed in must be leaves.
func (s *searcher) buildTracks(e1, e2 nodeAndTime, supports []nodeAndTime) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.stats.BuildVisits++
	for _, p1 := range e1.node.Points() {
		for _, p2 := range e2.node.Points() {
			if err := s.buildTrack(p1.TrackletIx, p2.TrackletIx, supports); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *searcher) buildTrack(tx1, tx2 int, supports []nodeAndTime) error {
	seedDets := unionInts(s.tracklets[tx1].Indices, s.tracklets[tx2].Indices)

	fit, ok, err := s.fitMotion(seedDets)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.stats.EndpointPairsFit++

	// reject on acceleration bounds, absolute value
	if abs(fit.ra.Acc) > s.cfg.MaxRAAccel || abs(fit.dec.Acc) > s.cfg.MaxDecAccel {
		return nil
	}

	// every seed detection must sit on the fitted curve
	maxResid := s.cfg.QuadErr + s.cfg.DetErr
	minT, maxT := s.dets[seedDets[0]].MJD, s.dets[seedDets[0]].MJD
	for _, dx := range seedDets {
		d := &s.dets[dx]
		if fit.residual(d.MJD, d.RA, d.Dec) > maxResid {
			return nil
		}
		if d.MJD < minT {
			minT = d.MJD
		}
		if d.MJD > maxT {
			maxT = d.MJD
		}
	}
	if maxT-minT < s.cfg.MinEndpointSep {
		return nil
	}

	trackDets := append([]int(nil), seedDets...)
	trackTracklets := []int{tx1, tx2}
	seedTimes := make(map[float64]bool, len(seedDets))
	for _, dx := range seedDets {
		seedTimes[s.dets[dx].MJD] = true
	}

	// augmentation: pool every detection reachable through the support
	// leaves, keep the ones compatible with the fit, and retain the
	// single best candidate per image time
	best := make(map[float64]candidate)
	for _, sn := range supports {
		for _, p := range sn.node.Points() {
			for _, dx := range s.tracklets[p.TrackletIx].Indices {
				d := &s.dets[dx]
				resid := fit.residual(d.MJD, d.RA, d.Dec)
				if resid > maxResid {
					continue
				}
				c := candidate{resid: resid, det: dx, tracklet: p.TrackletIx}
				if cur, ok := best[d.MJD]; !ok || c.better(cur) {
					best[d.MJD] = c
				}
			}
		}
	}
	times := make([]float64, 0, len(best))
	for t := range best {
		if !seedTimes[t] {
			times = append(times, t)
		}
	}
	sort.Float64s(times)
	for _, t := range times {
		c := best[t]
		trackDets = append(trackDets, c.det)
		trackTracklets = append(trackTracklets, c.tracklet)
	}

	track := mops.NewTrack(trackTracklets, trackDets)
	if len(track.TrackletIndices) < s.cfg.MinSupportTracklets+2 {
		return nil
	}
	if len(track.DetIndices) < s.cfg.MinDetectionsPerTrack {
		return nil
	}
	if track.Nights(s.dets) < s.cfg.MinUniqueNights {
		return nil
	}
	added, err := s.results.Insert(track)
	if err != nil {
		return err
	}
	if added {
		s.stats.TracksEmitted++
	}
	return nil
}

// candidate is a support detection considered for augmentation.
type candidate struct {
	resid    float64
	det      int
	tracklet int
}

// better orders candidates at one image time: residual, then detection
// index, then tracklet index, all ascending.
func (c candidate) better(o candidate) bool {
	if c.resid != o.resid {
		return c.resid < o.resid
	}
	if c.det != o.det {
		return c.det < o.det
	}
	return c.tracklet < o.tracklet
}

// fitMotion runs the per-axis quadratic fit over a detection index set.
// ok is false when the fit is degenerate (for instance, coincident times).
func (s *searcher) fitMotion(detIxs []int) (motionFit, bool, error) {
	t0 := s.dets[detIxs[0]].MJD
	for _, dx := range detIxs[1:] {
		if t := s.dets[dx].MJD; t < t0 {
			t0 = t
		}
	}
	times := make([]float64, len(detIxs))
	ras := make([]float64, len(detIxs))
	decs := make([]float64, len(detIxs))
	for i, dx := range detIxs {
		d := &s.dets[dx]
		times[i] = d.MJD - t0
		ras[i] = d.RA
		decs[i] = d.Dec
	}
	raFit, err := quadfit.Quad(quadfit.UnwrapRA(ras), times)
	if err != nil {
		return motionFit{}, false, nil
	}
	decFit, err := quadfit.Quad(decs, times)
	if err != nil {
		return motionFit{}, false, nil
	}
	return motionFit{ra: raFit, dec: decFit, t0: t0}, true, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func unionInts(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, x := range a {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	for _, x := range b {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	sort.Ints(out)
	return out
}
