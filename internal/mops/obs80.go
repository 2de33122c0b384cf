// Public domain.

package mops

import (
	"io"
	"math"

	"github.com/soniakeys/mpcformat"
	"github.com/soniakeys/observation"
)

// ReadObs80 reads MPC 80-column observations and derives a detection table
// and one tracklet per observed arc, so a linker run can start from an MPC
// submission file instead of MITI detection + tracklet files.
//
// The stream must have observations grouped by object and sorted
// chronologically within each object.  Parse errors and invalid arcs are
// dropped without notification; read errors are returned.
func ReadObs80(r io.Reader, ocdMap observation.ParallaxMap) (*DetectionSet, []Tracklet, error) {
	dets := &DetectionSet{byID: make(map[int]int)}
	var tracklets []Tracklet
	for s := mpcformat.ArcSplitter(r, ocdMap); ; {
		a, err := s()
		if err == io.EOF {
			break
		}
		if _, ok := err.(mpcformat.ArcError); ok {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if !validArc(a) {
			continue
		}
		ix := make([]int, len(a.Obs))
		for i, o := range a.Obs {
			m := o.Meas()
			x := len(dets.Dets)
			dets.byID[x] = x
			dets.Dets = append(dets.Dets, Detection{
				ID:  x,
				MJD: m.MJD,
				RA:  m.RA * 180 / math.Pi,
				Dec: m.Dec * 180 / math.Pi,
			})
			ix[i] = x
		}
		tracklets = append(tracklets, Tracklet{Indices: ix})
	}
	return dets, tracklets, nil
}

// validArc checks that observations make a usable tracklet: at least two
// observations, times strictly increasing from a positive start, and some
// motion over the arc.
func validArc(a *observation.Arc) bool {
	if len(a.Obs) < 2 {
		return false
	}
	var t0 float64
	for _, o := range a.Obs {
		t := o.Meas().MJD
		if t <= t0 {
			return false
		}
		t0 = t
	}
	first := a.Obs[0].Meas()
	last := a.Obs[len(a.Obs)-1].Meas()
	return first.RA != last.RA || first.Dec != last.Dec
}
