// Public domain.

package linker

import (
	"context"

	"github.com/mopsworks/linktracklets/internal/mops"
)

// searcher is the state of one endpoint pair's search: immutable tree and
// table references, the pair's own projection cache, and the shared result
// set.  A searcher runs on a single goroutine.
type searcher struct {
	cfg       *Config
	dets      []mops.Detection
	tracklets []mops.Tracklet
	cache     *projCache
	results   *mops.TrackSet
	stats     *Stats
	ctx       context.Context
}

// recurse is the dual-endpoint search.  e1 and e2 are endpoint nodes at
// distinct image times t1 < t2; supports are nodes from intervening images,
// already filtered for time separation by the driver.
//
// itersTillSplit counts recursion levels until the support filter-and-split
// step is forced; the step always runs before tracks are built.
func (s *searcher) recurse(e1, e2 nodeAndTime, supports []nodeAndTime, itersTillSplit int) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.stats.RecursionVisits++

	if ok, err := s.compatible(e1, e2); err != nil || !ok {
		return err
	}

	endpointsAreLeaves := e1.node.IsLeaf() && e2.node.IsLeaf()

	// filter the support list against both endpoints, descending one
	// level into non-leaf support nodes.  The step may be skipped for a
	// few levels as a performance knob, but never on the level that
	// builds tracks.
	newSupports := supports
	uniqueTimes := make(map[float64]bool)
	if itersTillSplit <= 0 || (endpointsAreLeaves && allLeaves(supports)) {
		newSupports = make([]nodeAndTime, 0, len(supports))
		for _, sn := range supports {
			ok, err := s.supportCompatible(sn, e1, e2)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if sn.node.IsLeaf() {
				newSupports = append(newSupports, sn)
				uniqueTimes[sn.mjd] = true
				continue
			}
			for _, child := range []nodeAndTime{
				{sn.node.Left(), sn.mjd, sn.image},
				{sn.node.Right(), sn.mjd, sn.image},
			} {
				ok, err := s.supportCompatible(child, e1, e2)
				if err != nil {
					return err
				}
				if ok {
					newSupports = append(newSupports, child)
					uniqueTimes[child.mjd] = true
				}
			}
		}
		itersTillSplit = s.cfg.IterationsPerSplit
	} else {
		for _, sn := range supports {
			uniqueTimes[sn.mjd] = true
		}
	}

	// not enough distinct support images left to ever satisfy the
	// support requirement below this point
	if len(uniqueTimes) < s.cfg.MinSupportTracklets {
		return nil
	}

	if endpointsAreLeaves && allLeaves(newSupports) {
		return s.buildTracks(e1, e2, newSupports)
	}

	// split the wider endpoint and recurse; leaves get negative width so
	// they are never chosen
	w1, w2 := -1.0, -1.0
	if !e1.node.IsLeaf() {
		w1 = e1.node.Width()
	}
	if !e2.node.IsLeaf() {
		w2 = e2.node.Width()
	}
	switch {
	case endpointsAreLeaves:
		// both endpoints done; force a support split next call
		return s.recurse(e1, e2, newSupports, 0)
	case w1 >= w2:
		left := nodeAndTime{e1.node.Left(), e1.mjd, e1.image}
		if err := s.recurse(left, e2, newSupports, itersTillSplit-1); err != nil {
			return err
		}
		right := nodeAndTime{e1.node.Right(), e1.mjd, e1.image}
		return s.recurse(right, e2, newSupports, itersTillSplit-1)
	default:
		left := nodeAndTime{e2.node.Left(), e2.mjd, e2.image}
		if err := s.recurse(e1, left, newSupports, itersTillSplit-1); err != nil {
			return err
		}
		right := nodeAndTime{e2.node.Right(), e2.mjd, e2.image}
		return s.recurse(e1, right, newSupports, itersTillSplit-1)
	}
}

func (s *searcher) supportCompatible(sn, e1, e2 nodeAndTime) (bool, error) {
	if ok, err := s.compatible(e1, sn); err != nil || !ok {
		return false, err
	}
	return s.compatible(e2, sn)
}

func allLeaves(nodes []nodeAndTime) bool {
	for _, n := range nodes {
		if !n.node.IsLeaf() {
			return false
		}
	}
	return true
}
