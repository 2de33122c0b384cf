// Public domain.

package linker

import (
	"fmt"

	"github.com/mopsworks/linktracklets/internal/geom"
	"github.com/mopsworks/linktracklets/internal/mops"
	"github.com/mopsworks/linktracklets/internal/ttree"
)

// nodeAndTime pairs a tree node with the image time its tracklets start at.
type nodeAndTime struct {
	node  *ttree.Node
	mjd   float64
	image int
}

// projectAxis moves one axis's position and velocity ranges through dt
// days under accelerations up to accel, in both directions.
//
// Forward, the ranges grow from ballistic motion plus the acceleration
// envelope.  Backward, the result is the pre-image under the forward
// projector: the range containing every state that could reach the input.
// Both are strictly widening.
func projectAxis(pLo, pHi, vLo, vHi, accel, dt float64) (qLo, qHi, wLo, wHi float64) {
	if dt >= 0 {
		qHi = pHi + vHi*dt + .5*accel*dt*dt
		qLo = pLo + vLo*dt - .5*accel*dt*dt
		wHi = vHi + accel*dt
		wLo = vLo - accel*dt
		return
	}
	wHi = vHi - accel*dt
	wLo = vLo + accel*dt
	qHi = pHi + vLo*dt + accel*dt*dt
	qLo = pLo + vHi*dt - accel*dt*dt
	return
}

// project computes a node's bounds at another image time under the
// acceleration envelope.  It fails with ErrInternalInvariant if any range
// shrinks.
func (c *Config) project(n *ttree.Node, dt float64) (bounds4, error) {
	ub, lb := n.UBounds(), n.LBounds()
	var b bounds4
	b.L[ttree.AxRA], b.U[ttree.AxRA], b.L[ttree.AxVRA], b.U[ttree.AxVRA] = projectAxis(
		lb[ttree.AxRA], ub[ttree.AxRA], lb[ttree.AxVRA], ub[ttree.AxVRA], c.MaxRAAccel, dt)
	b.L[ttree.AxDec], b.U[ttree.AxDec], b.L[ttree.AxVDec], b.U[ttree.AxVDec] = projectAxis(
		lb[ttree.AxDec], ub[ttree.AxDec], lb[ttree.AxVDec], ub[ttree.AxVDec], c.MaxDecAccel, dt)
	for i := 0; i < ttree.Dims; i++ {
		if b.U[i]-b.L[i] < ub[i]-lb[i] {
			return b, fmt.Errorf("%w: node %d axis %d range shrank under projection dt=%g",
				mops.ErrInternalInvariant, n.ID(), i, dt)
		}
	}
	return b, nil
}

// compatible reports whether any trajectory within the acceleration
// envelope could be inside a's bounds at a's time and inside b's bounds at
// b's time.  The earlier node's bounds are projected forward to the later
// node's time, through the cache, and the projected box is tested for
// overlap against the later box on all four axes: RA with 0/360 wrap, the
// others Euclidean.  Ordering by time makes the test symmetric in its
// arguments.
func (s *searcher) compatible(a, b nodeAndTime) (bool, error) {
	if b.mjd < a.mjd {
		a, b = b, a
	}
	dt := b.mjd - a.mjd
	key := cacheKey{nodeID: a.node.ID(), srcImage: a.image, dstImage: b.image}
	proj, ok := s.cache.lookup(key)
	if ok {
		// a cached velocity range tighter than the unprojected one
		// means the cache holds bounds for some other node
		au, al := a.node.UBounds(), a.node.LBounds()
		if proj.U[ttree.AxVRA] < au[ttree.AxVRA] || proj.L[ttree.AxVRA] > al[ttree.AxVRA] {
			return false, fmt.Errorf(
				"%w: cached bounds for node %d images %d->%d tighter than source bounds",
				mops.ErrInternalInvariant, a.node.ID(), a.image, b.image)
		}
	} else {
		var err error
		proj, err = s.cfg.project(a.node, dt)
		if err != nil {
			return false, fmt.Errorf("%w (images %d->%d)", err, a.image, b.image)
		}
		s.cache.insert(key, proj)
	}

	bu, bl := b.node.UBounds(), b.node.LBounds()

	// velocity first: cheaper, and the usual rejection
	if !geom.IntervalsOverlap(proj.L[ttree.AxVDec], proj.U[ttree.AxVDec],
		bl[ttree.AxVDec], bu[ttree.AxVDec]) {
		return false, nil
	}
	if !geom.IntervalsOverlap(proj.L[ttree.AxDec], proj.U[ttree.AxDec],
		bl[ttree.AxDec], bu[ttree.AxDec]) {
		return false, nil
	}
	if !geom.IntervalsOverlap(proj.L[ttree.AxVRA], proj.U[ttree.AxVRA],
		bl[ttree.AxVRA], bu[ttree.AxVRA]) {
		return false, nil
	}
	if !geom.AngularIntervalsOverlap(proj.L[ttree.AxRA], proj.U[ttree.AxRA],
		bl[ttree.AxRA], bu[ttree.AxRA]) {
		return false, nil
	}
	return true, nil
}
