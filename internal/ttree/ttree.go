// Public domain.

// Package ttree implements the 4-D partition tree over tracklets used by
// the linker.
//
// Trees hold the tracklets rooted in a single image and partition them by
// (RA, Dec, RA velocity, Dec velocity).  Unlike an ordinary k-d tree these
// trees are not for range searching: after construction every node's bounds
// are widened by the positional and velocity error of its tracklets, so
// sibling bounds may overlap.  The leaf partition of the points is not
// affected by the widening.
package ttree

import (
	"fmt"
	"sort"

	"github.com/mopsworks/linktracklets/internal/mops"
)

// Dims is the dimensionality of the indexed space.
const Dims = 4

// Axis indices into bound and width vectors.
const (
	AxRA = iota
	AxDec
	AxVRA
	AxVDec
)

// Point is one tracklet as indexed: position of its earliest detection,
// fitted sky-plane velocity, and the time between its first and last
// detections (used to derive the velocity error from the positional error).
type Point struct {
	RA, Dec    float64 // degrees
	VRA, VDec  float64 // degrees/day
	DT         float64 // days; 0 means unknown
	TrackletIx int     // index into the tracklet table
}

func (p *Point) axis(i int) float64 {
	switch i {
	case AxRA:
		return p.RA
	case AxDec:
		return p.Dec
	case AxVRA:
		return p.VRA
	default:
		return p.VDec
	}
}

// Node is a tree node.  Internal nodes have two children; leaves hold the
// points.  Ids are unique within a tree only.
type Node struct {
	id          uint32
	ub, lb      [Dims]float64
	left, right *Node
	points      []Point
}

func (n *Node) ID() uint32           { return n.id }
func (n *Node) IsLeaf() bool         { return n.left == nil && n.right == nil }
func (n *Node) Left() *Node          { return n.left }
func (n *Node) Right() *Node         { return n.right }
func (n *Node) Points() []Point      { return n.points }
func (n *Node) UBounds() [Dims]float64 { return n.ub }
func (n *Node) LBounds() [Dims]float64 { return n.lb }

// Width returns the product of the node's per-axis extents.
func (n *Node) Width() float64 {
	w := 1.0
	for i := 0; i < Dims; i++ {
		w *= n.ub[i] - n.lb[i]
	}
	return w
}

// Tree is the head structure; nodes do the real work.
type Tree struct {
	root *Node
	size int
}

func (t *Tree) Root() *Node { return t.root }

// Size returns the number of points held.
func (t *Tree) Size() int { return t.size }

// Build constructs a tree over points.
//
// Points are partitioned recursively: each level splits at the median of
// the axis with the largest normalized width (upper-lower)/axisWidths[i],
// ties to the lower axis index, until a node holds maxLeafSize points or
// fewer.  After the structure exists, a post-order pass widens every
// node's bounds: position axes by posErr, velocity axes by
// velErr + 2·posErr/Δt with Δt taken per tracklet.
func Build(points []Point, posErr, velErr float64, maxLeafSize int, axisWidths [Dims]float64) (*Tree, error) {
	if maxLeafSize < 1 {
		return nil, fmt.Errorf("%w: tree leaf size %d, want at least 1", mops.ErrBadInput, maxLeafSize)
	}
	if posErr < 0 || velErr < 0 {
		return nil, fmt.Errorf("%w: negative tree error bound", mops.ErrBadInput)
	}
	for i := range axisWidths {
		if axisWidths[i] <= 0 {
			axisWidths[i] = 1
		}
	}
	t := &Tree{size: len(points)}
	if len(points) == 0 {
		return t, nil
	}
	var nextID uint32
	t.root = build(append([]Point(nil), points...), maxLeafSize, axisWidths, &nextID)
	inflate(t.root, posErr, velErr)
	return t, nil
}

func build(points []Point, maxLeafSize int, axisWidths [Dims]float64, nextID *uint32) *Node {
	n := &Node{id: *nextID}
	*nextID++
	n.ub, n.lb = pointBounds(points)

	if len(points) <= maxLeafSize {
		n.points = points
		return n
	}

	// choose the axis of maximum normalized width; ties go to the lower
	// axis index
	axis, best := 0, -1.0
	for i := 0; i < Dims; i++ {
		if w := (n.ub[i] - n.lb[i]) / axisWidths[i]; w > best {
			axis, best = i, w
		}
	}
	if n.ub[axis] == n.lb[axis] {
		// all points coincide on every axis; no split can make progress
		n.points = points
		return n
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].axis(axis) < points[j].axis(axis)
	})
	mid := len(points) / 2
	n.left = build(points[:mid], maxLeafSize, axisWidths, nextID)
	n.right = build(points[mid:], maxLeafSize, axisWidths, nextID)
	return n
}

func pointBounds(points []Point) (ub, lb [Dims]float64) {
	for i := 0; i < Dims; i++ {
		ub[i] = points[0].axis(i)
		lb[i] = points[0].axis(i)
	}
	for _, p := range points[1:] {
		for i := 0; i < Dims; i++ {
			if v := p.axis(i); v > ub[i] {
				ub[i] = v
			} else if v < lb[i] {
				lb[i] = v
			}
		}
	}
	return
}

// inflate widens bounds in post-order.  A leaf widens by the error bounds
// of its own points; an internal node becomes the union of its widened
// children, so containment holds after inflation too.
func inflate(n *Node, posErr, velErr float64) {
	if n.IsLeaf() {
		ev := velErr
		for _, p := range n.points {
			if p.DT > 0 {
				if e := velErr + 2*posErr/p.DT; e > ev {
					ev = e
				}
			}
		}
		n.ub[AxRA] += posErr
		n.lb[AxRA] -= posErr
		n.ub[AxDec] += posErr
		n.lb[AxDec] -= posErr
		n.ub[AxVRA] += ev
		n.lb[AxVRA] -= ev
		n.ub[AxVDec] += ev
		n.lb[AxVDec] -= ev
		return
	}
	inflate(n.left, posErr, velErr)
	inflate(n.right, posErr, velErr)
	for i := 0; i < Dims; i++ {
		n.ub[i] = mathMax(n.left.ub[i], n.right.ub[i])
		n.lb[i] = mathMin(n.left.lb[i], n.right.lb[i])
	}
}

func mathMax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func mathMin(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
