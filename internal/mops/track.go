// Public domain.

package mops

import (
	"sort"
	"strconv"
	"strings"
)

// Track is a chain of tracklets and detections describing the motion of one
// object over many nights.
//
// The detection set is not merely the union of the component tracklets'
// detections: when two tracklets conflict (hold different detections at the
// same image time) only one detection is kept per time.
//
// Equality and ordering are induced by the detection index set first, then
// the tracklet index set.
type Track struct {
	TrackletIndices []int
	DetIndices      []int
}

// NewTrack builds a track from unsorted index sets, deduplicating and
// sorting both.
func NewTrack(trackletIndices, detIndices []int) Track {
	return Track{
		TrackletIndices: dedupSorted(trackletIndices),
		DetIndices:      dedupSorted(detIndices),
	}
}

func dedupSorted(xs []int) []int {
	out := append([]int(nil), xs...)
	sort.Ints(out)
	w := 0
	for i, x := range out {
		if i == 0 || x != out[w-1] {
			out[w] = x
			w++
		}
	}
	return out[:w]
}

// Key is a canonical string for the (detection-ids, tracklet-ids) identity
// of the track, used for deduplication.
func (t *Track) Key() string {
	var b strings.Builder
	for i, x := range t.DetIndices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(x))
	}
	b.WriteByte('|')
	for i, x := range t.TrackletIndices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(x))
	}
	return b.String()
}

// Less orders tracks by detection index set, then tracklet index set.
func (t *Track) Less(u *Track) bool {
	if c := compareInts(t.DetIndices, u.DetIndices); c != 0 {
		return c < 0
	}
	return compareInts(t.TrackletIndices, u.TrackletIndices) < 0
}

func compareInts(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Line formats the track as an output line: the space-separated external
// ids of its detections.
func (t *Track) Line(dets []Detection) string {
	var b strings.Builder
	for i, x := range t.DetIndices {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(dets[x].ID))
	}
	return b.String()
}

// Nights counts the distinct calendar nights spanned by the track's
// detections.
func (t *Track) Nights(dets []Detection) int {
	nights := make(map[int]bool)
	for _, x := range t.DetIndices {
		nights[Night(dets[x].MJD)] = true
	}
	return len(nights)
}
