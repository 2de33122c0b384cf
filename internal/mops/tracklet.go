// Public domain.

package mops

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Tracklet is a short chain of detections believed to be the same object,
// with the sky-plane velocity of a linear fit over its detections.
//
// Indices are positions in the detection table, sorted ascending.  VRA and
// VDec are set once by the linker before indexing and read-only after.
// Every tracklet holds at least two detections at distinct times.
type Tracklet struct {
	Indices []int
	VRA     float64 // degrees/day
	VDec    float64 // degrees/day
}

// ReadTracklets reads one tracklet per line: a whitespace-separated list of
// detection ids.  Order within a line is irrelevant; a duplicate id within a
// line, an unknown id, or a single-detection line fails with ErrBadInput.
func ReadTracklets(r io.Reader, dets *DetectionSet) ([]Tracklet, error) {
	var tracklets []Tracklet
	scn := bufio.NewScanner(r)
	scn.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNum := 1; scn.Scan(); lineNum++ {
		f := strings.Fields(scn.Text())
		if len(f) == 0 || strings.HasPrefix(f[0], "#") {
			continue
		}
		seen := make(map[int]bool, len(f))
		ix := make([]int, 0, len(f))
		for _, tok := range f {
			id, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("%w: tracklet line %d: detection id %q",
					ErrBadInput, lineNum, tok)
			}
			if seen[id] {
				return nil, fmt.Errorf("%w: tracklet line %d: duplicate detection id %d",
					ErrBadInput, lineNum, id)
			}
			seen[id] = true
			x, ok := dets.Index(id)
			if !ok {
				return nil, fmt.Errorf("%w: tracklet line %d: unknown detection id %d",
					ErrBadInput, lineNum, id)
			}
			ix = append(ix, x)
		}
		if len(ix) < 2 {
			return nil, fmt.Errorf("%w: tracklet line %d: %d detections, want at least 2",
				ErrBadInput, lineNum, len(ix))
		}
		sort.Ints(ix)
		tk := Tracklet{Indices: ix}
		if tk.Span(dets.Dets) == 0 {
			return nil, fmt.Errorf("%w: tracklet line %d: all detections at one time",
				ErrBadInput, lineNum)
		}
		tracklets = append(tracklets, tk)
	}
	if err := scn.Err(); err != nil {
		return nil, err
	}
	return tracklets, nil
}

// First returns the index of the temporally earliest detection of t.
func (t *Tracklet) First(dets []Detection) int {
	first := t.Indices[0]
	for _, x := range t.Indices[1:] {
		if dets[x].MJD < dets[first].MJD {
			first = x
		}
	}
	return first
}

// Span returns the time between the earliest and latest detections of t.
func (t *Tracklet) Span(dets []Detection) float64 {
	min, max := dets[t.Indices[0]].MJD, dets[t.Indices[0]].MJD
	for _, x := range t.Indices[1:] {
		if dets[x].MJD < min {
			min = dets[x].MJD
		}
		if dets[x].MJD > max {
			max = dets[x].MJD
		}
	}
	return max - min
}
