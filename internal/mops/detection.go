// Public domain.

// Package mops holds the data model shared across the linker: detections,
// tracklets, tracks, and the readers and writers for their file formats.
package mops

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Detection is a single measured sky position at a single time.
//
// RA is on the circle 0..360 with wrap; Dec is Euclidean on [-90, 90].
// Detections are created at load time and never mutated.
type Detection struct {
	ID  int
	MJD float64 // observation time, days
	RA  float64 // degrees
	Dec float64 // degrees
}

// DetectionSet is the full detection table for a run plus an index from
// external detection id to table position.  Tracklet files reference
// detections by id; everything downstream works in table indexes.
type DetectionSet struct {
	Dets []Detection
	byID map[int]int
}

// NewDetectionSet builds a detection set from an in-memory table.
// Duplicate ids fail with ErrBadInput.
func NewDetectionSet(dets []Detection) (*DetectionSet, error) {
	s := &DetectionSet{Dets: dets, byID: make(map[int]int, len(dets))}
	for i, d := range dets {
		if _, dup := s.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate detection id %d", ErrBadInput, d.ID)
		}
		s.byID[d.ID] = i
	}
	return s, nil
}

// Index resolves an external detection id to a table index.
func (s *DetectionSet) Index(id int) (int, bool) {
	x, ok := s.byID[id]
	return x, ok
}

// ReadDetections reads MITI-format detections, one per line:
//
//	ID EPOCH_MJD RA_DEG DEC_DEG MAG OBSCODE OBJECT_NAME LENGTH ANGLE [ETIME]
//
// Only the first four fields are retained.  Blank lines and lines starting
// with # are skipped.  A malformed line or a duplicate id fails with
// ErrBadInput.
func ReadDetections(r io.Reader) (*DetectionSet, error) {
	s := &DetectionSet{byID: make(map[int]int)}
	scn := bufio.NewScanner(r)
	scn.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNum := 1; scn.Scan(); lineNum++ {
		f := strings.Fields(scn.Text())
		if len(f) == 0 || strings.HasPrefix(f[0], "#") {
			continue
		}
		if len(f) < 9 {
			return nil, fmt.Errorf("%w: detection line %d: %d fields, want at least 9",
				ErrBadInput, lineNum, len(f))
		}
		id, err := strconv.Atoi(f[0])
		if err != nil {
			return nil, fmt.Errorf("%w: detection line %d: id %q", ErrBadInput, lineNum, f[0])
		}
		mjd, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: detection line %d: epoch %q", ErrBadInput, lineNum, f[1])
		}
		ra, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: detection line %d: RA %q", ErrBadInput, lineNum, f[2])
		}
		dec, err := strconv.ParseFloat(f[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: detection line %d: Dec %q", ErrBadInput, lineNum, f[3])
		}
		if _, dup := s.byID[id]; dup {
			return nil, fmt.Errorf("%w: detection line %d: duplicate id %d", ErrBadInput, lineNum, id)
		}
		s.byID[id] = len(s.Dets)
		s.Dets = append(s.Dets, Detection{ID: id, MJD: mjd, RA: ra, Dec: dec})
	}
	if err := scn.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
