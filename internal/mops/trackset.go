// Public domain.

package mops

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// TrackSet is a deduplicating set of tracks.  Insertion is safe for
// concurrent use; the dedup invariant holds under concurrent inserts.
//
// A set may be given a bounded in-memory policy: once the in-memory track
// count reaches the bound, further unique tracks are spilled to a temporary
// file as finished output lines.  The key set stays in memory, so set
// semantics hold across memory and spill.
type TrackSet struct {
	mu     sync.Mutex
	keys   map[string]bool
	tracks []Track

	maxInMemory int // 0 = unbounded
	spill       *os.File
	spillW      *bufio.Writer
	dets        []Detection // needed to format spilled lines
}

// NewTrackSet returns an unbounded in-memory set.
func NewTrackSet() *TrackSet {
	return &TrackSet{keys: make(map[string]bool)}
}

// NewSpillingTrackSet returns a set keeping at most maxInMemory tracks in
// memory and spilling the rest to a temporary file in dir.
func NewSpillingTrackSet(dir string, maxInMemory int, dets []Detection) (*TrackSet, error) {
	f, err := os.CreateTemp(dir, "tracks-spill-*.txt")
	if err != nil {
		return nil, err
	}
	return &TrackSet{
		keys:        make(map[string]bool),
		maxInMemory: maxInMemory,
		spill:       f,
		spillW:      bufio.NewWriter(f),
		dets:        dets,
	}, nil
}

// Insert adds t if no equal track is present.  It reports whether t was
// newly added.
func (s *TrackSet) Insert(t Track) (added bool, err error) {
	k := t.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[k] {
		return false, nil
	}
	s.keys[k] = true
	if s.maxInMemory > 0 && len(s.tracks) >= s.maxInMemory {
		if _, err := fmt.Fprintln(s.spillW, t.Line(s.dets)); err != nil {
			return false, err
		}
		return true, nil
	}
	s.tracks = append(s.tracks, t)
	return true, nil
}

// Size returns the number of unique tracks inserted, in memory or spilled.
func (s *TrackSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Tracks returns the in-memory tracks ordered by detection index set, then
// tracklet index set.  With spilling disabled this is the whole set.
func (s *TrackSet) Tracks() []Track {
	s.mu.Lock()
	out := append([]Track(nil), s.tracks...)
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Less(&out[j]) })
	return out
}

// WriteTo writes the whole set, one line per track: space-separated
// detection ids, newline terminated, no header.  In-memory tracks are
// written in set order, then any spilled tracks in insertion order.
func (s *TrackSet) WriteTo(w io.Writer, dets []Detection) error {
	bw := bufio.NewWriter(w)
	for _, t := range s.Tracks() {
		if _, err := fmt.Fprintln(bw, t.Line(dets)); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spill != nil {
		if err := s.spillW.Flush(); err != nil {
			return err
		}
		if _, err := s.spill.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if _, err := io.Copy(bw, s.spill); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Close releases the spill file, if any.
func (s *TrackSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spill == nil {
		return nil
	}
	name := s.spill.Name()
	s.spill.Close()
	s.spill = nil
	return os.Remove(name)
}
