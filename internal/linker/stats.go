// Public domain.

package linker

import "fmt"

// Stats are per-run search counters.  Each pair task accumulates into its
// own Stats; the driver merges them when the task finishes.
type Stats struct {
	PairsExamined    int64
	PairsTimedOut    int64
	RecursionVisits  int64
	BuildVisits      int64
	EndpointPairsFit int64
	TracksEmitted    int64
	CacheHits        int64
	CacheMisses      int64
}

func (s *Stats) add(o *Stats) {
	s.PairsExamined += o.PairsExamined
	s.PairsTimedOut += o.PairsTimedOut
	s.RecursionVisits += o.RecursionVisits
	s.BuildVisits += o.BuildVisits
	s.EndpointPairsFit += o.EndpointPairsFit
	s.TracksEmitted += o.TracksEmitted
	s.CacheHits += o.CacheHits
	s.CacheMisses += o.CacheMisses
}

func (s *Stats) String() string {
	return fmt.Sprintf(
		"pairs %d (%d timed out), recursion visits %d, leaf visits %d, "+
			"endpoint fits %d, tracks %d, cache %d hits / %d misses",
		s.PairsExamined, s.PairsTimedOut, s.RecursionVisits, s.BuildVisits,
		s.EndpointPairsFit, s.TracksEmitted, s.CacheHits, s.CacheMisses)
}
