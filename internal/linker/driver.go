// Public domain.

package linker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"

	"github.com/mopsworks/linktracklets/internal/mops"
	"github.com/mopsworks/linktracklets/internal/quadfit"
	"github.com/mopsworks/linktracklets/internal/ttree"
)

// imageTime is one distinct detection time.  Ids are assigned in time
// order; each image owns the tracklets whose earliest detection falls on
// it.
type imageTime struct {
	mjd float64
	id  int
}

// Linker holds the prepared search state: the detection and tracklet
// tables with fitted velocities, and one tracklet tree per image time.
// After New the state is read-only, so a Linker may run pairs on any
// number of goroutines.
type Linker struct {
	cfg       Config
	dets      []mops.Detection
	tracklets []mops.Tracklet
	images    []imageTime
	trees     []*ttree.Tree
}

// New fits tracklet velocities, partitions tracklets across image times,
// and builds the per-image trees.
func New(ds *mops.DetectionSet, tracklets []mops.Tracklet, cfg Config) (*Linker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Linker{cfg: cfg, dets: ds.Dets, tracklets: tracklets}
	if err := l.fitVelocities(); err != nil {
		return nil, err
	}
	if err := l.buildTrees(); err != nil {
		return nil, err
	}
	return l, nil
}

// fitVelocities sets each tracklet's sky-plane velocity to the slope of a
// linear fit over its detections.
func (l *Linker) fitVelocities() error {
	for i := range l.tracklets {
		tk := &l.tracklets[i]
		times := make([]float64, len(tk.Indices))
		ras := make([]float64, len(tk.Indices))
		decs := make([]float64, len(tk.Indices))
		t0 := l.dets[tk.Indices[0]].MJD
		for _, dx := range tk.Indices {
			if t := l.dets[dx].MJD; t < t0 {
				t0 = t
			}
		}
		for j, dx := range tk.Indices {
			d := &l.dets[dx]
			times[j] = d.MJD - t0
			ras[j] = d.RA
			decs[j] = d.Dec
		}
		raFit, err := quadfit.Linear(quadfit.UnwrapRA(ras), times)
		if err != nil {
			return fmt.Errorf("%w: tracklet %d: degenerate velocity fit", mops.ErrBadInput, i)
		}
		decFit, err := quadfit.Linear(decs, times)
		if err != nil {
			return fmt.Errorf("%w: tracklet %d: degenerate velocity fit", mops.ErrBadInput, i)
		}
		tk.VRA = raFit.Vel
		tk.VDec = decFit.Vel
	}
	return nil
}

// buildTrees groups tracklets by the image time of their earliest
// detection and builds a tree per image.  The axis width vector used for
// split normalization is the global extent of each axis.
func (l *Linker) buildTrees() error {
	byTime := make(map[float64][]ttree.Point)
	for i := range l.tracklets {
		tk := &l.tracklets[i]
		first := tk.First(l.dets)
		d := &l.dets[first]
		p := ttree.Point{
			RA:         d.RA,
			Dec:        d.Dec,
			VRA:        tk.VRA,
			VDec:       tk.VDec,
			DT:         tk.Span(l.dets),
			TrackletIx: i,
		}
		byTime[d.MJD] = append(byTime[d.MJD], p)
	}

	times := make([]float64, 0, len(byTime))
	for t := range byTime {
		times = append(times, t)
	}
	sort.Float64s(times)

	var widths [ttree.Dims]float64
	var ub, lb [ttree.Dims]float64
	seeded := false
	for _, ps := range byTime {
		for _, p := range ps {
			for i, v := range [ttree.Dims]float64{p.RA, p.Dec, p.VRA, p.VDec} {
				if !seeded || v > ub[i] {
					ub[i] = v
				}
				if !seeded || v < lb[i] {
					lb[i] = v
				}
			}
			seeded = true
		}
	}
	for i := range widths {
		widths[i] = ub[i] - lb[i]
	}

	l.images = make([]imageTime, len(times))
	l.trees = make([]*ttree.Tree, len(times))
	for i, t := range times {
		l.images[i] = imageTime{mjd: t, id: i}
		tree, err := ttree.Build(byTime[t], l.cfg.DetErr, l.cfg.VelErr, l.cfg.MaxLeafSize, widths)
		if err != nil {
			return err
		}
		l.trees[i] = tree
	}
	return nil
}

// pairTask is one unit of work: an endpoint image pair plus its support
// images.
type pairTask struct {
	first, last int
	supports    []int
}

// Run searches every endpoint image pair and inserts accepted tracks into
// results.  Pairs are independent and run on Workers goroutines; each owns
// its projection cache.  An expired per-pair deadline is logged and the
// run continues; an invariant failure aborts the run.
func (l *Linker) Run(ctx context.Context, results *mops.TrackSet) (*Stats, error) {
	nWorkers := l.cfg.Workers
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan pairTask)
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := &Stats{}
	var firstErr error

	for w := 0; w < nWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				st, err := l.runPair(runCtx, task, results)
				mu.Lock()
				total.add(st)
				if err != nil && firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
			}
		}()
	}

	// enumerate ordered image pairs with sufficient time separation,
	// honoring the optional endpoint time bounds
enumerate:
	for i := range l.images {
		ti := l.images[i].mjd
		if l.cfg.LatestFirstEndpoint != 0 && ti > l.cfg.LatestFirstEndpoint {
			break
		}
		for j := i + 1; j < len(l.images); j++ {
			tj := l.images[j].mjd
			if tj-ti < l.cfg.MinEndpointSep {
				continue
			}
			if l.cfg.EarliestLastEndpoint != 0 && tj < l.cfg.EarliestLastEndpoint {
				continue
			}
			var supports []int
			for k := i + 1; k < j; k++ {
				tk := l.images[k].mjd
				if tk-ti > l.cfg.MinSupportToEndpointSep &&
					tj-tk > l.cfg.MinSupportToEndpointSep {
					supports = append(supports, k)
				}
			}
			if len(supports) < l.cfg.MinSupportTracklets {
				continue
			}
			select {
			case tasks <- pairTask{first: i, last: j, supports: supports}:
			case <-runCtx.Done():
				break enumerate
			}
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return total, firstErr
	}
	if err := ctx.Err(); err != nil {
		return total, err
	}
	return total, nil
}

// runPair searches one endpoint pair to completion or deadline.
func (l *Linker) runPair(ctx context.Context, task pairTask, results *mops.TrackSet) (*Stats, error) {
	st := &Stats{PairsExamined: 1}

	pairCtx := ctx
	if l.cfg.PairTimeout > 0 {
		var cancel context.CancelFunc
		pairCtx, cancel = context.WithTimeout(ctx, l.cfg.PairTimeout)
		defer cancel()
	}

	s := &searcher{
		cfg:       &l.cfg,
		dets:      l.dets,
		tracklets: l.tracklets,
		cache:     newProjCache(l.cfg.CacheSize),
		results:   results,
		stats:     st,
		ctx:       pairCtx,
	}

	e1 := nodeAndTime{l.trees[task.first].Root(), l.images[task.first].mjd, task.first}
	e2 := nodeAndTime{l.trees[task.last].Root(), l.images[task.last].mjd, task.last}
	supports := make([]nodeAndTime, len(task.supports))
	for i, k := range task.supports {
		supports[i] = nodeAndTime{l.trees[k].Root(), l.images[k].mjd, k}
	}

	if l.cfg.Verbose {
		log.Printf("linking between times %.6f and %.6f (%d support images)",
			e1.mjd, e2.mjd, len(supports))
	}

	err := s.recurse(e1, e2, supports, l.cfg.IterationsPerSplit)
	st.CacheHits = s.cache.hits
	st.CacheMisses = s.cache.misses

	if err != nil {
		// a per-pair deadline leaves the pair partial but the run alive
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			st.PairsTimedOut = 1
			log.Printf("%v: pair %.6f..%.6f abandoned after %v",
				mops.ErrTimeout, e1.mjd, e2.mjd, l.cfg.PairTimeout)
			return st, nil
		}
		return st, err
	}
	return st, nil
}
