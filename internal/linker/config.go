// Public domain.

// Package linker links tracklets into multi-night tracks with the
// variable-tree search algorithm: a dual-endpoint recursion over per-image
// 4-D tracklet trees, pruned by a bounded-acceleration reachability test,
// with a quadratic fit and support-detection selection at the leaves.
//
// The algorithm follows Kubica's multiple-tree linkage search
// (http://arxiv.org/abs/astro-ph/0703475v1).
package linker

import (
	"fmt"
	"time"

	"github.com/mopsworks/linktracklets/internal/mops"
)

// Config holds the search parameters.  All thresholds carry units:
// degrees, degrees/day, degrees/day², days.
type Config struct {
	// DetErr is the assumed positional error of a detection, degrees.
	DetErr float64
	// VelErr is the assumed error of a tracklet's fitted sky-plane
	// velocity, degrees/day.
	VelErr float64

	// MaxRAAccel and MaxDecAccel bound the quadratic coefficient of
	// plausible sky-plane motion, degrees/day².
	MaxRAAccel  float64
	MaxDecAccel float64

	// QuadErr is the allowed deviation of a detection from the fitted
	// quadratic, degrees.  It is applied on top of DetErr.
	QuadErr float64

	// MinEndpointSep is the minimum time between the first and last
	// detection of a track, days.
	MinEndpointSep float64
	// MinSupportToEndpointSep is the minimum time between a support
	// image and either endpoint image, days.  Honored by the driver;
	// the recursion trusts the driver's filtering.
	MinSupportToEndpointSep float64

	// MinSupportTracklets is the number of support tracklets a track
	// needs beyond its two endpoints.
	MinSupportTracklets int
	// MinDetectionsPerTrack is the minimum number of distinct
	// detections in an emitted track.
	MinDetectionsPerTrack int
	// MinUniqueNights is the minimum number of distinct calendar
	// nights spanned by an emitted track.
	MinUniqueNights int

	// LatestFirstEndpoint and EarliestLastEndpoint bound the endpoint
	// pair enumeration, MJD.  Zero means unset.
	LatestFirstEndpoint  float64
	EarliestLastEndpoint float64

	// MaxLeafSize bounds the points per tree leaf.
	MaxLeafSize int

	// IterationsPerSplit is the number of recursion levels the support
	// filter-and-split step may be skipped between forced resplits.
	// 0 filters at every call.
	IterationsPerSplit int

	// CacheSize bounds the per-pair projection cache, entries.
	CacheSize int

	// Workers is the number of endpoint pairs searched concurrently.
	// 0 means one per CPU.
	Workers int

	// PairTimeout bounds the search of a single endpoint pair.  On
	// expiry the pair is reported partial and the run continues.
	// 0 means no deadline.
	PairTimeout time.Duration

	// Verbose enables progress logging and a statistics summary.
	Verbose bool
}

// DefaultConfig returns the documented default parameters.
func DefaultConfig() Config {
	return Config{
		DetErr:                  .002,
		VelErr:                  .002,
		MaxRAAccel:              .02,
		MaxDecAccel:             .02,
		QuadErr:                 .002,
		MinEndpointSep:          2,
		MinSupportToEndpointSep: .5,
		MinSupportTracklets:     1,
		MinDetectionsPerTrack:   6,
		MinUniqueNights:         3,
		MaxLeafSize:             16,
		CacheSize:               1 << 16,
	}
}

// Validate checks the configuration, returning ErrInvalidConfig or
// ErrBadInput on the first problem found.
func (c *Config) Validate() error {
	switch {
	case c.DetErr < 0:
		return fmt.Errorf("%w: negative detection location error %g", mops.ErrBadInput, c.DetErr)
	case c.VelErr < 0:
		return fmt.Errorf("%w: negative velocity error %g", mops.ErrBadInput, c.VelErr)
	case c.QuadErr < 0:
		return fmt.Errorf("%w: negative quadratic fit error %g", mops.ErrBadInput, c.QuadErr)
	case c.MaxRAAccel < 0:
		return fmt.Errorf("%w: negative max RA acceleration %g", mops.ErrInvalidConfig, c.MaxRAAccel)
	case c.MaxDecAccel < 0:
		return fmt.Errorf("%w: negative max Dec acceleration %g", mops.ErrInvalidConfig, c.MaxDecAccel)
	case c.MaxLeafSize == 0:
		return fmt.Errorf("%w: tree leaf size 0", mops.ErrBadInput)
	case c.MaxLeafSize < 0:
		return fmt.Errorf("%w: negative tree leaf size %d", mops.ErrBadInput, c.MaxLeafSize)
	case c.MinEndpointSep < 0 || c.MinSupportToEndpointSep < 0:
		return fmt.Errorf("%w: negative time separation", mops.ErrInvalidConfig)
	case c.MinSupportTracklets < 0 || c.MinDetectionsPerTrack < 0 || c.MinUniqueNights < 0:
		return fmt.Errorf("%w: negative track requirement", mops.ErrInvalidConfig)
	case c.LatestFirstEndpoint != 0 && c.EarliestLastEndpoint != 0 &&
		c.LatestFirstEndpoint > c.EarliestLastEndpoint:
		return fmt.Errorf("%w: latest first endpoint %g after earliest last endpoint %g",
			mops.ErrInvalidConfig, c.LatestFirstEndpoint, c.EarliestLastEndpoint)
	}
	return nil
}
