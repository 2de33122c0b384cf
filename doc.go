/*
Package linktracklets links short-arc asteroid tracklets into multi-night
tracks.

Contents

  Program overview
  Command line usage
  File formats
  Algorithm outline

Program overview

Input is a file of detections, each a time-stamped sky position with an id,
and a file of tracklets, each a set of detection ids believed to be the
same moving object within a night.  Output is tracks: longer chains of
detections whose sky-plane motion fits a single bounded-acceleration
quadratic over many nights.

The program can also start directly from a file of MPC 80-column
observations, deriving one tracklet per observed arc.  The MPC observation
format is documented at
http://www.minorplanetcenter.net/iau/info/OpticalObs.html.

Command line usage

  linktracklets -d dets.miti -t pairs.txt -o tracks.txt
  linktracklets -d obs.txt -m obscodes.dat -o tracks.txt
  mitigen -o sim -k 10

Run linktracklets with no arguments, or either command with -h, for the
option list; mitigen with no arguments writes files using its defaults.  All angular
options are degrees; errors accept an "s" suffix for arc seconds.  Time
options accept MJD or a YYYY-MM-DD calendar date.

File formats

Detections are MITI lines,

  ID EPOCH_MJD RA_DEG DEC_DEG MAG OBSCODE OBJECT_NAME LENGTH ANGLE [ETIME]

of which only the first four fields are used.  Tracklet lines are
whitespace-separated lists of detection ids.  Track output is one line per
track holding the space-separated detection ids of the track.

Algorithm outline

Tracklets are given best-fit linear sky-plane velocities and grouped by the
image time of their earliest detection.  Each image's tracklets go into a
4-dimensional tree over (RA, Dec, RA velocity, Dec velocity) whose node
bounds are widened by the configured positional and velocity errors.

For every pair of image times far enough apart, a recursive search runs
over the two endpoint trees and the trees of the nights between them.  At
each step the search asks whether any object accelerating within the
configured bounds could occupy both endpoint regions, projecting node
bounds through time and testing overlap on all four axes; incompatible
regions prune the whole subtree.  Projected bounds are memoized per pair in
a bounded LRU cache.  When the search reaches single leaves it fits a
quadratic to each endpoint tracklet pair by least squares, discards fits
that exceed the acceleration or residual limits, then picks the best
supporting detection per intervening image time.  Tracks with enough
tracklets, detections, and distinct nights go into a deduplicating result
set.

Endpoint pairs are independent, so they are searched concurrently; a
per-pair deadline can bound pathological searches, and an interrupt stops
the run: no new pairs start, and pairs in flight stop at their next
recursion step.

The search is the variable-tree algorithm of Kubica et al., "Efficient
intra- and inter-night linking of asteroid detections using kd-trees"
(http://arxiv.org/abs/astro-ph/0703475v1).

Public domain.
*/
package linktracklets
