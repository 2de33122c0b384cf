// Public domain.

// Package ltprog is the linktracklets command: flag parsing, input
// loading, the linker run, and output.
package ltprog

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/exit"
	"github.com/soniakeys/mpcformat"
	"github.com/soniakeys/unit"

	"github.com/mopsworks/linktracklets/internal/linker"
	"github.com/mopsworks/linktracklets/internal/mops"
)

const versionString = "linktracklets version 1.0 Go source."

func Main() {
	defer exit.Handler()

	cl := parseCommandLine()
	cfg := cl.searchConfig()

	dets, tracklets := readInputs(cl)

	l, err := linker.New(dets, tracklets, cfg)
	if err != nil {
		exit.Log(err)
	}

	results := newResults(cl, dets)
	defer results.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, runErr := l.Run(ctx, results)

	// write whatever was found, even after a runtime failure
	if err := writeOutput(cl.fnOut, results, dets); err != nil {
		log.Println(err)
		os.Exit(2)
	}

	if cfg.Verbose {
		log.Println(stats)
		log.Printf("%d tracks written", results.Size())
	}
	if runErr != nil {
		log.Println(runErr)
		os.Exit(2)
	}
}

type commandLine struct {
	fnDets  string // -d
	fnPairs string // -t
	fnOut   string // -o
	fnOcd   string // -m, enables MPC 80-column input mode

	detErr  angleFlag // -e
	velErr  angleFlag // -v
	quadErr angleFlag // -q

	maxDecAccel float64 // -D
	maxRAAccel  float64 // -R

	latestFirst  epochFlag // -F
	earliestLast epochFlag // -L

	minNights    int // -u
	minDets      int // -s
	leafSize     int // -n
	minSupport   int // -S
	workers      int // -j
	spill        int // -spill
	pairTimeout  time.Duration
	verbose      bool
}

// angleFlag holds an angular threshold in degrees.  The flag value is a
// number of degrees, or arc seconds with an "s" suffix.
type angleFlag struct{ deg float64 }

func (a *angleFlag) String() string { return strconv.FormatFloat(a.deg, 'g', -1, 64) }

func (a *angleFlag) Set(s string) error {
	if sec, ok := strings.CutSuffix(s, "s"); ok {
		v, err := strconv.ParseFloat(sec, 64)
		if err != nil {
			return err
		}
		a.deg = unit.AngleFromSec(v).Deg()
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	a.deg = v
	return nil
}

// epochFlag holds a time as MJD.  The flag value is an MJD number or a
// Gregorian date in YYYY-MM-DD form.
type epochFlag struct{ mjd float64 }

func (e *epochFlag) String() string { return strconv.FormatFloat(e.mjd, 'g', -1, 64) }

func (e *epochFlag) Set(s string) error {
	mjd, err := mops.ParseEpoch(s)
	if err != nil {
		return err
	}
	e.mjd = mjd
	return nil
}

func parseCommandLine() *commandLine {
	def := linker.DefaultConfig()
	var cl commandLine
	cl.detErr.deg = def.DetErr
	cl.velErr.deg = def.VelErr
	cl.quadErr.deg = def.QuadErr

	flag.StringVar(&cl.fnDets, "d", "", "")
	flag.StringVar(&cl.fnPairs, "t", "", "")
	flag.StringVar(&cl.fnOut, "o", "", "")
	flag.StringVar(&cl.fnOcd, "m", "", "")
	flag.Var(&cl.detErr, "e", "")
	flag.Var(&cl.velErr, "v", "")
	flag.Var(&cl.quadErr, "q", "")
	flag.Float64Var(&cl.maxDecAccel, "D", def.MaxDecAccel, "")
	flag.Float64Var(&cl.maxRAAccel, "R", def.MaxRAAccel, "")
	flag.Var(&cl.latestFirst, "F", "")
	flag.Var(&cl.earliestLast, "L", "")
	flag.IntVar(&cl.minNights, "u", def.MinUniqueNights, "")
	flag.IntVar(&cl.minDets, "s", def.MinDetectionsPerTrack, "")
	flag.IntVar(&cl.leafSize, "n", def.MaxLeafSize, "")
	flag.IntVar(&cl.minSupport, "S", def.MinSupportTracklets, "")
	flag.IntVar(&cl.workers, "j", 0, "")
	flag.IntVar(&cl.spill, "spill", 0, "")
	flag.DurationVar(&cl.pairTimeout, "T", 0, "")
	flag.BoolVar(&cl.verbose, "verbose", false, "")
	dv := flag.Bool("version", false, "")

	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: linktracklets -d <detections> -t <tracklets> [options]
       linktracklets -d <observations> -m <obscode-file> [options]

Link tracklets into multi-night tracks.  Detections are MITI format, one
per line; tracklets are lines of detection ids.  With -m, the -d file is
MPC 80-column observations and tracklets are derived per object.  Output
is one line per track: the detection ids of the track.

Options:
       -o <file>       output file (default stdout)
       -e <angle>      detection location error, degrees or "1.0s" arc seconds
       -v <angle>      velocity error, degrees/day
       -q <angle>      quadratic fit error, degrees
       -D <accel>      max Dec acceleration, degrees/day²
       -R <accel>      max RA acceleration, degrees/day²
       -F <epoch>      latest first endpoint time, MJD or YYYY-MM-DD
       -L <epoch>      earliest last endpoint time, MJD or YYYY-MM-DD
       -u <n>          min distinct nights per track
       -s <n>          min detections per track
       -S <n>          min support tracklets
       -n <n>          tree leaf size
       -j <n>          concurrent endpoint pairs (default one per CPU)
       -T <duration>   per-pair deadline, e.g. 30s (default none)
       -spill <n>      keep at most n tracks in memory, spill the rest
       -verbose        progress and statistics on stderr
`)
	}
	flag.Parse()
	if *dv {
		fmt.Println(versionString)
		os.Exit(0)
	}
	if cl.fnDets == "" || (cl.fnPairs == "" && cl.fnOcd == "") || flag.NArg() > 0 {
		flag.Usage()
		os.Exit(1)
	}
	return &cl
}

func (cl *commandLine) searchConfig() linker.Config {
	cfg := linker.DefaultConfig()
	cfg.DetErr = cl.detErr.deg
	cfg.VelErr = cl.velErr.deg
	cfg.QuadErr = cl.quadErr.deg
	cfg.MaxDecAccel = cl.maxDecAccel
	cfg.MaxRAAccel = cl.maxRAAccel
	cfg.LatestFirstEndpoint = cl.latestFirst.mjd
	cfg.EarliestLastEndpoint = cl.earliestLast.mjd
	cfg.MinUniqueNights = cl.minNights
	cfg.MinDetectionsPerTrack = cl.minDets
	cfg.MaxLeafSize = cl.leafSize
	cfg.MinSupportTracklets = cl.minSupport
	cfg.Workers = cl.workers
	cfg.PairTimeout = cl.pairTimeout
	cfg.Verbose = cl.verbose
	return cfg
}

func readInputs(cl *commandLine) (*mops.DetectionSet, []mops.Tracklet) {
	f, err := os.Open(cl.fnDets)
	if err != nil {
		exit.Log(err)
	}
	defer f.Close()

	if cl.fnOcd != "" {
		ocdMap, err := mpcformat.ReadObscodeDatFile(cl.fnOcd)
		if err != nil {
			// try a fresh copy before giving up
			log.Println(err)
			if err := mpcformat.FetchObscodeDat(cl.fnOcd); err != nil {
				exit.Log(err)
			}
			if ocdMap, err = mpcformat.ReadObscodeDatFile(cl.fnOcd); err != nil {
				exit.Log(err)
			}
		}
		dets, tracklets, err := mops.ReadObs80(f, ocdMap)
		if err != nil {
			exit.Log(err)
		}
		return dets, tracklets
	}

	dets, err := mops.ReadDetections(f)
	if err != nil {
		exit.Log(err)
	}
	tf, err := os.Open(cl.fnPairs)
	if err != nil {
		exit.Log(err)
	}
	defer tf.Close()
	tracklets, err := mops.ReadTracklets(tf, dets)
	if err != nil {
		exit.Log(err)
	}
	return dets, tracklets
}

func newResults(cl *commandLine, dets *mops.DetectionSet) *mops.TrackSet {
	if cl.spill <= 0 {
		return mops.NewTrackSet()
	}
	ts, err := mops.NewSpillingTrackSet("", cl.spill, dets.Dets)
	if err != nil {
		exit.Log(err)
	}
	return ts
}

func writeOutput(fn string, results *mops.TrackSet, dets *mops.DetectionSet) error {
	w := os.Stdout
	if fn != "" {
		f, err := os.Create(fn)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return results.WriteTo(w, dets.Dets)
}
