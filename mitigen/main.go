// Public domain.

// Command mitigen writes synthetic MITI detection and tracklet files for
// exercising linktracklets: objects on quadratic sky-plane motion, sampled
// as a pair of detections per night, with optional positional jitter.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/exit"

	"github.com/mopsworks/linktracklets/internal/geom"
)

func main() {
	defer exit.Handler()

	prefix := flag.String("o", "sim", "")
	k := flag.Int("k", 10, "")
	nights := flag.Int("nights", 7, "")
	pairDT := flag.Float64("dt", .03, "")
	start := flag.Float64("start", 54100, "")
	jitter := flag.Float64("jitter", 0, "")
	seed := flag.Uint64("seed", 0, "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: mitigen [options]

Writes <prefix>.miti and <prefix>.tracklets.

Options:
       -o <prefix>     output file prefix (default "sim")
       -k <n>          number of objects (default 10)
       -nights <n>     nights per object (default 7)
       -dt <days>      separation of the two detections per night (default .03)
       -start <mjd>    first night (default 54100)
       -jitter <deg>   gaussian positional noise sigma (default 0)
       -seed <n>       random seed; 0 seeds from the clock
`)
	}
	flag.Parse()

	rnd := xrand.New(&xrand.PCGSource{})
	if *seed == 0 {
		rnd.Seed(uint64(time.Now().UnixNano()))
	} else {
		rnd.Seed(*seed)
	}

	df, err := os.Create(*prefix + ".miti")
	if err != nil {
		exit.Log(err)
	}
	defer df.Close()
	tf, err := os.Create(*prefix + ".tracklets")
	if err != nil {
		exit.Log(err)
	}
	defer tf.Close()

	dw := bufio.NewWriter(df)
	tw := bufio.NewWriter(tf)

	id := 0
	for obj := 0; obj < *k; obj++ {
		// ground truth motion, degrees and days
		ra0 := rnd.Float64() * 360
		dec0 := rnd.Float64()*60 - 30
		vRA := rnd.Float64()*.5 - .25
		vDec := rnd.Float64()*.1 - .05
		aRA := rnd.Float64()*4e-4 - 2e-4
		aDec := rnd.Float64()*4e-3 - 2e-3

		for night := 0; night < *nights; night++ {
			var ids [2]int
			for i := 0; i < 2; i++ {
				t := float64(night) + float64(i)**pairDT
				ra := ra0 + vRA*t + aRA*t*t
				dec := dec0 + vDec*t + aDec*t*t
				if *jitter > 0 {
					ra += rnd.NormFloat64() * *jitter
					dec += rnd.NormFloat64() * *jitter
				}
				fmt.Fprintf(dw, "%d %.6f %.6f %.6f 21.0 566 obj%d 0.0 0.0\n",
					id, *start+t, geom.NormalizeDeg(ra), clampDec(dec), obj)
				ids[i] = id
				id++
			}
			fmt.Fprintf(tw, "%d %d\n", ids[0], ids[1])
		}
	}
	if err := dw.Flush(); err != nil {
		exit.Log(err)
	}
	if err := tw.Flush(); err != nil {
		exit.Log(err)
	}
}

func clampDec(dec float64) float64 {
	return math.Max(-90, math.Min(90, dec))
}
