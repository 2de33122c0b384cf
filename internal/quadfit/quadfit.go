// Public domain.

// Package quadfit fits low-order polynomial sky-plane motion to detection
// positions by least squares.
package quadfit

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/mopsworks/linktracklets/internal/mops"
)

// Fit holds per-axis quadratic motion coefficients at a reference time:
// p(t) = Pos0 + Vel*t + Acc*t².
type Fit struct {
	Pos0 float64
	Vel  float64 // degrees/day
	Acc  float64 // degrees/day²
}

// At evaluates the fitted position at time offset t from the reference.
func (f *Fit) At(t float64) float64 {
	return f.Pos0 + f.Vel*t + f.Acc*t*t
}

// Quad fits p(t) = c0 + c1·t + c2·t² to parallel position and time arrays.
// Times are offsets from the caller's reference epoch.
//
// Degenerate inputs fit lower-order models: one sample pins position only,
// two samples fit a line.  Empty input returns zeros.
func Quad(positions, times []float64) (Fit, error) {
	if len(positions) != len(times) {
		return Fit{}, fmt.Errorf("%w: quad fit: %d positions, %d times",
			mops.ErrInternalInvariant, len(positions), len(times))
	}
	switch len(positions) {
	case 0:
		return Fit{}, nil
	case 1:
		return Fit{Pos0: positions[0]}, nil
	case 2:
		return lineThrough(positions, times), nil
	}
	return solve(positions, times, 3)
}

// Linear fits p(t) = c0 + c1·t, returning offset and slope.  Used for
// tracklet velocities.
func Linear(positions, times []float64) (Fit, error) {
	if len(positions) != len(times) {
		return Fit{}, fmt.Errorf("%w: linear fit: %d positions, %d times",
			mops.ErrInternalInvariant, len(positions), len(times))
	}
	switch len(positions) {
	case 0:
		return Fit{}, nil
	case 1:
		return Fit{Pos0: positions[0]}, nil
	case 2:
		return lineThrough(positions, times), nil
	}
	return solve(positions, times, 2)
}

func lineThrough(p, t []float64) Fit {
	dt := t[1] - t[0]
	if dt == 0 {
		return Fit{Pos0: (p[0] + p[1]) / 2}
	}
	v := (p[1] - p[0]) / dt
	return Fit{Pos0: p[0] - v*t[0], Vel: v}
}

// solve runs an order-term least squares fit through QR factorization.
func solve(p, t []float64, terms int) (Fit, error) {
	a := mat.NewDense(len(p), terms, nil)
	b := mat.NewVecDense(len(p), nil)
	for i := range p {
		pow := 1.0
		for j := 0; j < terms; j++ {
			a.Set(i, j, pow)
			pow *= t[i]
		}
		b.SetVec(i, p[i])
	}
	var qr mat.QR
	qr.Factorize(a)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return Fit{}, fmt.Errorf("%w: least squares fit: %v", mops.ErrBadInput, err)
	}
	f := Fit{Pos0: c.AtVec(0), Vel: c.AtVec(1)}
	if terms > 2 {
		f.Acc = c.AtVec(2)
	}
	return f, nil
}

// UnwrapRA shifts right-ascension samples by multiples of 360° so each
// lies within 180° of the first sample, so a fit never sees the 0/360 seam.
// The input is not modified.
func UnwrapRA(ras []float64) []float64 {
	if len(ras) == 0 {
		return nil
	}
	out := append([]float64(nil), ras...)
	p0 := out[0]
	for i := 1; i < len(out); i++ {
		for out[i]-p0 > 180 {
			out[i] -= 360
		}
		for p0-out[i] > 180 {
			out[i] += 360
		}
	}
	return out
}
