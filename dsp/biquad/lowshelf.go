package biquad

import (
	"math"

	"github.com/cwbudde/algo-cabsim/dsp/core"
)

// LowShelf designs a second-order low-shelf section (RBJ cookbook form)
// boosting or cutting frequencies below freqHz by gainDB. slope controls
// the transition steepness; 1 is the steepest slope without overshoot.
func LowShelf(sampleRate, freqHz, gainDB, slope float64) Coefficients {
	if gainDB == 0 {
		return Identity()
	}
	if slope <= 0 {
		slope = 1
	}

	A := math.Sqrt(core.DBToLinear(gainDB))
	w0 := 2 * math.Pi * freqHz / sampleRate
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)

	alpha := sinW0 / 2 * math.Sqrt((A+1/A)*(1/slope-1)+2)
	beta := 2 * math.Sqrt(A) * alpha

	a0 := (A + 1) + (A-1)*cosW0 + beta
	invA0 := 1 / a0

	return Coefficients{
		B0: A * ((A + 1) - (A-1)*cosW0 + beta) * invA0,
		B1: 2 * A * ((A - 1) - (A+1)*cosW0) * invA0,
		B2: A * ((A + 1) - (A-1)*cosW0 - beta) * invA0,
		A1: -2 * ((A - 1) + (A+1)*cosW0) * invA0,
		A2: ((A + 1) + (A-1)*cosW0 - beta) * invA0,
	}
}
