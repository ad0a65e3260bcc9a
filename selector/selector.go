// Package selector converts the noisy continuous reading of a physical
// multi-position switch into a stable discrete band index.
//
// The raw reading comes from a resistive divider and jitters around band
// boundaries. A hysteresis margin around each boundary suppresses the
// chatter: a new band is reported only once the reading is unambiguously
// past the midpoint toward it.
package selector

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-cabsim/dsp/core"
)

// Errors returned by New.
var (
	ErrTooFewPositions = errors.New("selector: need at least two positions")
	ErrInvalidMargin   = errors.New("selector: margin must be in (0, 1/positions)")
)

// Debouncer tracks the committed band of an N-position selector.
// It is a pure function of its input history and is not safe for
// concurrent use; the control loop is its only caller.
type Debouncer struct {
	positions int
	margin    float64

	current   int
	committed bool
}

// New returns a debouncer for a selector with the given number of physical
// positions and hysteresis margin in normalized units.
func New(positions int, margin float64) (*Debouncer, error) {
	if positions < 2 {
		return nil, fmt.Errorf("%w: %d", ErrTooFewPositions, positions)
	}
	if margin <= 0 || margin >= 1/float64(positions) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidMargin, margin)
	}

	return &Debouncer{
		positions: positions,
		margin:    margin,
	}, nil
}

// Quantize maps a raw reading in [0,1] to the nearest band index.
func (d *Debouncer) Quantize(raw float64) int {
	raw = core.Clamp(raw, 0, 1)
	band := int(math.Round(raw * float64(d.positions-1)))

	if band < 0 {
		band = 0
	}
	if band >= d.positions {
		band = d.positions - 1
	}

	return band
}

// Update feeds one raw reading and returns the committed band and whether
// it changed on this call.
//
// The first call always commits its quantized value. Afterwards a new band
// is committed only when the reading lies strictly beyond the midpoint
// between the current and candidate band centers by more than the margin.
func (d *Debouncer) Update(raw float64) (int, bool) {
	candidate := d.Quantize(raw)

	if !d.committed {
		d.current = candidate
		d.committed = true

		return d.current, true
	}

	if candidate == d.current {
		return d.current, false
	}

	raw = core.Clamp(raw, 0, 1)
	midpoint := (d.center(d.current) + d.center(candidate)) / 2

	if candidate > d.current {
		if raw > midpoint+d.margin {
			d.current = candidate
			return d.current, true
		}
	} else {
		if raw < midpoint-d.margin {
			d.current = candidate
			return d.current, true
		}
	}

	return d.current, false
}

// Current returns the last committed band, or 0 before the first Update.
func (d *Debouncer) Current() int {
	return d.current
}

// Positions returns the number of physical selector positions.
func (d *Debouncer) Positions() int {
	return d.positions
}

// center returns the raw-domain center of the given band.
func (d *Debouncer) center(band int) float64 {
	return float64(band) / float64(d.positions-1)
}
