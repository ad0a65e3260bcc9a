package ir

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-cabsim/dsp/convolve"
)

// Bank owns the catalog in slow storage and copies a selected entry into
// the convolution engine. It also tracks the bypass flag raised whenever no
// kernel is available or selectable.
//
// Select runs at control rate only. Bypassed is read by the audio path and
// is therefore atomic.
type Bank struct {
	catalog *Catalog
	engine  *convolve.Engine

	// staging holds the copy taken from slow storage before it is handed
	// to the engine. Allocated once; the copy itself is the only costly
	// step of a switch.
	staging []float64

	active   int
	bypassed atomic.Bool
}

// NewBank returns a bank for the given catalog and engine. The bank starts
// bypassed: no kernel has been selected yet.
func NewBank(catalog *Catalog, engine *convolve.Engine) *Bank {
	b := &Bank{
		catalog: catalog,
		engine:  engine,
		staging: make([]float64, engine.Capacity()),
		active:  -1,
	}
	b.bypassed.Store(true)

	return b
}

// Select makes the catalog entry at index the active kernel.
//
// An empty catalog yields ErrNoCatalog; an index outside [0, Len) yields
// ErrOutOfRange. Both force bypass and keep any previously loaded kernel in
// place — the audio path must never see a half-copied kernel. Bypass is
// sticky until a later Select succeeds.
func (b *Bank) Select(index int) error {
	if b.catalog.Len() == 0 {
		b.bypassed.Store(true)
		return ErrNoCatalog
	}

	kernel := b.catalog.Kernel(index)
	if kernel == nil {
		b.bypassed.Store(true)

		logrus.WithFields(logrus.Fields{
			"index":   index,
			"entries": b.catalog.Len(),
		}).Warn("ir: selection out of range, bypassing")

		return fmt.Errorf("%w: index %d of %d", ErrOutOfRange, index, b.catalog.Len())
	}

	taps := kernel.Taps
	if len(taps) <= len(b.staging) {
		taps = b.staging[:copy(b.staging, taps)]
	}
	// An oversized entry skips staging; the engine rejects it below and the
	// previous kernel stays active.

	if err := b.engine.LoadKernel(taps); err != nil {
		b.bypassed.Store(true)

		logrus.WithFields(logrus.Fields{
			"index": index,
			"id":    kernel.ID,
			"taps":  len(kernel.Taps),
		}).Warn("ir: kernel rejected, bypassing")

		return fmt.Errorf("ir: loading entry %d (%q): %w", index, kernel.ID, err)
	}

	b.active = index
	b.bypassed.Store(false)

	logrus.WithFields(logrus.Fields{
		"index": index,
		"id":    kernel.ID,
		"taps":  len(taps),
	}).Debug("ir: kernel switched")

	return nil
}

// Bypassed reports whether the signal path should skip the convolution
// stage. Safe to call from the audio path.
func (b *Bank) Bypassed() bool {
	return b.bypassed.Load()
}

// ActiveIndex returns the index of the last successfully selected entry,
// or -1 if none.
func (b *Bank) ActiveIndex() int {
	return b.active
}

// Catalog returns the bank's catalog.
func (b *Bank) Catalog() *Catalog {
	return b.catalog
}
