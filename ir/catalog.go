// Package ir manages the catalog of impulse-response kernels and the bank
// manager that moves a selected kernel from the catalog into the
// convolution engine's fast buffer.
package ir

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-cabsim/dsp/convolve"
	"github.com/cwbudde/algo-cabsim/dsp/core"
)

// MaxCatalogEntries bounds the number of kernels in one catalog.
const MaxCatalogEntries = 12

// Errors reported while building or using a catalog.
var (
	ErrCatalogFull = errors.New("ir: too many catalog entries")
	ErrNoCatalog   = errors.New("ir: empty catalog")
	ErrOutOfRange  = errors.New("ir: selection out of range")
)

// Kernel is one impulse response: an identifier and its taps. Kernels are
// immutable once placed in a catalog.
type Kernel struct {
	ID   string
	Taps []float64
}

// Catalog is an ordered, immutable list of kernels. It may be empty.
type Catalog struct {
	kernels []Kernel
}

// NewCatalog builds a catalog from the given kernels. Every kernel must fit
// the engine capacity and the catalog must not exceed MaxCatalogEntries.
func NewCatalog(kernels ...Kernel) (*Catalog, error) {
	if len(kernels) > MaxCatalogEntries {
		return nil, fmt.Errorf("%w: %d of %d", ErrCatalogFull, len(kernels), MaxCatalogEntries)
	}

	for i, k := range kernels {
		if len(k.Taps) > convolve.MaxKernelLength {
			return nil, fmt.Errorf("ir: entry %d (%q): %w: %d taps", i, k.ID, convolve.ErrKernelTooLong, len(k.Taps))
		}
	}

	owned := make([]Kernel, len(kernels))
	for i, k := range kernels {
		taps := make([]float64, len(k.Taps))
		core.CopyInto(taps, k.Taps)
		owned[i] = Kernel{ID: k.ID, Taps: taps}
	}

	return &Catalog{kernels: owned}, nil
}

// Len returns the number of kernels in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}

	return len(c.kernels)
}

// Kernel returns the kernel at index, or nil if out of range.
func (c *Catalog) Kernel(index int) *Kernel {
	if c == nil || index < 0 || index >= len(c.kernels) {
		return nil
	}

	return &c.kernels[index]
}

// IDs returns the kernel identifiers in catalog order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}

	ids := make([]string, len(c.kernels))
	for i, k := range c.kernels {
		ids[i] = k.ID
	}

	return ids
}
