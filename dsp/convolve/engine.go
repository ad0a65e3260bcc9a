package convolve

import (
	"errors"
	"fmt"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-cabsim/dsp/core"
)

// MaxKernelLength is the largest supported kernel: 170 ms at 48 kHz.
// It bounds both the kernel slots and the input history ring.
const MaxKernelLength = 8160

// Errors returned by the convolution engine.
var (
	ErrKernelTooLong   = errors.New("convolve: kernel exceeds buffer capacity")
	ErrInvalidCapacity = errors.New("convolve: capacity must be positive")
)

// kernelSlot holds one copy of the kernel with taps stored in reverse
// order, so that the ring-buffer read reduces to at most two contiguous
// dot products.
type kernelSlot struct {
	rev    []float64
	length int
}

// Engine convolves an input sample stream against the active kernel using
// direct time-domain convolution.
//
// The engine keeps two kernel slots. LoadKernel always writes the slot the
// audio path is not reading and publishes it with a single atomic store;
// Process* snapshots the active slot once and uses it for the whole call.
// The history ring is written exclusively by the processing methods.
type Engine struct {
	history  []float64
	capacity int
	cursor   int

	slots  [2]kernelSlot
	active atomic.Uint32
}

// NewEngine returns an engine with the given history/kernel capacity.
// Use MaxKernelLength unless a smaller bound is known.
func NewEngine(capacity int) (*Engine, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	e := &Engine{
		history:  make([]float64, capacity),
		capacity: capacity,
	}
	for i := range e.slots {
		e.slots[i].rev = make([]float64, capacity)
	}

	return e, nil
}

// LoadKernel replaces the active kernel with a copy of taps.
// Returns ErrKernelTooLong if taps exceed the engine capacity; the previous
// kernel stays active in that case.
//
// The input history is intentionally not cleared: the tail of the signal
// already in flight keeps ringing through the new kernel.
//
// LoadKernel is control-rate only. Successive loads must be separated by at
// least one processed block so the audio path is never reading the slot
// being rewritten.
func (e *Engine) LoadKernel(taps []float64) error {
	if len(taps) > e.capacity {
		return fmt.Errorf("%w: %d taps, capacity %d", ErrKernelTooLong, len(taps), e.capacity)
	}

	inactive := 1 - e.active.Load()
	slot := &e.slots[inactive]
	core.Reverse(slot.rev[:len(taps)], taps)
	slot.length = len(taps)

	e.active.Store(inactive)

	return nil
}

// ProcessSample pushes one input sample into the history and returns the
// convolution of the last kernelLen samples with the active kernel.
// With no kernel loaded the contribution is zero.
func (e *Engine) ProcessSample(x float64) float64 {
	slot := &e.slots[e.active.Load()]
	return e.step(slot, x)
}

// ProcessBlock convolves buf in-place. The active kernel is snapshotted
// once for the whole block.
func (e *Engine) ProcessBlock(buf []float64) {
	slot := &e.slots[e.active.Load()]
	for i, x := range buf {
		buf[i] = e.step(slot, x)
	}
}

// ProcessBlockTo convolves src into dst. Both slices must have the same
// length. The active kernel is snapshotted once for the whole block.
func (e *Engine) ProcessBlockTo(dst, src []float64) {
	if len(src) == 0 {
		return
	}

	_ = dst[len(src)-1] // bounds check hint
	slot := &e.slots[e.active.Load()]
	for i, x := range src {
		dst[i] = e.step(slot, x)
	}
}

// AppendHistory pushes a block into the history ring without computing any
// output. Callers use it while another convolver produces the audio, so a
// later switch back to the direct form still sees the recent input.
func (e *Engine) AppendHistory(src []float64) {
	for _, x := range src {
		e.history[e.cursor] = x
		e.cursor++
		if e.cursor >= e.capacity {
			e.cursor = 0
		}
	}
}

// step advances the ring by one sample and computes the output for it.
//
//	y[n] = sum_{k=0}^{L-1} taps[k] * x[n-k]
//
// With the kernel reversed, the sum is the dot product of the reversed taps
// with history[cursor-L+1 .. cursor], which wraps across the ring end at
// most once.
func (e *Engine) step(s *kernelSlot, x float64) float64 {
	e.history[e.cursor] = x

	var y float64
	if n := s.length; n > 0 {
		start := e.cursor + 1 - n
		if start >= 0 {
			y = vecmath.DotProduct(s.rev[:n], e.history[start:e.cursor+1])
		} else {
			head := -start
			y = vecmath.DotProduct(s.rev[:head], e.history[e.capacity-head:])
			y += vecmath.DotProduct(s.rev[head:n], e.history[:e.cursor+1])
		}
	}

	e.cursor++
	if e.cursor >= e.capacity {
		e.cursor = 0
	}

	return y
}

// Reset clears the input history. The active kernel is kept.
func (e *Engine) Reset() {
	core.Zero(e.history)
	e.cursor = 0
}

// KernelLen returns the length of the currently active kernel.
func (e *Engine) KernelLen() int {
	return e.slots[e.active.Load()].length
}

// Capacity returns the maximum supported kernel length.
func (e *Engine) Capacity() int {
	return e.capacity
}
