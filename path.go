package cabsim

import (
	"sync/atomic"

	"github.com/cwbudde/algo-cabsim/dsp/biquad"
	"github.com/cwbudde/algo-cabsim/dsp/convolve"
	"github.com/cwbudde/algo-cabsim/dsp/core"
	"github.com/cwbudde/algo-cabsim/ir"
)

// SignalPath runs once per audio block: tone stage, then dry/wet blend
// through the convolution stage unless bypassed.
//
// It reads only already-committed state. The bypass flag and the kernel
// are snapshotted once per block; the FFT convolver pointer is swapped by
// the control loop and read with a single atomic load.
type SignalPath struct {
	engine *convolve.Engine
	bank   *ir.Bank
	tone   *biquad.Section // nil when the tone stage is disabled

	dry, wet float64

	// Non-nil when the active kernel is long enough for the FFT block
	// path. Built at control rate, swapped atomically.
	fft atomic.Pointer[convolve.StreamingOverlapSave]

	wetBuf []float64
}

// ProcessBlock processes one audio block from in to out. Both slices must
// have the same length, at most the configured block size.
func (p *SignalPath) ProcessBlock(out, in []float64) {
	copy(out, in)

	if p.tone != nil {
		p.tone.ProcessBlock(out)
	}

	// Bypassed: the pre-convolution dry signal passes unmodified.
	if p.bank.Bypassed() {
		return
	}

	p.wetBuf = core.EnsureLen(p.wetBuf, len(out))
	wet := p.wetBuf

	sos := p.fft.Load()
	if sos != nil && sos.BlockSize() == len(out) {
		if err := sos.ProcessBlockTo(wet, out); err != nil {
			p.engine.ProcessBlockTo(wet, out)
		} else {
			// Keep the direct form's ring current so a later switch to a
			// short kernel still rings with the recent input.
			p.engine.AppendHistory(out)
		}
	} else {
		p.engine.ProcessBlockTo(wet, out)
	}

	for i := range out {
		out[i] = p.dry*out[i] + p.wet*wet[i]
	}
}

// setFFT publishes the FFT block convolver for the newly active kernel,
// or clears it when the direct form is in effect. Control-rate only.
func (p *SignalPath) setFFT(sos *convolve.StreamingOverlapSave) {
	p.fft.Store(sos)
}

// reset clears all per-stream state: convolution history, tone filter
// state, and the FFT convolver's inter-block overlap.
func (p *SignalPath) reset() {
	p.engine.Reset()

	if p.tone != nil {
		p.tone.Reset()
	}

	if sos := p.fft.Load(); sos != nil {
		sos.Reset()
	}
}
