package convolve

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Errors returned by the FFT block convolver.
var (
	ErrEmptyKernel      = errors.New("convolve: empty kernel")
	ErrInvalidBlockSize = errors.New("convolve: invalid block size")
	ErrLengthMismatch   = errors.New("convolve: buffer length mismatch")
)

// StreamingOverlapSave is an FFT-based block convolver using the
// overlap-save method. It processes fixed-size blocks with continuity
// between calls and performs no allocations after construction.
//
// Construction is a control-rate operation (kernel FFT); ProcessBlockTo is
// safe for the audio path.
type StreamingOverlapSave struct {
	kernelFFT []complex128

	kernelLen int
	blockSize int
	fftSize   int

	plan *algofft.Plan[complex128]

	work    []complex128
	spectra []complex128

	// Last kernelLen-1 input samples, carried between blocks.
	history []float64
}

// NewStreamingOverlapSave builds a convolver for the given kernel and
// fixed block size.
func NewStreamingOverlapSave(kernel []float64, blockSize int) (*StreamingOverlapSave, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	kernelLen := len(kernel)
	fftSize := nextPowerOf2(blockSize + kernelLen - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("convolve: creating FFT plan: %w", err)
	}

	sos := &StreamingOverlapSave{
		kernelFFT: make([]complex128, fftSize),
		kernelLen: kernelLen,
		blockSize: blockSize,
		fftSize:   fftSize,
		plan:      plan,
		work:      make([]complex128, fftSize),
		spectra:   make([]complex128, fftSize),
		history:   make([]float64, kernelLen-1),
	}

	for i, v := range kernel {
		sos.work[i] = complex(v, 0)
	}
	err = plan.Forward(sos.kernelFFT, sos.work)
	if err != nil {
		return nil, fmt.Errorf("convolve: transforming kernel: %w", err)
	}

	return sos, nil
}

// ProcessBlockTo convolves one input block into output. Both slices must be
// blockSize samples long.
func (sos *StreamingOverlapSave) ProcessBlockTo(output, input []float64) error {
	if len(input) != sos.blockSize {
		return fmt.Errorf("%w: expected %d input samples, got %d", ErrLengthMismatch, sos.blockSize, len(input))
	}
	if len(output) != sos.blockSize {
		return fmt.Errorf("%w: expected %d output samples, got %d", ErrLengthMismatch, sos.blockSize, len(output))
	}

	// Segment layout: history followed by the new block, zero-padded to the
	// FFT size. The first kernelLen-1 output samples are circular wrap-around
	// and get discarded.
	for i := range sos.work {
		sos.work[i] = 0
	}
	for i, v := range sos.history {
		sos.work[i] = complex(v, 0)
	}
	for i, v := range input {
		sos.work[sos.kernelLen-1+i] = complex(v, 0)
	}

	err := sos.plan.Forward(sos.work, sos.work)
	if err != nil {
		return fmt.Errorf("convolve: forward FFT: %w", err)
	}

	for i := range sos.spectra {
		sos.spectra[i] = sos.work[i] * sos.kernelFFT[i]
	}

	err = sos.plan.Inverse(sos.spectra, sos.spectra)
	if err != nil {
		return fmt.Errorf("convolve: inverse FFT: %w", err)
	}

	validStart := sos.kernelLen - 1
	for i := range output {
		output[i] = real(sos.spectra[validStart+i])
	}

	sos.saveHistory(input)

	return nil
}

// saveHistory keeps the last kernelLen-1 input samples for the next block.
func (sos *StreamingOverlapSave) saveHistory(input []float64) {
	keep := sos.kernelLen - 1
	if keep == 0 {
		return
	}

	if sos.blockSize >= keep {
		copy(sos.history, input[sos.blockSize-keep:])
		return
	}

	// Block shorter than the overlap: shift old history, append the block.
	copy(sos.history, sos.history[sos.blockSize:])
	copy(sos.history[keep-sos.blockSize:], input)
}

// Reset clears the inter-block history for a new signal stream.
func (sos *StreamingOverlapSave) Reset() {
	for i := range sos.history {
		sos.history[i] = 0
	}
}

// BlockSize returns the fixed input/output block size.
func (sos *StreamingOverlapSave) BlockSize() int {
	return sos.blockSize
}

// KernelLen returns the convolution kernel length.
func (sos *StreamingOverlapSave) KernelLen() int {
	return sos.kernelLen
}

// FFTSize returns the internal FFT size.
func (sos *StreamingOverlapSave) FFTSize() int {
	return sos.fftSize
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
