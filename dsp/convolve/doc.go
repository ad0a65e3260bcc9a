// Package convolve implements the real-time convolution stage of the
// cabinet simulator.
//
// Engine performs direct time-domain convolution of a live sample stream
// against an impulse-response kernel. It is built for a hard per-sample
// deadline: processing never allocates, never blocks, and never takes a
// lock. Kernel replacement uses two internal slots with a single atomic
// hand-off, so the control loop can prepare a new kernel while the audio
// callback keeps reading the old one.
//
// StreamingOverlapSave provides an FFT-based block convolver for kernels
// long enough that the O(kernelLen) per-sample cost of the direct form
// becomes a deadline risk. It produces the same output as the direct form
// within floating-point tolerance.
package convolve
