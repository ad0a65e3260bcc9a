package convolve

import (
	"math/rand"
	"testing"
)

func benchmarkEngine(b *testing.B, kernelLen, blockSize int) {
	rng := rand.New(rand.NewSource(1))

	kernel := make([]float64, kernelLen)
	for i := range kernel {
		kernel[i] = rng.Float64()*2 - 1
	}

	e, err := NewEngine(MaxKernelLength)
	if err != nil {
		b.Fatalf("unexpected error: %v", err)
	}
	if err := e.LoadKernel(kernel); err != nil {
		b.Fatalf("unexpected error: %v", err)
	}

	block := make([]float64, blockSize)
	for i := range block {
		block[i] = rng.Float64()*2 - 1
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.ProcessBlock(block)
	}
}

func BenchmarkEngine128Taps(b *testing.B)  { benchmarkEngine(b, 128, 48) }
func BenchmarkEngine1024Taps(b *testing.B) { benchmarkEngine(b, 1024, 48) }
func BenchmarkEngine8160Taps(b *testing.B) { benchmarkEngine(b, MaxKernelLength, 48) }

func BenchmarkStreamingOverlapSave(b *testing.B) {
	rng := rand.New(rand.NewSource(1))

	kernel := make([]float64, MaxKernelLength)
	for i := range kernel {
		kernel[i] = rng.Float64()*2 - 1
	}

	sos, err := NewStreamingOverlapSave(kernel, 48)
	if err != nil {
		b.Fatalf("unexpected error: %v", err)
	}

	in := make([]float64, 48)
	out := make([]float64, 48)
	for i := range in {
		in[i] = rng.Float64()*2 - 1
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = sos.ProcessBlockTo(out, in)
	}
}
