package core

import (
	"math"
	"testing"
)

func TestEnsureLen(t *testing.T) {
	buf := make([]float64, 4, 16)

	got := EnsureLen(buf, 8)
	if len(got) != 8 {
		t.Fatalf("len = %d, expected 8", len(got))
	}
	if cap(got) != 16 {
		t.Errorf("expected capacity reuse, cap = %d", cap(got))
	}

	got = EnsureLen(buf, 32)
	if len(got) != 32 {
		t.Fatalf("len = %d, expected 32", len(got))
	}

	got = EnsureLen(buf, 0)
	if len(got) != 0 {
		t.Errorf("len = %d, expected 0", len(got))
	}
}

func TestReverse(t *testing.T) {
	src := []float64{1, 2, 3, 4, 5}
	dst := make([]float64, len(src))

	Reverse(dst, src)

	expected := []float64{5, 4, 3, 2, 1}
	for i := range expected {
		if dst[i] != expected[i] {
			t.Errorf("dst[%d] = %v, expected %v", i, dst[i], expected[i])
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name             string
		value, min, max  float64
		expected         float64
	}{
		{"inside", 0.5, 0, 1, 0.5},
		{"below", -1, 0, 1, 0},
		{"above", 2, 0, 1, 1},
		{"swapped bounds", 0.5, 1, 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Errorf("Clamp(%v, %v, %v) = %v, expected %v", tt.value, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}

func TestDBToLinear(t *testing.T) {
	if got := DBToLinear(0); math.Abs(got-1) > 1e-12 {
		t.Errorf("DBToLinear(0) = %v, expected 1", got)
	}
	if got := DBToLinear(20); math.Abs(got-10) > 1e-9 {
		t.Errorf("DBToLinear(20) = %v, expected 10", got)
	}
	if got := LinearToDB(DBToLinear(6.5)); math.Abs(got-6.5) > 1e-9 {
		t.Errorf("round trip = %v, expected 6.5", got)
	}
}

func TestFlushDenormals(t *testing.T) {
	if got := FlushDenormals(1e-40); got != 0 {
		t.Errorf("expected flush to zero, got %v", got)
	}
	if got := FlushDenormals(0.5); got != 0.5 {
		t.Errorf("expected 0.5 preserved, got %v", got)
	}
}

func TestApplyProcessorOptions(t *testing.T) {
	cfg := ApplyProcessorOptions()
	if cfg.SampleRate != 48000 || cfg.BlockSize != 48 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	cfg = ApplyProcessorOptions(WithSampleRate(44100), WithBlockSize(8))
	if cfg.SampleRate != 44100 || cfg.BlockSize != 8 {
		t.Fatalf("options not applied: %+v", cfg)
	}

	// Invalid values keep defaults.
	cfg = ApplyProcessorOptions(WithSampleRate(-1), WithBlockSize(0))
	if cfg.SampleRate != 48000 || cfg.BlockSize != 48 {
		t.Fatalf("invalid values should be ignored: %+v", cfg)
	}
}
