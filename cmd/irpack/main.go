// Command irpack converts WAV impulse responses to an IRPK catalog file
// for the cabinet simulator.
//
// Usage:
//
//	irpack -o cabinets.irpk [flags] ir1.wav [ir2.wav ...]
//
// Each WAV becomes one catalog entry, identified by its base file name.
// Stereo files are mixed down to mono. Impulse responses longer than the
// engine capacity (170 ms at 48 kHz) are truncated with a warning.
//
// Examples:
//
//	irpack -o cabinets.irpk irs/*.wav
//	irpack -o cabinets.irpk -rate 48000 marshall_4x12.wav fender_1x12.wav
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/wav"

	"github.com/cwbudde/algo-cabsim/dsp/convolve"
	"github.com/cwbudde/algo-cabsim/ir"
)

func main() {
	var (
		output     = flag.String("o", "", "output catalog file (required)")
		sampleRate = flag.Int("rate", 48000, "required WAV sample rate")
	)

	flag.Parse()

	if *output == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: irpack -o <catalog.irpk> [flags] <file.wav> ...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if flag.NArg() > ir.MaxCatalogEntries {
		fmt.Fprintf(os.Stderr, "irpack: %d files exceed the catalog limit of %d\n", flag.NArg(), ir.MaxCatalogEntries)
		os.Exit(1)
	}

	kernels := make([]ir.Kernel, 0, flag.NArg())

	for _, path := range flag.Args() {
		kernel, err := loadWAV(path, *sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "irpack: %s: %v\n", path, err)
			os.Exit(1)
		}

		fmt.Printf("%-30s %6d taps\n", kernel.ID, len(kernel.Taps))
		kernels = append(kernels, kernel)
	}

	catalog, err := ir.NewCatalog(kernels...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "irpack: %v\n", err)
		os.Exit(1)
	}

	err = ir.WriteCatalogFile(*output, catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "irpack: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d entries to %s\n", catalog.Len(), *output)
}

// loadWAV reads one impulse response, mixing channels down to mono and
// truncating to the engine capacity.
func loadWAV(path string, wantRate int) (ir.Kernel, error) {
	f, err := os.Open(path)
	if err != nil {
		return ir.Kernel{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return ir.Kernel{}, fmt.Errorf("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return ir.Kernel{}, fmt.Errorf("decoding: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return ir.Kernel{}, fmt.Errorf("empty or malformed WAV buffer")
	}

	if buf.Format.SampleRate != wantRate {
		return ir.Kernel{}, fmt.Errorf("sample rate %d, expected %d", buf.Format.SampleRate, wantRate)
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	if frames == 0 {
		return ir.Kernel{}, fmt.Errorf("no audio frames")
	}

	if frames > convolve.MaxKernelLength {
		fmt.Fprintf(os.Stderr, "irpack: %s: truncating %d frames to %d\n", path, frames, convolve.MaxKernelLength)
		frames = convolve.MaxKernelLength
	}

	taps := make([]float64, frames)
	scale := 1 / float64(channels)
	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += float64(buf.Data[i*channels+ch])
		}
		taps[i] = sum * scale
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return ir.Kernel{ID: id, Taps: taps}, nil
}
