package convolve_test

import (
	"fmt"

	"github.com/cwbudde/algo-cabsim/dsp/convolve"
)

func ExampleEngine() {
	engine, err := convolve.NewEngine(convolve.MaxKernelLength)
	if err != nil {
		panic(err)
	}

	// A three-tap kernel; an impulse reproduces it on the output.
	err = engine.LoadKernel([]float64{0.5, 0.25, 0.125})
	if err != nil {
		panic(err)
	}

	input := []float64{1, 0, 0, 0}
	for _, x := range input {
		fmt.Printf("%.3f\n", engine.ProcessSample(x))
	}

	// Output:
	// 0.500
	// 0.250
	// 0.125
	// 0.000
}
