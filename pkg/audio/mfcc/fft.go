package mfcc

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrNotPowerOfTwo is returned when a transform input length is not a
// power of two.
var ErrNotPowerOfTwo = errors.New("mfcc: input length is not a power of two")

// FFT computes radix-2 decimation-in-time transforms of real input.
//
// The recursion works on preallocated scratch slices, one per recursion
// depth, plus a twiddle table for the top-level size. An FFT is not safe
// for concurrent use; create one per goroutine.
type FFT struct {
	n       int
	twiddle []complex128   // exp(-2πik/n) for k < n/2
	scratch [][]complex128 // scratch[d] has length n>>d
}

// NewFFT returns an FFT prepared for inputs of length n.
func NewFFT(n int) (*FFT, error) {
	f := &FFT{}
	if err := f.init(n); err != nil {
		return nil, err
	}
	return f, nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func (f *FFT) init(n int) error {
	if !isPowerOfTwo(n) {
		return fmt.Errorf("%w: %d", ErrNotPowerOfTwo, n)
	}
	f.n = n
	f.twiddle = make([]complex128, n/2)
	for k := range f.twiddle {
		f.twiddle[k] = cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
	}
	f.scratch = f.scratch[:0]
	for m := n; m > 1; m /= 2 {
		f.scratch = append(f.scratch, make([]complex128, m))
	}
	return nil
}

// Size returns the input length the scratch space is sized for.
func (f *FFT) Size() int {
	return f.n
}

// Transform returns the complex spectrum of x. The output has the same
// length as x. No window or scaling is applied. If len(x) differs from
// the prepared size the scratch space is rebuilt.
func (f *FFT) Transform(x []float64) ([]complex128, error) {
	if len(x) != f.n {
		if err := f.init(len(x)); err != nil {
			return nil, err
		}
	}
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = complex(v, 0)
	}
	f.transform(out, 0)
	return out, nil
}

// transform replaces x with its DFT. len(x) == f.n>>depth.
func (f *FFT) transform(x []complex128, depth int) {
	n := len(x)
	if n == 1 {
		return
	}
	half := n / 2
	tmp := f.scratch[depth]
	even, odd := tmp[:half], tmp[half:]
	for k := 0; k < half; k++ {
		even[k] = x[2*k]
		odd[k] = x[2*k+1]
	}
	f.transform(even, depth+1)
	f.transform(odd, depth+1)

	step := f.n / n
	for k := 0; k < half; k++ {
		t := f.twiddle[k*step] * odd[k]
		x[k] = even[k] + t
		x[k+half] = even[k] - t
	}
}

// Transform computes the spectrum of x with a one-off FFT.
func Transform(x []float64) ([]complex128, error) {
	f, err := NewFFT(len(x))
	if err != nil {
		return nil, err
	}
	return f.Transform(x)
}

// Energies maps each bin to its squared magnitude.
func Energies(spectrum []complex128) []float64 {
	out := make([]float64, len(spectrum))
	for i, c := range spectrum {
		out[i] = real(c)*real(c) + imag(c)*imag(c)
	}
	return out
}
