// Package dsp is the windowed streaming FFT pipeline (spec §4.4). It
// consumes interleaved signed 16-bit I/Q pairs and, once fft_size pairs
// have accumulated, produces one reordered magnitude Frame per call to
// the forward complex FFT primitive — gonum.org/v1/gonum/dsp/fourier,
// the real dependency this spec treats as an out-of-scope external
// collaborator (spec §1, §4.4).
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Frame is one completed FFT frame's retained magnitudes, reordered so
// that Magnitudes is monotonically increasing in absolute frequency
// (spec §4.4's bin-reordering requirement), with the DC bin dropped.
//
// Magnitudes[0] corresponds to baseband offset LowestOffset (the most
// negative offset, -(FFTSize/2)*Resolution); the array then increases by
// Resolution per index, skipping exactly one step across DC (spec §4.4,
// §9: "the bin at a tuning's exact center contributes nothing").
type Frame struct {
	CenterFrequency int64
	Resolution      uint
	FFTSize         int
	Magnitudes      []float64
}

// LowestOffset returns the baseband offset, in Hz, of Magnitudes[0].
func (f Frame) LowestOffset() int64 {
	return -int64(f.FFTSize/2) * int64(f.Resolution)
}

// OffsetIndex maps a baseband offset to its index in a Frame's Magnitudes
// slice. ok is false when offset is exactly 0 (the dropped DC bin) or
// falls outside the frame's range.
func OffsetIndex(fftSize int, resolution uint, offset int64) (idx int, ok bool) {
	if offset == 0 {
		return 0, false
	}
	res := int64(resolution)
	half := fftSize / 2
	if offset < 0 {
		k := offset / res // negative
		i := k + int64(half)
		if i < 0 || i >= int64(half) {
			return 0, false
		}
		return int(i), true
	}
	k := offset / res
	i := int64(half) + k - 1
	if i < int64(half) || i >= int64(fftSize-1) {
		return 0, false
	}
	return int(i), true
}

// Sink receives completed FFT frames. internal/accumulator.Accumulator
// implements this.
type Sink interface {
	Deliver(Frame)
}

// Pipeline holds the FFTState of spec §3: the fill buffer, window table,
// scratch output, and fill index, all owned exclusively by the Scan Loop
// goroutine (spec §5 ownership rule).
type Pipeline struct {
	fftSize    int
	resolution uint
	window     []float64
	fft        *fourier.CmplxFFT

	in        []complex128
	out       []complex128
	fillIndex int

	sink Sink
}

// New builds a Pipeline for the given FFT size and bin resolution. The
// window table is computed once here, matching spec §4.4's "computed
// once at plan time".
func New(fftSize int, resolution uint, sink Sink) *Pipeline {
	return &Pipeline{
		fftSize:    fftSize,
		resolution: resolution,
		window:     HannWindow(fftSize),
		fft:        fourier.NewCmplxFFT(fftSize),
		in:         make([]complex128, fftSize),
		out:        make([]complex128, fftSize),
		sink:       sink,
	}
}

// Push feeds interleaved I/Q pairs into the pipeline, delivering as many
// complete Frames to the Sink as fit in pairs. centerFrequency is the
// tuner's committed frequency for every sample in this block (spec §4.4
// hands current_frequency to the Accumulator alongside each frame).
func (p *Pipeline) Push(pairs []int16, centerFrequency int64) {
	n := len(pairs) / 2
	for i := 0; i < n; i++ {
		iSample := float64(pairs[2*i])
		qSample := float64(pairs[2*i+1])

		c := complex(iSample/32768, qSample/32768)
		w := p.window[p.fillIndex]
		p.in[p.fillIndex] = c * complex(w, 0)
		p.fillIndex++

		if p.fillIndex == p.fftSize {
			p.completeFrame(centerFrequency)
			p.fillIndex = 0
		}
	}
}

func (p *Pipeline) completeFrame(centerFrequency int64) {
	p.fft.Coefficients(p.out, p.in)

	half := p.fftSize / 2
	mags := make([]float64, p.fftSize-1)

	// Negative half: k = half .. fftSize-1, ascending offset.
	for k := half; k < p.fftSize; k++ {
		mags[k-half] = cmplxAbs(p.out[k])
	}
	// Positive half, DC excluded: k = 1 .. half-1, ascending offset.
	for k := 1; k < half; k++ {
		mags[half+k-1] = cmplxAbs(p.out[k])
	}

	if p.sink != nil {
		p.sink.Deliver(Frame{
			CenterFrequency: centerFrequency,
			Resolution:      p.resolution,
			FFTSize:         p.fftSize,
			Magnitudes:      mags,
		})
	}
}

func cmplxAbs(c complex128) float64 {
	re, im := real(c), imag(c)
	return math.Sqrt(re*re + im*im)
}
