package audio

import (
	"math"
)

const fftSize = 2048

// ----- Analyser ----- //

// analyser keeps the last fftSize output samples for spectrum reports.
type analyser struct {
	fft     *fft
	history []float64 // ring buffer, length: fftSize
	pos     int
	result  []float64
}

func newAnalyser() *analyser {
	return &analyser{
		fft:     newFFT(fftSize),
		history: make([]float64, fftSize),
		result:  make([]float64, fftSize),
	}
}

func (a *analyser) write(out []float64) {
	for _, v := range out {
		a.history[a.pos] = v
		a.pos = (a.pos + 1) % fftSize
	}
}

// spectrum returns the magnitudes of bins 0..fftSize/2, oldest sample first.
// The returned slice is reused by the next call.
func (a *analyser) spectrum() []float64 {
	// history: | 4 | 1 | 2 | 3 |
	// pos:         ^
	// result:  | 1 | 2 | 3 | 4 |
	copy(a.result, a.history[a.pos:])
	copy(a.result[fftSize-a.pos:], a.history[:a.pos])
	han(a.result)
	a.fft.calcAbs(a.result)
	for i, value := range a.result {
		a.result[i] = value * 2 / fftSize
	}
	return a.result[:fftSize/2]
}

func han(data []float64) {
	n := len(data)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		data[i] *= 0.5 - 0.5*math.Cos(2.0*math.Pi*x)
	}
}
