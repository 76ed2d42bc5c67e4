// Package spectrogram computes a dB-scaled magnitude spectrogram from a
// mono PCM sample buffer using a 1024-point STFT with a hop of 32 samples.
package spectrogram

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/sonicdna/quaddna/internal/ferrors"
)

// Backend selects which FFT implementation computes each frame's spectrum.
type Backend string

const (
	// BackendGoDSP is the default: github.com/mjibson/go-dsp/fft.
	BackendGoDSP Backend = "godsp"
	// BackendScientificGo uses scientificgo.org/fft as an alternative,
	// useful for cross-checking go-dsp's output on irregular window sizes.
	BackendScientificGo Backend = "scientificgo"
)

// Config holds the STFT parameters. SampleRate is informational here; the
// caller is responsible for resampling audio to it before calling Compute.
type Config struct {
	SampleRate int
	NFFT       int
	Hop        int
	Backend    Backend
}

// DefaultConfig matches the numeric constants this pipeline is tuned to.
func DefaultConfig() Config {
	return Config{SampleRate: 7000, NFFT: 1024, Hop: 32, Backend: BackendGoDSP}
}

// Hamming returns a length-n Hamming window.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func fftFrame(frame []float64, backend Backend) ([]complex128, error) {
	switch backend {
	case "", BackendGoDSP:
		return fft.FFTReal(frame), nil
	case BackendScientificGo:
		return scientificGoFFT(frame)
	default:
		return nil, errors.New("spectrogram: unknown FFT backend " + string(backend))
	}
}

func magnitude(spectrum []complex128) []float64 {
	half := len(spectrum)/2 + 1
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// Compute runs the STFT over samples and returns a dB-scaled magnitude
// matrix S[f][t], scaled relative to the clip's peak magnitude (0 dB at the
// loudest bin, negative elsewhere). Returns InputError on empty input or a
// clip shorter than one FFT window.
func Compute(samples []float64, cfg Config) ([][]float64, error) {
	if cfg.NFFT == 0 {
		cfg.NFFT = 1024
	}
	if cfg.Hop == 0 {
		cfg.Hop = 32
	}
	if len(samples) == 0 {
		return nil, &ferrors.InputError{Msg: "empty sample buffer"}
	}
	if len(samples) < cfg.NFFT {
		return nil, &ferrors.InputError{Msg: "clip shorter than one FFT window"}
	}

	window := Hamming(cfg.NFFT)

	nBins := cfg.NFFT/2 + 1
	var frames [][]float64
	peak := 0.0

	for start := 0; start+cfg.NFFT <= len(samples); start += cfg.Hop {
		frame := make([]float64, cfg.NFFT)
		copy(frame, samples[start:start+cfg.NFFT])
		for i := range frame {
			frame[i] *= window[i]
		}

		spectrum, err := fftFrame(frame, cfg.Backend)
		if err != nil {
			return nil, err
		}
		mag := magnitude(spectrum)
		for _, m := range mag {
			if m > peak {
				peak = m
			}
		}
		frames = append(frames, mag)
	}
	if len(frames) == 0 {
		return nil, &ferrors.InputError{Msg: "no complete frames produced"}
	}

	const eps = 1e-10
	if peak < eps {
		peak = eps
	}

	S := make([][]float64, nBins)
	for f := 0; f < nBins; f++ {
		S[f] = make([]float64, len(frames))
		for t, mag := range frames {
			S[f][t] = 20 * math.Log10((mag[f]+eps)/peak)
		}
	}
	return S, nil
}
