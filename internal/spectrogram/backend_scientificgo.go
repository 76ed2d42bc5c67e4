package spectrogram

import (
	sgfft "scientificgo.org/fft"
)

// scientificGoFFT adapts scientificgo.org/fft's complex forward transform to
// the []complex128 in/out shape the rest of this package works with. It
// exists as a second real FFT implementation so a caller can cross-check
// go-dsp's output (Config.Backend = BackendScientificGo) rather than trust a
// single FFT library's edge-case behavior.
func scientificGoFFT(frame []float64) ([]complex128, error) {
	in := make([]complex128, len(frame))
	for i, v := range frame {
		in[i] = complex(v, 0)
	}
	out, err := sgfft.Fft(in)
	if err != nil {
		return nil, err
	}
	return out, nil
}
