// Package audiodecode turns a WAV file into a mono float64 sample buffer at
// the pipeline's target sample rate. Decoding tries github.com/go-audio/wav
// first, falling back to a hand-rolled RIFF reader for files that decoder
// rejects.
package audiodecode

import (
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/sonicdna/quaddna/internal/ferrors"
)

// TargetSampleRate is the mono sample rate the spectrogram stage expects.
const TargetSampleRate = 7000

// DecodeFile reads a WAV file from disk and returns mono float64 samples in
// [-1, 1], resampled to TargetSampleRate.
func DecodeFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ferrors.InputError{Msg: "opening " + path + ": " + err.Error()}
	}
	defer f.Close()

	samples, sourceRate, err := decodeWithGoAudio(f)
	if err != nil {
		// Fall back to the hand-rolled reader for WAV variants go-audio's
		// decoder does not recognize (e.g. odd extension chunks).
		samples, sourceRate, err = decodeRawRIFF(path)
		if err != nil {
			return nil, &ferrors.InputError{Msg: "decoding " + path + ": " + err.Error()}
		}
	}

	return resample(samples, sourceRate, TargetSampleRate), nil
}

// decodeWithGoAudio reads a mono-folded, normalized float64 buffer using
// go-audio/wav's decoder.
func decodeWithGoAudio(f *os.File) ([]float64, int, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, &ferrors.InputError{Msg: "not a recognized WAV file"}
	}

	var buf *goaudio.IntBuffer
	var err error
	buf, err = dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	numChans := buf.Format.NumChannels
	if numChans == 0 {
		numChans = 1
	}
	scale := float64(int(1) << uint(buf.SourceBitDepth-1))
	if scale == 0 {
		scale = 1 << 15
	}

	frames := len(buf.Data) / numChans
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < numChans; c++ {
			sum += float64(buf.Data[i*numChans+c]) / scale
		}
		out[i] = sum / float64(numChans)
	}

	return out, buf.Format.SampleRate, nil
}

// resample performs linear-interpolation resampling from sourceRate to
// targetRate. A ratio of 1 returns samples unchanged (the same slice).
func resample(samples []float64, sourceRate, targetRate int) []float64 {
	if sourceRate <= 0 || sourceRate == targetRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(sourceRate) / float64(targetRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float64, outLen)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := srcPos - float64(i0)
		out[i] = samples[i0]*(1-frac) + samples[i0+1]*frac
	}
	return out
}
