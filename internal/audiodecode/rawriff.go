package audiodecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sonicdna/quaddna/internal/ferrors"
)

// pcmFormat holds the format chunk fields needed to interpret a clip's
// sample data.
type pcmFormat struct {
	audioFormat   uint16
	numChannels   uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// rawClip is a decoded RIFF/WAVE file: its format plus raw PCM bytes.
type rawClip struct {
	format pcmFormat
	data   []byte
}

// readRiffHeader reads and validates the 12-byte RIFF/WAVE header.
func readRiffHeader(f *os.File) error {
	var riff [4]byte
	var fileSize uint32
	var wave [4]byte

	if err := binary.Read(f, binary.LittleEndian, &riff); err != nil {
		return fmt.Errorf("reading RIFF header: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &fileSize); err != nil {
		return fmt.Errorf("reading RIFF size: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &wave); err != nil {
		return fmt.Errorf("reading WAVE id: %w", err)
	}

	if string(riff[:]) != "RIFF" || string(wave[:]) != "WAVE" {
		return &ferrors.InputError{Msg: "not a RIFF/WAVE clip"}
	}

	return nil
}

// readFormatChunk reads the fmt chunk and returns the clip's format.
func readFormatChunk(f *os.File, chunkSize uint32) (*pcmFormat, error) {
	var audioFormat uint16
	var numChannels uint16
	var sampleRate uint32
	var byteRate uint32
	var blockAlign uint16
	var bitsPerSample uint16

	if err := binary.Read(f, binary.LittleEndian, &audioFormat); err != nil {
		return nil, fmt.Errorf("reading fmt audioFormat: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &numChannels); err != nil {
		return nil, fmt.Errorf("reading fmt numChannels: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &sampleRate); err != nil {
		return nil, fmt.Errorf("reading fmt sampleRate: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &byteRate); err != nil {
		return nil, fmt.Errorf("reading fmt byteRate: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &blockAlign); err != nil {
		return nil, fmt.Errorf("reading fmt blockAlign: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &bitsPerSample); err != nil {
		return nil, fmt.Errorf("reading fmt bitsPerSample: %w", err)
	}

	// Skip any extra bytes in the fmt chunk (e.g. a cbSize field).
	remaining := int(chunkSize) - 16
	if remaining > 0 {
		if _, err := f.Seek(int64(remaining), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("seeking past fmt extras: %w", err)
		}
	}

	return &pcmFormat{
		audioFormat:   audioFormat,
		numChannels:   numChannels,
		sampleRate:    sampleRate,
		bitsPerSample: bitsPerSample,
	}, nil
}

// readSampleChunk reads the data chunk's raw PCM bytes.
func readSampleChunk(f *os.File, chunkSize uint32) ([]byte, error) {
	chunk := make([]byte, chunkSize)
	if _, err := io.ReadFull(f, chunk); err != nil {
		return nil, fmt.Errorf("reading data chunk: %w", err)
	}
	return chunk, nil
}

// skipUnknownChunk skips over a chunk this decoder doesn't interpret.
func skipUnknownChunk(f *os.File, chunkSize uint32) error {
	_, err := f.Seek(int64(chunkSize), io.SeekCurrent)
	return err
}

// scanRiffChunks walks a clip's chunk list looking for fmt and data.
func scanRiffChunks(f *os.File) (*rawClip, error) {
	var format pcmFormat
	var sampleData []byte
	fmtFound := false
	dataFound := false

	for {
		var chunkID [4]byte
		var chunkSize uint32

		if err := binary.Read(f, binary.LittleEndian, &chunkID); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}
		if err := binary.Read(f, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("reading chunk size: %w", err)
		}

		id := string(chunkID[:])

		switch id {
		case "fmt ":
			f2, err := readFormatChunk(f, chunkSize)
			if err != nil {
				return nil, err
			}
			format = *f2
			fmtFound = true

		case "data":
			data, err := readSampleChunk(f, chunkSize)
			if err != nil {
				return nil, err
			}
			sampleData = data
			dataFound = true

		default:
			// Unknown chunk (e.g. LIST, INFO, junk). Skip it.
			if err := skipUnknownChunk(f, chunkSize); err != nil {
				return nil, fmt.Errorf("skipping chunk %s: %w", id, err)
			}
		}

		if chunkSize%2 == 1 {
			if _, err := f.Seek(1, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("seeking pad byte: %w", err)
			}
		}

		if fmtFound && dataFound {
			break
		}
	}

	if !fmtFound {
		return nil, &ferrors.InputError{Msg: "fmt chunk not found"}
	}
	if !dataFound {
		return nil, &ferrors.InputError{Msg: "data chunk not found"}
	}

	return &rawClip{format: format, data: sampleData}, nil
}

// decodeInt16Samples interprets raw bytes as little-endian int16 PCM.
func decodeInt16Samples(data []byte) ([]int16, error) {
	sampleCount := len(data) / 2
	samples := make([]int16, sampleCount)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("decoding PCM samples: %w", err)
	}
	return samples, nil
}

// foldMonoSamples normalizes mono int16 samples to float64.
func foldMonoSamples(samples []int16, scale float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) * scale
	}
	return out
}

// foldStereoSamples averages interleaved stereo channels down to mono.
func foldStereoSamples(samples []int16, scale float64) []float64 {
	frames := len(samples) / 2
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := float64(samples[2*i]) * scale
		r := float64(samples[2*i+1]) * scale
		out[i] = (l + r) * 0.5
	}
	return out
}

// foldToMono normalizes int16 samples to mono float64 in [-1, 1].
func foldToMono(samples []int16, numChannels uint16) ([]float64, error) {
	const scale = 1.0 / 32768.0 // 16-bit PCM full scale

	switch numChannels {
	case 1:
		return foldMonoSamples(samples, scale), nil
	case 2:
		return foldStereoSamples(samples, scale), nil
	default:
		return nil, &ferrors.InputError{Msg: "unsupported channel count: only mono/stereo supported"}
	}
}

// decodeRawRIFF reads a 16-bit PCM WAV file by hand, without assuming a
// canonical 44-byte header, and returns mono float64 samples in [-1, 1]
// plus the source sample rate. This is audiodecode's fallback path for
// clips go-audio/wav's decoder rejects.
func decodeRawRIFF(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	if err := readRiffHeader(f); err != nil {
		return nil, 0, err
	}

	clip, err := scanRiffChunks(f)
	if err != nil {
		return nil, 0, err
	}

	if clip.format.audioFormat != 1 {
		return nil, 0, &ferrors.InputError{Msg: "unsupported WAV audio format: only PCM (1) supported"}
	}
	if clip.format.bitsPerSample != 16 {
		return nil, 0, &ferrors.InputError{Msg: "unsupported bits per sample: only 16-bit supported"}
	}

	int16Samples, err := decodeInt16Samples(clip.data)
	if err != nil {
		return nil, 0, err
	}

	monoSamples, err := foldToMono(int16Samples, clip.format.numChannels)
	if err != nil {
		return nil, 0, err
	}

	return monoSamples, int(clip.format.sampleRate), nil
}
