package spectrogram

import (
	"image"
	"image/draw"

	eligwz "github.com/eligwz/spectrogram"
)

// DumpImage renders samples as a PNG spectrogram image for visual
// inspection. It does not feed the numeric pipeline, Compute does;
// this exists purely so an operator can eyeball what the peak extractor saw.
func DumpImage(samples []float64, sampleRate int, outPath string, width, height int) error {
	img := eligwz.NewImage128(image.Rect(0, 0, width, height))

	black := eligwz.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	eligwz.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(height),
		false, // use Hamming window, not a rectangular one
		false, // FFT, not a direct DFT
		true,  // magnitude
		false, // linear scale; Compute already applies its own dB scaling
	)

	return eligwz.SavePng(img, outPath)
}
