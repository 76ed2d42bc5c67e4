package peaks

import "testing"

func flatSpectrogram(nF, nT int, fill float64) [][]float64 {
	S := make([][]float64, nF)
	for f := range S {
		S[f] = make([]float64, nT)
		for t := range S[f] {
			S[f][t] = fill
		}
	}
	return S
}

func TestExtractFlatRegionHasNoPeaks(t *testing.T) {
	S := flatSpectrogram(20, 20, 1.0)
	got := Extract(S, Config{MaxH: 5, MaxW: 5, MinH: 3, MinW: 3})
	if len(got) != 0 {
		t.Fatalf("expected no peaks on a flat spectrogram, got %d", len(got))
	}
}

func TestExtractSingleSpikeIsAPeak(t *testing.T) {
	S := flatSpectrogram(20, 20, 1.0)
	S[10][10] = 100.0

	got := Extract(S, Config{MaxH: 5, MaxW: 5, MinH: 3, MinW: 3})
	found := false
	for _, p := range got {
		if p.F == 10 && p.T == 10 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected spike at (f=10,t=10) to be detected, got %v", got)
	}
}

func TestExtractSortedByTimeThenFrequency(t *testing.T) {
	S := flatSpectrogram(30, 30, 1.0)
	S[5][3] = 50
	S[20][3] = 60
	S[2][15] = 70

	got := Extract(S, Config{MaxH: 5, MaxW: 5, MinH: 3, MinW: 3})
	for i := 1; i < len(got); i++ {
		if got[i].T < got[i-1].T {
			t.Fatalf("peaks not sorted by time: %v", got)
		}
		if got[i].T == got[i-1].T && got[i].F < got[i-1].F {
			t.Fatalf("peaks with equal time not sorted by frequency: %v", got)
		}
	}
}

func TestExtractEmptySpectrogram(t *testing.T) {
	if got := Extract(nil, DefaultConfig()); got != nil {
		t.Fatalf("expected nil for empty spectrogram, got %v", got)
	}
	if got := Extract([][]float64{{}}, DefaultConfig()); got != nil {
		t.Fatalf("expected nil for zero-width spectrogram, got %v", got)
	}
}

func TestSlidingExtremeMaxMatchesBruteForce(t *testing.T) {
	x := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	size := 4
	got := slidingExtreme(x, size, true)

	before := size / 2
	after := size - 1 - before
	for i := range x {
		lo := i - before
		hi := i + after
		if lo < 0 {
			lo = 0
		}
		if hi > len(x)-1 {
			hi = len(x) - 1
		}
		want := x[lo]
		for j := lo; j <= hi; j++ {
			if x[j] > want {
				want = x[j]
			}
		}
		if got[i] != want {
			t.Fatalf("slidingExtreme max mismatch at %d: got %v want %v", i, got[i], want)
		}
	}
}

func TestSlidingExtremeMinMatchesBruteForce(t *testing.T) {
	x := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	size := 5
	got := slidingExtreme(x, size, false)

	before := size / 2
	after := size - 1 - before
	for i := range x {
		lo := i - before
		hi := i + after
		if lo < 0 {
			lo = 0
		}
		if hi > len(x)-1 {
			hi = len(x) - 1
		}
		want := x[lo]
		for j := lo; j <= hi; j++ {
			if x[j] < want {
				want = x[j]
			}
		}
		if got[i] != want {
			t.Fatalf("slidingExtreme min mismatch at %d: got %v want %v", i, got[i], want)
		}
	}
}
