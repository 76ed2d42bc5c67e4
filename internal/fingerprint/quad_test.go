package fingerprint

import (
	"math"
	"testing"

	"github.com/sonicdna/quaddna/internal/peaks"
)

func zeroSpectrogram(nF, nT int) [][]float64 {
	S := make([][]float64, nF)
	for f := range S {
		S[f] = make([]float64, nT)
	}
	return S
}

func TestGenerateSingleValidQuad(t *testing.T) {
	cfg := DefaultConfig()
	pks := []peaks.Peak{
		{T: 0, F: 10},
		{T: 700, F: 20},
		{T: 900, F: 30},
		{T: 1100, F: 40},
	}
	S := zeroSpectrogram(64, 1200)

	fps := Generate(S, pks, cfg)
	if len(fps) != 1 {
		t.Fatalf("expected exactly one fingerprint, got %d: %+v", len(fps), fps)
	}

	fp := fps[0]
	if fp.Raw != (RawQuad{AT: 0, AF: 10, BT: 1100, BF: 40}) {
		t.Fatalf("unexpected raw quad: %+v", fp.Raw)
	}

	wantCx := round3(700.0 / 1100.0)
	wantCy := round3(10.0 / 30.0)
	wantDx := round3(900.0 / 1100.0)
	wantDy := round3(20.0 / 30.0)
	if fp.Hash != (Hash{Cx: wantCx, Cy: wantCy, Dx: wantDx, Dy: wantDy}) {
		t.Fatalf("unexpected hash: got %+v want {%v %v %v %v}", fp.Hash, wantCx, wantCy, wantDx, wantDy)
	}
}

func TestGenerateHashBounds(t *testing.T) {
	cfg := DefaultConfig()
	pks := []peaks.Peak{
		{T: 0, F: 10},
		{T: 650, F: 15},
		{T: 800, F: 25},
		{T: 950, F: 35},
		{T: 1200, F: 50},
	}
	S := zeroSpectrogram(64, 1300)

	fps := Generate(S, pks, cfg)
	for _, fp := range fps {
		h := fp.Hash
		if h.Cx > h.Dx {
			t.Fatalf("expected Cx <= Dx, got %+v", h)
		}
		if h.Cy < 0 || h.Cy > 1+1e-3 || h.Dy < 0 || h.Dy > 1+1e-3 {
			t.Fatalf("hash component out of bounds: %+v", h)
		}
		if fp.Raw.BT <= fp.Raw.AT || fp.Raw.BF <= fp.Raw.AF {
			t.Fatalf("raw quad strictness violated: %+v", fp.Raw)
		}
	}
}

func TestGenerateNoPeaksYieldsNothing(t *testing.T) {
	if got := Generate(nil, nil, DefaultConfig()); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestGenerateRespectsQuadsPerSecondCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QuadsPerSecond = 2

	var pks []peaks.Peak
	pks = append(pks, peaks.Peak{T: 0, F: 5})
	// Many candidate (C, D, B) triples within the same one-second bucket as A.
	for i := 0; i < 6; i++ {
		base := 700 + i*10
		pks = append(pks,
			peaks.Peak{T: base, F: 10 + i},
			peaks.Peak{T: base + 50, F: 20 + i},
			peaks.Peak{T: base + 100, F: 30 + i},
		)
	}
	S := zeroSpectrogram(128, 2000)
	for f := range S {
		for tIdx := range S[f] {
			S[f][tIdx] = float64(f + tIdx) // vary strength deterministically
		}
	}

	fps := Generate(S, pks, cfg)
	if len(fps) > cfg.QuadsPerSecond {
		t.Fatalf("expected at most %d fingerprints from one bucket, got %d", cfg.QuadsPerSecond, len(fps))
	}
}

func TestRound3(t *testing.T) {
	if got := round3(0.123456); math.Abs(got-0.123) > 1e-12 {
		t.Fatalf("round3(0.123456) = %v, want 0.123", got)
	}
	if got := round3(0.9995); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("round3(0.9995) = %v, want 1.0", got)
	}
}
