package match

import (
	"math"
	"testing"

	"github.com/sonicdna/quaddna/internal/fingerprint"
)

func rawQuad(at, af, bt, bf int) fingerprint.RawQuad {
	return fingerprint.RawQuad{AT: at, AF: af, BT: bt, BF: bf}
}

func TestCoarseFilterSelfMatch(t *testing.T) {
	cfg := DefaultConfig()
	ref := rawQuad(100, 50, 300, 150)
	v, ok := coarseFilter(ref, ref, cfg)
	if !ok {
		t.Fatal("expected identical quad to pass coarse filter")
	}
	if math.Abs(v.sTime-1) > 1e-9 || math.Abs(v.sFreq-1) > 1e-9 {
		t.Fatalf("expected sTime=sFreq=1, got %+v", v)
	}
	if math.Abs(v.offset) > 1e-9 {
		t.Fatalf("expected zero offset for identical quad, got %v", v.offset)
	}
}

func TestCoarseFilterRejectsPitchIncoherence(t *testing.T) {
	cfg := DefaultConfig()
	ref := rawQuad(100, 50, 300, 150)
	q := rawQuad(100, 200, 300, 600) // qA.f/rA.f = 4, outside [1/1.31, 1/0.69]
	if _, ok := coarseFilter(q, ref, cfg); ok {
		t.Fatal("expected pitch-incoherent quad to be rejected")
	}
}

func TestCoarseFilterRejectsDegenerateDivisor(t *testing.T) {
	cfg := DefaultConfig()
	ref := rawQuad(100, 50, 100, 150) // rB.t == rA.t
	q := rawQuad(100, 50, 300, 150)
	if _, ok := coarseFilter(q, ref, cfg); ok {
		t.Fatal("expected degenerate reference quad (zero time divisor) to be silently skipped")
	}
}

func TestCoarseFilterRejectsScaleOutOfTolerance(t *testing.T) {
	cfg := DefaultConfig()
	ref := rawQuad(100, 50, 300, 150)
	q := rawQuad(100, 50, 600, 150) // sTime = (600-100)/(300-100) = 2.5, way outside tolerance
	if _, ok := coarseFilter(q, ref, cfg); ok {
		t.Fatal("expected out-of-tolerance time scale to be rejected")
	}
}

func TestTrimOutliersDropsOutOfBandVotes(t *testing.T) {
	bucket := []vote{
		{offset: 0, sTime: 1.0, sFreq: 1.0},
		{offset: 0, sTime: 1.01, sFreq: 0.99},
		{offset: 0, sTime: 0.99, sFreq: 1.02},
		{offset: 0, sTime: 1.0, sFreq: 1.0},
		{offset: 0, sTime: 1.0, sFreq: 1.0},
		{offset: 0, sTime: 5.0, sFreq: 5.0}, // outlier
	}
	trimmed, muT, muF := trimOutliers(bucket)
	if len(trimmed) != 5 {
		t.Fatalf("expected 5 retained votes after trimming the outlier, got %d", len(trimmed))
	}
	if math.Abs(muT-1) > 0.05 || math.Abs(muF-1) > 0.05 {
		t.Fatalf("expected trimmed means near 1.0, got (%v, %v)", muT, muF)
	}
}

func TestBinDropsSparseBins(t *testing.T) {
	cfg := DefaultConfig()
	votes := []vote{
		{offset: 5, sTime: 1, sFreq: 1},
		{offset: 6, sTime: 1, sFreq: 1},
	}
	cands := bin(1, votes, cfg)
	if len(cands) != 0 {
		t.Fatalf("expected no candidates from a bin below MinVotes, got %d", len(cands))
	}
}

func TestBinEmitsCandidateAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()
	votes := []vote{
		{offset: 100, sTime: 1, sFreq: 1},
		{offset: 101, sTime: 1.01, sFreq: 0.99},
		{offset: 103, sTime: 0.99, sFreq: 1.01},
		{offset: 102, sTime: 1, sFreq: 1},
	}
	cands := bin(7, votes, cfg)
	if len(cands) != 1 {
		t.Fatalf("expected exactly 1 candidate, got %d", len(cands))
	}
	if cands[0].AudioID != 7 {
		t.Fatalf("expected AudioID 7, got %d", cands[0].AudioID)
	}
	if cands[0].NMatches != 4 {
		t.Fatalf("expected 4 matches, got %d", cands[0].NMatches)
	}
}

func TestRankingOrdersByNMatchesThenAudioID(t *testing.T) {
	cands := []Candidate{
		{AudioID: 3, NMatches: 5},
		{AudioID: 1, NMatches: 8},
		{AudioID: 2, NMatches: 8},
	}
	byCount := func(i, j int) bool {
		if cands[i].NMatches != cands[j].NMatches {
			return cands[i].NMatches > cands[j].NMatches
		}
		return cands[i].AudioID < cands[j].AudioID
	}
	// emulate the same comparator Run uses
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			if !byCount(i, j) && byCount(j, i) {
				cands[i], cands[j] = cands[j], cands[i]
			}
		}
	}
	if cands[0].AudioID != 1 || cands[1].AudioID != 2 || cands[2].AudioID != 3 {
		t.Fatalf("unexpected ranking order: %+v", cands)
	}
}
