// Package match turns a query's fingerprints into ranked reference
// candidates: a coarse per-hash geometric filter casts offset/scale votes,
// which are then binned per audio and outlier-trimmed.
package match

import (
	"math"
	"sort"

	"github.com/sonicdna/quaddna/internal/ferrors"
	"github.com/sonicdna/quaddna/internal/fingerprint"
	"github.com/sonicdna/quaddna/internal/store"
	"github.com/sonicdna/quaddna/internal/telemetry"
)

// Config holds the coarse-filter and binning tunables.
type Config struct {
	Tolerance float64 // tol, used to derive lo/hi scale bounds
	EFine     float64 // e_fine, fine pitch-coherence tolerance in bins
	BinWidth  float64 // bw, offset bin width in frames
	MinVotes  int     // Ts, minimum votes retained in a bin
}

// DefaultConfig matches the reference pipeline's numeric constants.
func DefaultConfig() Config {
	return Config{Tolerance: 0.31, EFine: 1.8, BinWidth: 20, MinVotes: 4}
}

// vote is one accepted (offset, sTime, sFreq) triple cast against a single
// reference audio by one query hash.
type vote struct {
	offset float64
	sTime  float64
	sFreq  float64
}

// Candidate is a ranked proposal that a query matches a reference audio at
// a given offset and scale.
type Candidate struct {
	AudioID   uint
	Offset    float64
	NMatches  int
	STime     float64
	SFreq     float64
}

// Run range-searches the store for every query fingerprint, accumulates
// coarse-filter votes per reference audio, bins and outlier-trims them, and
// returns candidates ranked by NMatches descending (ties by AudioID
// ascending).
func Run(st *store.Store, query []fingerprint.Fingerprint, eps float64, cfg Config) ([]Candidate, error) {
	votesByAudio := make(map[uint][]vote)

	for _, q := range query {
		entries, err := st.RangeSearch(q.Hash, eps)
		if err != nil {
			return nil, err
		}
		for _, ref := range entries {
			v, ok := coarseFilter(q.Raw, ref.Raw, cfg)
			if !ok {
				continue
			}
			votesByAudio[ref.AudioID] = append(votesByAudio[ref.AudioID], v)
		}
	}

	var out []Candidate
	for audioID, votes := range votesByAudio {
		out = append(out, bin(audioID, votes, cfg)...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].NMatches != out[j].NMatches {
			return out[i].NMatches > out[j].NMatches
		}
		return out[i].AudioID < out[j].AudioID
	})
	return out, nil
}

// coarseFilter applies the four geometric tests of §4.4. A zero divisor in
// the scale computation (rB.t == rA.t or rB.f == rA.f) is a degenerate-math
// case and is treated as a local skip, not a propagated error.
func coarseFilter(q, ref fingerprint.RawQuad, cfg Config) (vote, bool) {
	lo := 1 / (1 + cfg.Tolerance)
	hi := 1 / (1 - cfg.Tolerance)

	if ref.AF == 0 {
		return vote{}, false
	}
	pitchCoherence := float64(q.AF) / float64(ref.AF)
	if pitchCoherence < lo || pitchCoherence > hi {
		return vote{}, false
	}

	refDT := float64(ref.BT - ref.AT)
	refDF := float64(ref.BF - ref.AF)
	if refDT == 0 || refDF == 0 {
		err := &ferrors.DegenerateMathError{Reason: "reference quad has zero time or frequency span"}
		telemetry.GetLogger().Debugf("coarse filter skip: %v", err)
		return vote{}, false
	}

	sTime := float64(q.BT-q.AT) / refDT
	if sTime < lo || sTime > hi || math.IsNaN(sTime) || math.IsInf(sTime, 0) {
		return vote{}, false
	}

	sFreq := float64(q.BF-q.AF) / refDF
	if sFreq < lo || sFreq > hi || math.IsNaN(sFreq) || math.IsInf(sFreq, 0) {
		return vote{}, false
	}

	if math.Abs(float64(q.AF)-float64(ref.AF)*sFreq) > cfg.EFine {
		return vote{}, false
	}

	offset := float64(ref.AT) - float64(q.AT)*sTime
	return vote{offset: offset, sTime: sTime, sFreq: sFreq}, true
}

// bin groups votes by quantized offset, drops sparse bins, trims outliers
// on the (sTime, sFreq) pair within each surviving bin, and emits a
// candidate per bin that still has enough votes after trimming.
func bin(audioID uint, votes []vote, cfg Config) []Candidate {
	buckets := make(map[int64][]vote)
	for _, v := range votes {
		key := int64(math.Floor(v.offset/cfg.BinWidth)) * int64(cfg.BinWidth)
		buckets[key] = append(buckets[key], v)
	}

	var out []Candidate
	for binOffset, bucket := range buckets {
		if len(bucket) < cfg.MinVotes {
			continue
		}

		trimmed, muT, muF := trimOutliers(bucket)
		if len(trimmed) < cfg.MinVotes {
			continue
		}

		out = append(out, Candidate{
			AudioID:  audioID,
			Offset:   float64(binOffset),
			NMatches: len(trimmed),
			STime:    muT,
			SFreq:    muF,
		})
	}
	return out
}

// trimOutliers computes the componentwise mean/std of a bin's (sTime,
// sFreq) pairs, retains the votes within 2 standard deviations on both
// axes, and returns the retained votes along with the trimmed means.
func trimOutliers(bucket []vote) ([]vote, float64, float64) {
	n := float64(len(bucket))
	var sumT, sumF float64
	for _, v := range bucket {
		sumT += v.sTime
		sumF += v.sFreq
	}
	muT, muF := sumT/n, sumF/n

	var varT, varF float64
	for _, v := range bucket {
		varT += (v.sTime - muT) * (v.sTime - muT)
		varF += (v.sFreq - muF) * (v.sFreq - muF)
	}
	sigT := math.Sqrt(varT / n)
	sigF := math.Sqrt(varF / n)

	var trimmed []vote
	var tSumT, tSumF float64
	for _, v := range bucket {
		if math.Abs(v.sTime-muT) > 2*sigT || math.Abs(v.sFreq-muF) > 2*sigF {
			continue
		}
		trimmed = append(trimmed, v)
		tSumT += v.sTime
		tSumF += v.sFreq
	}
	if len(trimmed) == 0 {
		return trimmed, muT, muF
	}
	tn := float64(len(trimmed))
	return trimmed, tSumT / tn, tSumF / tn
}
