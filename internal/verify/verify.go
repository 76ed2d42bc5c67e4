// Package verify performs the peak-level verification pass over a match
// candidate: reference peaks in an offset window are translated, rescaled,
// and checked against the query's peaks within spatial tolerance, producing
// a coincidence-count vScore.
package verify

import (
	"math"
	"sort"

	"github.com/sonicdna/quaddna/internal/match"
	"github.com/sonicdna/quaddna/internal/peaks"
	"github.com/sonicdna/quaddna/internal/store"
)

// Config holds the verifier's window width and spatial tolerances.
type Config struct {
	Window float64 // W, frames
	EX     float64 // e_X, time tolerance in frames
	EY     float64 // e_Y, frequency tolerance in bins
}

// DefaultConfig matches the reference pipeline's numeric constants.
func DefaultConfig() Config {
	return Config{Window: 3750, EX: 18, EY: 12}
}

// Result is the outcome of verifying one candidate.
type Result struct {
	AudioID  uint
	Offset   float64
	NMatches int
	VScore   float64
}

// Candidate verifies mc against the reference peaks held in st, comparing
// them to queryPeaks (which must be time-sorted, as returned by the peaks
// package).
func Candidate(st *store.Store, mc match.Candidate, queryPeaks []peaks.Peak, cfg Config) (Result, error) {
	refPeaks, err := st.PeaksInWindow(mc.AudioID, int(mc.Offset), int(mc.Offset+cfg.Window))
	if err != nil {
		return Result{}, err
	}

	if len(refPeaks) == 0 {
		return Result{AudioID: mc.AudioID, Offset: mc.Offset, NMatches: mc.NMatches, VScore: 0}, nil
	}

	times := make([]int, len(queryPeaks))
	for i, p := range queryPeaks {
		times[i] = p.T
	}

	validated := 0
	for _, p := range refPeaks {
		// translate
		tT := float64(p.T) - mc.Offset
		tF := float64(p.F)

		// rescale: the source swaps sTime/sFreq between the two axes here;
		// this inversion is preserved deliberately (see DESIGN.md).
		rT := tT / mc.SFreq
		rF := tF / mc.STime

		if hasNeighbour(queryPeaks, times, rT, rF, cfg.EX, cfg.EY) {
			validated++
		}
	}

	return Result{
		AudioID:  mc.AudioID,
		Offset:   mc.Offset,
		NMatches: mc.NMatches,
		VScore:   float64(validated) / float64(len(refPeaks)),
	}, nil
}

// hasNeighbour reports whether any query peak lies within [rT-eX, rT+eX] x
// [rF-eY, rF+eY]. queryPeaks is time-sorted; times holds its T values for
// binary-searching the window bounds before scanning F.
func hasNeighbour(queryPeaks []peaks.Peak, times []int, rT, rF, eX, eY float64) bool {
	loT := int(math.Ceil(rT - eX))
	hiT := int(math.Floor(rT + eX))
	if hiT < loT {
		return false
	}
	lo := sort.SearchInts(times, loT)
	hi := sort.SearchInts(times, hiT+1)
	for _, p := range queryPeaks[lo:hi] {
		if math.Abs(float64(p.T)-rT) <= eX && math.Abs(float64(p.F)-rF) <= eY {
			return true
		}
	}
	return false
}
