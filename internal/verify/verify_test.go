package verify

import (
	"math"
	"testing"

	"github.com/sonicdna/quaddna/internal/peaks"
)

func TestHasNeighbourFindsExactMatch(t *testing.T) {
	qp := []peaks.Peak{{T: 10, F: 20}, {T: 50, F: 60}, {T: 100, F: 5}}
	times := []int{10, 50, 100}
	if !hasNeighbour(qp, times, 50, 60, 18, 12) {
		t.Fatal("expected an exact coordinate match to be found")
	}
}

func TestHasNeighbourRespectsTolerance(t *testing.T) {
	qp := []peaks.Peak{{T: 50, F: 60}}
	times := []int{50}
	if !hasNeighbour(qp, times, 65, 68, 18, 12) {
		t.Fatal("expected a peak within tolerance to be found")
	}
	if hasNeighbour(qp, times, 90, 60, 18, 12) {
		t.Fatal("expected a peak outside time tolerance to be rejected")
	}
	if hasNeighbour(qp, times, 50, 80, 18, 12) {
		t.Fatal("expected a peak outside frequency tolerance to be rejected")
	}
}

func TestHasNeighbourEmptyQuery(t *testing.T) {
	if hasNeighbour(nil, nil, 0, 0, 18, 12) {
		t.Fatal("expected no neighbour in an empty query peak set")
	}
}

func TestVScoreSelfMatchIsOne(t *testing.T) {
	// Emulates the coincidence count loop in Candidate with sTime=sFreq=1
	// and offset=0, the self-match law from the testable-properties scenarios.
	refPeaks := []peaks.Peak{{T: 10, F: 20}, {T: 50, F: 60}, {T: 100, F: 5}}
	queryPeaks := refPeaks
	times := make([]int, len(queryPeaks))
	for i, p := range queryPeaks {
		times[i] = p.T
	}

	validated := 0
	for _, p := range refPeaks {
		rT := float64(p.T) / 1.0
		rF := float64(p.F) / 1.0
		if hasNeighbour(queryPeaks, times, rT, rF, 18, 12) {
			validated++
		}
	}
	vScore := float64(validated) / float64(len(refPeaks))
	if math.Abs(vScore-1.0) > 1e-9 {
		t.Fatalf("expected vScore=1.0 for an exact self-match, got %v", vScore)
	}
}
