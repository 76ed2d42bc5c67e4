// Package peaks extracts spectral peaks from a magnitude spectrogram using
// 2-D morphological max/min filtering: a point is a peak when it equals
// the local max and exceeds the local min over its neighborhood.
package peaks

import (
	"math"
	"sort"
)

// Peak is a local spectral maximum that is not also a local minimum.
type Peak struct {
	T int // time frame index
	F int // frequency bin index
}

// Config holds the structuring-element sizes for the max and min filters.
type Config struct {
	MaxH int
	MaxW int
	MinH int
	MinW int
}

// DefaultConfig matches the reference peak-picker's filter sizes.
func DefaultConfig() Config {
	return Config{MaxH: 75, MaxW: 150, MinH: 3, MinW: 3}
}

// Extract returns peaks sorted ascending by T, ties broken by F. S is
// indexed S[f][t]: rows are frequency bins, columns are time frames.
func Extract(S [][]float64, cfg Config) []Peak {
	if len(S) == 0 || len(S[0]) == 0 {
		return nil
	}

	maxFiltered := boxFilter(S, cfg.MaxH, cfg.MaxW, true)
	minFiltered := boxFilter(S, cfg.MinH, cfg.MinW, false)

	var out []Peak
	for f := range S {
		row := S[f]
		for t := range row {
			v := row[t]
			if v == maxFiltered[f][t] && v != minFiltered[f][t] {
				out = append(out, Peak{T: t, F: f})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].T != out[j].T {
			return out[i].T < out[j].T
		}
		return out[i].F < out[j].F
	})
	return out
}

// boxFilter computes a rectangular max or min filter over S. A box filter
// is separable: the extreme over a height x width rectangle equals the
// extreme, along one axis, of the per-row extremes along the other axis.
func boxFilter(S [][]float64, height, width int, wantMax bool) [][]float64 {
	nF := len(S)
	nT := len(S[0])

	rowFiltered := make([][]float64, nF)
	for f := 0; f < nF; f++ {
		rowFiltered[f] = slidingExtreme(S[f], width, wantMax)
	}

	out := make([][]float64, nF)
	for f := range out {
		out[f] = make([]float64, nT)
	}

	col := make([]float64, nF)
	for t := 0; t < nT; t++ {
		for f := 0; f < nF; f++ {
			col[f] = rowFiltered[f][t]
		}
		filteredCol := slidingExtreme(col, height, wantMax)
		for f := 0; f < nF; f++ {
			out[f][t] = filteredCol[f]
		}
	}
	return out
}

// slidingExtreme computes, for every position, the max (or min) over a
// window of the given size centered on that position, using a monotonic
// deque so the whole pass is O(len(x)) regardless of window size. Edges
// are handled by padding with a sentinel that can never win the
// comparison, which shrinks the effective window near the boundaries
// instead of pulling in out-of-range values.
func slidingExtreme(x []float64, size int, wantMax bool) []float64 {
	n := len(x)
	if size <= 1 {
		out := make([]float64, n)
		copy(out, x)
		return out
	}

	sentinel := math.Inf(-1)
	better := func(a, b float64) bool { return a > b }
	if !wantMax {
		sentinel = math.Inf(1)
		better = func(a, b float64) bool { return a < b }
	}

	before := size / 2
	after := size - 1 - before
	padded := make([]float64, n+before+after)
	for i := range padded {
		padded[i] = sentinel
	}
	copy(padded[before:], x)

	type item struct {
		idx int
		val float64
	}
	deque := make([]item, 0, len(padded))
	out := make([]float64, n)

	for i, v := range padded {
		for len(deque) > 0 && better(v, deque[len(deque)-1].val) {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, item{idx: i, val: v})
		for deque[0].idx <= i-size {
			deque = deque[1:]
		}

		outIdx := i - (size - 1)
		if outIdx >= 0 && outIdx < n {
			out[outIdx] = deque[0].val
		}
	}
	return out
}
