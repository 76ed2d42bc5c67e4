// Package fingerprint groups spectral peaks into geometry-normalized
// 4-peak "quads" and emits the (hash, raw-coordinate) pairs the spatial
// index stores.
package fingerprint

import (
	"math"
	"sort"

	"github.com/sonicdna/quaddna/internal/peaks"
)

// Hash is the normalized geometry descriptor of a quad, each component
// rounded to 3 decimal places.
type Hash struct {
	Cx, Cy, Dx, Dy float64
}

// RawQuad retains the integer root (A) and outer (B) peak coordinates
// alongside the hash, for later metric reconstruction.
type RawQuad struct {
	AT, AF, BT, BF int
}

// Fingerprint is one emitted (hash, raw) pair.
type Fingerprint struct {
	Hash Hash
	Raw  RawQuad
}

// Config holds the tunables from which target-zone bounds are derived.
type Config struct {
	FPS            float64
	TZWidth        float64
	TZCenter       float64
	Tolerance      float64
	QuadsPerSecond int
}

// DefaultConfig matches the reference pipeline's numeric constants.
func DefaultConfig() Config {
	return Config{FPS: 219, TZWidth: 1, TZCenter: 4, Tolerance: 0.31, QuadsPerSecond: 9}
}

func (c Config) minDF() float64 {
	return (c.TZCenter - c.TZWidth/2) * c.FPS / (1 + c.Tolerance)
}

func (c Config) maxDF() float64 {
	return (c.TZCenter + c.TZWidth/2) * c.FPS / (1 - c.Tolerance)
}

type candidate struct {
	aIdx, cIdx, dIdx, bIdx int
	strength                float64
}

// Generate enumerates quads over pks (which must be time-sorted, as
// returned by the peaks package), keeps the QuadsPerSecond strongest valid
// quads per one-second partition of the anchor's time, and emits their
// (hash, raw) pairs after the degenerate-hash emission filter. S is the
// dB-scaled magnitude matrix the peaks were extracted from, indexed
// S[f][t], used to score quad strength.
func Generate(S [][]float64, pks []peaks.Peak, cfg Config) []Fingerprint {
	if len(pks) == 0 {
		return nil
	}

	minDF := cfg.minDF()
	maxDF := cfg.maxDF()

	times := make([]int, len(pks))
	for i, p := range pks {
		times[i] = p.T
	}

	buckets := make(map[int64][]candidate)

	for i, a := range pks {
		loT := a.T + int(math.Ceil(minDF))
		hiT := a.T + int(math.Floor(maxDF))
		if hiT < loT {
			continue
		}
		lo := sort.SearchInts(times, loT)
		hi := sort.SearchInts(times, hiT+1)
		zone := pks[lo:hi]
		if len(zone) < 3 {
			continue
		}

		bucketKey := int64(math.Floor(float64(a.T) / cfg.FPS))

		for ci := 0; ci < len(zone)-2; ci++ {
			c := zone[ci]
			if c.F <= a.F {
				continue
			}
			for di := ci + 1; di < len(zone)-1; di++ {
				d := zone[di]
				if d.T <= c.T || d.F <= c.F {
					continue
				}
				for bi := di + 1; bi < len(zone); bi++ {
					b := zone[bi]
					if b.T <= d.T || b.F <= d.F {
						continue
					}
					strength := S[c.F][c.T] + S[d.F][d.T]
					buckets[bucketKey] = append(buckets[bucketKey], candidate{
						aIdx: i, cIdx: lo + ci, dIdx: lo + di, bIdx: lo + bi,
						strength: strength,
					})
				}
			}
		}
	}

	var keys []int64
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	lo := minDF / maxDF

	var out []Fingerprint
	for _, k := range keys {
		cands := buckets[k]
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].strength > cands[j].strength })
		if len(cands) > cfg.QuadsPerSecond {
			cands = cands[:cfg.QuadsPerSecond]
		}
		for _, cnd := range cands {
			a, c, d, b := pks[cnd.aIdx], pks[cnd.cIdx], pks[cnd.dIdx], pks[cnd.bIdx]
			fp, ok := buildFingerprint(a, c, d, b, lo)
			if ok {
				out = append(out, fp)
			}
		}
	}
	return out
}

// buildFingerprint normalizes quad (A,C,D,B) into a hash and applies the
// emission filter that prunes near-degenerate quantized coordinates.
func buildFingerprint(a, c, d, b peaks.Peak, emissionFloor float64) (Fingerprint, bool) {
	dx := float64(b.T - a.T)
	dy := float64(b.F - a.F)
	if dx == 0 || dy == 0 {
		return Fingerprint{}, false
	}

	cx := round3(float64(c.T-a.T) / dx)
	cy := round3(float64(c.F-a.F) / dy)
	dxh := round3(float64(d.T-a.T) / dx)
	dyh := round3(float64(d.F-a.F) / dy)

	if cx <= emissionFloor-0.02 {
		return Fingerprint{}, false
	}

	return Fingerprint{
		Hash: Hash{Cx: cx, Cy: cy, Dx: dxh, Dy: dyh},
		Raw:  RawQuad{AT: a.T, AF: a.F, BT: b.T, BF: b.F},
	}, true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
