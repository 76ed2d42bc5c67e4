package store

import "sort"

// Point is a 4-D hash coordinate (cx, cy, dx, dy).
type Point [4]float64

// IndexEntry is one leaf of the spatial index: a point plus the hash_id
// that row corresponds to in the durable Hashes/Quads tables.
type IndexEntry struct {
	HashID uint64
	Point  Point
}

// leafCapacity bounds how many points a leaf node holds before the tree is
// partitioned one level deeper.
const leafCapacity = 16

type kdNode struct {
	items []IndexEntry // non-nil only for leaves

	dim         int
	split       float64
	left, right *kdNode
}

// RTree is the 4-D spatial index over quad hashes described in §4.3: an
// axis-aligned range query returns every indexed hash inside a query box.
// It is realized here as a bulk-rebuilt k-d tree rather than a classical
// dynamic R-tree with node splitting: the store only ever adds a whole
// ingest's worth of points at once and never deletes a single point without
// deleting its whole audio record, so a full rebuild per ingest is the
// simpler structure that satisfies the same range-query contract (see
// DESIGN.md).
type RTree struct {
	root *kdNode
	all  []IndexEntry
}

// NewRTree returns an empty index.
func NewRTree() *RTree {
	return &RTree{}
}

// NewRTreeFromEntries builds an index over a pre-existing entry set, used
// when restoring from a persisted snapshot.
func NewRTreeFromEntries(entries []IndexEntry) *RTree {
	t := &RTree{all: append([]IndexEntry(nil), entries...)}
	t.root = buildKD(t.all, 0)
	return t
}

// Insert adds entries to the index and rebuilds it.
func (t *RTree) Insert(entries ...IndexEntry) {
	t.all = append(t.all, entries...)
	t.root = buildKD(t.all, 0)
}

// Remove drops every entry whose HashID is in ids and rebuilds the index.
func (t *RTree) Remove(ids map[uint64]bool) {
	kept := t.all[:0]
	for _, e := range t.all {
		if !ids[e.HashID] {
			kept = append(kept, e)
		}
	}
	t.all = append([]IndexEntry(nil), kept...)
	t.root = buildKD(t.all, 0)
}

// Entries returns the full backing entry set, for persistence.
func (t *RTree) Entries() []IndexEntry {
	return t.all
}

// Len reports how many points the index currently holds.
func (t *RTree) Len() int {
	return len(t.all)
}

func buildKD(items []IndexEntry, depth int) *kdNode {
	if len(items) == 0 {
		return nil
	}
	if len(items) <= leafCapacity {
		leaf := make([]IndexEntry, len(items))
		copy(leaf, items)
		return &kdNode{items: leaf}
	}

	dim := depth % 4
	sorted := make([]IndexEntry, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Point[dim] < sorted[j].Point[dim] })

	mid := len(sorted) / 2
	return &kdNode{
		dim:   dim,
		split: sorted[mid].Point[dim],
		left:  buildKD(sorted[:mid], depth+1),
		right: buildKD(sorted[mid:], depth+1),
	}
}

// RangeSearch returns every indexed point p with lo[i] <= p[i] <= hi[i] for
// every dimension i.
func (t *RTree) RangeSearch(lo, hi Point) []IndexEntry {
	if t.root == nil {
		return nil
	}
	var out []IndexEntry
	var walk func(n *kdNode)
	walk = func(n *kdNode) {
		if n == nil {
			return
		}
		if n.items != nil {
			for _, it := range n.items {
				if inBox(it.Point, lo, hi) {
					out = append(out, it)
				}
			}
			return
		}
		if lo[n.dim] <= n.split {
			walk(n.left)
		}
		if hi[n.dim] >= n.split {
			walk(n.right)
		}
	}
	walk(t.root)
	return out
}

func inBox(p, lo, hi Point) bool {
	for i := 0; i < 4; i++ {
		if p[i] < lo[i] || p[i] > hi[i] {
			return false
		}
	}
	return true
}
