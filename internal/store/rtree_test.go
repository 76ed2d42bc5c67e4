package store

import "testing"

func TestRTreeRangeSearchFindsContainedPoints(t *testing.T) {
	tree := NewRTree()
	tree.Insert(
		IndexEntry{HashID: 1, Point: Point{0.5, 0.5, 0.6, 0.6}},
		IndexEntry{HashID: 2, Point: Point{0.1, 0.1, 0.2, 0.2}},
		IndexEntry{HashID: 3, Point: Point{0.9, 0.9, 0.95, 0.95}},
	)

	lo := Point{0.49, 0.49, 0.59, 0.59}
	hi := Point{0.51, 0.51, 0.61, 0.61}
	hits := tree.RangeSearch(lo, hi)
	if len(hits) != 1 || hits[0].HashID != 1 {
		t.Fatalf("expected exactly hash 1, got %+v", hits)
	}
}

func TestRTreeRangeSearchEmptyIndex(t *testing.T) {
	tree := NewRTree()
	hits := tree.RangeSearch(Point{0, 0, 0, 0}, Point{1, 1, 1, 1})
	if len(hits) != 0 {
		t.Fatalf("expected no hits on empty index, got %d", len(hits))
	}
}

func TestRTreeRebuildsAboveLeafCapacity(t *testing.T) {
	tree := NewRTree()
	var entries []IndexEntry
	for i := 0; i < 200; i++ {
		v := float64(i) / 200.0
		entries = append(entries, IndexEntry{HashID: uint64(i), Point: Point{v, v, v, v}})
	}
	tree.Insert(entries...)

	if tree.Len() != 200 {
		t.Fatalf("expected 200 entries, got %d", tree.Len())
	}

	hits := tree.RangeSearch(Point{0.5, 0.5, 0.5, 0.5}, Point{0.505, 0.505, 0.505, 0.505})
	for _, h := range hits {
		for i := 0; i < 4; i++ {
			if h.Point[i] < 0.5 || h.Point[i] > 0.505 {
				t.Fatalf("hit %+v falls outside the query box", h)
			}
		}
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit in the diagonal band")
	}
}

func TestRTreeRemoveDropsEntries(t *testing.T) {
	tree := NewRTree()
	tree.Insert(
		IndexEntry{HashID: 1, Point: Point{0.1, 0.1, 0.1, 0.1}},
		IndexEntry{HashID: 2, Point: Point{0.1, 0.1, 0.1, 0.1}},
	)
	tree.Remove(map[uint64]bool{1: true})
	if tree.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", tree.Len())
	}
	hits := tree.RangeSearch(Point{0, 0, 0, 0}, Point{1, 1, 1, 1})
	if len(hits) != 1 || hits[0].HashID != 2 {
		t.Fatalf("expected only hash 2 to remain, got %+v", hits)
	}
}

func TestNewRTreeFromEntriesPreservesData(t *testing.T) {
	entries := []IndexEntry{
		{HashID: 5, Point: Point{0.2, 0.3, 0.4, 0.5}},
	}
	tree := NewRTreeFromEntries(entries)
	if tree.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", tree.Len())
	}
	hits := tree.RangeSearch(Point{0, 0, 0, 0}, Point{1, 1, 1, 1})
	if len(hits) != 1 || hits[0].HashID != 5 {
		t.Fatalf("expected hash 5 preserved, got %+v", hits)
	}
}
