package store

import "testing"

func TestContentDigestOrderIndependent(t *testing.T) {
	a := []HashRow{
		{AX: 1, AY: 2, BX: 3, BY: 4},
		{AX: 5, AY: 6, BX: 7, BY: 8},
	}
	b := []HashRow{a[1], a[0]}

	da := contentDigest(a)
	db := contentDigest(b)
	if da != db {
		t.Fatal("expected content digest to be independent of row order")
	}
}

func TestContentDigestDiffersOnDifferentContent(t *testing.T) {
	a := []HashRow{{AX: 1, AY: 2, BX: 3, BY: 4}}
	b := []HashRow{{AX: 1, AY: 2, BX: 3, BY: 5}}
	if contentDigest(a) == contentDigest(b) {
		t.Fatal("expected different raw quads to digest differently")
	}
}
