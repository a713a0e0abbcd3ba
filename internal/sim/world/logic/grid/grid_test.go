package grid

import "testing"

func TestBoundsAreSafe(t *testing.T) {
	g := New[int](3, 2)
	g.Set(5, 5, 9)
	g.Set(-1, 0, 9)
	if g.At(5, 5) != 0 || g.At(-1, 0) != 0 {
		t.Fatalf("out of bounds read should be zero")
	}
	if g.Ptr(3, 0) != nil {
		t.Fatalf("out of bounds ptr should be nil")
	}
	g.Set(2, 1, 4)
	if g.At(2, 1) != 4 {
		t.Fatalf("in bounds write lost")
	}
}

func TestTranslateRoundTrip(t *testing.T) {
	g := New[int](4, 4)
	g.Each(func(x, y int, _ int) { g.Set(x, y, x+10*y) })
	g.Translate(1, 0, -1)
	if g.At(0, 0) != 1 || g.At(3, 0) != -1 {
		t.Fatalf("translate mismatch: %d %d", g.At(0, 0), g.At(3, 0))
	}
	g.Translate(-1, 2, -1)
	if g.At(0, 0) != -1 || g.At(1, 0) != 20 {
		t.Fatalf("second translate mismatch: %d %d", g.At(0, 0), g.At(1, 0))
	}
}

func TestCachedRebuildsOnlyWhenInvalid(t *testing.T) {
	n := 0
	c := NewCached(0, func(v *int) { n++; *v = n })
	if c.Get() != 1 || c.Get() != 1 {
		t.Fatalf("cached value should be stable")
	}
	c.Invalidate()
	if c.Valid() {
		t.Fatalf("invalidate did not clear validity")
	}
	if c.Get() != 2 || c.Builds() != 2 {
		t.Fatalf("expected one rebuild after invalidate, builds=%d", c.Builds())
	}
}
