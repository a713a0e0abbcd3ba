package mathx

import "testing"

func TestFloorDivMod(t *testing.T) {
	cases := []struct{ a, b, q, m int }{
		{0, 12, 0, 0},
		{11, 12, 0, 11},
		{12, 12, 1, 0},
		{-1, 12, -1, 11},
		{-12, 12, -1, 0},
		{-13, 12, -2, 11},
	}
	for _, tc := range cases {
		if got := FloorDiv(tc.a, tc.b); got != tc.q {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", tc.a, tc.b, got, tc.q)
		}
		if got := Mod(tc.a, tc.b); got != tc.m {
			t.Fatalf("Mod(%d,%d)=%d want %d", tc.a, tc.b, got, tc.m)
		}
	}
}

func TestDistances(t *testing.T) {
	if got := Chebyshev(0, 0, 3, -5); got != 5 {
		t.Fatalf("Chebyshev=%d", got)
	}
	if got := Octile(0, 0, 3, -5, 10, 14); got != 3*14+2*10 {
		t.Fatalf("Octile=%d", got)
	}
}

func TestRollRangeAndDeterminism(t *testing.T) {
	for i := 0; i < 200; i++ {
		v := Roll(7, i, -i, 3, 1, 100)
		if v < 1 || v > 100 {
			t.Fatalf("roll out of range: %d", v)
		}
		if v != Roll(7, i, -i, 3, 1, 100) {
			t.Fatalf("roll not deterministic")
		}
	}
	if Roll(1, 0, 0, 0, 5, 5) != 5 {
		t.Fatalf("degenerate range")
	}
}
