package pathing

import (
	"testing"

	"tilesim.dev/internal/sim/world/logic/mathx"
)

type testMap struct {
	w, h  int
	walls map[Pos]bool
}

func (m testMap) grid() Grid {
	return Grid{
		InBounds: func(x, y int) bool { return x >= 0 && y >= 0 && x < m.w && y < m.h },
		MoveCost: func(x, y int) int {
			if m.walls[Pos{X: x, Y: y}] {
				return 0
			}
			return 2
		},
		BashRating: func(str, x, y int) int {
			if str >= 5 {
				return 5
			}
			return 0
		},
	}
}

func routeCost(from Pos, route []Pos) int {
	total := 0
	prev := from
	for _, p := range route {
		if p.X != prev.X && p.Y != prev.Y {
			total += 2 * 14
		} else {
			total += 2 * 10
		}
		prev = p
	}
	return total
}

func TestRouteUniformIsOctileOptimal(t *testing.T) {
	m := testMap{w: 20, h: 20}
	from, to := Pos{X: 2, Y: 2}, Pos{X: 9, Y: 5}
	r := Route(m.grid(), from, to, Options{MinCost: 2})
	if len(r) != mathx.Chebyshev(from.X, from.Y, to.X, to.Y) {
		t.Fatalf("steps=%d want %d", len(r), mathx.Chebyshev(from.X, from.Y, to.X, to.Y))
	}
	if r[len(r)-1] != to {
		t.Fatalf("route ends at %+v", r[len(r)-1])
	}
	if got, want := routeCost(from, r), mathx.Octile(from.X, from.Y, to.X, to.Y, 20, 28); got != want {
		t.Fatalf("cost=%d want %d", got, want)
	}
}

func TestRouteWallWithoutGap(t *testing.T) {
	walls := map[Pos]bool{}
	for y := 0; y < 10; y++ {
		walls[Pos{X: 5, Y: y}] = true
	}
	m := testMap{w: 10, h: 10, walls: walls}
	if r := Route(m.grid(), Pos{X: 2, Y: 2}, Pos{X: 8, Y: 2}, Options{}); r != nil {
		t.Fatalf("expected no route, got %v", r)
	}
	r := Route(m.grid(), Pos{X: 2, Y: 2}, Pos{X: 8, Y: 2}, Options{Bash: 6, BashPenalty: 20})
	if r == nil {
		t.Fatalf("bashing should open a route")
	}
	crossed := false
	for _, p := range r {
		if p.X == 5 {
			crossed = true
		}
	}
	if !crossed {
		t.Fatalf("route should cross the wall: %v", r)
	}
	if r := Route(m.grid(), Pos{X: 2, Y: 2}, Pos{X: 8, Y: 2}, Options{Bash: 3}); r != nil {
		t.Fatalf("weak bash should not open a route")
	}
}

func TestRouteDetoursThroughGap(t *testing.T) {
	walls := map[Pos]bool{}
	for y := 0; y < 20; y++ {
		if y != 15 {
			walls[Pos{X: 5, Y: y}] = true
		}
	}
	m := testMap{w: 12, h: 20, walls: walls}
	from, to := Pos{X: 2, Y: 2}, Pos{X: 8, Y: 2}
	r := Route(m.grid(), from, to, Options{})
	if r == nil {
		t.Fatalf("expected detour")
	}
	for _, p := range r {
		if walls[p] {
			t.Fatalf("route enters wall at %+v", p)
		}
	}
	if r := Route(m.grid(), from, to, Options{Box: BoxAround(from, to, 3)}); r != nil {
		t.Fatalf("search box should exclude the gap")
	}
	if r := Route(m.grid(), from, to, Options{MaxExpansions: 5}); r != nil {
		t.Fatalf("expansion budget should stop the search")
	}
}

func TestRouteOntoSolidTarget(t *testing.T) {
	m := testMap{w: 10, h: 10, walls: map[Pos]bool{{X: 6, Y: 6}: true}}
	r := Route(m.grid(), Pos{X: 1, Y: 1}, Pos{X: 6, Y: 6}, Options{})
	if len(r) != 5 || r[4] != (Pos{X: 6, Y: 6}) {
		t.Fatalf("route=%v", r)
	}
}

func TestDirCircle(t *testing.T) {
	c := DirCircle(Pos{X: 5, Y: 5}, Pos{X: 9, Y: 5})
	if c[0] != (Pos{X: 1, Y: 0}) {
		t.Fatalf("first=%+v", c[0])
	}
	if c[7] != (Pos{X: -1, Y: 0}) {
		t.Fatalf("last=%+v", c[7])
	}
	seen := map[Pos]bool{}
	for _, d := range c {
		seen[d] = true
	}
	if len(seen) != 8 {
		t.Fatalf("directions repeat: %v", c)
	}
}
