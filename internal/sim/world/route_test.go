package world

import (
	"testing"

	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/logic/mathx"
)

func checkSteps(t *testing.T, from model.Point, route []model.Point) {
	t.Helper()
	prev := from
	for _, p := range route {
		if mathx.Chebyshev(prev.X, prev.Y, p.X, p.Y) != 1 {
			t.Fatalf("non-adjacent step %v -> %v in %v", prev, p, route)
		}
		prev = p
	}
}

func TestRouteOpenGroundIsDirect(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	from, to := model.Point{X: 1, Y: 2}, model.Point{X: 9, Y: 6}
	route := f.m.Route(from.X, from.Y, to.X, to.Y, 0)
	if len(route) != mathx.Chebyshev(from.X, from.Y, to.X, to.Y) {
		t.Fatalf("route length %d, want %d: %v", len(route), 8, route)
	}
	if route[len(route)-1] != to {
		t.Fatalf("route ends at %v", route[len(route)-1])
	}
	checkSteps(t, from, route)
	if f.m.Route(3, 3, 3, 3, 0) != nil {
		t.Fatalf("route to self should be empty")
	}
}

func TestRouteAroundObstacle(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	wall := f.ter(t, "t_wall")
	for y := 0; y < 10; y++ {
		f.m.TerSet(6, y, wall)
	}
	from, to := model.Point{X: 2, Y: 2}, model.Point{X: 10, Y: 2}
	route := f.m.Route(from.X, from.Y, to.X, to.Y, 0)
	if len(route) == 0 || route[len(route)-1] != to {
		t.Fatalf("expected a detour, got %v", route)
	}
	checkSteps(t, from, route)
	for _, p := range route {
		if f.m.MoveCost(p.X, p.Y) == 0 {
			t.Fatalf("route crosses impassable %v", p)
		}
	}
	// The gap is at y=10 and y=11, so the detour must reach y >= 10.
	deep := false
	for _, p := range route {
		deep = deep || p.Y >= 10
	}
	if !deep {
		t.Fatalf("route did not pass through the gap: %v", route)
	}
}

func TestRouteBlockedWithoutBash(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	wall := f.ter(t, "t_wall")
	for y := 0; y < 12; y++ {
		f.m.TerSet(6, y, wall)
	}
	if r := f.m.Route(2, 2, 10, 2, 0); len(r) != 0 {
		t.Fatalf("sealed wall should leave no route, got %v", r)
	}
	r := f.m.Route(2, 2, 10, 2, 500)
	if len(r) == 0 {
		t.Fatalf("strong enough basher should route through the wall")
	}
	checkSteps(t, model.Point{X: 2, Y: 2}, r)
	if r := f.m.Route(2, 2, 10, 2, 10); len(r) != 0 {
		t.Fatalf("too weak to bash a concrete wall, got %v", r)
	}
}

func TestRouteOutsideWindowFallsBackToLine(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	if r := f.m.Route(3, 3, 9, 3, 0); len(r) != 0 {
		t.Fatalf("out of window target with no line should be empty: %v", r)
	}
	if r := f.m.Route(7, 3, 8, 3, 0); len(r) != 1 || r[0] != (model.Point{X: 8, Y: 3}) {
		t.Fatalf("adjacent out of window target should use the line: %v", r)
	}
}

func TestDirCircleStartsTowardTarget(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	from := model.Point{X: 3, Y: 3}
	dirs := f.m.DirCircle(from, model.Point{X: 7, Y: 3})
	if dirs[0] != (model.Point{X: 4, Y: 3}) {
		t.Fatalf("first direction %v", dirs[0])
	}
	if dirs[7] != (model.Point{X: 2, Y: 3}) {
		t.Fatalf("last direction %v", dirs[7])
	}
}

func TestZeroConfigBoundsRouteSearch(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	cfg := f.m.Config()
	if cfg.SearchMargin <= 0 || cfg.MaxExpansions <= 0 {
		t.Fatalf("search margin=%d max expansions=%d", cfg.SearchMargin, cfg.MaxExpansions)
	}
}
