package world

import (
	"testing"

	"tilesim.dev/internal/sim/world/kernel/model"
)

func TestSeenCacheOcclusion(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	f.m.TerSet(4, 5, f.ter(t, "t_wall"))
	f.m.BuildSeenCache(1, 5, 20)

	for _, p := range [][2]int{{1, 5}, {3, 5}, {4, 5}, {1, 1}, {1, 10}, {6, 1}} {
		if !f.m.Seen(p[0], p[1]) {
			t.Fatalf("%v should be seen", p)
		}
	}
	for _, p := range [][2]int{{6, 5}, {9, 5}, {11, 5}} {
		if f.m.Seen(p[0], p[1]) {
			t.Fatalf("%v is behind the wall", p)
		}
	}
}

func TestSeenCacheFollowsTerrainChanges(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	f.m.BuildSeenCache(1, 5, 20)
	if !f.m.Seen(8, 5) {
		t.Fatalf("open ground should be seen")
	}
	f.m.TerSet(4, 5, f.ter(t, "t_wall"))
	if f.m.Seen(8, 5) {
		t.Fatalf("seen cache not rebuilt after placing a wall")
	}
}

func TestSmokeBlocksSight(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	smoke := f.field(t, "fd_smoke")
	if _, ok := f.m.Sees(1, 5, 8, 5, -1); !ok {
		t.Fatalf("clear line expected")
	}
	f.m.AddField(4, 5, smoke, 3, 0)
	if f.m.Transparent(4, 5) {
		t.Fatalf("dense smoke should be opaque")
	}
	f.m.SetFieldDensity(4, 5, smoke, 1)
	if !f.m.Transparent(4, 5) {
		t.Fatalf("thin smoke should not block sight")
	}
}

func TestSeesAndClearPath(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	wall := f.ter(t, "t_wall")
	for y := 0; y < 12; y++ {
		f.m.TerSet(6, y, wall)
	}
	if _, ok := f.m.Sees(1, 5, 10, 5, -1); ok {
		t.Fatalf("wall should block the line")
	}
	if _, ok := f.m.Sees(1, 5, 6, 5, -1); !ok {
		t.Fatalf("the wall itself can be seen")
	}
	if _, ok := f.m.Sees(1, 1, 5, 5, 3); ok {
		t.Fatalf("target beyond range")
	}

	f.m.TerSet(3, 3, f.ter(t, "t_water_sh"))
	slope, ok := f.m.Sees(1, 3, 5, 3, -1)
	if !ok {
		t.Fatalf("water is transparent")
	}
	if _, ok := f.m.ClearPath(1, 3, 5, 3, -1, 2, 2); ok {
		t.Fatalf("clear path must respect the cost band")
	}
	pts := f.m.LineTo(1, 3, 5, 3, slope)
	if len(pts) != 4 || pts[len(pts)-1].X != 5 || pts[len(pts)-1].Y != 3 {
		t.Fatalf("LineTo = %v", pts)
	}
}

func TestSealedCellsAreNotAccessible(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	f.m.FurnSet(3, 3, f.furn(t, "f_crate_c"))
	f.m.FurnSet(5, 3, f.furn(t, "f_barrel"))
	if f.m.AccessibleItems(2, 3, 3, 3, 5) {
		t.Fatalf("closed crate contents are sealed")
	}
	if !f.m.AccessibleItems(3, 3, 3, 3, 5) {
		t.Fatalf("own cell is always accessible")
	}
	if !f.m.AccessibleItems(4, 3, 5, 3, 5) {
		t.Fatalf("liquid containers stay accessible")
	}
	if f.m.AccessibleFurniture(4, 3, 5, 3, 5) {
		t.Fatalf("sealed furniture is not accessible")
	}
	if !f.m.AccessibleFurniture(1, 1, 2, 2, 5) {
		t.Fatalf("open ground is accessible")
	}
}

func TestLightLevels(t *testing.T) {
	f := newFixture(t, nil, 3, 8)
	if f.m.LightAt(2, 2) != Dark {
		t.Fatalf("no sources means dark")
	}
	f.m.AddLightSource(2, 2, 100)
	cases := []struct {
		x, y int
		want LitLevel
	}{
		{2, 2, Bright},
		{5, 2, Bright},
		{7, 2, Lit},
		{11, 2, Low},
		{22, 2, Dark},
	}
	for _, c := range cases {
		if got := f.m.LightAt(c.x, c.y); got != c.want {
			t.Fatalf("LightAt(%d,%d) = %v want %v", c.x, c.y, got, c.want)
		}
	}

	f.m.TerSet(4, 2, f.ter(t, "t_wall"))
	if got := f.m.LightAt(7, 2); got != Dark {
		t.Fatalf("light leaked through a wall: %v", got)
	}
	f.m.ClearLightSources()
	if got := f.m.LightAt(2, 2); got != Dark {
		t.Fatalf("cleared source still lights: %v", got)
	}
}

func TestFireAndItemsEmitLight(t *testing.T) {
	f := newFixture(t, nil, 2, 8)
	f.m.AddField(3, 3, f.field(t, "fd_fire"), 1, 0)
	if f.m.LightAt(3, 3) != Bright {
		t.Fatalf("fire cell should be bright")
	}
	f.m.AddItem(12, 12, model.Item{Type: "flashlight_on", Active: true})
	if f.m.LightAt(12, 12) != Bright {
		t.Fatalf("active flashlight should light its cell")
	}
}

func TestPlSeesNeedsLight(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	f.m.BuildMapCache(1, 1, 20)
	if !f.m.PlSees(2, 2, 20) {
		t.Fatalf("adjacent cells are seen in the dark")
	}
	if f.m.PlSees(6, 6, 20) {
		t.Fatalf("dark distant cells are not seen")
	}
	f.m.AddLightSource(6, 6, 50)
	if !f.m.PlSees(6, 6, 20) {
		t.Fatalf("lit cell in view should be seen")
	}
	if f.m.PlSees(6, 6, 3) {
		t.Fatalf("range limits sight")
	}
}
