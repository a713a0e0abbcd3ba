package world

import (
	"testing"

	"tilesim.dev/internal/sim/world/kernel/model"
)

func TestMoveCostTerrainAndFurniture(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	f.m.TerSet(1, 1, f.ter(t, "t_wall"))
	f.m.FurnSet(2, 1, f.furn(t, "f_chair"))
	f.m.FurnSet(3, 1, f.furn(t, "f_locker"))
	if got := f.m.MoveCost(0, 0); got != 2 {
		t.Fatalf("dirt cost %d", got)
	}
	if f.m.Passable(1, 1) {
		t.Fatalf("wall is impassable")
	}
	if got := f.m.MoveCost(2, 1); got != 3 {
		t.Fatalf("chair adds to terrain cost, got %d", got)
	}
	if got := f.m.MoveCost(3, 1); got != 0 {
		t.Fatalf("locker blocks, got %d", got)
	}
	if got := f.m.CombinedMoveCost(0, 0, 2, 1); got != 2 {
		t.Fatalf("combined cost %d", got)
	}
	if !f.m.CanPutItems(3, 1) {
		t.Fatalf("containers hold items even when impassable")
	}
	if f.m.CanPutItems(1, 1) {
		t.Fatalf("walls hold no items")
	}
}

func TestBashAndDestroy(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	window := f.ter(t, "t_window")
	f.m.TerSet(2, 2, window)

	if got := f.m.BashRating(1, 2, 2); got != 0 {
		t.Fatalf("rating below resistance = %d", got)
	}
	if got := f.m.BashRating(100, 2, 2); got != 10 {
		t.Fatalf("rating above strength = %d", got)
	}
	if got := f.m.BashRating(100, 0, 0); got != -1 {
		t.Fatalf("dirt is not bashable, got %d", got)
	}
	if smashed, ok := f.m.Bash(2, 2, 1); !smashed || ok {
		t.Fatalf("weak bash should hit without breaking")
	}
	if smashed, ok := f.m.Bash(2, 2, 100); !smashed || !ok {
		t.Fatalf("strong bash should break the window")
	}
	if f.m.TerName(2, 2) != "t_window_frame" {
		t.Fatalf("window became %s", f.m.TerName(2, 2))
	}

	f.m.TerSet(5, 5, f.ter(t, "t_wall"))
	f.m.FurnSet(5, 5, f.furn(t, "f_table"))
	if n := f.m.Destroy(5, 5); n != 2 {
		t.Fatalf("destroy broke %d things, want furniture then wall", n)
	}
	if f.m.HasFurn(5, 5) || f.m.TerName(5, 5) != "t_rock_floor" {
		t.Fatalf("after destroy: %s / %s", f.m.TerName(5, 5), f.m.FurnName(5, 5))
	}
}

func TestDoors(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	f.m.TerSet(3, 3, f.ter(t, "t_door_c"))
	f.m.TerSet(4, 3, f.ter(t, "t_door_locked"))
	if f.m.Transparent(3, 3) {
		t.Fatalf("closed door blocks sight")
	}
	if !f.m.OpenDoor(3, 3) || f.m.TerName(3, 3) != "t_door_o" {
		t.Fatalf("door did not open")
	}
	if !f.m.Transparent(3, 3) || !f.m.Passable(3, 3) {
		t.Fatalf("open door should be transparent and passable")
	}
	if f.m.OpenDoor(4, 3) {
		t.Fatalf("locked door opened")
	}
	f.m.AddItem(3, 3, model.Item{Type: "rock"})
	if f.m.CloseDoor(3, 3) {
		t.Fatalf("door closed on an item")
	}
	f.m.ClearItems(3, 3)
	if !f.m.CloseDoor(3, 3) || f.m.TerName(3, 3) != "t_door_c" {
		t.Fatalf("door did not close")
	}
}

func TestTrapIndexFollowsShift(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	pit := id(t, f.cat.Traps.ID, "tr_pit")
	f.m.AddTrap(5, 1, pit)
	f.m.AddTrap(1, 1, pit)
	if got := f.m.TrapLocations(pit); len(got) != 2 {
		t.Fatalf("trap index %v", got)
	}
	if err := f.m.Shift(1, 0); err != nil {
		t.Fatalf("shift: %v", err)
	}
	got := f.m.TrapLocations(pit)
	if len(got) != 1 || got[0] != (model.Point{X: 1, Y: 1}) {
		t.Fatalf("after shift trap index %v", got)
	}
	if f.m.TrapAt(1, 1) != pit {
		t.Fatalf("trap cell lost")
	}
	if err := f.m.Shift(-1, 0); err != nil {
		t.Fatalf("shift: %v", err)
	}
	if len(f.m.TrapLocations(pit)) != 2 || f.m.TrapAt(1, 1) != pit {
		t.Fatalf("trap reloaded from store not indexed: %v", f.m.TrapLocations(pit))
	}
	f.m.DisarmTrap(1, 1)
	if len(f.m.TrapLocations(pit)) != 1 || f.m.TrapAt(1, 1) != 0 {
		t.Fatalf("disarm left trap behind")
	}
}

func TestCreatureOnTrap(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	f.m.AddTrap(2, 2, id(t, f.cat.Traps.ID, "tr_beartrap"))
	c := newCreature(f.m.AbsTripoint(2, 2))
	if !f.m.CreatureOnTrap(c, true) || c.trapHits != 1 {
		t.Fatalf("trap did not fire")
	}
	c.avoid = true
	if f.m.CreatureOnTrap(c, true) {
		t.Fatalf("avoiding creature triggered the trap")
	}
	if !f.m.CreatureOnTrap(c, false) || c.trapHits != 2 {
		t.Fatalf("unavoidable trap did not fire")
	}
}

func TestCellAnnotations(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	f.m.SetGraffiti(1, 2, "hi")
	f.m.SetSignage(6, 6, "exit")
	if f.m.Graffiti(1, 2) != "hi" || f.m.Signage(6, 6) != "exit" {
		t.Fatalf("annotations lost")
	}
	f.m.DeleteGraffiti(1, 2)
	if f.m.Graffiti(1, 2) != "" {
		t.Fatalf("graffiti not deleted")
	}
	if !f.m.AddComputer(5, 1, "terminal", 3) || f.m.ComputerAt(5, 1) == nil || f.m.ComputerAt(5, 2) != nil {
		t.Fatalf("computer placement")
	}
	if !f.m.AddCamp(2, 6, "base") || f.m.CampAt(2, 6).Name != "base" {
		t.Fatalf("camp placement")
	}
	f.m.AdjustRadiation(3, 3, -100)
	if f.m.Radiation(3, 3) != 0 {
		t.Fatalf("radiation went negative")
	}
	f.m.SetTemperature(0, 0, 30)
	if f.m.Temperature(3, 3) != 30 || f.m.Temperature(4, 0) == 30 {
		t.Fatalf("temperature is per chunk")
	}
}

func TestTranslateTerrain(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	dirt, grass := f.ter(t, "t_dirt"), f.ter(t, "t_grass")
	if n := f.m.Translate(dirt, grass); n != 64 {
		t.Fatalf("translated %d cells", n)
	}
	if f.m.Ter(7, 7) != grass {
		t.Fatalf("translate missed a cell")
	}
}

func TestOutsideUnderRoof(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	f.m.TerSet(4, 4, f.ter(t, "t_floor"))
	if f.m.Outside(4, 4) || f.m.Outside(5, 5) {
		t.Fatalf("indoor floor should roof itself and its neighbors")
	}
	if !f.m.Outside(7, 7) {
		t.Fatalf("open ground is outside")
	}
}
