package world

import (
	"testing"

	"tilesim.dev/internal/sim/world/kernel/model"
)

func TestTickTrapsOnlyWhenMoving(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	roster := &model.Roster{}
	f.m.SetCreatures(roster)
	c := newCreature(f.m.AbsTripoint(1, 1))
	roster.Add(c)
	f.m.AddTrap(2, 1, id(t, f.cat.Traps.ID, "tr_bubblewrap"))

	f.m.Tick(1)
	if c.trapHits != 0 {
		t.Fatalf("no trap under the creature yet")
	}
	c.SetPos(f.m.AbsTripoint(2, 1))
	if rep := f.m.Tick(2); rep.TrapsTriggered != 1 || c.trapHits != 1 {
		t.Fatalf("stepping on the trap should trigger it: %+v", rep)
	}
	f.m.Tick(3)
	if c.trapHits != 1 {
		t.Fatalf("standing still retriggered the trap")
	}
}

func TestTickAppliesFields(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	roster := &model.Roster{}
	f.m.SetCreatures(roster)
	c := newCreature(f.m.AbsTripoint(3, 3))
	roster.Add(c)
	f.m.AddField(3, 3, f.field(t, "fd_blood"), 1, 0)
	rep := f.m.Tick(1)
	if c.fieldHits["fd_blood"] != 1 {
		t.Fatalf("field not applied: %v", c.fieldHits)
	}
	if st := rep.Fields["fd_blood"]; st.Count != 1 || st.Density != 1 {
		t.Fatalf("field totals %+v", rep.Fields)
	}
}

func TestActiveItemsAndSignals(t *testing.T) {
	f := newFixture(t, nil, 2, 4)
	hook := &stubHook{keepActive: true}
	f.m.SetItemHook(hook)
	f.m.AddItem(1, 1, model.Item{Type: "flashlight_on", Active: true, Charges: 5})
	f.m.AddItem(1, 1, model.Item{Type: "rock"})
	f.m.AddItem(6, 6, model.Item{Type: "radio_bomb"})

	if rep := f.m.Tick(1); rep.ItemsProcessed != 1 || hook.processed != 1 {
		t.Fatalf("active item not processed: %+v", rep)
	}
	if items := f.m.ItemsAt(1, 1); items[0].Charges != 4 {
		t.Fatalf("hook changes should stick: %+v", items)
	}
	hook.keepActive = false
	f.m.Tick(2)
	if items := f.m.ItemsAt(1, 1); len(items) != 1 || items[0].Type != "rock" {
		t.Fatalf("rejected active item should be removed: %+v", items)
	}

	if n := f.m.TriggerSignal("RADIOSIGNAL_2"); n != 0 {
		t.Fatalf("wrong signal reached %d items", n)
	}
	if n := f.m.TriggerSignal("RADIOSIGNAL_1"); n != 1 || len(hook.signals) != 1 {
		t.Fatalf("signal reached %d items", n)
	}
	if len(f.m.ItemsAt(6, 6)) != 0 {
		t.Fatalf("triggered bomb should be gone")
	}
}

func TestVehiclesListing(t *testing.T) {
	f := newFixture(t, nil, 3, 4)
	v := testCar()
	f.m.AddVehicle(v, 4, 4)
	got := f.m.Vehicles()
	if len(got) != 1 || got[0].ID != v.ID || got[0].X != 4 || got[0].Parts != 5 {
		t.Fatalf("listing %+v", got)
	}
}
