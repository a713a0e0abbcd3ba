package world

import (
	"sort"

	"tilesim.dev/internal/persistence/snapshot"
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/terrain/store"
)

type FieldStat struct {
	Count   int `json:"count"`
	Density int `json:"density"`
}

type TickReport struct {
	Turn            int64                `json:"turn"`
	Fields          map[string]FieldStat `json:"fields"`
	FieldsProcessed int                  `json:"fields_processed"`
	VehiclesMoved   int                  `json:"vehicles_moved"`
	Collisions      int                  `json:"collisions"`
	ItemsProcessed  int                  `json:"items_processed"`
	TrapsTriggered  int                  `json:"traps_triggered"`
}

// Tick advances the window by one turn: fields, vehicles, creatures standing
// in fields or stepping onto traps, then active items.
func (m *Map) Tick(turn int64) TickReport {
	rep := TickReport{Turn: turn}
	if !m.loaded {
		return rep
	}
	m.turn = turn

	rep.FieldsProcessed = m.ProcessFields()
	rep.VehiclesMoved, rep.Collisions = m.VehMove()
	rep.TrapsTriggered = m.applyToCreatures()
	rep.ItemsProcessed = m.ProcessActiveItems(turn)
	rep.Fields = m.FieldTotals()
	return rep
}

// applyToCreatures applies fields to every creature and traps to those that
// moved since the last tick on foot.
func (m *Map) applyToCreatures() int {
	if m.creatures == nil {
		return 0
	}
	riders := map[model.Creature]bool{}
	m.eachChunk(func(_, _ int, ch *store.Chunk) {
		for _, v := range ch.Vehicles {
			for _, c := range v.Passengers() {
				riders[c] = true
			}
		}
	})

	triggered := 0
	alive := map[model.Creature]bool{}
	for _, c := range m.creatures.All() {
		alive[c] = true
		m.CreatureInField(c)
		pos := c.Pos()
		last, seen := m.lastPos[c]
		m.lastPos[c] = pos
		if riders[c] || (seen && last == pos) {
			continue
		}
		if m.CreatureOnTrap(c, true) {
			triggered++
		}
	}
	for c := range m.lastPos {
		if !alive[c] {
			delete(m.lastPos, c)
		}
	}
	return triggered
}

// ProcessActiveItems runs the item hook on every active item in the window.
// Items the hook rejects are removed.
func (m *Map) ProcessActiveItems(turn int64) int {
	if m.itemHook == nil {
		return 0
	}
	n := 0
	m.eachItem(func(ch *store.Chunk, cell, j int, p model.Tripoint) bool {
		it := &ch.Items[cell][j]
		if !it.Active {
			return true
		}
		n++
		return m.itemHook.ProcessActive(it, p, turn)
	})
	if n > 0 {
		m.lightmap.Invalidate()
	}
	return n
}

// TriggerSignal delivers signal to every item listening for it and returns
// how many received it.
func (m *Map) TriggerSignal(signal string) int {
	if m.itemHook == nil || signal == "" {
		return 0
	}
	n := 0
	m.eachItem(func(ch *store.Chunk, cell, j int, p model.Tripoint) bool {
		it := &ch.Items[cell][j]
		def, ok := m.itemDef(*it)
		if !ok || def.Signal != signal {
			return true
		}
		n++
		return m.itemHook.Signal(it, p, signal)
	})
	if n > 0 {
		m.invalidateCaches()
	}
	return n
}

// eachItem visits every item on the active layer. Returning false from fn
// removes the item.
func (m *Map) eachItem(fn func(ch *store.Chunk, cell, j int, p model.Tripoint) bool) {
	m.eachChunk(func(gx, gy int, ch *store.Chunk) {
		for cell := range ch.Items {
			if len(ch.Items[cell]) == 0 {
				continue
			}
			lx, ly := ch.Cell(cell)
			p := m.AbsTripoint(gx*m.n+lx, gy*m.n+ly)
			for j := len(ch.Items[cell]) - 1; j >= 0; j-- {
				if !fn(ch, cell, j, p) {
					ch.Items[cell] = append(ch.Items[cell][:j], ch.Items[cell][j+1:]...)
				}
			}
		}
	})
}

// FieldTotals is the entry count and summed density per field id on the
// active layer.
func (m *Map) FieldTotals() map[string]FieldStat {
	out := map[string]FieldStat{}
	m.eachChunk(func(_, _ int, ch *store.Chunk) {
		if ch.FieldCount == 0 {
			return
		}
		for _, fs := range ch.Fields {
			for _, f := range fs {
				id := m.cat.Fields.Name(f.Type)
				st := out[id]
				st.Count++
				st.Density += f.Density
				out[id] = st
			}
		}
	})
	return out
}

type VehicleInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	Facing   int    `json:"facing"`
	Velocity int    `json:"velocity"`
	Parts    int    `json:"parts"`
}

// Vehicles describes every vehicle owned by the active layer in absolute
// coordinates, ordered by ID.
func (m *Map) Vehicles() []VehicleInfo {
	var out []VehicleInfo
	m.eachChunk(func(_, _ int, ch *store.Chunk) {
		for _, v := range ch.Vehicles {
			out = append(out, VehicleInfo{
				ID:       v.ID,
				Name:     v.Name,
				X:        v.Anchor.X,
				Y:        v.Anchor.Y,
				Z:        v.Anchor.Z,
				Facing:   int(v.Facing),
				Velocity: v.Velocity,
				Parts:    len(v.Parts),
			})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WindowSnapshot exports every loaded chunk on every layer.
func (m *Map) WindowSnapshot(tick uint64) snapshot.WindowV1 {
	snap := snapshot.WindowV1{
		Header:    snapshot.Header{Version: snapshot.WindowVersion, Kind: "window", Tick: tick},
		OriginX:   m.origin.X,
		OriginY:   m.origin.Y,
		Layer:     m.origin.Z,
		Width:     m.width,
		ChunkSize: m.n,
	}
	if !m.loaded {
		return snap
	}
	for li := range m.slots {
		for _, h := range m.slots[li] {
			snap.Chunks = append(snap.Chunks, store.ExportChunk(m.cat, m.store.Get(h)))
		}
	}
	return snap
}
