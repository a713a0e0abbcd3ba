package world

import (
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/terrain/store"
)

// Ter returns the terrain id at (x, y); null terrain outside the window.
func (m *Map) Ter(x, y int) uint16 {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return 0
	}
	return ch.Ter[i]
}

func (m *Map) TerSet(x, y int, id uint16) {
	ch, i, ok := m.cell(x, y)
	if !ok || ch.Ter[i] == id {
		return
	}
	ch.Ter[i] = id
	m.invalidateTerrain()
}

func (m *Map) Furn(x, y int) uint16 {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return m.nullFurn
	}
	return ch.Furn[i]
}

func (m *Map) FurnSet(x, y int, id uint16) {
	ch, i, ok := m.cell(x, y)
	if !ok || ch.Furn[i] == id {
		return
	}
	ch.Furn[i] = id
	m.invalidateTerrain()
}

func (m *Map) Set(x, y int, ter, furn uint16) {
	m.TerSet(x, y, ter)
	m.FurnSet(x, y, furn)
}

func (m *Map) TerName(x, y int) string  { return m.cat.Terrain.Name(m.Ter(x, y)) }
func (m *Map) FurnName(x, y int) string { return m.cat.Furniture.Name(m.Furn(x, y)) }

func (m *Map) HasFurn(x, y int) bool { return m.Furn(x, y) != m.nullFurn }

func (m *Map) terDef(x, y int) *catalogs.TerrainDef  { return m.cat.Terrain.At(m.Ter(x, y)) }
func (m *Map) furnDef(x, y int) *catalogs.TerrainDef { return m.cat.Furniture.At(m.Furn(x, y)) }

func (m *Map) HasFlagTer(flag string, x, y int) bool  { return m.terDef(x, y).Flags.Has(flag) }
func (m *Map) HasFlagFurn(flag string, x, y int) bool { return m.furnDef(x, y).Flags.Has(flag) }

func (m *Map) HasFlagTerOrFurn(flag string, x, y int) bool {
	return m.HasFlagTer(flag, x, y) || m.HasFlagFurn(flag, x, y)
}

func (m *Map) HasFlagTerAndFurn(flag string, x, y int) bool {
	return m.HasFlagTer(flag, x, y) && m.HasFlagFurn(flag, x, y)
}

// HasFlag checks vehicle parts at the cell, then terrain and furniture.
func (m *Map) HasFlag(flag string, x, y int) bool {
	if v, _ := m.VehAt(x, y); v != nil && m.vehPartFlag(v, x, y, flag) {
		return true
	}
	return m.HasFlagTerOrFurn(flag, x, y)
}

// MoveCostTerFurn is the terrain cost plus the furniture modifier, or 0 when
// either blocks.
func (m *Map) MoveCostTerFurn(x, y int) int {
	if !m.InBounds(x, y) {
		return 0
	}
	ter := m.terDef(x, y).MoveCost
	furn := m.furnDef(x, y).MoveCost
	if ter == 0 || furn < 0 {
		return 0
	}
	if c := ter + furn; c > 0 {
		return c
	}
	return 0
}

// MoveCost is the cost of entering (x, y). 0 means impassable.
func (m *Map) MoveCost(x, y int) int {
	if !m.InBounds(x, y) {
		return 0
	}
	if v, _ := m.VehAt(x, y); v != nil {
		switch {
		case m.vehPartFlag(v, x, y, "OBSTACLE"):
			return 0
		case m.vehPartFlag(v, x, y, "AISLE"):
			return 2
		default:
			return 8
		}
	}
	return m.MoveCostTerFurn(x, y)
}

// CombinedMoveCost averages the cost of stepping between two cells.
func (m *Map) CombinedMoveCost(x1, y1, x2, y2 int) int {
	a, b := m.MoveCost(x1, y1), m.MoveCost(x2, y2)
	if a == 0 || b == 0 {
		return 0
	}
	return (a + b) / 2
}

// Passable reports whether a creature could stand at (x, y).
func (m *Map) Passable(x, y int) bool { return m.MoveCost(x, y) > 0 }

// ItemsAt returns a copy of the items at (x, y).
func (m *Map) ItemsAt(x, y int) []model.Item {
	ch, i, ok := m.cell(x, y)
	if !ok || len(ch.Items[i]) == 0 {
		return nil
	}
	return append([]model.Item(nil), ch.Items[i]...)
}

// CanPutItems is true for passable cells and containers.
func (m *Map) CanPutItems(x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	return m.MoveCostTerFurn(x, y) > 0 || m.HasFlagFurn("CONTAINER", x, y)
}

func (m *Map) AddItem(x, y int, it model.Item) bool {
	if !m.CanPutItems(x, y) {
		return false
	}
	ch, i, _ := m.cell(x, y)
	ch.Items[i] = append(ch.Items[i], it)
	if def, ok := m.itemDef(it); ok && def.Light > 0 && it.Active {
		m.lightmap.Invalidate()
	}
	return true
}

func (m *Map) itemDef(it model.Item) (*catalogs.ItemDef, bool) {
	id, ok := m.cat.Items.ID(it.Type)
	if !ok {
		return nil, false
	}
	return m.cat.Items.At(id), true
}

func (m *Map) RemoveItem(x, y, index int) (model.Item, bool) {
	ch, i, ok := m.cell(x, y)
	if !ok || index < 0 || index >= len(ch.Items[i]) {
		return model.Item{}, false
	}
	it := ch.Items[i][index]
	ch.Items[i] = append(ch.Items[i][:index], ch.Items[i][index+1:]...)
	if it.Active {
		m.lightmap.Invalidate()
	}
	return it, true
}

func (m *Map) ClearItems(x, y int) {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return
	}
	ch.Items[i] = nil
	m.lightmap.Invalidate()
}

func (m *Map) Radiation(x, y int) int {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return 0
	}
	return ch.Radiation[i]
}

func (m *Map) SetRadiation(x, y, v int) {
	if ch, i, ok := m.cell(x, y); ok {
		ch.Radiation[i] = v
	}
}

func (m *Map) AdjustRadiation(x, y, delta int) {
	if ch, i, ok := m.cell(x, y); ok {
		ch.Radiation[i] += delta
		if ch.Radiation[i] < 0 {
			ch.Radiation[i] = 0
		}
	}
}

// Temperature is stored per chunk; any cell of the chunk reads it.
func (m *Map) Temperature(x, y int) int {
	ch, _, ok := m.cell(x, y)
	if !ok {
		return 0
	}
	return ch.Temperature
}

func (m *Map) SetTemperature(x, y, v int) {
	if ch, _, ok := m.cell(x, y); ok {
		ch.Temperature = v
	}
}

func (m *Map) Signage(x, y int) string {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return ""
	}
	return ch.Signage[i]
}

func (m *Map) SetSignage(x, y int, text string) {
	if ch, i, ok := m.cell(x, y); ok {
		ch.Signage[i] = text
	}
}

func (m *Map) DeleteSignage(x, y int) {
	if ch, i, ok := m.cell(x, y); ok {
		delete(ch.Signage, i)
	}
}

func (m *Map) Graffiti(x, y int) string {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return ""
	}
	return ch.Graffiti[i]
}

func (m *Map) SetGraffiti(x, y int, text string) {
	if ch, i, ok := m.cell(x, y); ok {
		ch.Graffiti[i] = text
	}
}

func (m *Map) DeleteGraffiti(x, y int) {
	if ch, i, ok := m.cell(x, y); ok {
		delete(ch.Graffiti, i)
	}
}

func (m *Map) markerAt(x, y int, pick func(*store.Chunk) *store.Marker) *store.Marker {
	ch, _, ok := m.cell(x, y)
	if !ok {
		return nil
	}
	mk := pick(ch)
	if mk == nil || mk.Pos != (model.Point{X: x % m.n, Y: y % m.n}) {
		return nil
	}
	return mk
}

// ComputerAt returns the chunk's computer when it sits at (x, y).
func (m *Map) ComputerAt(x, y int) *store.Marker {
	return m.markerAt(x, y, func(ch *store.Chunk) *store.Marker { return ch.Computer })
}

// AddComputer replaces the chunk's computer.
func (m *Map) AddComputer(x, y int, name string, security int) bool {
	ch, _, ok := m.cell(x, y)
	if !ok {
		return false
	}
	ch.Computer = &store.Marker{Pos: model.Point{X: x % m.n, Y: y % m.n}, Name: name, Security: security}
	return true
}

func (m *Map) CampAt(x, y int) *store.Marker {
	return m.markerAt(x, y, func(ch *store.Chunk) *store.Marker { return ch.Camp })
}

func (m *Map) AddCamp(x, y int, name string) bool {
	ch, _, ok := m.cell(x, y)
	if !ok {
		return false
	}
	ch.Camp = &store.Marker{Pos: model.Point{X: x % m.n, Y: y % m.n}, Name: name}
	return true
}

// OpenDoor applies the furniture or terrain open transform. Locked doors and
// cells without a transform are left alone.
func (m *Map) OpenDoor(x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	if f := m.furnDef(x, y); f.Open != "" {
		id, _ := m.cat.Furniture.ID(f.Open)
		m.FurnSet(x, y, id)
		return true
	}
	t := m.terDef(x, y)
	if t.Open == "" || t.Flags.Has("LOCKED") {
		return false
	}
	id, _ := m.cat.Terrain.ID(t.Open)
	m.TerSet(x, y, id)
	return true
}

// CloseDoor applies the close transform unless something is in the way.
func (m *Map) CloseDoor(x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	if f := m.furnDef(x, y); f.Close != "" {
		id, _ := m.cat.Furniture.ID(f.Close)
		m.FurnSet(x, y, id)
		return true
	}
	t := m.terDef(x, y)
	if t.Close == "" {
		return false
	}
	if len(m.ItemsAt(x, y)) > 0 || m.creatureAtLocal(x, y) != nil {
		return false
	}
	if v, _ := m.VehAt(x, y); v != nil {
		return false
	}
	id, _ := m.cat.Terrain.ID(t.Close)
	m.TerSet(x, y, id)
	return true
}

// Translate replaces every instance of terrain from with to inside the
// window and returns how many cells changed.
func (m *Map) Translate(from, to uint16) int {
	if from == to {
		return 0
	}
	n := 0
	m.eachChunk(func(_, _ int, ch *store.Chunk) {
		for i, t := range ch.Ter {
			if t == from {
				ch.Ter[i] = to
				n++
			}
		}
	})
	if n > 0 {
		m.invalidateTerrain()
	}
	return n
}

func (m *Map) creatureAtLocal(x, y int) model.Creature {
	if m.creatures == nil || !m.InBounds(x, y) {
		return nil
	}
	return m.creatures.At(m.AbsTripoint(x, y))
}
