package world

import (
	"sort"

	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/logic/mathx"
	"tilesim.dev/internal/sim/world/terrain/store"
)

// VehAt returns the vehicle and part index covering a window cell, or
// (nil, -1). A stale index is rebuilt before the lookup.
func (m *Map) VehAt(x, y int) (*model.Vehicle, int) {
	if !m.InBounds(x, y) {
		return nil, -1
	}
	if m.vehDirty {
		m.ResetVehicleCache()
	}
	r, ok := m.vehIndex[model.Point{X: x, Y: y}]
	if !ok {
		return nil, -1
	}
	return r.v, r.part
}

func (m *Map) partDef(typ string) *catalogs.PartDef {
	id, ok := m.cat.Parts.ID(typ)
	if !ok {
		return nil
	}
	return m.cat.Parts.At(id)
}

// vehPartFlag reports whether any part of v mounted at window cell (x, y)
// carries flag.
func (m *Map) vehPartFlag(v *model.Vehicle, x, y int, flag string) bool {
	return m.vehPartWith(v, x, y, flag) >= 0
}

func (m *Map) vehPartWith(v *model.Vehicle, x, y int, flag string) int {
	for _, i := range v.PartsAt(m.AbsTripoint(x, y)) {
		if d := m.partDef(v.Parts[i].Type); d != nil && d.Flags.Has(flag) {
			return i
		}
	}
	return -1
}

// UpdateVehicleCache re-indexes the footprint of one vehicle.
func (m *Map) UpdateVehicleCache(v *model.Vehicle) {
	m.unindexVehicle(v)
	var cells []model.Point
	clipped := false
	for i := range v.Parts {
		l, ok := m.LocalOf(v.PartPos(i))
		if !ok {
			clipped = true
			continue
		}
		if r, taken := m.vehIndex[l]; taken && r.v == v {
			continue
		}
		m.vehIndex[l] = vehRef{v: v, part: i}
		cells = append(cells, l)
	}
	if len(cells) > 0 {
		m.vehCells[v] = cells
	}
	if clipped {
		m.vehClipped[v] = true
	}
}

func (m *Map) unindexVehicle(v *model.Vehicle) {
	for _, p := range m.vehCells[v] {
		if r, ok := m.vehIndex[p]; ok && r.v == v {
			delete(m.vehIndex, p)
		}
	}
	delete(m.vehCells, v)
	delete(m.vehClipped, v)
}

// ResetVehicleCache rebuilds the whole index from the vehicles owned by
// active-layer chunks.
func (m *Map) ResetVehicleCache() {
	m.ClearVehicleCache()
	m.eachChunk(func(_, _ int, ch *store.Chunk) {
		for _, v := range ch.Vehicles {
			m.UpdateVehicleCache(v)
		}
	})
}

func (m *Map) ClearVehicleCache() {
	m.vehIndex = map[model.Point]vehRef{}
	m.vehCells = map[*model.Vehicle][]model.Point{}
	m.vehClipped = map[*model.Vehicle]bool{}
	m.vehDirty = false
}

// chunkForAbs returns the loaded chunk holding absolute cell p on any
// window layer, or nil.
func (m *Map) chunkForAbs(p model.Tripoint) *store.Chunk {
	if !m.loaded || p.Z < m.cfg.MinLayer || p.Z > m.cfg.MaxLayer {
		return nil
	}
	c := m.ChunkCoordOf(p)
	gx, gy := c.X-m.origin.X, c.Y-m.origin.Y
	if gx < 0 || gy < 0 || gx >= m.width || gy >= m.width {
		return nil
	}
	return m.store.Get(m.slots[m.layerIndex(p.Z)][gx+gy*m.width])
}

func (m *Map) vehiclesChanged() {
	m.transparency.Invalidate()
	m.seen.Invalidate()
	m.lightmap.Invalidate()
}

// AddVehicle anchors v at window cell (x, y). It fails when a part would land
// on another vehicle.
func (m *Map) AddVehicle(v *model.Vehicle, x, y int) bool {
	if v == nil || len(v.Parts) == 0 || !m.InBounds(x, y) {
		return false
	}
	anchor := m.AbsTripoint(x, y)
	for i := range v.Parts {
		p := anchor.Add(v.PartOffset(i))
		if l, ok := m.LocalOf(p); ok {
			if other, _ := m.VehAt(l.X, l.Y); other != nil && other != v {
				return false
			}
		}
	}
	ch := m.chunkForAbs(anchor)
	v.Anchor = anchor
	ch.Vehicles = append(ch.Vehicles, v)
	m.UpdateVehicleCache(v)
	m.vehiclesChanged()
	return true
}

// DestroyVehicle removes v from its owning chunk. Passengers stay where they are.
func (m *Map) DestroyVehicle(v *model.Vehicle) bool {
	ch := m.chunkForAbs(v.Anchor)
	if ch == nil || !ch.RemoveVehicle(v) {
		return false
	}
	m.unindexVehicle(v)
	m.vehiclesChanged()
	return true
}

// GetVehicles lists the vehicles anchored inside the window rectangle
// (x1,y1)-(x2,y2), ordered by ID.
func (m *Map) GetVehicles(x1, y1, x2, y2 int) []*model.Vehicle {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	var out []*model.Vehicle
	m.eachChunk(func(_, _ int, ch *store.Chunk) {
		for _, v := range ch.Vehicles {
			l, ok := m.LocalOf(v.Anchor)
			if ok && l.X >= x1 && l.X <= x2 && l.Y >= y1 && l.Y <= y2 {
				out = append(out, v)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// VehPartCoordinates is the window cell of every part of v, in part order.
// ok is false for parts outside the window.
func (m *Map) VehPartCoordinates(v *model.Vehicle) (pts []model.Point, ok []bool) {
	pts = make([]model.Point, len(v.Parts))
	ok = make([]bool, len(v.Parts))
	for i := range v.Parts {
		pts[i], ok[i] = m.LocalOf(v.PartPos(i))
	}
	return pts, ok
}

// BoardVehicle seats c on a free boardable part at (x, y).
func (m *Map) BoardVehicle(x, y int, c model.Creature) bool {
	v, _ := m.VehAt(x, y)
	if v == nil || c == nil {
		return false
	}
	for _, i := range v.PartsAt(m.AbsTripoint(x, y)) {
		d := m.partDef(v.Parts[i].Type)
		if d == nil || !d.Flags.Has("BOARDABLE") || v.Parts[i].Passenger != nil {
			continue
		}
		v.Parts[i].Passenger = c
		c.SetPos(v.PartPos(i))
		return true
	}
	return false
}

// UnboardVehicle clears the passenger seated at (x, y) and returns it.
func (m *Map) UnboardVehicle(x, y int) model.Creature {
	v, _ := m.VehAt(x, y)
	if v == nil {
		return nil
	}
	for _, i := range v.PartsAt(m.AbsTripoint(x, y)) {
		if c := v.Parts[i].Passenger; c != nil {
			v.Parts[i].Passenger = nil
			return c
		}
	}
	return nil
}

// DisplaceVehicle moves v by (dx, dy) cells without collision checks. The
// owning chunk changes when the anchor crosses a chunk border, and
// passengers move with their parts. It fails when the new anchor is outside
// the window.
func (m *Map) DisplaceVehicle(v *model.Vehicle, dx, dy int) bool {
	if dx == 0 && dy == 0 {
		return true
	}
	next := v.Anchor.Add(model.Point{X: dx, Y: dy})
	if _, ok := m.LocalOf(next); !ok {
		return false
	}
	from, to := m.chunkForAbs(v.Anchor), m.chunkForAbs(next)
	if from != to {
		if from != nil {
			from.RemoveVehicle(v)
		}
		to.Vehicles = append(to.Vehicles, v)
	}
	v.Anchor = next
	m.movePassengers(v)
	m.UpdateVehicleCache(v)
	m.vehiclesChanged()
	return true
}

// TurnVehicle rotates v by quarter turns clockwise about its anchor when the
// new footprint is free.
func (m *Map) TurnVehicle(v *model.Vehicle, quarter int) bool {
	facing := (v.Facing + model.Facing(quarter)).Norm()
	if facing == v.Facing {
		return true
	}
	if free, _ := m.footprintFree(v, v.Anchor, facing); !free {
		return false
	}
	v.Facing = facing
	m.movePassengers(v)
	m.UpdateVehicleCache(v)
	m.vehiclesChanged()
	return true
}

func (m *Map) movePassengers(v *model.Vehicle) {
	for i, c := range v.Passengers() {
		c.SetPos(v.PartPos(i))
	}
}

// footprintFree checks whether v fits at anchor with facing. The creature in
// the way is returned when one blocks it.
func (m *Map) footprintFree(v *model.Vehicle, anchor model.Tripoint, facing model.Facing) (bool, model.Creature) {
	riders := v.Passengers()
	for i := range v.Parts {
		l, ok := m.LocalOf(anchor.Add(facing.Rotate(v.Parts[i].Mount)))
		if !ok {
			return false, nil
		}
		if m.MoveCostTerFurn(l.X, l.Y) == 0 {
			return false, nil
		}
		if other, _ := m.VehAt(l.X, l.Y); other != nil && other != v {
			return false, nil
		}
		if c := m.creatureAtLocal(l.X, l.Y); c != nil && !riding(riders, c) {
			return false, c
		}
	}
	return true, nil
}

func riding(riders map[int]model.Creature, c model.Creature) bool {
	for _, r := range riders {
		if r == c {
			return true
		}
	}
	return false
}

// damageVehiclePart applies str damage to one part and reports whether it was
// destroyed. A destroyed part drops its cargo and passenger on the ground;
// a vehicle left without parts is removed.
func (m *Map) damageVehiclePart(v *model.Vehicle, part, str int) bool {
	if part < 0 || part >= len(v.Parts) || str <= 0 {
		return false
	}
	p := &v.Parts[part]
	p.HP -= str
	if p.HP > 0 {
		return false
	}
	if l, ok := m.LocalOf(v.PartPos(part)); ok {
		for _, it := range p.Items {
			m.AddItem(l.X, l.Y, it)
		}
	}
	v.Parts = append(v.Parts[:part], v.Parts[part+1:]...)
	m.logger.Printf("vehicle %s lost part %d", v.Name, part)
	if len(v.Parts) == 0 {
		m.DestroyVehicle(v)
		return true
	}
	m.UpdateVehicleCache(v)
	m.vehiclesChanged()
	return true
}

// traction is the average grip of v's wheels in percent, counting wheels
// that cannot grip as zero. usable is the number of wheels with grip.
func (m *Map) traction(v *model.Vehicle) (pct, usable int) {
	wheels, sum := 0, 0
	for i := range v.Parts {
		d := m.partDef(v.Parts[i].Type)
		if d == nil || !d.Flags.Has("WHEEL") {
			continue
		}
		wheels++
		l, ok := m.LocalOf(v.PartPos(i))
		if !ok || m.HasFlagTer("DEEP_WATER", l.X, l.Y) {
			continue
		}
		cost := m.MoveCostTerFurn(l.X, l.Y)
		if cost <= 0 {
			continue
		}
		grip := 100
		switch {
		case m.HasFlagTer("SHALLOW_WATER", l.X, l.Y):
			grip = m.cfg.ShallowTractionPct
		case cost >= m.cfg.RoughTerrainCost:
			grip = 100 * 2 / cost
		}
		usable++
		sum += grip
	}
	if wheels == 0 {
		return 0, 0
	}
	return sum / wheels, usable
}

// VehMove runs one movement pass over the vehicles owned by the active
// layer. Each moving vehicle steps cell by cell along its facing and stops
// at the last free position when it hits something.
func (m *Map) VehMove() (moved, collisions int) {
	var all []*model.Vehicle
	m.eachChunk(func(_, _ int, ch *store.Chunk) {
		all = append(all, ch.Vehicles...)
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	for _, v := range all {
		if v.Velocity == 0 {
			continue
		}
		pct, usable := m.traction(v)
		if usable == 0 || pct < m.cfg.MinTractionPct {
			v.Velocity = 0
			continue
		}
		speed := mathx.Clamp(mathx.AbsInt(v.Velocity), 1, m.cfg.MaxVehicleSpeed)
		steps := max(1, speed*pct/100)
		dir := v.Facing.Unit()
		if v.Velocity < 0 {
			dir = model.Point{X: -dir.X, Y: -dir.Y}
		}

		went := false
		for s := 0; s < steps; s++ {
			free, hit := m.footprintFree(v, v.Anchor.Add(dir), v.Facing)
			if !free {
				collisions++
				if hit != nil {
					hit.HitByVehicle(v, speed)
				}
				v.Velocity = 0
				break
			}
			if !m.DisplaceVehicle(v, dir.X, dir.Y) {
				v.Velocity = 0
				break
			}
			went = true
		}
		if went {
			moved++
		}
	}
	return moved, collisions
}
