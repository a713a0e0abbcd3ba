package world

import (
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/terrain/store"
)

func (m *Map) TrapAt(x, y int) uint16 {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return 0
	}
	return ch.Trap[i]
}

func (m *Map) TrapDef(x, y int) *catalogs.TrapDef { return m.cat.Traps.At(m.TrapAt(x, y)) }

// AddTrap places trap id at (x, y), replacing any trap already there.
func (m *Map) AddTrap(x, y int, id uint16) {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return
	}
	if ch.Trap[i] != 0 {
		m.unindexTrap(ch.Trap[i], x, y)
	}
	ch.Trap[i] = id
	if id != 0 {
		m.traps[id] = append(m.traps[id], model.Point{X: x, Y: y})
	}
}

func (m *Map) RemoveTrap(x, y int) {
	ch, i, ok := m.cell(x, y)
	if !ok || ch.Trap[i] == 0 {
		return
	}
	m.unindexTrap(ch.Trap[i], x, y)
	ch.Trap[i] = 0
}

// DisarmTrap removes a trap once it has been disarmed.
func (m *Map) DisarmTrap(x, y int) { m.RemoveTrap(x, y) }

// TrapLocations lists window-local positions holding trap id.
func (m *Map) TrapLocations(id uint16) []model.Point {
	return append([]model.Point(nil), m.traps[id]...)
}

func (m *Map) unindexTrap(id uint16, x, y int) {
	pts := m.traps[id]
	for i, p := range pts {
		if p.X == x && p.Y == y {
			pts = append(pts[:i], pts[i+1:]...)
			break
		}
	}
	if len(pts) == 0 {
		delete(m.traps, id)
		return
	}
	m.traps[id] = pts
}

func (m *Map) rebuildTrapIndex() {
	m.traps = map[uint16][]model.Point{}
	m.eachChunk(func(gx, gy int, ch *store.Chunk) {
		m.indexChunkTraps(ch, gx, gy)
	})
}

func (m *Map) indexChunkTraps(ch *store.Chunk, gx, gy int) {
	for i, id := range ch.Trap {
		if id == 0 {
			continue
		}
		lx, ly := ch.Cell(i)
		m.traps[id] = append(m.traps[id], model.Point{X: gx*m.n + lx, Y: gy*m.n + ly})
	}
}

// CreatureOnTrap resolves the trap under c. When mayAvoid is set the
// creature gets a chance to step around it.
func (m *Map) CreatureOnTrap(c model.Creature, mayAvoid bool) bool {
	p, ok := m.LocalOf(c.Pos())
	if !ok {
		return false
	}
	id := m.TrapAt(p.X, p.Y)
	if id == 0 {
		return false
	}
	def := m.cat.Traps.At(id)
	if mayAvoid && c.CanAvoidTrap(def) {
		return false
	}
	c.ApplyTrapEffect(def, c.Pos())
	return true
}
