package world

import (
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/logic/mathx"
	"tilesim.dev/internal/sim/world/terrain/store"
)

// FieldID resolves a field catalog id; 0 (the null field) when unknown.
func (m *Map) FieldID(name string) uint16 {
	id, _ := m.cat.Fields.ID(name)
	return id
}

// FieldAt returns a copy of the field entries at (x, y); nil outside the window.
func (m *Map) FieldAt(x, y int) store.Fields {
	ch, i, ok := m.cell(x, y)
	if !ok || len(ch.Fields[i]) == 0 {
		return nil
	}
	return append(store.Fields(nil), ch.Fields[i]...)
}

func (m *Map) fieldPtr(x, y int, typ uint16) (*store.Chunk, int, *store.Field) {
	ch, i, ok := m.cell(x, y)
	if !ok {
		return nil, 0, nil
	}
	return ch, i, ch.Fields[i].Find(typ)
}

func (m *Map) GetField(x, y int, typ uint16) (store.Field, bool) {
	_, _, f := m.fieldPtr(x, y, typ)
	if f == nil {
		return store.Field{}, false
	}
	return *f, true
}

func (m *Map) GetFieldDensity(x, y int, typ uint16) int {
	f, _ := m.GetField(x, y, typ)
	return f.Density
}

func (m *Map) GetFieldAge(x, y int, typ uint16) int {
	f, _ := m.GetField(x, y, typ)
	return f.Age
}

// AddField creates an entry or raises an existing one's density by density.
// Density is capped at the configured maximum.
func (m *Map) AddField(x, y int, typ uint16, density, age int) bool {
	if typ == 0 || density <= 0 {
		return false
	}
	ch, i, ok := m.cell(x, y)
	if !ok {
		return false
	}
	if f := ch.Fields[i].Find(typ); f != nil {
		f.Density = min(f.Density+density, m.cfg.MaxFieldDensity)
	} else {
		ch.Fields[i].Add(store.Field{Type: typ, Density: min(density, m.cfg.MaxFieldDensity), Age: age})
		ch.FieldCount++
	}
	m.fieldChanged()
	return true
}

func (m *Map) RemoveField(x, y int, typ uint16) bool {
	ch, i, ok := m.cell(x, y)
	if !ok || !ch.Fields[i].Remove(typ) {
		return false
	}
	ch.FieldCount--
	m.fieldChanged()
	return true
}

// SetFieldDensity sets an existing entry's density and returns it; 0 removes
// the entry. Absent entries are not created.
func (m *Map) SetFieldDensity(x, y int, typ uint16, density int) int {
	_, _, f := m.fieldPtr(x, y, typ)
	if f == nil {
		return 0
	}
	if density <= 0 {
		m.RemoveField(x, y, typ)
		return 0
	}
	f.Density = min(density, m.cfg.MaxFieldDensity)
	m.fieldChanged()
	return f.Density
}

func (m *Map) AdjustFieldDensity(x, y int, typ uint16, delta int) int {
	_, _, f := m.fieldPtr(x, y, typ)
	if f == nil {
		return 0
	}
	return m.SetFieldDensity(x, y, typ, f.Density+delta)
}

func (m *Map) SetFieldAge(x, y int, typ uint16, age int) int {
	_, _, f := m.fieldPtr(x, y, typ)
	if f == nil {
		return 0
	}
	f.Age = age
	return f.Age
}

func (m *Map) AdjustFieldAge(x, y int, typ uint16, delta int) int {
	_, _, f := m.fieldPtr(x, y, typ)
	if f == nil {
		return 0
	}
	f.Age += delta
	return f.Age
}

func (m *Map) fieldChanged() {
	m.transparency.Invalidate()
	m.seen.Invalidate()
	// Light passes through fields, so any of them can change the lightmap.
	m.lightmap.Invalidate()
}

// ageField advances one entry by amount and applies half-life decay. It
// returns false once the entry has decayed away.
func (m *Map) ageField(f *store.Field, def *catalogs.FieldDef, amount int) bool {
	f.Age += amount
	if def.HalfLife <= 0 {
		return true
	}
	for f.Age >= def.HalfLife && f.Density > 0 {
		f.Density--
		f.Age -= def.HalfLife
	}
	return f.Density > 0
}

// DecayFields ages every field in the window by amount, as when a window is
// reactivated after time has passed.
func (m *Map) DecayFields(amount int) int {
	if amount <= 0 {
		return 0
	}
	removed := 0
	m.eachChunk(func(_, _ int, ch *store.Chunk) {
		if ch.FieldCount == 0 {
			return
		}
		for i := range ch.Fields {
			fs := ch.Fields[i]
			out := fs[:0]
			for _, f := range fs {
				if m.ageField(&f, m.cat.Fields.At(f.Type), amount) {
					out = append(out, f)
				} else {
					removed++
				}
			}
			ch.Fields[i] = out
		}
		ch.CountFields()
	})
	if removed > 0 {
		m.invalidateCaches()
	}
	return removed
}

type fieldRef struct {
	x, y int
	typ  uint16
}

// ProcessFields runs one tick of every field in the window. Entries are
// listed up front so fields created this tick only act from the next one.
func (m *Map) ProcessFields() int {
	var work []fieldRef
	m.eachChunk(func(gx, gy int, ch *store.Chunk) {
		if ch.FieldCount == 0 {
			return
		}
		for i, fs := range ch.Fields {
			lx, ly := ch.Cell(i)
			for _, f := range fs {
				work = append(work, fieldRef{x: gx*m.n + lx, y: gy*m.n + ly, typ: f.Type})
			}
		}
	})
	if len(work) == 0 {
		return 0
	}

	for _, w := range work {
		_, _, f := m.fieldPtr(w.x, w.y, w.typ)
		if f == nil {
			continue
		}
		def := m.cat.Fields.At(w.typ)
		kind := m.kindOf(def)
		kind.onItems(m, w.x, w.y, f, def)
		kind.spread(m, w.x, w.y, f, def)
		// spread may have removed or moved the entry.
		if _, _, f = m.fieldPtr(w.x, w.y, w.typ); f == nil {
			continue
		}
		if !m.ageField(f, def, kind.ageRate(m, w.x, w.y, def)) {
			m.RemoveField(w.x, w.y, w.typ)
		}
	}
	m.transparency.Invalidate()
	m.seen.Invalidate()
	m.lightmap.Invalidate()
	return len(work)
}

func (m *Map) kindOf(def *catalogs.FieldDef) fieldKind {
	if k, ok := m.fieldKind[def.Kind]; ok {
		return k
	}
	return staticField{}
}

// CreatureInField applies every field at the creature's cell to it.
func (m *Map) CreatureInField(c model.Creature) int {
	p, ok := m.LocalOf(c.Pos())
	if !ok {
		return 0
	}
	n := 0
	for _, f := range m.FieldAt(p.X, p.Y) {
		def := m.cat.Fields.At(f.Type)
		m.kindOf(def).onCreature(c, f, def)
		n++
	}
	return n
}

// roll is a deterministic percentile for (x, y) this turn.
func (m *Map) roll(x, y, salt int) int {
	abs := m.GetAbs(x, y)
	return mathx.Roll(m.cfg.Seed, abs.X, abs.Y, int(m.turn)*131+salt, 1, 100)
}

// neighbors lists the in-window 8-neighbors of (x, y) in a fixed order.
func (m *Map) neighbors(x, y int) []model.Point {
	out := make([]model.Point, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if m.InBounds(x+dx, y+dy) {
				out = append(out, model.Point{X: x + dx, Y: y + dy})
			}
		}
	}
	return out
}
