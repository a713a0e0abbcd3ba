package world

import (
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/terrain/store"
)

// fieldKind is the behavior shared by every field of one kind.
type fieldKind interface {
	ageRate(m *Map, x, y int, def *catalogs.FieldDef) int
	spread(m *Map, x, y int, f *store.Field, def *catalogs.FieldDef)
	onCreature(c model.Creature, f store.Field, def *catalogs.FieldDef)
	onItems(m *Map, x, y int, f *store.Field, def *catalogs.FieldDef)
}

// staticField stays where it is and only decays. Corrosive ones eat items.
type staticField struct{}

func (staticField) ageRate(*Map, int, int, *catalogs.FieldDef) int { return 1 }

func (staticField) spread(*Map, int, int, *store.Field, *catalogs.FieldDef) {}

func (staticField) onCreature(c model.Creature, f store.Field, def *catalogs.FieldDef) {
	c.ApplyFieldEffect(def, f.Density)
}

func (staticField) onItems(m *Map, x, y int, f *store.Field, def *catalogs.FieldDef) {
	if !def.DestroysItems || f.Density < 2 {
		return
	}
	if items := m.ItemsAt(x, y); len(items) > 0 {
		m.destroyItem(x, y, len(items)-1, def.ID)
	}
}

// gasField drifts toward thinner neighboring cells and thins out faster
// under open sky.
type gasField struct{}

func (gasField) ageRate(m *Map, x, y int, def *catalogs.FieldDef) int {
	if m.Outside(x, y) {
		return 1 + def.OutdoorAgeSpeedup
	}
	return 1
}

// spread moves one unit of density into a random passable neighbor holding
// less of the same gas. Total density is conserved.
func (gasField) spread(m *Map, x, y int, f *store.Field, def *catalogs.FieldDef) {
	if f.Density <= 1 || def.SpreadPercent <= 0 {
		return
	}
	if m.roll(x, y, int(f.Type)) > def.SpreadPercent {
		return
	}
	var cand []model.Point
	for _, p := range m.neighbors(x, y) {
		if !m.Passable(p.X, p.Y) {
			continue
		}
		if m.GetFieldDensity(p.X, p.Y, f.Type) < f.Density {
			cand = append(cand, p)
		}
	}
	if len(cand) == 0 {
		return
	}
	to := cand[(m.roll(x, y, int(f.Type)+17)-1)%len(cand)]
	typ, age := f.Type, f.Age
	f.Density--
	if _, _, g := m.fieldPtr(to.X, to.Y, typ); g != nil {
		g.Density++
		g.Age = (g.Age + age) / 2
		m.fieldChanged()
		return
	}
	m.AddField(to.X, to.Y, typ, 1, age)
}

func (gasField) onCreature(c model.Creature, f store.Field, def *catalogs.FieldDef) {
	c.ApplyFieldEffect(def, f.Density)
}

func (gasField) onItems(*Map, int, int, *store.Field, *catalogs.FieldDef) {}

// fireField feeds on flammable items, furniture and terrain, jumps to
// flammable neighbors and gives off smoke.
type fireField struct{}

func (fireField) ageRate(*Map, int, int, *catalogs.FieldDef) int { return 1 }

func (fireField) onItems(m *Map, x, y int, f *store.Field, def *catalogs.FieldDef) {
	for i, it := range m.ItemsAt(x, y) {
		idef, ok := m.itemDef(it)
		if !ok || !idef.Flags.Has("FLAMMABLE") {
			continue
		}
		m.destroyItem(x, y, i, def.ID)
		f.Density = min(f.Density+1, m.cfg.MaxFieldDensity)
		f.Age = 0
		return
	}
}

func (fireField) spread(m *Map, x, y int, f *store.Field, def *catalogs.FieldDef) {
	typ, density := f.Type, f.Density

	switch {
	case m.HasFurn(x, y) && m.HasFlagFurn("FLAMMABLE", x, y):
		if m.roll(x, y, 301) <= 10*density {
			into := m.nullFurn
			if b := m.furnDef(x, y).Bash; b != nil && b.Into != "" {
				into, _ = m.cat.Furniture.ID(b.Into)
			}
			m.FurnSet(x, y, into)
		}
		f.Age = 0
	case m.HasFlagTer("FLAMMABLE", x, y):
		if t := m.terDef(x, y); density >= 2 && t.BurnsInto != "" && m.roll(x, y, 302) <= 10*density {
			into, _ := m.cat.Terrain.ID(t.BurnsInto)
			m.TerSet(x, y, into)
		}
		f.Age = 0
	}

	for i, p := range m.neighbors(x, y) {
		if _, ok := m.GetField(p.X, p.Y, typ); ok || !m.flammable(p.X, p.Y) {
			continue
		}
		if m.roll(p.X, p.Y, 310+i) <= def.SpreadPercent*density {
			m.AddField(p.X, p.Y, typ, 1, 0)
		}
	}

	if m.smokeFd != 0 && m.roll(x, y, 320) <= 50 {
		spots := []model.Point{{X: x, Y: y}}
		for _, p := range m.neighbors(x, y) {
			if m.Passable(p.X, p.Y) {
				spots = append(spots, p)
			}
		}
		to := spots[(m.roll(x, y, 321)-1)%len(spots)]
		m.AddField(to.X, to.Y, m.smokeFd, 1, 0)
	}
}

func (fireField) onCreature(c model.Creature, f store.Field, def *catalogs.FieldDef) {
	c.ApplyFieldEffect(def, f.Density)
}

func (m *Map) flammable(x, y int) bool {
	if m.HasFlagTerOrFurn("FLAMMABLE", x, y) {
		return true
	}
	for _, it := range m.ItemsAt(x, y) {
		if def, ok := m.itemDef(it); ok && def.Flags.Has("FLAMMABLE") {
			return true
		}
	}
	return false
}

func (m *Map) destroyItem(x, y, index int, cause string) {
	it, ok := m.RemoveItem(x, y, index)
	if ok && m.itemHook != nil {
		m.itemHook.Destroyed(it, m.AbsTripoint(x, y), cause)
	}
}
