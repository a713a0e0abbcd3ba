package world

import (
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/logic/mathx"
)

// bashTarget is the furniture when it can be bashed, else the terrain.
func (m *Map) bashTarget(x, y int) (def *catalogs.TerrainDef, furn bool) {
	if f := m.furnDef(x, y); m.HasFurn(x, y) && f.Bash != nil {
		return f, true
	}
	if t := m.terDef(x, y); t.Bash != nil {
		return t, false
	}
	return nil, false
}

func (m *Map) IsBashable(x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	def, _ := m.bashTarget(x, y)
	return def != nil
}

// BashStrength is the strength that always succeeds, or -1.
func (m *Map) BashStrength(x, y int) int {
	if !m.InBounds(x, y) {
		return -1
	}
	def, _ := m.bashTarget(x, y)
	if def == nil {
		return -1
	}
	return def.Bash.StrMax
}

// BashResistance is the strength below which bashing never succeeds, or -1.
func (m *Map) BashResistance(x, y int) int {
	if !m.InBounds(x, y) {
		return -1
	}
	def, _ := m.bashTarget(x, y)
	if def == nil {
		return -1
	}
	return def.Bash.StrMin
}

// BashRating grades the chance that str breaks (x, y): -1 not bashable,
// 0 never, 10 always, 1..9 in between.
func (m *Map) BashRating(str, x, y int) int {
	if !m.IsBashable(x, y) {
		return -1
	}
	lo, hi := m.BashResistance(x, y), m.BashStrength(x, y)
	if str < lo {
		return 0
	}
	if str >= hi {
		return 10
	}
	r := 10 * (str - lo) / (hi - lo)
	return mathx.Clamp(r, 1, 9)
}

// Bash hits (x, y) with strength str. smashed reports that something
// bashable was hit; success that it broke. Furniture breaks before terrain.
// A vehicle part at the cell absorbs the blow instead.
func (m *Map) Bash(x, y, str int) (smashed, success bool) {
	if !m.InBounds(x, y) {
		return false, false
	}
	if v, part := m.VehAt(x, y); v != nil {
		return true, m.damageVehiclePart(v, part, str)
	}
	def, furn := m.bashTarget(x, y)
	if def == nil {
		return false, false
	}
	abs := m.GetAbs(x, y)
	roll := mathx.Roll(m.cfg.Seed, abs.X, abs.Y, int(m.turn)*7+str, def.Bash.StrMin, def.Bash.StrMax)
	if str < roll {
		return true, false
	}
	if furn {
		into := m.nullFurn
		if def.Bash.Into != "" {
			into, _ = m.cat.Furniture.ID(def.Bash.Into)
		}
		m.FurnSet(x, y, into)
		return true, true
	}
	into := m.floorTer
	if def.Bash.Into != "" {
		into, _ = m.cat.Terrain.ID(def.Bash.Into)
	}
	m.TerSet(x, y, into)
	return true, true
}

// Destroy bashes (x, y) with overwhelming strength until nothing bashable is
// left.
func (m *Map) Destroy(x, y int) int {
	n := 0
	for i := 0; i < 16; i++ {
		smashed, ok := m.Bash(x, y, 1<<20)
		if !smashed || !ok {
			break
		}
		n++
	}
	return n
}
