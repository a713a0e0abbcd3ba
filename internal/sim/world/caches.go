package world

import (
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/logic/fov"
	"tilesim.dev/internal/sim/world/logic/grid"
	"tilesim.dev/internal/sim/world/terrain/store"
)

// LightTransparency is the fraction of light passing through (x, y):
// 0 for walls and opaque vehicle parts, reduced by fields such as smoke.
func (m *Map) LightTransparency(x, y int) float64 {
	if !m.InBounds(x, y) {
		return 0
	}
	return m.transparency.Get().At(x, y)
}

// Transparent compares LightTransparency against the opaque threshold.
func (m *Map) Transparent(x, y int) bool {
	return m.LightTransparency(x, y) > m.cfg.OpaqueThreshold
}

func (m *Map) opaque(x, y int) bool { return !m.Transparent(x, y) }

func (m *Map) buildTransparency(g *grid.Grid[float64]) {
	m.eachChunk(func(gx, gy int, ch *store.Chunk) {
		for i := range ch.Ter {
			lx, ly := ch.Cell(i)
			x, y := gx*m.n+lx, gy*m.n+ly
			ter := m.cat.Terrain.At(ch.Ter[i])
			furn := m.cat.Furniture.At(ch.Furn[i])
			if !ter.Flags.Has("TRANSPARENT") || !furn.Flags.Has("TRANSPARENT") {
				g.Set(x, y, 0)
				continue
			}
			t := 1.0
			for _, f := range ch.Fields[i] {
				t *= m.cat.Fields.At(f.Type).TransparencyAt(f.Density)
			}
			g.Set(x, y, t)
		}
	})
	// Vehicle parts last, straight from the index.
	if m.vehDirty {
		m.ResetVehicleCache()
	}
	for p, r := range m.vehIndex {
		if m.vehPartFlag(r.v, p.X, p.Y, "OPAQUE") {
			g.Set(p.X, p.Y, 0)
		}
	}
}

// Outside reports open sky above (x, y).
func (m *Map) Outside(x, y int) bool {
	if !m.InBounds(x, y) {
		return true
	}
	return m.outside.Get().At(x, y)
}

func (m *Map) buildOutside(g *grid.Grid[bool]) {
	g.Fill(true)
	m.eachChunk(func(gx, gy int, ch *store.Chunk) {
		for i := range ch.Ter {
			if !m.cat.Terrain.At(ch.Ter[i]).Flags.Has("INDOORS") && !m.cat.Furniture.At(ch.Furn[i]).Flags.Has("INDOORS") {
				continue
			}
			lx, ly := ch.Cell(i)
			x, y := gx*m.n+lx, gy*m.n+ly
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					g.Set(x+dx, y+dy, false)
				}
			}
		}
	})
}

// BuildSeenCache recomputes what can be seen from (x, y) within sightRange.
func (m *Map) BuildSeenCache(x, y, sightRange int) {
	m.seenFrom = model.Point{X: x, Y: y}
	m.seenRange = sightRange
	m.seen.Invalidate()
	m.seen.Get()
}

// Seen reads the seen cache for the last observer.
func (m *Map) Seen(x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	return m.seen.Get().At(x, y)
}

func (m *Map) buildSeen(g *grid.Grid[bool]) {
	g.Fill(false)
	if !m.InBounds(m.seenFrom.X, m.seenFrom.Y) {
		return
	}
	fov.Cast(m.seenFrom.X, m.seenFrom.Y, m.seenRange, m.opaque, func(x, y, _ int) {
		g.Set(x, y, true)
	})
}

// BuildMapCache rebuilds every derived cache for an observer at (x, y). It is
// the once-per-turn entry point; individual reads rebuild lazily otherwise.
func (m *Map) BuildMapCache(x, y, sightRange int) {
	if m.vehDirty {
		m.ResetVehicleCache()
	}
	m.transparency.Invalidate()
	m.outside.Invalidate()
	m.transparency.Get()
	m.outside.Get()
	m.lightmap.Invalidate()
	m.lightmap.Get()
	m.BuildSeenCache(x, y, sightRange)
}
