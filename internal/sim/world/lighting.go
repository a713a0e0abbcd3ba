package world

import (
	"math"
	"sort"

	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/logic/fov"
	"tilesim.dev/internal/sim/world/logic/grid"
	"tilesim.dev/internal/sim/world/logic/mathx"
	"tilesim.dev/internal/sim/world/terrain/store"
)

type LitLevel int

const (
	Dark LitLevel = iota
	Low
	Lit
	Bright
)

func (l LitLevel) String() string {
	switch l {
	case Low:
		return "LOW"
	case Lit:
		return "LIT"
	case Bright:
		return "BRIGHT"
	}
	return "DARK"
}

type lightSource struct {
	x, y int
	lum  float64
}

// AddLightSource buffers an external light at (x, y) for every lightmap pass
// until ClearLightSources.
func (m *Map) AddLightSource(x, y int, luminance float64) {
	if !m.InBounds(x, y) || luminance <= 0 {
		return
	}
	m.lights = append(m.lights, lightSource{x: x, y: y, lum: luminance})
	m.lightmap.Invalidate()
}

func (m *Map) ClearLightSources() {
	m.lights = nil
	m.lightmap.Invalidate()
}

// AmbientLightAt is the raw light value at (x, y).
func (m *Map) AmbientLightAt(x, y int) float64 {
	if !m.InBounds(x, y) {
		return 0
	}
	return m.lightmap.Get().At(x, y)
}

func (m *Map) LightAt(x, y int) LitLevel {
	v := m.AmbientLightAt(x, y)
	switch {
	case v >= m.cfg.SourceBright:
		return Bright
	case v >= m.cfg.AmbientLit:
		return Lit
	case v >= m.cfg.AmbientLow:
		return Low
	}
	return Dark
}

// collectLights sums every source in the window per cell. Each cell is then
// cast once no matter how many sources share it.
func (m *Map) collectLights() []lightSource {
	sum := map[model.Point]float64{}
	add := func(x, y int, lum float64) {
		if lum > 0 && m.InBounds(x, y) {
			sum[model.Point{X: x, Y: y}] += lum
		}
	}
	for _, l := range m.lights {
		add(l.x, l.y, l.lum)
	}
	m.eachChunk(func(gx, gy int, ch *store.Chunk) {
		for i := range ch.Ter {
			lx, ly := ch.Cell(i)
			x, y := gx*m.n+lx, gy*m.n+ly
			for _, f := range ch.Fields[i] {
				if f.Type == m.fireFd {
					add(x, y, m.cfg.FireLuminance*float64(f.Density))
				}
			}
			for _, it := range ch.Items[i] {
				if !it.Active {
					continue
				}
				if def, ok := m.itemDef(it); ok {
					add(x, y, def.Light)
				}
			}
		}
	})
	if m.vehDirty {
		m.ResetVehicleCache()
	}
	for p, r := range m.vehIndex {
		if m.vehPartFlag(r.v, p.X, p.Y, "LIGHT") {
			add(p.X, p.Y, m.cfg.VehicleLightLum)
		}
	}

	out := make([]lightSource, 0, len(sum))
	for p, lum := range sum {
		out = append(out, lightSource{x: p.X, y: p.Y, lum: lum})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].y != out[j].y {
			return out[i].y < out[j].y
		}
		return out[i].x < out[j].x
	})
	return out
}

func (m *Map) buildLightmap(g *grid.Grid[float64]) {
	g.Fill(0)
	if m.cfg.NaturalLight > 0 {
		for y := 0; y < m.cells; y++ {
			for x := 0; x < m.cells; x++ {
				if m.Outside(x, y) {
					g.Set(x, y, m.cfg.NaturalLight)
				}
			}
		}
	}

	// stamp dedupes cells visited twice on octant borders within one source.
	stamp := grid.New[int](m.cells, m.cells)
	for n, src := range m.collectLights() {
		id := n + 1
		radius := int(math.Sqrt(src.lum / m.cfg.SourceLocal))
		fov.Cast(src.x, src.y, radius, m.opaque, func(x, y, d2 int) {
			p := stamp.Ptr(x, y)
			if p == nil || *p == id {
				return
			}
			*p = id
			lum := src.lum
			if d2 > 0 {
				lum /= float64(d2)
			}
			if lum < m.cfg.SourceLocal {
				return
			}
			g.Set(x, y, g.At(x, y)+lum)
		})
	}
}

// PlSees reports whether the observer of the last seen-cache build sees
// (x, y) within rng. Dark cells are only made out when adjacent.
func (m *Map) PlSees(x, y, rng int) bool {
	if !m.Seen(x, y) {
		return false
	}
	d := mathx.Chebyshev(x, y, m.seenFrom.X, m.seenFrom.Y)
	if rng >= 0 && d > rng {
		return false
	}
	return d <= 1 || m.LightAt(x, y) != Dark
}
