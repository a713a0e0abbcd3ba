package world

import (
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/logic/line"
	"tilesim.dev/internal/sim/world/logic/mathx"
)

// Sees reports whether an unbroken line of transparent cells joins the two
// cells within rng (rng < 0 means unlimited). The returned offset rebuilds
// that line through LineTo.
func (m *Map) Sees(fx, fy, tx, ty, rng int) (int, bool) {
	if rng >= 0 && mathx.Chebyshev(fx, fy, tx, ty) > rng {
		return 0, false
	}
	return line.Search(fx, fy, tx, ty, func(x, y int) bool {
		return m.InBounds(x, y) && m.Transparent(x, y)
	})
}

// ClearPath is Sees with every intermediate cell's move cost also in
// [costMin, costMax].
func (m *Map) ClearPath(fx, fy, tx, ty, rng, costMin, costMax int) (int, bool) {
	if rng >= 0 && mathx.Chebyshev(fx, fy, tx, ty) > rng {
		return 0, false
	}
	return line.Search(fx, fy, tx, ty, func(x, y int) bool {
		if !m.InBounds(x, y) || !m.Transparent(x, y) {
			return false
		}
		c := m.MoveCost(x, y)
		return c >= costMin && c <= costMax
	})
}

// LineTo rebuilds the line found by Sees or ClearPath. The start cell is
// excluded.
func (m *Map) LineTo(fx, fy, tx, ty, slope int) []model.Point {
	pts := line.To(fx, fy, tx, ty, slope)
	out := make([]model.Point, len(pts))
	for i, p := range pts {
		out[i] = model.Point{X: p.X, Y: p.Y}
	}
	return out
}

// AccessibleItems reports whether items at (tx, ty) can be reached from
// (fx, fy). Sealed cells never are unless they hold liquid, and a creature
// can always reach its own cell.
func (m *Map) AccessibleItems(fx, fy, tx, ty, rng int) bool {
	if fx == tx && fy == ty {
		return true
	}
	if m.HasFlag("SEALED", tx, ty) && !m.HasFlag("LIQUIDCONT", tx, ty) {
		return false
	}
	_, ok := m.ClearPath(fx, fy, tx, ty, rng, 1, 100)
	return ok
}

// AccessibleFurniture is AccessibleItems for furniture interaction.
func (m *Map) AccessibleFurniture(fx, fy, tx, ty, rng int) bool {
	if fx == tx && fy == ty {
		return true
	}
	if m.HasFlag("SEALED", tx, ty) {
		return false
	}
	_, ok := m.ClearPath(fx, fy, tx, ty, rng, 1, 100)
	return ok
}
