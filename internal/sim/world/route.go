package world

import (
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/logic/pathing"
)

// Route returns the cells from (fx, fy) (excluded) to (tx, ty). bash > 0
// lets the route break through obstacles that strength could smash. An
// unreachable target yields an empty route.
func (m *Map) Route(fx, fy, tx, ty, bash int) []model.Point {
	if fx == tx && fy == ty {
		return nil
	}
	if !m.InBounds(fx, fy) || !m.InBounds(tx, ty) {
		if slope, ok := m.Sees(fx, fy, tx, ty, -1); ok {
			return m.LineTo(fx, fy, tx, ty, slope)
		}
		return nil
	}
	if slope, ok := m.ClearPath(fx, fy, tx, ty, -1, m.cfg.FlatCostMin, m.cfg.FlatCostMax); ok {
		return m.LineTo(fx, fy, tx, ty, slope)
	}

	g := pathing.Grid{
		InBounds:   m.InBounds,
		MoveCost:   m.MoveCost,
		BashRating: m.BashRating,
	}
	opt := pathing.Options{
		Bash:          bash,
		Straight:      10,
		Diagonal:      m.cfg.DiagonalWeight,
		BashPenalty:   m.cfg.BashPenalty,
		MinCost:       m.minCost,
		MaxExpansions: m.cfg.MaxExpansions,
	}
	from, to := pathing.Pos{X: fx, Y: fy}, pathing.Pos{X: tx, Y: ty}
	if m.cfg.SearchMargin > 0 {
		opt.Box = pathing.BoxAround(from, to, m.cfg.SearchMargin)
	}
	steps := pathing.Route(g, from, to, opt)
	out := make([]model.Point, len(steps))
	for i, p := range steps {
		out[i] = model.Point{X: p.X, Y: p.Y}
	}
	return out
}

// DirCircle orders the neighbors of from by how well they follow the
// bearing to to.
func (m *Map) DirCircle(from, to model.Point) [8]model.Point {
	dirs := pathing.DirCircle(pathing.Pos{X: from.X, Y: from.Y}, pathing.Pos{X: to.X, Y: to.Y})
	var out [8]model.Point
	for i, d := range dirs {
		out[i] = from.Add(model.Point{X: d.X, Y: d.Y})
	}
	return out
}
