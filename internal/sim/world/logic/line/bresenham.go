// Package line builds grid lines between two cells. A line is fully
// described by its endpoints and a Bresenham error offset, so a caller that
// found a usable line can rebuild it later without searching again.
package line

import "tilesim.dev/internal/sim/world/logic/mathx"

type Pos struct {
	X int
	Y int
}

// Search tries candidate lines from (fx, fy) to (tx, ty), starting from the
// most skewed offset, and returns the offset of the first line whose
// intermediate cells all satisfy pass. The endpoints are never tested.
func Search(fx, fy, tx, ty int, pass func(x, y int) bool) (int, bool) {
	dx, dy := tx-fx, ty-fy
	if dx == 0 && dy == 0 {
		return 0, true
	}
	ax := mathx.AbsInt(dx) << 1
	ay := mathx.AbsInt(dy) << 1
	sx, sy := mathx.Sign(dx), mathx.Sign(dy)

	if ax > ay {
		st := mathx.Sign(ay - (ax >> 1))
		for slope := mathx.AbsInt(ay-(ax>>1))*2 + 1; slope >= -1; slope-- {
			t := slope * st
			x, y := fx, fy
			for i := 0; i < mathx.AbsInt(dx); i++ {
				if t > 0 {
					y += sy
					t -= ax
				}
				x += sx
				t += ay
				if x == tx && y == ty {
					return slope * st, true
				}
				if !pass(x, y) {
					break
				}
			}
		}
		return 0, false
	}

	st := mathx.Sign(ax - (ay >> 1))
	for slope := mathx.AbsInt(ax-(ay>>1))*2 + 1; slope >= -1; slope-- {
		t := slope * st
		x, y := fx, fy
		for i := 0; i < mathx.AbsInt(dy); i++ {
			if t > 0 {
				x += sx
				t -= ay
			}
			y += sy
			t += ax
			if x == tx && y == ty {
				return slope * st, true
			}
			if !pass(x, y) {
				break
			}
		}
	}
	return 0, false
}

// To returns the cells from (fx, fy) to (tx, ty) using error offset t. The
// start cell is excluded and the end cell included.
func To(fx, fy, tx, ty, t int) []Pos {
	dx, dy := tx-fx, ty-fy
	out := make([]Pos, 0, mathx.Chebyshev(fx, fy, tx, ty))
	a := mathx.AbsInt(dx) << 1
	b := mathx.AbsInt(dy) << 1
	sx, sy := mathx.Sign(dx), mathx.Sign(dy)
	cur := Pos{X: fx, Y: fy}

	switch {
	case a == 0:
		for i := 0; i < mathx.AbsInt(dy); i++ {
			cur.Y += sy
			out = append(out, cur)
		}
	case b == 0:
		for i := 0; i < mathx.AbsInt(dx); i++ {
			cur.X += sx
			out = append(out, cur)
		}
	case a > b:
		for i := 0; i < mathx.AbsInt(dx); i++ {
			if t > 0 {
				cur.Y += sy
				t -= a
			}
			cur.X += sx
			t += b
			out = append(out, cur)
		}
	default:
		for i := 0; i < mathx.AbsInt(dy); i++ {
			if t > 0 {
				cur.X += sx
				t -= b
			}
			cur.Y += sy
			t += a
			out = append(out, cur)
		}
	}
	return out
}
