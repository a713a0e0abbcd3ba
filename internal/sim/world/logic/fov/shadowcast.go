// Package fov implements octant shadowcasting over an abstract opacity grid.
package fov

// Octant transforms. Each row maps (dx, dy) in the canonical octant into
// grid space as (dx*xx + dy*xy, dx*yx + dy*yy).
var octants = [8][4]int{
	{1, 0, 0, 1},
	{0, 1, 1, 0},
	{0, -1, 1, 0},
	{-1, 0, 0, 1},
	{-1, 0, 0, -1},
	{0, -1, -1, 0},
	{0, 1, -1, 0},
	{1, 0, 0, -1},
}

// span is a pending row scan bounded by two slopes (start >= end).
type span struct {
	row        int
	start, end float64
}

// Opaque reports whether light stops at (x, y). Cells outside the caller's
// grid should report true.
type Opaque func(x, y int) bool

// Visit receives every lit cell together with its squared distance from the
// origin. Cells on octant borders may be visited twice.
type Visit func(x, y, dist2 int)

// Cast runs shadowcasting from (ox, oy) out to radius. The origin is always
// visited. Opaque cells are visited (walls are seen) but block what lies
// behind them.
func Cast(ox, oy, radius int, opaque Opaque, visit Visit) {
	visit(ox, oy, 0)
	if radius <= 0 {
		return
	}
	stack := make([]span, 0, 16)
	for _, o := range octants {
		stack = append(stack[:0], span{row: 1, start: 1, end: 0})
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack = castSpan(ox, oy, radius, s, o, opaque, visit, stack)
		}
	}
}

func castSpan(ox, oy, radius int, s span, o [4]int, opaque Opaque, visit Visit, stack []span) []span {
	start := s.start
	if start < s.end {
		return stack
	}
	r2 := radius * radius
	xx, xy, yx, yy := o[0], o[1], o[2], o[3]
	nextStart := 0.0
	blocked := false
	for dist := s.row; dist <= radius && !blocked; dist++ {
		dy := -dist
		for dx := -dist; dx <= 0; dx++ {
			left := (float64(dx) - 0.5) / (float64(dy) + 0.5)
			right := (float64(dx) + 0.5) / (float64(dy) - 0.5)
			if start < right {
				continue
			}
			if s.end > left {
				break
			}
			x := ox + dx*xx + dy*xy
			y := oy + dx*yx + dy*yy
			if d2 := dx*dx + dy*dy; d2 <= r2 {
				visit(x, y, d2)
			}
			if blocked {
				if opaque(x, y) {
					nextStart = right
					continue
				}
				blocked = false
				start = nextStart
			} else if opaque(x, y) && dist < radius {
				blocked = true
				stack = append(stack, span{row: dist + 1, start: start, end: left})
				nextStart = right
			}
		}
	}
	return stack
}
