// Package grid holds fixed-size 2D arrays over the active window's cell space.
package grid

// Grid is a row-major W x H array. Reads outside the grid return the zero
// value and writes outside it are ignored.
type Grid[T any] struct {
	w, h  int
	cells []T
}

func New[T any](w, h int) *Grid[T] {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Grid[T]{w: w, h: h, cells: make([]T, w*h)}
}

func (g *Grid[T]) Width() int  { return g.w }
func (g *Grid[T]) Height() int { return g.h }

func (g *Grid[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

func (g *Grid[T]) At(x, y int) T {
	if !g.InBounds(x, y) {
		var zero T
		return zero
	}
	return g.cells[x+y*g.w]
}

// Ptr returns nil outside the grid.
func (g *Grid[T]) Ptr(x, y int) *T {
	if !g.InBounds(x, y) {
		return nil
	}
	return &g.cells[x+y*g.w]
}

func (g *Grid[T]) Set(x, y int, v T) {
	if !g.InBounds(x, y) {
		return
	}
	g.cells[x+y*g.w] = v
}

func (g *Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

// Each visits cells in row-major order.
func (g *Grid[T]) Each(fn func(x, y int, v T)) {
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			fn(x, y, g.cells[x+y*g.w])
		}
	}
}

// Translate moves every cell by (-dx,-dy): the value at (x+dx, y+dy) ends up
// at (x, y). Uncovered cells are set to fill.
func (g *Grid[T]) Translate(dx, dy int, fill T) {
	if dx == 0 && dy == 0 {
		return
	}
	next := make([]T, len(g.cells))
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			sx, sy := x+dx, y+dy
			if g.InBounds(sx, sy) {
				next[x+y*g.w] = g.cells[sx+sy*g.w]
			} else {
				next[x+y*g.w] = fill
			}
		}
	}
	g.cells = next
}
