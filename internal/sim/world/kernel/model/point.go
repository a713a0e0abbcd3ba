package model

// Point is a 2D cell position. Whether it is window-local or absolute
// depends on the caller.
type Point struct {
	X int
	Y int
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Tripoint is a cell position with a layer. Creatures and vehicles carry
// absolute tripoints so window shifts never touch them.
type Tripoint struct {
	X int
	Y int
	Z int
}

func (p Tripoint) XY() Point { return Point{X: p.X, Y: p.Y} }

func (p Tripoint) Add(q Point) Tripoint { return Tripoint{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z} }
