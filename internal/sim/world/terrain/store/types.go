package store

import "tilesim.dev/internal/sim/world/kernel/model"

// Coord is an absolute chunk coordinate; Z is the layer.
type Coord struct {
	X int
	Y int
	Z int
}

// Field is one environmental entry in a cell. Density is 1..3; an entry
// that would reach 0 is removed instead.
type Field struct {
	Type    uint16
	Density int
	Age     int
}

// Fields holds at most one entry per field type.
type Fields []Field

func (fs Fields) Find(typ uint16) *Field {
	for i := range fs {
		if fs[i].Type == typ {
			return &fs[i]
		}
	}
	return nil
}

// Add inserts or replaces the entry for f.Type and reports whether the entry
// was new.
func (fs *Fields) Add(f Field) bool {
	if cur := fs.Find(f.Type); cur != nil {
		*cur = f
		return false
	}
	*fs = append(*fs, f)
	return true
}

func (fs *Fields) Remove(typ uint16) bool {
	for i := range *fs {
		if (*fs)[i].Type == typ {
			*fs = append((*fs)[:i], (*fs)[i+1:]...)
			return true
		}
	}
	return false
}

// Marker is a computer console or camp placed in a chunk.
type Marker struct {
	Pos      model.Point
	Name     string
	Security int
}

// Chunk is an N×N block of cells. Per-cell slices are indexed x + y*Size.
type Chunk struct {
	Coord Coord
	Size  int

	Ter       []uint16
	Furn      []uint16
	Trap      []uint16
	Radiation []int
	Items     [][]model.Item
	Fields    []Fields

	// Temperature applies to the whole chunk.
	Temperature int

	Signage  map[int]string
	Graffiti map[int]string
	Computer *Marker
	Camp     *Marker

	// Vehicles anchored in this chunk.
	Vehicles []*model.Vehicle

	// FieldCount is the number of field entries in the chunk.
	FieldCount int
}

func NewChunk(c Coord, size int) *Chunk {
	n := size * size
	return &Chunk{
		Coord:     c,
		Size:      size,
		Ter:       make([]uint16, n),
		Furn:      make([]uint16, n),
		Trap:      make([]uint16, n),
		Radiation: make([]int, n),
		Items:     make([][]model.Item, n),
		Fields:    make([]Fields, n),
		Signage:   map[int]string{},
		Graffiti:  map[int]string{},
	}
}

func (c *Chunk) Index(x, y int) int { return x + y*c.Size }

func (c *Chunk) In(x, y int) bool { return x >= 0 && y >= 0 && x < c.Size && y < c.Size }

// Cell converts a cell index back to chunk-local coordinates.
func (c *Chunk) Cell(i int) (int, int) { return i % c.Size, i / c.Size }

// CountFields recomputes FieldCount from the cells.
func (c *Chunk) CountFields() int {
	n := 0
	for _, fs := range c.Fields {
		n += len(fs)
	}
	c.FieldCount = n
	return n
}

func (c *Chunk) RemoveVehicle(v *model.Vehicle) bool {
	for i, x := range c.Vehicles {
		if x == v {
			c.Vehicles = append(c.Vehicles[:i], c.Vehicles[i+1:]...)
			return true
		}
	}
	return false
}
