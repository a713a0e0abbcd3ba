package model

import "github.com/google/uuid"

// Facing is a quarter-turn count clockwise from east: 0 east, 1 south,
// 2 west, 3 north.
type Facing int

func (f Facing) Norm() Facing { return ((f % 4) + 4) % 4 }

// Unit is the one-cell step in the facing direction.
func (f Facing) Unit() Point {
	switch f.Norm() {
	case 0:
		return Point{X: 1}
	case 1:
		return Point{Y: 1}
	case 2:
		return Point{X: -1}
	default:
		return Point{Y: -1}
	}
}

// Rotate turns an offset by the facing.
func (f Facing) Rotate(p Point) Point {
	for i := Facing(0); i < f.Norm(); i++ {
		p = Point{X: -p.Y, Y: p.X}
	}
	return p
}

type VehiclePart struct {
	Type string
	// Mount is the offset from the vehicle anchor when facing east.
	Mount Point
	HP    int
	Items []Item
	// Passenger is the creature boarded on this part, if any.
	Passenger Creature `json:"-"`
}

type Vehicle struct {
	ID     string
	Name   string
	Anchor Tripoint
	Facing Facing
	// Velocity is in cells per tick along Facing; negative reverses.
	Velocity int
	Parts    []VehiclePart
}

func NewVehicle(name string, parts []VehiclePart) *Vehicle {
	return &Vehicle{
		ID:    uuid.NewString(),
		Name:  name,
		Parts: parts,
	}
}

// PartOffset is the rotated offset of part i from the anchor.
func (v *Vehicle) PartOffset(i int) Point {
	return v.Facing.Rotate(v.Parts[i].Mount)
}

// PartPos is the absolute cell of part i.
func (v *Vehicle) PartPos(i int) Tripoint {
	return v.Anchor.Add(v.PartOffset(i))
}

// Footprint lists the distinct absolute cells covered by the vehicle.
func (v *Vehicle) Footprint() []Tripoint {
	seen := make(map[Tripoint]struct{}, len(v.Parts))
	out := make([]Tripoint, 0, len(v.Parts))
	for i := range v.Parts {
		p := v.PartPos(i)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// PartsAt returns the indexes of parts mounted at absolute cell p.
func (v *Vehicle) PartsAt(p Tripoint) []int {
	var out []int
	for i := range v.Parts {
		if v.PartPos(i) == p {
			out = append(out, i)
		}
	}
	return out
}

// Passengers lists boarded creatures with their part index.
func (v *Vehicle) Passengers() map[int]Creature {
	out := map[int]Creature{}
	for i := range v.Parts {
		if v.Parts[i].Passenger != nil {
			out[i] = v.Parts[i].Passenger
		}
	}
	return out
}
