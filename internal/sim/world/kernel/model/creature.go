package model

import "tilesim.dev/internal/sim/catalogs"

// Creature is the slice of a creature the map needs for traps, fields and
// vehicle collisions.
type Creature interface {
	Pos() Tripoint
	SetPos(p Tripoint)
	CanAvoidTrap(trap *catalogs.TrapDef) bool
	ApplyTrapEffect(trap *catalogs.TrapDef, p Tripoint)
	ApplyFieldEffect(field *catalogs.FieldDef, density int)
	// HitByVehicle fires when a moving vehicle runs into the creature.
	HitByVehicle(v *Vehicle, speed int)
}

// Creatures locates creatures by absolute position.
type Creatures interface {
	At(p Tripoint) Creature
	All() []Creature
}

// Roster is a slice-backed Creatures.
type Roster struct {
	list []Creature
}

func (r *Roster) Add(c Creature) { r.list = append(r.list, c) }

func (r *Roster) Remove(c Creature) {
	for i, x := range r.list {
		if x == c {
			r.list = append(r.list[:i], r.list[i+1:]...)
			return
		}
	}
}

func (r *Roster) At(p Tripoint) Creature {
	for _, c := range r.list {
		if c.Pos() == p {
			return c
		}
	}
	return nil
}

func (r *Roster) All() []Creature { return r.list }
