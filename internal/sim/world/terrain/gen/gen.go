// Package gen is the default chunk generator: noise-shaped ground with
// lakes and woods on the surface, solid rock with tunnels below it, and
// open air above.
package gen

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/logic/mathx"
	"tilesim.dev/internal/sim/world/terrain/store"
)

type Generator struct {
	Seed int64

	elev  opensimplex.Noise
	moist opensimplex.Noise

	null, dirt, grass, shrub, tree uint16
	waterSh, waterDp               uint16
	rock, rockFloor, wall, floor   uint16
	furnNull, rubble               uint16
	temperature                    int
}

func New(seed int64, cat *catalogs.Catalogs) *Generator {
	ter := func(name string) uint16 {
		id, _ := cat.Terrain.ID(name)
		return id
	}
	furn := func(name string) uint16 {
		id, _ := cat.Furniture.ID(name)
		return id
	}
	return &Generator{
		Seed:        seed,
		elev:        opensimplex.NewNormalized(seed),
		moist:       opensimplex.NewNormalized(seed + 1),
		null:        ter("t_null"),
		dirt:        ter("t_dirt"),
		grass:       ter("t_grass"),
		shrub:       ter("t_shrub"),
		tree:        ter("t_tree"),
		waterSh:     ter("t_water_sh"),
		waterDp:     ter("t_water_dp"),
		rock:        ter("t_rock"),
		rockFloor:   ter("t_rock_floor"),
		wall:        ter("t_wall"),
		floor:       ter("t_floor"),
		furnNull:    furn("f_null"),
		rubble:      furn("f_rubble"),
		temperature: 65,
	}
}

func (g *Generator) Generate(ch *store.Chunk) {
	ch.Temperature = g.temperature
	for y := 0; y < ch.Size; y++ {
		for x := 0; x < ch.Size; x++ {
			wx := ch.Coord.X*ch.Size + x
			wy := ch.Coord.Y*ch.Size + y
			i := ch.Index(x, y)
			ch.Furn[i] = g.furnNull
			switch {
			case ch.Coord.Z > 0:
				ch.Ter[i] = g.null
			case ch.Coord.Z < 0:
				ch.Ter[i] = g.underground(wx, wy, ch.Coord.Z)
			default:
				ch.Ter[i] = g.surface(wx, wy)
				if ch.Ter[i] == g.dirt && InCluster(g.Seed+7, wx, wy, 24, 1, 120) {
					ch.Furn[i] = g.rubble
				}
			}
		}
	}
	if ch.Coord.Z == 0 {
		g.ruin(ch)
	}
}

func (g *Generator) surface(wx, wy int) uint16 {
	e := octaveNoise(g.elev, float64(wx), float64(wy), 3, 1.0/48, 0.5)
	m := octaveNoise(g.moist, float64(wx), float64(wy), 2, 1.0/32, 0.5)
	switch {
	case e < 0.18:
		return g.waterDp
	case e < 0.26:
		return g.waterSh
	case m > 0.68 && mathx.Hash2(g.Seed+3, wx, wy)%100 < 35:
		return g.tree
	case m > 0.55 && mathx.Hash2(g.Seed+4, wx, wy)%100 < 15:
		return g.shrub
	case m > 0.4:
		return g.grass
	}
	return g.dirt
}

func (g *Generator) underground(wx, wy, z int) uint16 {
	if InCluster(g.Seed+int64(z)*31, wx, wy, 16, 3, 500) {
		return g.rockFloor
	}
	return g.rock
}

// ruin places a small walled room in roughly one chunk out of eight.
func (g *Generator) ruin(ch *store.Chunk) {
	h := mathx.Hash2(g.Seed+11, ch.Coord.X, ch.Coord.Y)
	if h%8 != 0 || ch.Size < 6 {
		return
	}
	w := 4 + int((h>>8)%uint64(ch.Size-5))
	hh := 4 + int((h>>16)%uint64(ch.Size-5))
	x0 := int((h >> 24) % uint64(ch.Size-w+1))
	y0 := int((h >> 32) % uint64(ch.Size-hh+1))
	for y := y0; y < y0+hh; y++ {
		for x := x0; x < x0+w; x++ {
			i := ch.Index(x, y)
			ch.Furn[i] = g.furnNull
			if x == x0 || y == y0 || x == x0+w-1 || y == y0+hh-1 {
				ch.Ter[i] = g.wall
			} else {
				ch.Ter[i] = g.floor
			}
		}
	}
	// Doorway on the south wall.
	ch.Ter[ch.Index(x0+w/2, y0+hh-1)] = g.floor
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// InCluster reports whether (x, y) falls inside one of the hash-placed
// circular clusters of the grid cells around it.
func InCluster(seed int64, x, y, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := mathx.FloorDiv(x, grid)
	gy := mathx.FloorDiv(y, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := mathx.Hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oy := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cy := cgy*grid + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}
