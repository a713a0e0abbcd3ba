// Package world is the active window over the chunked world: windowing and
// coordinates, derived caches, cell access and mutation, visibility,
// routing, fields and vehicles.
package world

import (
	"errors"
	"fmt"
	"io"
	"log"

	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/logic/grid"
	"tilesim.dev/internal/sim/world/logic/mathx"
	"tilesim.dev/internal/sim/world/terrain/store"
)

var (
	ErrLayerOutOfRange = errors.New("layer out of range")
	ErrNotLoaded       = errors.New("window not loaded")
)

type vehRef struct {
	v    *model.Vehicle
	part int
}

// Map is the active window. It is not safe for concurrent use; one
// goroutine owns it and drives every operation.
type Map struct {
	cfg    Config
	cat    *catalogs.Catalogs
	store  *store.ChunkStore
	logger *log.Logger

	width int // chunks per edge
	n     int // cells per chunk edge
	cells int // cells per window edge

	// origin is the absolute chunk coordinate of slot (0,0); Z is the active layer.
	origin model.Tripoint
	loaded bool
	// slots[layer-MinLayer][gx+gy*width]
	slots [][]store.Handle

	transparency *grid.Cached[*grid.Grid[float64]]
	outside      *grid.Cached[*grid.Grid[bool]]
	seen         *grid.Cached[*grid.Grid[bool]]
	lightmap     *grid.Cached[*grid.Grid[float64]]
	seenFrom     model.Point
	seenRange    int
	lights       []lightSource

	vehIndex   map[model.Point]vehRef
	vehCells   map[*model.Vehicle][]model.Point
	vehClipped map[*model.Vehicle]bool
	vehDirty   bool

	traps map[uint16][]model.Point

	creatures model.Creatures
	itemHook  model.ItemHook
	lastPos   map[model.Creature]model.Tripoint

	turn    int64
	minCost int

	floorTer  uint16
	smokeFd   uint16
	fireFd    uint16
	nullFurn  uint16
	fieldKind map[string]fieldKind
}

func New(cfg Config, cat *catalogs.Catalogs, st *store.ChunkStore, logger *log.Logger) *Map {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if st.ChunkSize() != cfg.ChunkSize {
		panic(fmt.Sprintf("world: store chunk size %d, config %d", st.ChunkSize(), cfg.ChunkSize))
	}
	m := &Map{
		cfg:        cfg,
		cat:        cat,
		store:      st,
		logger:     logger,
		width:      cfg.WidthChunks,
		n:          cfg.ChunkSize,
		cells:      cfg.WidthChunks * cfg.ChunkSize,
		vehIndex:   map[model.Point]vehRef{},
		vehCells:   map[*model.Vehicle][]model.Point{},
		vehClipped: map[*model.Vehicle]bool{},
		traps:      map[uint16][]model.Point{},
		lastPos:    map[model.Creature]model.Tripoint{},
		seenRange:  cfg.SightRange,
		fieldKind: map[string]fieldKind{
			catalogs.FieldStatic: staticField{},
			catalogs.FieldGas:    gasField{},
			catalogs.FieldFire:   fireField{},
		},
	}
	layers := cfg.MaxLayer - cfg.MinLayer + 1
	m.slots = make([][]store.Handle, layers)
	for i := range m.slots {
		m.slots[i] = make([]store.Handle, m.width*m.width)
	}

	m.transparency = grid.NewCached(grid.New[float64](m.cells, m.cells), func(g **grid.Grid[float64]) { m.buildTransparency(*g) })
	m.outside = grid.NewCached(grid.New[bool](m.cells, m.cells), func(g **grid.Grid[bool]) { m.buildOutside(*g) })
	m.seen = grid.NewCached(grid.New[bool](m.cells, m.cells), func(g **grid.Grid[bool]) { m.buildSeen(*g) })
	m.lightmap = grid.NewCached(grid.New[float64](m.cells, m.cells), func(g **grid.Grid[float64]) { m.buildLightmap(*g) })

	m.floorTer, _ = cat.Terrain.ID("t_dirt")
	m.smokeFd, _ = cat.Fields.ID("fd_smoke")
	m.fireFd, _ = cat.Fields.ID("fd_fire")
	m.nullFurn, _ = cat.Furniture.ID("f_null")
	m.minCost = 2
	for _, d := range cat.Terrain.Defs {
		if d.MoveCost > 0 && d.MoveCost < m.minCost {
			m.minCost = d.MoveCost
		}
	}
	return m
}

func (m *Map) Config() Config                 { return m.cfg }
func (m *Map) Catalogs() *catalogs.Catalogs   { return m.cat }
func (m *Map) Store() *store.ChunkStore       { return m.store }
func (m *Map) SetCreatures(c model.Creatures) { m.creatures = c }
func (m *Map) SetItemHook(h model.ItemHook)   { m.itemHook = h }

// Origin is the absolute chunk coordinate of window slot (0,0) and the active layer.
func (m *Map) Origin() model.Tripoint { return m.origin }
func (m *Map) Layer() int             { return m.origin.Z }
func (m *Map) WidthChunks() int       { return m.width }
func (m *Map) ChunkSize() int         { return m.n }

// Cells is the window edge in cells.
func (m *Map) Cells() int   { return m.cells }
func (m *Map) Loaded() bool { return m.loaded }
func (m *Map) Turn() int64  { return m.turn }

func (m *Map) layerIndex(z int) int { return z - m.cfg.MinLayer }

func (m *Map) checkLayer(z int) error {
	if z < m.cfg.MinLayer || z > m.cfg.MaxLayer {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrLayerOutOfRange, z, m.cfg.MinLayer, m.cfg.MaxLayer)
	}
	return nil
}

// Load fills every window slot for every layer, with slot (0,0) at absolute
// chunk (ox, oy), and makes layer z active. Chunks already in the window are
// checked back in first.
func (m *Map) Load(ox, oy, z int, rebuildVehicles bool) error {
	if err := m.checkLayer(z); err != nil {
		return err
	}
	if m.loaded {
		m.releaseAll()
	}
	for li := range m.slots {
		layer := m.cfg.MinLayer + li
		for gy := 0; gy < m.width; gy++ {
			for gx := 0; gx < m.width; gx++ {
				m.slots[li][gx+gy*m.width] = m.store.Checkout(store.Coord{X: ox + gx, Y: oy + gy, Z: layer})
			}
		}
	}
	m.origin = model.Tripoint{X: ox, Y: oy, Z: z}
	m.loaded = true
	m.assertSlots()
	m.invalidateCaches()
	m.rebuildTrapIndex()
	m.vehDirty = true
	if rebuildVehicles {
		m.ResetVehicleCache()
	}
	return nil
}

func (m *Map) releaseAll() {
	for li := range m.slots {
		for i, h := range m.slots[li] {
			if h != 0 {
				m.store.Checkin(h)
				m.slots[li][i] = 0
			}
		}
	}
	m.loaded = false
}

// Unload checks every chunk back in.
func (m *Map) Unload() {
	if m.loaded {
		m.releaseAll()
	}
	m.vehIndex = map[model.Point]vehRef{}
	m.vehCells = map[*model.Vehicle][]model.Point{}
	m.vehClipped = map[*model.Vehicle]bool{}
	m.traps = map[uint16][]model.Point{}
}

// Shift moves the window by whole chunks. Chunks still covered keep their
// handles, departing chunks are checked in and new edge chunks checked out.
func (m *Map) Shift(dx, dy int) error {
	if !m.loaded {
		return ErrNotLoaded
	}
	if dx == 0 && dy == 0 {
		return nil
	}
	if mathx.AbsInt(dx) >= m.width || mathx.AbsInt(dy) >= m.width {
		return m.Load(m.origin.X+dx, m.origin.Y+dy, m.origin.Z, true)
	}

	fresh := make([]bool, m.width*m.width)
	for li := range m.slots {
		layer := m.cfg.MinLayer + li
		old := m.slots[li]
		next := make([]store.Handle, len(old))
		kept := make([]bool, len(old))
		for gy := 0; gy < m.width; gy++ {
			for gx := 0; gx < m.width; gx++ {
				sx, sy := gx+dx, gy+dy
				if sx >= 0 && sy >= 0 && sx < m.width && sy < m.width {
					next[gx+gy*m.width] = old[sx+sy*m.width]
					kept[sx+sy*m.width] = true
				}
			}
		}
		for i, h := range old {
			if kept[i] {
				continue
			}
			if layer == m.origin.Z {
				for _, v := range m.store.Get(h).Vehicles {
					m.unindexVehicle(v)
				}
			}
			m.store.Checkin(h)
		}
		for gy := 0; gy < m.width; gy++ {
			for gx := 0; gx < m.width; gx++ {
				i := gx + gy*m.width
				if next[i] != 0 {
					continue
				}
				next[i] = m.store.Checkout(store.Coord{X: m.origin.X + dx + gx, Y: m.origin.Y + dy + gy, Z: layer})
				if layer == m.origin.Z {
					fresh[i] = true
				}
			}
		}
		m.slots[li] = next
	}
	m.origin.X += dx
	m.origin.Y += dy
	m.assertSlots()
	m.invalidateCaches()
	m.shiftIndexes(dx*m.n, dy*m.n, fresh)
	return nil
}

// VerticalShift makes layer z active. No chunk moves.
func (m *Map) VerticalShift(z int) error {
	if !m.loaded {
		return ErrNotLoaded
	}
	if err := m.checkLayer(z); err != nil {
		return err
	}
	m.origin.Z = z
	m.invalidateCaches()
	m.rebuildTrapIndex()
	m.ResetVehicleCache()
	return nil
}

func (m *Map) assertSlots() {
	for li := range m.slots {
		for i, h := range m.slots[li] {
			if h == 0 {
				panic(fmt.Sprintf("world: empty window slot %d on layer %d after load", i, m.cfg.MinLayer+li))
			}
		}
	}
}

func (m *Map) invalidateCaches() {
	m.transparency.Invalidate()
	m.outside.Invalidate()
	m.seen.Invalidate()
	m.lightmap.Invalidate()
}

// invalidateTerrain is called by every mutation that can change what blocks
// light or roofs a cell.
func (m *Map) invalidateTerrain() {
	m.invalidateCaches()
}

// shiftIndexes moves local trap and vehicle positions by (-ox, -oy) cells and
// indexes the newly loaded chunks marked in fresh.
func (m *Map) shiftIndexes(ox, oy int, fresh []bool) {
	for id, pts := range m.traps {
		out := pts[:0]
		for _, p := range pts {
			q := model.Point{X: p.X - ox, Y: p.Y - oy}
			if m.InBounds(q.X, q.Y) {
				out = append(out, q)
			}
		}
		if len(out) == 0 {
			delete(m.traps, id)
			continue
		}
		m.traps[id] = out
	}

	if m.vehDirty {
		m.ResetVehicleCache()
	} else {
		idx := make(map[model.Point]vehRef, len(m.vehIndex))
		for p, r := range m.vehIndex {
			q := model.Point{X: p.X - ox, Y: p.Y - oy}
			if m.InBounds(q.X, q.Y) {
				idx[q] = r
			}
		}
		m.vehIndex = idx
		for v, pts := range m.vehCells {
			out := pts[:0]
			for _, p := range pts {
				q := model.Point{X: p.X - ox, Y: p.Y - oy}
				if m.InBounds(q.X, q.Y) {
					out = append(out, q)
				}
			}
			m.vehCells[v] = out
		}
	}

	for i, isNew := range fresh {
		if !isNew {
			continue
		}
		gx, gy := i%m.width, i/m.width
		ch := m.chunkAtGrid(gx, gy)
		m.indexChunkTraps(ch, gx, gy)
		for _, v := range ch.Vehicles {
			m.UpdateVehicleCache(v)
		}
	}
	for v := range m.vehClipped {
		m.UpdateVehicleCache(v)
	}
}

func (m *Map) chunkAtGrid(gx, gy int) *store.Chunk {
	return m.store.Get(m.slots[m.layerIndex(m.origin.Z)][gx+gy*m.width])
}

// ChunkAt returns the active-layer chunk at window grid slot (gx, gy), or nil.
func (m *Map) ChunkAt(gx, gy int) *store.Chunk {
	if !m.loaded || gx < 0 || gy < 0 || gx >= m.width || gy >= m.width {
		return nil
	}
	return m.chunkAtGrid(gx, gy)
}

// cell resolves a window-local cell to its chunk and cell index.
func (m *Map) cell(x, y int) (*store.Chunk, int, bool) {
	if !m.InBounds(x, y) {
		return nil, 0, false
	}
	ch := m.chunkAtGrid(x/m.n, y/m.n)
	return ch, ch.Index(x%m.n, y%m.n), true
}

// eachChunk visits the active-layer chunks with their grid slot.
func (m *Map) eachChunk(fn func(gx, gy int, ch *store.Chunk)) {
	if !m.loaded {
		return
	}
	for gy := 0; gy < m.width; gy++ {
		for gx := 0; gx < m.width; gx++ {
			fn(gx, gy, m.chunkAtGrid(gx, gy))
		}
	}
}

// InBounds reports whether a window-local cell is inside the window.
func (m *Map) InBounds(x, y int) bool {
	return m.loaded && x >= 0 && y >= 0 && x < m.cells && y < m.cells
}

// GetAbs converts a window-local cell to absolute cell coordinates.
func (m *Map) GetAbs(x, y int) model.Point {
	return model.Point{X: m.origin.X*m.n + x, Y: m.origin.Y*m.n + y}
}

// GetLocal converts an absolute cell to window-local coordinates.
func (m *Map) GetLocal(ax, ay int) model.Point {
	return model.Point{X: ax - m.origin.X*m.n, Y: ay - m.origin.Y*m.n}
}

// AbsTripoint is GetAbs on the active layer.
func (m *Map) AbsTripoint(x, y int) model.Tripoint {
	p := m.GetAbs(x, y)
	return model.Tripoint{X: p.X, Y: p.Y, Z: m.origin.Z}
}

// LocalOf maps an absolute tripoint into the window. ok is false when it is
// on another layer or outside the window.
func (m *Map) LocalOf(p model.Tripoint) (model.Point, bool) {
	l := m.GetLocal(p.X, p.Y)
	return l, p.Z == m.origin.Z && m.InBounds(l.X, l.Y)
}

// ChunkCoordOf is the absolute chunk holding absolute cell p.
func (m *Map) ChunkCoordOf(p model.Tripoint) store.Coord {
	return store.Coord{X: mathx.FloorDiv(p.X, m.n), Y: mathx.FloorDiv(p.Y, m.n), Z: p.Z}
}
