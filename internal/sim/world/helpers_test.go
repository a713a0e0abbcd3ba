package world

import (
	"os"
	"path/filepath"
	"testing"

	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
	"tilesim.dev/internal/sim/world/terrain/store"
)

// tagGen fills chunks with one terrain and tags Radiation[0] with the chunk
// coordinate so tests can tell chunks apart.
type tagGen struct {
	ter uint16
}

func (g tagGen) Generate(ch *store.Chunk) {
	for i := range ch.Ter {
		ch.Ter[i] = g.ter
	}
	ch.Radiation[0] = chunkTag(ch.Coord)
}

func chunkTag(c store.Coord) int { return 1 + (c.X+50)*10000 + (c.Y+50)*100 + (c.Z + 5) }

type fixture struct {
	m   *Map
	cat *catalogs.Catalogs
	st  *store.ChunkStore
	be  *store.MemoryBackend
}

func newFixture(t *testing.T, cat *catalogs.Catalogs, width, size int) *fixture {
	t.Helper()
	if cat == nil {
		cat = catalogs.MustDefault()
	}
	be := store.NewMemoryBackend()
	st := store.NewChunkStore(cat, size, be, tagGen{ter: id(t, cat.Terrain.ID, "t_dirt")}, nil)
	m := New(Config{WidthChunks: width, ChunkSize: size, MinLayer: -1, MaxLayer: 1, SightRange: 30}, cat, st, nil)
	if err := m.Load(0, 0, 0, true); err != nil {
		t.Fatalf("load: %v", err)
	}
	return &fixture{m: m, cat: cat, st: st, be: be}
}

func id(t *testing.T, lookup func(string) (uint16, bool), name string) uint16 {
	t.Helper()
	v, ok := lookup(name)
	if !ok {
		t.Fatalf("unknown id %q", name)
	}
	return v
}

func (f *fixture) ter(t *testing.T, name string) uint16 {
	return id(t, f.cat.Terrain.ID, name)
}

func (f *fixture) furn(t *testing.T, name string) uint16 {
	return id(t, f.cat.Furniture.ID, name)
}

func (f *fixture) field(t *testing.T, name string) uint16 {
	return id(t, f.cat.Fields.ID, name)
}

// fieldCatalog loads the default catalogs with fields.json replaced.
func fieldCatalog(t *testing.T, fieldsJSON string) *catalogs.Catalogs {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fields.json"), []byte(fieldsJSON), 0o644); err != nil {
		t.Fatalf("write fields: %v", err)
	}
	cat, err := catalogs.Load(dir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cat
}

const testFields = `[
  {"id": "fd_null", "name": "nothing", "kind": "static"},
  {"id": "fd_acid", "name": "acid", "kind": "static", "half_life": 10, "damage": [1, 2, 4], "destroys_items": true},
  {"id": "fd_smoke", "name": "smoke", "kind": "gas", "half_life": 4, "spread_percent": 100,
    "transparency": [0.7, 0.4, 0.0]},
  {"id": "fd_fire", "name": "fire", "kind": "fire", "half_life": 20, "spread_percent": 100,
    "damage": [3, 6, 10], "destroys_items": true}
]`

type stubCreature struct {
	pos        model.Tripoint
	avoid      bool
	trapHits   int
	fieldHits  map[string]int
	vehicleHit int
}

func newCreature(p model.Tripoint) *stubCreature {
	return &stubCreature{pos: p, fieldHits: map[string]int{}}
}

func (c *stubCreature) Pos() model.Tripoint                               { return c.pos }
func (c *stubCreature) SetPos(p model.Tripoint)                           { c.pos = p }
func (c *stubCreature) CanAvoidTrap(*catalogs.TrapDef) bool               { return c.avoid }
func (c *stubCreature) ApplyTrapEffect(*catalogs.TrapDef, model.Tripoint) { c.trapHits++ }
func (c *stubCreature) ApplyFieldEffect(f *catalogs.FieldDef, density int) {
	c.fieldHits[f.ID] += density
}
func (c *stubCreature) HitByVehicle(*model.Vehicle, int) { c.vehicleHit++ }

type stubHook struct {
	keepActive bool
	processed  int
	signals    []string
	destroyed  []string
}

func (h *stubHook) ProcessActive(it *model.Item, _ model.Tripoint, _ int64) bool {
	h.processed++
	it.Charges--
	return h.keepActive
}

func (h *stubHook) Signal(it *model.Item, _ model.Tripoint, signal string) bool {
	h.signals = append(h.signals, it.Type+":"+signal)
	return false
}

func (h *stubHook) Destroyed(it model.Item, _ model.Tripoint, field string) {
	h.destroyed = append(h.destroyed, it.Type+":"+field)
}

func totalDensity(m *Map, typ uint16) int {
	n := 0
	for y := 0; y < m.Cells(); y++ {
		for x := 0; x < m.Cells(); x++ {
			n += m.GetFieldDensity(x, y, typ)
		}
	}
	return n
}
