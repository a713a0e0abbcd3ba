package store

import (
	"errors"
	"testing"

	snapv1 "tilesim.dev/internal/persistence/snapshot"
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
)

type fillGen struct {
	ter uint16
	n   int
}

func (g *fillGen) Generate(ch *Chunk) {
	g.n++
	for i := range ch.Ter {
		ch.Ter[i] = g.ter
	}
}

func TestCheckoutGeneratesThenLoads(t *testing.T) {
	cat := catalogs.MustDefault()
	dirt, _ := cat.Terrain.ID("t_dirt")
	wall, _ := cat.Terrain.ID("t_wall")
	smoke, _ := cat.Fields.ID("fd_smoke")
	be := NewMemoryBackend()
	gen := &fillGen{ter: dirt}
	s := NewChunkStore(cat, 4, be, gen, nil)

	c := Coord{X: 2, Y: -1}
	h := s.Checkout(c)
	if s.Checkout(c) != h {
		t.Fatalf("second checkout should reuse the handle")
	}
	ch := s.Get(h)
	if gen.n != 1 || ch.Ter[0] != dirt {
		t.Fatalf("chunk not generated")
	}
	ch.Ter[5] = wall
	ch.Items[3] = []model.Item{{Type: "rock"}}
	ch.Fields[7].Add(Field{Type: smoke, Density: 2, Age: 1})
	ch.Signage[1] = "hello"
	s.Checkin(h)
	if be.Len() != 1 {
		t.Fatalf("checkin did not save")
	}

	h2 := s.Checkout(c)
	got := s.Get(h2)
	if gen.n != 1 {
		t.Fatalf("stored chunk should not be regenerated")
	}
	if got.Ter[5] != wall || len(got.Items[3]) != 1 || got.Signage[1] != "hello" {
		t.Fatalf("chunk contents lost")
	}
	if f := got.Fields[7].Find(smoke); f == nil || f.Density != 2 || got.FieldCount != 1 {
		t.Fatalf("field lost: %+v", got.Fields[7])
	}
}

func TestCheckoutFallsBackOnBackendError(t *testing.T) {
	cat := catalogs.MustDefault()
	be := NewMemoryBackend()
	be.FailLoad = errors.New("disk on fire")
	gen := &fillGen{}
	s := NewChunkStore(cat, 4, be, gen, nil)
	s.Get(s.Checkout(Coord{}))
	if gen.n != 1 || s.Stats().Fallbacks != 1 {
		t.Fatalf("expected generation fallback, stats=%+v", s.Stats())
	}
}

func TestStaleHandlePanics(t *testing.T) {
	s := NewChunkStore(catalogs.MustDefault(), 4, nil, nil, nil)
	h := s.Checkout(Coord{})
	s.Checkin(h)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on stale handle")
		}
	}()
	s.Get(h)
}

func TestHandlesAreReused(t *testing.T) {
	s := NewChunkStore(catalogs.MustDefault(), 4, nil, nil, nil)
	a := s.Checkout(Coord{X: 1})
	s.Checkin(a)
	b := s.Checkout(Coord{X: 2})
	if a != b {
		t.Fatalf("free slot not reused: %d vs %d", a, b)
	}
	if got := s.Loaded(); len(got) != 1 || got[0].X != 2 {
		t.Fatalf("loaded=%v", got)
	}
}

func TestFieldsSetOps(t *testing.T) {
	var fs Fields
	if !fs.Add(Field{Type: 3, Density: 1}) || fs.Add(Field{Type: 3, Density: 2}) {
		t.Fatalf("add should report new entries only")
	}
	if len(fs) != 1 || fs.Find(3).Density != 2 {
		t.Fatalf("fields=%+v", fs)
	}
	if !fs.Remove(3) || fs.Remove(3) {
		t.Fatalf("remove semantics")
	}
}

// flakyBackend refuses the first failSaves saves.
type flakyBackend struct {
	*MemoryBackend
	failSaves int
}

func (b *flakyBackend) Save(c snapv1.ChunkV1) error {
	if b.failSaves > 0 {
		b.failSaves--
		return errors.New("disk full")
	}
	return b.MemoryBackend.Save(c)
}

func TestCheckinKeepsChunkWhenSaveFails(t *testing.T) {
	cat := catalogs.MustDefault()
	wall, _ := cat.Terrain.ID("t_wall")
	be := &flakyBackend{MemoryBackend: NewMemoryBackend(), failSaves: 1}
	gen := &fillGen{}
	s := NewChunkStore(cat, 4, be, gen, nil)

	c := Coord{X: 1, Y: 1}
	s.Get(s.Checkout(c)).Ter[5] = wall
	s.Checkin(s.Checkout(c))
	if s.Pending() != 1 || s.Stats().SaveErrs != 1 {
		t.Fatalf("pending=%d stats=%+v", s.Pending(), s.Stats())
	}
	h := s.Checkout(c)
	if s.Get(h).Ter[5] != wall || gen.n != 1 {
		t.Fatalf("edit lost after failed save (generated %d times)", gen.n)
	}
	if s.Pending() != 0 {
		t.Fatalf("checkout should claim the pending chunk")
	}

	be.failSaves = 1
	s.Checkin(h)
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if s.Pending() != 0 || be.Len() != 1 {
		t.Fatalf("flush did not persist pending chunk: pending=%d stored=%d", s.Pending(), be.Len())
	}
	if s.Get(s.Checkout(c)).Ter[5] != wall {
		t.Fatalf("edit lost after flush")
	}
}

func TestNilBackendKeepsCheckedInChunks(t *testing.T) {
	cat := catalogs.MustDefault()
	wall, _ := cat.Terrain.ID("t_wall")
	gen := &fillGen{}
	s := NewChunkStore(cat, 4, nil, gen, nil)
	c := Coord{X: -3}
	s.Get(s.Checkout(c)).Ter[0] = wall
	s.Checkin(s.Checkout(c))
	if s.Get(s.Checkout(c)).Ter[0] != wall || gen.n != 1 {
		t.Fatalf("chunk regenerated after checkin (generated %d times)", gen.n)
	}
}
