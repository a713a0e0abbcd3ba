package store

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	snapv1 "tilesim.dev/internal/persistence/snapshot"
	"tilesim.dev/internal/sim/catalogs"
)

// ErrNotFound is returned by a Backend that has no record of a chunk.
var ErrNotFound = errors.New("chunk not found")

// Backend persists chunks in their stored form.
type Backend interface {
	Load(c Coord) (snapv1.ChunkV1, error)
	Save(c snapv1.ChunkV1) error
}

// Generator fills a freshly created chunk.
type Generator interface {
	Generate(ch *Chunk)
}

// Handle refers to a checked-out chunk. The zero Handle is invalid.
type Handle int32

// ChunkStore owns every chunk not currently in use by a caller as well as
// the ones that are checked out. Checked-out chunks live in an arena and
// are reached through handles.
type ChunkStore struct {
	cat     *catalogs.Catalogs
	size    int
	backend Backend
	gen     Generator
	logger  *log.Logger

	slots   []*Chunk
	free    []Handle
	byCoord map[Coord]Handle

	// pending holds checked-in chunks the backend has not accepted yet. With
	// a nil backend it is the only place chunks live once checked in.
	pending map[Coord]*Chunk

	stats Stats
}

type Stats struct {
	Loaded    int
	Generated int
	Saved     int
	Fallbacks int
	SaveErrs  int
}

// NewChunkStore builds a store. backend may be nil, in which case chunks are
// generated on first use and kept in memory after checkin.
func NewChunkStore(cat *catalogs.Catalogs, size int, backend Backend, gen Generator, logger *log.Logger) *ChunkStore {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &ChunkStore{
		cat:     cat,
		size:    size,
		backend: backend,
		gen:     gen,
		logger:  logger,
		slots:   []*Chunk{nil},
		byCoord: map[Coord]Handle{},
		pending: map[Coord]*Chunk{},
	}
}

func (s *ChunkStore) ChunkSize() int { return s.size }

func (s *ChunkStore) Stats() Stats { return s.stats }

// Checkout returns a handle to the chunk at c, loading it from the backend
// or generating it. Checking out a chunk that is already out returns the
// same handle.
func (s *ChunkStore) Checkout(c Coord) Handle {
	if h, ok := s.byCoord[c]; ok {
		return h
	}
	ch := s.load(c)
	var h Handle
	if n := len(s.free); n > 0 {
		h = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[h] = ch
	} else {
		h = Handle(len(s.slots))
		s.slots = append(s.slots, ch)
	}
	s.byCoord[c] = h
	return h
}

func (s *ChunkStore) load(c Coord) *Chunk {
	if ch, ok := s.pending[c]; ok {
		delete(s.pending, c)
		return ch
	}
	if s.backend != nil {
		stored, err := s.backend.Load(c)
		switch {
		case err == nil:
			if err := ExpectSize(stored, s.size); err != nil {
				s.logger.Printf("load chunk %v: %v; generating", c, err)
				s.stats.Fallbacks++
				break
			}
			ch, unknown, err := ImportChunk(s.cat, stored)
			if err != nil {
				s.logger.Printf("load chunk %v: %v; generating", c, err)
				s.stats.Fallbacks++
				break
			}
			if len(unknown) > 0 {
				s.logger.Printf("load chunk %v: unknown ids %v replaced with null", c, unknown)
			}
			s.stats.Loaded++
			return ch
		case errors.Is(err, ErrNotFound):
		default:
			s.logger.Printf("load chunk %v: %v; generating", c, err)
			s.stats.Fallbacks++
		}
	}
	ch := NewChunk(c, s.size)
	if s.gen != nil {
		s.gen.Generate(ch)
	}
	ch.CountFields()
	s.stats.Generated++
	return ch
}

// Get resolves a handle. A handle to a released slot is a programming error.
func (s *ChunkStore) Get(h Handle) *Chunk {
	if h <= 0 || int(h) >= len(s.slots) || s.slots[h] == nil {
		panic(fmt.Sprintf("store: stale chunk handle %d", h))
	}
	return s.slots[h]
}

// Checkin saves the chunk and releases its handle. A chunk the backend
// refuses stays pending in memory until a later Checkout or Flush.
func (s *ChunkStore) Checkin(h Handle) {
	ch := s.Get(h)
	if s.backend == nil || s.save(ch) != nil {
		s.pending[ch.Coord] = ch
	}
	delete(s.byCoord, ch.Coord)
	s.slots[h] = nil
	s.free = append(s.free, h)
}

func (s *ChunkStore) save(ch *Chunk) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Save(ExportChunk(s.cat, ch)); err != nil {
		s.stats.SaveErrs++
		s.logger.Printf("save chunk %v: %v", ch.Coord, err)
		return err
	}
	s.stats.Saved++
	return nil
}

// Flush saves every checked-out chunk without releasing it and retries the
// pending ones.
func (s *ChunkStore) Flush() error {
	if s.backend == nil {
		return nil
	}
	var errs []error
	for _, c := range s.Loaded() {
		if err := s.save(s.slots[s.byCoord[c]]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range sortCoords(keysOf(s.pending)) {
		if err := s.save(s.pending[c]); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(s.pending, c)
	}
	return errors.Join(errs...)
}

// Pending counts checked-in chunks held in memory.
func (s *ChunkStore) Pending() int { return len(s.pending) }

// Loaded lists the checked-out coordinates in a stable order.
func (s *ChunkStore) Loaded() []Coord {
	return sortCoords(keysOf(s.byCoord))
}

func keysOf[V any](m map[Coord]V) []Coord {
	keys := make([]Coord, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func sortCoords(keys []Coord) []Coord {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Z != keys[j].Z {
			return keys[i].Z < keys[j].Z
		}
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}
