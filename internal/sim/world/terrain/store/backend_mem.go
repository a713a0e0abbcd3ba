package store

import (
	"sync"

	snapv1 "tilesim.dev/internal/persistence/snapshot"
)

// MemoryBackend keeps encoded chunks in a map. It round-trips through the
// same encoding as the database backend.
type MemoryBackend struct {
	mu    sync.Mutex
	blobs map[Coord][]byte
	// FailLoad makes every Load return this error.
	FailLoad error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: map[Coord][]byte{}}
}

func (b *MemoryBackend) Load(c Coord) (snapv1.ChunkV1, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailLoad != nil {
		return snapv1.ChunkV1{}, b.FailLoad
	}
	blob, ok := b.blobs[c]
	if !ok {
		return snapv1.ChunkV1{}, ErrNotFound
	}
	return snapv1.DecodeChunk(blob)
}

func (b *MemoryBackend) Save(c snapv1.ChunkV1) error {
	blob, err := snapv1.EncodeChunk(c)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[Coord{X: c.X, Y: c.Y, Z: c.Z}] = blob
	return nil
}

func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}
