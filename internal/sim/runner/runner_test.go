package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tilesim.dev/internal/persistence/snapshot"
	"tilesim.dev/internal/protocol"
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/encoding"
	"tilesim.dev/internal/sim/world"
	"tilesim.dev/internal/sim/world/terrain/gen"
	"tilesim.dev/internal/sim/world/terrain/store"
)

type memTicks struct {
	reports []world.TickReport
	flushes int
}

func (m *memTicks) WriteTick(r world.TickReport) error {
	m.reports = append(m.reports, r)
	return nil
}

func (m *memTicks) Flush() error {
	m.flushes++
	return nil
}

func newTestMap(t *testing.T) *world.Map {
	t.Helper()
	cat := catalogs.MustDefault()
	st := store.NewChunkStore(cat, 8, store.NewMemoryBackend(), gen.New(7, cat), nil)
	m := world.New(world.Config{WidthChunks: 3, ChunkSize: 8, MinLayer: -1, MaxLayer: 0, SightRange: 20}, cat, st, nil)
	if err := m.Load(0, 0, 0, true); err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}

func readFrame(t *testing.T, ch chan []byte) protocol.WindowMsg {
	t.Helper()
	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		if _, err := protocol.Validate(b); err != nil {
			t.Fatalf("frame fails schema: %v\n%s", err, b)
		}
		var msg protocol.WindowMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return msg
	default:
		t.Fatalf("no frame queued")
	}
	return protocol.WindowMsg{}
}

func TestStepWritesTickLog(t *testing.T) {
	ticks := &memTicks{}
	r := New(newTestMap(t), Config{TickRateHz: 10}, ticks, nil)
	for i := 0; i < 3; i++ {
		r.Step()
	}
	if r.CurrentTick() != 3 {
		t.Fatalf("tick=%d", r.CurrentTick())
	}
	if len(ticks.reports) != 3 {
		t.Fatalf("reports=%d", len(ticks.reports))
	}
	for i, rep := range ticks.reports {
		if rep.Turn != int64(i+1) {
			t.Fatalf("report %d turn=%d", i, rep.Turn)
		}
	}
}

func TestObserverFramesHonourEvery(t *testing.T) {
	r := New(newTestMap(t), Config{}, nil, nil)
	every := make(chan []byte, 8)
	each := make(chan []byte, 8)
	r.handleJoin(JoinRequest{SessionID: "O1", Out: every, Sub: protocol.SubscribeMsg{Every: 2}})
	r.handleJoin(JoinRequest{SessionID: "O2", Out: each})

	for i := 0; i < 4; i++ {
		r.Step()
	}
	if len(each) != 4 {
		t.Fatalf("every-tick observer got %d frames", len(each))
	}
	if len(every) != 2 {
		t.Fatalf("every-2 observer got %d frames", len(every))
	}
	if f := readFrame(t, every); f.Tick != 2 {
		t.Fatalf("first frame tick=%d want 2", f.Tick)
	}
	f := readFrame(t, each)
	if f.Tick != 1 || f.Origin != [3]int{0, 0, 0} || f.Fields == nil || f.Seen != nil {
		t.Fatalf("frame: %+v", f)
	}

	r.handleLeave("O1")
	if _, ok := <-every; !ok {
		// The remaining frame drains first.
		t.Fatalf("expected queued frame before close")
	}
	if _, ok := <-every; ok {
		t.Fatalf("expected channel closed after leave")
	}
}

func TestObserverQueueDropsOldest(t *testing.T) {
	r := New(newTestMap(t), Config{}, nil, nil)
	out := make(chan []byte, 1)
	r.handleJoin(JoinRequest{SessionID: "O1", Out: out})
	r.Step()
	r.Step()
	r.Step()
	if f := readFrame(t, out); f.Tick != 3 {
		t.Fatalf("kept tick %d, want newest", f.Tick)
	}
}

func TestMaskedFrames(t *testing.T) {
	m := newTestMap(t)
	r := New(m, Config{}, nil, nil)
	out := make(chan []byte, 2)
	r.handleJoin(JoinRequest{SessionID: "O1", Out: out, Sub: protocol.SubscribeMsg{Masks: true, Terrain: true, Observer: [2]int{12, 12}, SightRange: 5}})
	r.Step()
	f := readFrame(t, out)
	n := m.Cells()
	light, err := encoding.DecodeRLE(f.Light, n*n)
	if err != nil {
		t.Fatalf("light layer: %v", err)
	}
	if len(f.Seen) != (n*n+7)/8 {
		t.Fatalf("seen size=%d cells=%d", len(f.Seen), n)
	}
	for i, l := range light {
		if l > uint16(world.Bright) {
			t.Fatalf("light level %d at %d", l, i)
		}
	}
	ter, err := encoding.DecodeRLE(f.Terrain, n*n)
	if err != nil {
		t.Fatalf("terrain layer: %v", err)
	}
	if ter[3+4*n] != m.Ter(3, 4) {
		t.Fatalf("terrain id at (3,4)=%d want %d", ter[3+4*n], m.Ter(3, 4))
	}
	i := 12 + 12*n
	if f.Seen[i/8]&(1<<(i%8)) == 0 {
		t.Fatalf("observer cell not seen")
	}
	far := 0
	if f.Seen[far/8]&1 != 0 {
		t.Fatalf("cell (0,0) seen beyond sight range")
	}
}

func TestRunAppliesShiftRequests(t *testing.T) {
	ticks := &memTicks{}
	r := New(newTestMap(t), Config{TickRateHz: 50}, ticks, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	reply := make(chan error, 1)
	r.Shift() <- ShiftRequest{DX: 1, DY: -1, Reply: reply}
	select {
	case err := <-reply:
		if err != nil {
			t.Fatalf("shift: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("shift not applied")
	}
	if got := r.Bootstrap().Origin; got != [3]int{1, -1, 0} {
		t.Fatalf("origin=%v", got)
	}

	bad := 5
	r.Shift() <- ShiftRequest{Layer: &bad, Reply: reply}
	select {
	case err := <-reply:
		if err == nil {
			t.Fatalf("expected layer error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("shift not applied")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop")
	}
	if ticks.flushes == 0 {
		t.Fatalf("tick log not flushed on stop")
	}
}

func TestSnapshotsAndArchives(t *testing.T) {
	dir := t.TempDir()
	r := New(newTestMap(t), Config{DataDir: dir, SnapshotEvery: 2, ArchiveEvery: 4}, nil, nil)
	for i := 0; i < 4; i++ {
		r.Step()
	}
	snap, err := snapshot.ReadWindow(filepath.Join(dir, "snapshots", "window.snap.zst"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Header.Tick != 4 || snap.Width != 3 || len(snap.Chunks) != 2*3*3 {
		t.Fatalf("snapshot: tick=%d width=%d chunks=%d", snap.Header.Tick, snap.Width, len(snap.Chunks))
	}
	if _, err := os.Stat(filepath.Join(dir, "archives", "tick_0000000004", "meta.json")); err != nil {
		t.Fatalf("archive meta: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "archives", "tick_0000000002")); !os.IsNotExist(err) {
		t.Fatalf("tick 2 should not be archived: %v", err)
	}
}
