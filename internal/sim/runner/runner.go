package runner

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"tilesim.dev/internal/persistence/archive"
	"tilesim.dev/internal/persistence/snapshot"
	"tilesim.dev/internal/protocol"
	"tilesim.dev/internal/sim/encoding"
	"tilesim.dev/internal/sim/world"
)

// TickWriter receives one report per tick.
type TickWriter interface {
	WriteTick(world.TickReport) error
	Flush() error
}

type Config struct {
	TickRateHz int
	Seed       int64
	// StartTick resumes numbering after a restored snapshot.
	StartTick uint64

	// DataDir holds snapshots/ and archives/. Empty disables both.
	DataDir       string
	SnapshotEvery uint64
	ArchiveEvery  uint64
}

// JoinRequest registers an observer session. Out receives encoded WINDOW
// frames and is closed when the session leaves or the runner stops.
type JoinRequest struct {
	SessionID string
	Out       chan []byte
	Sub       protocol.SubscribeMsg
}

type SubscribeRequest struct {
	SessionID string
	Sub       protocol.SubscribeMsg
}

// ShiftRequest moves the window between ticks. Reply, when set, receives the
// result and must have room for one value.
type ShiftRequest struct {
	DX, DY int
	Layer  *int
	Reply  chan error
}

type observer struct {
	id  string
	out chan []byte
	sub protocol.SubscribeMsg
}

// Runner owns a world.Map. Every Map call happens on the goroutine running
// Run (or the caller of Step when Run is not used).
type Runner struct {
	m     *world.Map
	cfg   Config
	log   *log.Logger
	ticks TickWriter

	tick atomic.Uint64

	mu     sync.Mutex
	origin [3]int

	join      chan JoinRequest
	subscribe chan SubscribeRequest
	leave     chan string
	shift     chan ShiftRequest
	stop      chan struct{}
	stopOnce  sync.Once

	observers map[string]*observer
}

func New(m *world.Map, cfg Config, ticks TickWriter, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 5
	}
	r := &Runner{
		m:         m,
		cfg:       cfg,
		log:       logger,
		ticks:     ticks,
		join:      make(chan JoinRequest, 16),
		subscribe: make(chan SubscribeRequest, 64),
		leave:     make(chan string, 16),
		shift:     make(chan ShiftRequest, 4),
		stop:      make(chan struct{}),
		observers: map[string]*observer{},
	}
	r.tick.Store(cfg.StartTick)
	r.publishOrigin()
	return r
}

func (r *Runner) Join() chan<- JoinRequest           { return r.join }
func (r *Runner) Subscribe() chan<- SubscribeRequest { return r.subscribe }
func (r *Runner) Leave() chan<- string               { return r.leave }
func (r *Runner) Shift() chan<- ShiftRequest         { return r.shift }

func (r *Runner) CurrentTick() uint64 { return r.tick.Load() }

func (r *Runner) Origin() [3]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.origin
}

func (r *Runner) publishOrigin() {
	o := r.m.Origin()
	r.mu.Lock()
	r.origin = [3]int{o.X, o.Y, o.Z}
	r.mu.Unlock()
}

// Bootstrap describes the window for observers. Safe from any goroutine.
func (r *Runner) Bootstrap() protocol.BootstrapResponse {
	cfg := r.m.Config()
	cat := r.m.Catalogs()
	return protocol.BootstrapResponse{
		ProtocolVersion: protocol.Version,
		Tick:            r.CurrentTick(),
		Origin:          r.Origin(),
		WindowParams: protocol.WindowParams{
			TickRateHz:  r.cfg.TickRateHz,
			WidthChunks: cfg.WidthChunks,
			ChunkSize:   cfg.ChunkSize,
			MinLayer:    cfg.MinLayer,
			MaxLayer:    cfg.MaxLayer,
			Seed:        r.cfg.Seed,
		},
		Catalogs: protocol.CatalogDigests{
			All:       cat.Digest(),
			Terrain:   protocol.DigestRef{Digest: cat.Terrain.Digest, Count: len(cat.Terrain.Palette)},
			Furniture: protocol.DigestRef{Digest: cat.Furniture.Digest, Count: len(cat.Furniture.Palette)},
			Fields:    protocol.DigestRef{Digest: cat.Fields.Digest, Count: len(cat.Fields.Palette)},
		},
	}
}

func (r *Runner) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(r.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer r.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case req := <-r.join:
			r.handleJoin(req)
		case req := <-r.subscribe:
			r.handleSubscribe(req)
		case id := <-r.leave:
			r.handleLeave(id)
		case req := <-r.shift:
			r.handleShift(req)
		case <-ticker.C:
			r.Step()
		}
	}
}

func (r *Runner) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

func (r *Runner) shutdown() {
	if r.ticks != nil {
		if err := r.ticks.Flush(); err != nil {
			r.log.Printf("tick log flush: %v", err)
		}
	}
	if r.cfg.SnapshotEvery > 0 {
		r.saveSnapshot(r.CurrentTick())
	}
	if err := r.m.Store().Flush(); err != nil {
		r.log.Printf("chunk flush: %v", err)
	}
	for id, o := range r.observers {
		close(o.out)
		delete(r.observers, id)
	}
}

// Step advances the map by one tick and fans the result out.
func (r *Runner) Step() world.TickReport {
	t := r.tick.Add(1)
	rep := r.m.Tick(int64(t))
	if r.ticks != nil {
		if err := r.ticks.WriteTick(rep); err != nil {
			r.log.Printf("tick log: %v", err)
		}
	}
	r.broadcast(t, rep)
	if r.cfg.SnapshotEvery > 0 && t%r.cfg.SnapshotEvery == 0 {
		r.saveSnapshot(t)
	}
	return rep
}

func (r *Runner) handleShift(req ShiftRequest) {
	err := r.applyShift(req)
	if err != nil {
		r.log.Printf("shift (%d,%d): %v", req.DX, req.DY, err)
	} else {
		o := r.m.Origin()
		r.log.Printf("window at (%d,%d) layer %d", o.X, o.Y, o.Z)
	}
	if req.Reply != nil {
		select {
		case req.Reply <- err:
		default:
		}
	}
}

func (r *Runner) applyShift(req ShiftRequest) error {
	defer r.publishOrigin()
	if err := r.m.Shift(req.DX, req.DY); err != nil {
		return err
	}
	if req.Layer != nil && *req.Layer != r.m.Layer() {
		return r.m.VerticalShift(*req.Layer)
	}
	return nil
}

func (r *Runner) handleJoin(req JoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	// Replace existing session id if any.
	if old := r.observers[req.SessionID]; old != nil {
		close(old.out)
	}
	r.observers[req.SessionID] = &observer{
		id:  req.SessionID,
		out: req.Out,
		sub: r.normalize(req.Sub),
	}
}

func (r *Runner) handleSubscribe(req SubscribeRequest) {
	if o := r.observers[req.SessionID]; o != nil {
		o.sub = r.normalize(req.Sub)
	}
}

func (r *Runner) handleLeave(id string) {
	if o := r.observers[id]; o != nil {
		close(o.out)
		delete(r.observers, id)
	}
}

func (r *Runner) normalize(sub protocol.SubscribeMsg) protocol.SubscribeMsg {
	sub.Every = clampInt(sub.Every, 1, 100, 1)
	sub.SightRange = clampInt(sub.SightRange, 1, r.m.Cells(), r.m.Config().SightRange)
	last := r.m.Cells() - 1
	sub.Observer[0] = clampInt(sub.Observer[0], 0, last, 0)
	sub.Observer[1] = clampInt(sub.Observer[1], 0, last, 0)
	return sub
}

func (r *Runner) broadcast(t uint64, rep world.TickReport) {
	if len(r.observers) == 0 {
		return
	}
	msg := r.frame(t, rep)
	var plain []byte
	var terrain string
	for _, o := range r.observers {
		if t%uint64(o.sub.Every) != 0 {
			continue
		}
		if o.sub.Masks || o.sub.Terrain {
			framed := msg
			if o.sub.Masks {
				framed.Seen, framed.Light = r.masks(o.sub)
			}
			if o.sub.Terrain {
				if terrain == "" {
					terrain = r.terrainLayer()
				}
				framed.Terrain = terrain
			}
			b, err := json.Marshal(framed)
			if err != nil {
				r.log.Printf("encode frame: %v", err)
				continue
			}
			sendLatest(o.out, b)
			continue
		}
		if plain == nil {
			b, err := json.Marshal(msg)
			if err != nil {
				r.log.Printf("encode frame: %v", err)
				return
			}
			plain = b
		}
		sendLatest(o.out, plain)
	}
}

func (r *Runner) frame(t uint64, rep world.TickReport) protocol.WindowMsg {
	o := r.m.Origin()
	msg := protocol.WindowMsg{
		Type:            protocol.TypeWindow,
		ProtocolVersion: protocol.Version,
		Tick:            t,
		Origin:          [3]int{o.X, o.Y, o.Z},
		Layer:           o.Z,
		Fields:          make(map[string]protocol.FieldTotal, len(rep.Fields)),
		Vehicles:        []protocol.VehicleState{},
		Collisions:      rep.Collisions,
	}
	for name, st := range rep.Fields {
		msg.Fields[name] = protocol.FieldTotal{Count: st.Count, Density: st.Density}
	}
	for _, v := range r.m.Vehicles() {
		msg.Vehicles = append(msg.Vehicles, protocol.VehicleState{
			ID:       v.ID,
			Name:     v.Name,
			Pos:      [3]int{v.X, v.Y, v.Z},
			Facing:   v.Facing,
			Velocity: v.Velocity,
			Parts:    v.Parts,
		})
	}
	return msg
}

// masks renders the seen bitset and per-cell light levels from the
// subscriber's observer cell.
func (r *Runner) masks(sub protocol.SubscribeMsg) (seen []byte, light string) {
	r.m.BuildMapCache(sub.Observer[0], sub.Observer[1], sub.SightRange)
	n := r.m.Cells()
	seen = make([]byte, (n*n+7)/8)
	levels := make([]uint8, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := x + y*n
			if r.m.Seen(x, y) {
				seen[i/8] |= 1 << (i % 8)
			}
			levels[i] = uint8(r.m.LightAt(x, y))
		}
	}
	return seen, encoding.EncodeRLE(levels)
}

func (r *Runner) terrainLayer() string {
	n := r.m.Cells()
	ids := make([]uint16, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			ids[x+y*n] = r.m.Ter(x, y)
		}
	}
	return encoding.EncodeRLE(ids)
}

func (r *Runner) snapshotPath() string {
	return filepath.Join(r.cfg.DataDir, "snapshots", "window.snap.zst")
}

func (r *Runner) saveSnapshot(t uint64) {
	if r.cfg.DataDir == "" || !r.m.Loaded() {
		return
	}
	snap := r.m.WindowSnapshot(t)
	path := r.snapshotPath()
	if err := snapshot.WriteWindow(path, snap); err != nil {
		r.log.Printf("snapshot: %v", err)
		return
	}
	if dst, ok, err := archive.ArchiveWindowSnapshot(r.cfg.DataDir, path, snap, r.cfg.ArchiveEvery); err != nil {
		r.log.Printf("archive: %v", err)
	} else if ok {
		r.log.Printf("archived tick %d to %s", t, dst)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func clampInt(v, min, max, def int) int {
	if v == 0 {
		v = def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
