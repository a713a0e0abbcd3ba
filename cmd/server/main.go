package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tilesim.dev/internal/persistence/chunkdb"
	persistlog "tilesim.dev/internal/persistence/log"
	"tilesim.dev/internal/persistence/snapshot"
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/runner"
	"tilesim.dev/internal/sim/tuning"
	"tilesim.dev/internal/sim/world"
	"tilesim.dev/internal/sim/world/terrain/gen"
	"tilesim.dev/internal/sim/world/terrain/store"
	"tilesim.dev/internal/transport/observer"
)

func main() {
	var (
		addr        = flag.String("addr", "", "http listen address (default: tuning server.addr)")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (empty: built-in defaults)")
		catalogDir  = flag.String("catalogs", "", "catalog directory overriding the embedded defaults (optional)")
		dataDir     = flag.String("data", "", "runtime data directory (default: tuning server.data_dir)")
		dbPath      = flag.String("db", "", "chunk database path (default: <data>/chunks.sqlite)")
		seed        = flag.Int64("seed", 0, "generator seed (default: tuning fields.seed)")
		originX     = flag.Int("x", 0, "window origin chunk x (fresh start)")
		originY     = flag.Int("y", 0, "window origin chunk y (fresh start)")
		layer       = flag.Int("z", 0, "active layer (fresh start)")
		resume      = flag.Bool("resume", true, "restore origin and tick from <data>/snapshots/window.snap.zst if present")
		disableTick = flag.Bool("disable_tick_log", false, "disable the tick log regardless of tuning")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune := tuning.Default()
	if tp := strings.TrimSpace(*tuningPath); tp != "" {
		t, err := tuning.Load(tp)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = t
	}
	if *addr != "" {
		tune.Server.Addr = *addr
	}
	if *dataDir != "" {
		tune.Server.DataDir = *dataDir
	}
	if *seed != 0 {
		tune.Fields.Seed = *seed
	}
	if *disableTick {
		tune.Server.TickLog = false
	}

	var cats *catalogs.Catalogs
	var err error
	if strings.TrimSpace(*catalogDir) != "" {
		cats, err = catalogs.Load(*catalogDir)
	} else {
		cats, err = catalogs.Default()
	}
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	if err := os.MkdirAll(tune.Server.DataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(tune.Server.DataDir, "chunks.sqlite")
	}
	db, err := chunkdb.Open(path)
	if err != nil {
		logger.Fatalf("open chunk db: %v", err)
	}
	defer db.Close()

	digest := cats.Digest()
	if prev, err := db.GetMeta("catalog_digest"); err != nil {
		logger.Printf("chunk db meta: %v", err)
	} else if prev != "" && prev != digest {
		logger.Printf("catalogs changed since last run (%.12s -> %.12s); stored chunks are remapped by id", prev, digest)
	}
	if err := db.SaveMeta("catalog_digest", digest); err != nil {
		logger.Printf("chunk db meta: %v", err)
	}

	cfg := world.ConfigFromTuning(tune)
	st := store.NewChunkStore(cats, cfg.ChunkSize, db, gen.New(tune.Fields.Seed, cats), log.New(os.Stdout, "[store] ", log.LstdFlags|log.Lmicroseconds))
	m := world.New(cfg, cats, st, logger)

	ox, oy, oz := *originX, *originY, *layer
	var startTick uint64
	snapPath := filepath.Join(tune.Server.DataDir, "snapshots", "window.snap.zst")
	if *resume {
		snap, err := snapshot.ReadWindow(snapPath)
		switch {
		case err == nil:
			ox, oy, oz = snap.OriginX, snap.OriginY, snap.Layer
			startTick = snap.Header.Tick
			logger.Printf("resumed from snapshot tick=%d origin=(%d,%d) layer=%d", startTick, ox, oy, oz)
		case errors.Is(err, os.ErrNotExist):
		default:
			logger.Printf("read snapshot: %v (starting fresh)", err)
		}
	}

	if err := m.Load(ox, oy, oz, true); err != nil {
		logger.Fatalf("load window: %v", err)
	}
	logger.Printf("window %dx%d chunks of %d at (%d,%d) layer %d", cfg.WidthChunks, cfg.WidthChunks, cfg.ChunkSize, ox, oy, oz)

	var ticks runner.TickWriter
	if tune.Server.TickLog {
		tl := persistlog.NewTickLogger(tune.Server.DataDir)
		defer func() {
			if err := tl.Close(); err != nil {
				logger.Printf("close tick log: %v", err)
			}
		}()
		ticks = tl
	}

	r := runner.New(m, runner.Config{
		TickRateHz:    tune.Server.TickRateHz,
		Seed:          tune.Fields.Seed,
		StartTick:     startTick,
		DataDir:       tune.Server.DataDir,
		SnapshotEvery: tune.Server.SnapshotEvery,
		ArchiveEvery:  tune.Server.ArchiveEvery,
	}, ticks, logger)

	ctx, cancel := signalContext()
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()

	obs := observer.NewServer(r, observer.Options{
		Queue:       tune.Server.ObserverQueue,
		ShiftWindow: tune.Server.ShiftWindowTicks,
		ShiftMax:    tune.Server.ShiftMax,
	}, log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
	mux := http.NewServeMux()
	mux.Handle("/v1/observer/", obs.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              tune.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", tune.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	cancel()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("runner: %v", err)
	}
	m.Unload()
	if err := st.Flush(); err != nil {
		logger.Printf("flush chunks: %v", err)
	}
	logger.Printf("stopped at tick %d", r.CurrentTick())
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
