package log

import (
	"testing"
	"time"

	"tilesim.dev/internal/sim/world"
)

func TestTickLogRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for i := int64(1); i <= 3; i++ {
		rep := world.TickReport{Turn: i, Fields: map[string]world.FieldStat{"fd_smoke": {Count: 1, Density: int(i)}}}
		if err := l.WriteTick(rep); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	clock = clock.Add(2 * time.Minute)
	if err := l.WriteTick(world.TickReport{Turn: 4}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := l.Files()
	if err != nil || len(files) != 2 {
		t.Fatalf("files = %v, %v", files, err)
	}
	first, err := ReadTicks(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(first) != 3 || first[2].Turn != 3 || first[2].Fields["fd_smoke"].Density != 3 {
		t.Fatalf("first hour = %+v", first)
	}
	second, err := ReadTicks(files[1])
	if err != nil || len(second) != 1 || second[0].Turn != 4 {
		t.Fatalf("second hour = %+v, %v", second, err)
	}
}
