package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"tilesim.dev/internal/persistence/snapshot"
)

type WindowArchiveMeta struct {
	Tick      uint64 `json:"tick"`
	Origin    [3]int `json:"origin"`
	Width     int    `json:"width_chunks"`
	ChunkSize int    `json:"chunk_size"`
	Chunks    int    `json:"chunks"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveWindowSnapshot copies a window snapshot into
// `dataDir/archives/tick_<NNNNNNNNNN>/` when its tick is a multiple of every.
func ArchiveWindowSnapshot(dataDir, snapshotPath string, snap snapshot.WindowV1, every uint64) (archivedPath string, archived bool, err error) {
	if every == 0 || snap.Header.Tick == 0 || snap.Header.Tick%every != 0 {
		return "", false, nil
	}

	archiveDir := filepath.Join(dataDir, "archives", fmt.Sprintf("tick_%010d", snap.Header.Tick))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := WindowArchiveMeta{
		Tick:      snap.Header.Tick,
		Origin:    [3]int{snap.OriginX, snap.OriginY, snap.Layer},
		Width:     snap.Width,
		ChunkSize: snap.ChunkSize,
		Chunks:    len(snap.Chunks),
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

// ReadMeta loads the meta.json next to an archived snapshot.
func ReadMeta(archivedPath string) (WindowArchiveMeta, error) {
	var m WindowArchiveMeta
	b, err := os.ReadFile(filepath.Join(filepath.Dir(archivedPath), "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
