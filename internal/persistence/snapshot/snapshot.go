package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const (
	ChunkVersion  = 1
	WindowVersion = 1
)

type Header struct {
	Version int    `json:"version"`
	Kind    string `json:"kind"`
	Tick    uint64 `json:"tick"`
}

type ItemV1 struct {
	Type     string
	Charges  int
	Active   bool
	Birthday int64
}

type CellItemsV1 struct {
	Cell  int
	Items []ItemV1
}

type FieldV1 struct {
	Cell    int
	Type    string
	Density int
	Age     int
}

type NoteV1 struct {
	Cell int
	Text string
}

type MarkerV1 struct {
	X        int
	Y        int
	Name     string
	Security int
}

type VehiclePartV1 struct {
	Type  string
	MX    int
	MY    int
	HP    int
	Items []ItemV1
}

type VehicleV1 struct {
	ID       string
	Name     string
	X, Y, Z  int
	Facing   int
	Velocity int
	Parts    []VehiclePartV1
}

// ChunkV1 is the stored form of one chunk. Terrain, furniture and traps are
// palette-indexed by string id so stored chunks survive catalog reordering.
type ChunkV1 struct {
	Version int
	X, Y, Z int
	Size    int

	TerPalette  []string
	Ter         []uint16
	FurnPalette []string
	Furn        []uint16
	TrapPalette []string
	Trap        []uint16

	Radiation   []int
	Temperature int

	Items    []CellItemsV1
	Fields   []FieldV1
	Signage  []NoteV1
	Graffiti []NoteV1
	Computer *MarkerV1
	Camp     *MarkerV1
	Vehicles []VehicleV1
}

func (c *ChunkV1) Validate() error {
	if c.Version != ChunkVersion {
		return fmt.Errorf("chunk %d,%d,%d: unsupported version %d", c.X, c.Y, c.Z, c.Version)
	}
	if c.Size <= 0 {
		return fmt.Errorf("chunk %d,%d,%d: bad size %d", c.X, c.Y, c.Z, c.Size)
	}
	n := c.Size * c.Size
	for name, l := range map[string]int{"ter": len(c.Ter), "furn": len(c.Furn), "trap": len(c.Trap), "radiation": len(c.Radiation)} {
		if l != n {
			return fmt.Errorf("chunk %d,%d,%d: %s length %d want %d", c.X, c.Y, c.Z, name, l, n)
		}
	}
	if err := checkPalette(c.Ter, len(c.TerPalette)); err != nil {
		return fmt.Errorf("chunk %d,%d,%d: ter: %w", c.X, c.Y, c.Z, err)
	}
	if err := checkPalette(c.Furn, len(c.FurnPalette)); err != nil {
		return fmt.Errorf("chunk %d,%d,%d: furn: %w", c.X, c.Y, c.Z, err)
	}
	if err := checkPalette(c.Trap, len(c.TrapPalette)); err != nil {
		return fmt.Errorf("chunk %d,%d,%d: trap: %w", c.X, c.Y, c.Z, err)
	}
	for _, ci := range c.Items {
		if ci.Cell < 0 || ci.Cell >= n {
			return fmt.Errorf("chunk %d,%d,%d: item cell %d out of range", c.X, c.Y, c.Z, ci.Cell)
		}
	}
	for _, f := range c.Fields {
		if f.Cell < 0 || f.Cell >= n {
			return fmt.Errorf("chunk %d,%d,%d: field cell %d out of range", c.X, c.Y, c.Z, f.Cell)
		}
		if f.Density < 1 || f.Density > 3 {
			return fmt.Errorf("chunk %d,%d,%d: field density %d", c.X, c.Y, c.Z, f.Density)
		}
	}
	return nil
}

func checkPalette(ids []uint16, n int) error {
	for _, id := range ids {
		if int(id) >= n {
			return fmt.Errorf("palette index %d out of range (%d entries)", id, n)
		}
	}
	return nil
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// EncodeChunk returns the zstd-compressed gob encoding of c.
func EncodeChunk(c ChunkV1) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&c); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return encoder.EncodeAll(buf.Bytes(), nil), nil
}

func DecodeChunk(b []byte) (ChunkV1, error) {
	var c ChunkV1
	raw, err := decoder.DecodeAll(b, nil)
	if err != nil {
		return c, fmt.Errorf("zstd: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&c); err != nil {
		return c, fmt.Errorf("gob decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// WindowV1 is every active chunk plus the window placement.
type WindowV1 struct {
	Header Header `json:"header"`

	OriginX   int
	OriginY   int
	Layer     int
	Width     int
	ChunkSize int
	Chunks    []ChunkV1
}

func WriteWindow(path string, snap WindowV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	if snap.Header.Kind == "" {
		snap.Header.Kind = "window"
	}
	if snap.Header.Version == 0 {
		snap.Header.Version = WindowVersion
	}
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadWindow(path string) (WindowV1, error) {
	var snap WindowV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if h.Version != WindowVersion {
		return snap, fmt.Errorf("unsupported window snapshot version %d", h.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	for i := range snap.Chunks {
		if err := snap.Chunks[i].Validate(); err != nil {
			return snap, err
		}
	}
	return snap, nil
}
