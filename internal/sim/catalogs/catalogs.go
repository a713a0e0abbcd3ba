package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed defaults/*.json schemas/*.json
var embedded embed.FS

type Catalogs struct {
	Terrain   Table[TerrainDef]
	Furniture Table[TerrainDef]
	Traps     Table[TrapDef]
	Fields    Table[FieldDef]
	Parts     Table[PartDef]
	Items     Table[ItemDef]
}

// Table is a palette-indexed definition list. Index 0 is the null entry
// for tables that have one.
type Table[T any] struct {
	Palette []string
	Index   map[string]uint16
	Defs    []T
	Digest  string
}

func (t *Table[T]) ID(name string) (uint16, bool) {
	id, ok := t.Index[name]
	return id, ok
}

// At returns the definition for id, falling back to entry 0.
func (t *Table[T]) At(id uint16) *T {
	if int(id) >= len(t.Defs) {
		return &t.Defs[0]
	}
	return &t.Defs[id]
}

func (t *Table[T]) Name(id uint16) string {
	if int(id) >= len(t.Palette) {
		return t.Palette[0]
	}
	return t.Palette[id]
}

type Flags map[string]struct{}

func (f Flags) Has(flag string) bool {
	_, ok := f[flag]
	return ok
}

func newFlags(in []string) Flags {
	out := make(Flags, len(in))
	for _, s := range in {
		out[s] = struct{}{}
	}
	return out
}

type BashInfo struct {
	StrMin int    `json:"str_min"`
	StrMax int    `json:"str_max"`
	Into   string `json:"into,omitempty"`
}

// TerrainDef describes both terrain and furniture. For furniture MoveCost is a
// modifier added to the terrain cost, and -1 marks it impassable.
type TerrainDef struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MoveCost  int       `json:"move_cost"`
	FlagList  []string  `json:"flags"`
	Open      string    `json:"open,omitempty"`
	Close     string    `json:"close,omitempty"`
	BurnsInto string    `json:"burns_into,omitempty"`
	Bash      *BashInfo `json:"bash,omitempty"`

	Flags Flags `json:"-"`
}

type TrapDef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Visibility int    `json:"visibility"`
	Avoidance  int    `json:"avoidance"`
	Difficulty int    `json:"difficulty"`
}

const (
	FieldStatic = "static"
	FieldGas    = "gas"
	FieldFire   = "fire"
)

type FieldDef struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Kind              string      `json:"kind"`
	HalfLife          int         `json:"half_life"`
	SpreadPercent     int         `json:"spread_percent"`
	OutdoorAgeSpeedup int         `json:"outdoor_age_speedup"`
	Transparency      *[3]float64 `json:"transparency,omitempty"`
	Damage            [3]int      `json:"damage"`
	DestroysItems     bool        `json:"destroys_items"`
}

// TransparencyAt is the light multiplier at density 1..3. Fields without a
// transparency table do not block light.
func (d *FieldDef) TransparencyAt(density int) float64 {
	if d.Transparency == nil || density < 1 {
		return 1
	}
	if density > 3 {
		density = 3
	}
	return d.Transparency[density-1]
}

// DamageAt is the per-tick damage at density 1..3.
func (d *FieldDef) DamageAt(density int) int {
	if density < 1 {
		return 0
	}
	if density > 3 {
		density = 3
	}
	return d.Damage[density-1]
}

type PartDef struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Durability int      `json:"durability"`
	Size       int      `json:"size"`
	FlagList   []string `json:"flags"`

	Flags Flags `json:"-"`
}

type ItemDef struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Volume   int      `json:"volume"`
	Light    float64  `json:"light"`
	Signal   string   `json:"signal,omitempty"`
	FlagList []string `json:"flags"`

	Flags Flags `json:"-"`
}

// Load reads definition tables from dir. Files missing from dir fall back
// to the built-in defaults.
func Load(dir string) (*Catalogs, error) {
	return load(overlayFS{dir: os.DirFS(dir)})
}

// Default returns the built-in definition tables.
func Default() (*Catalogs, error) {
	sub, err := fs.Sub(embedded, "defaults")
	if err != nil {
		return nil, err
	}
	return load(sub)
}

// MustDefault is Default for tests and tools where the embedded tables are known good.
func MustDefault() *Catalogs {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

func load(src fs.FS) (*Catalogs, error) {
	c := &Catalogs{}
	if err := loadTerrainTable(src, "terrain", "t_null", &c.Terrain); err != nil {
		return nil, err
	}
	if err := loadTerrainTable(src, "furniture", "f_null", &c.Furniture); err != nil {
		return nil, err
	}
	if err := loadTable(src, "traps", "tr_null", &c.Traps, func(d TrapDef) string { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadTable(src, "fields", "fd_null", &c.Fields, func(d FieldDef) string { return d.ID }); err != nil {
		return nil, err
	}
	if err := loadTable(src, "vehicle_parts", "", &c.Parts, func(d PartDef) string { return d.ID }); err != nil {
		return nil, err
	}
	for i := range c.Parts.Defs {
		c.Parts.Defs[i].Flags = newFlags(c.Parts.Defs[i].FlagList)
	}
	if err := loadTable(src, "items", "", &c.Items, func(d ItemDef) string { return d.ID }); err != nil {
		return nil, err
	}
	for i := range c.Items.Defs {
		c.Items.Defs[i].Flags = newFlags(c.Items.Defs[i].FlagList)
	}
	return c, nil
}

func loadTerrainTable(src fs.FS, name, null string, out *Table[TerrainDef]) error {
	if err := loadTable(src, name, null, out, func(d TerrainDef) string { return d.ID }); err != nil {
		return err
	}
	for i := range out.Defs {
		d := &out.Defs[i]
		d.Flags = newFlags(d.FlagList)
		for _, ref := range []string{d.Open, d.Close, d.BurnsInto} {
			if ref == "" {
				continue
			}
			if _, ok := out.Index[ref]; !ok {
				return fmt.Errorf("%s.json: %s references unknown id %q", name, d.ID, ref)
			}
		}
	}
	return nil
}

// loadTable validates name.json against its schema and builds the palette.
// Entries keep file order; null (when set) must be present and is moved to index 0.
func loadTable[T any](src fs.FS, name, null string, out *Table[T], idOf func(T) string) error {
	file := name + ".json"
	raw, err := fs.ReadFile(src, file)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := validate(name, raw); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	var defs []T
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	ordered := make([]T, 0, len(defs))
	if null != "" {
		found := false
		for _, d := range defs {
			if idOf(d) == null {
				ordered = append(ordered, d)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: missing %s", file, null)
		}
	}
	for _, d := range defs {
		if null != "" && idOf(d) == null {
			continue
		}
		ordered = append(ordered, d)
	}

	out.Defs = ordered
	out.Palette = make([]string, len(ordered))
	out.Index = make(map[string]uint16, len(ordered))
	for i, d := range ordered {
		id := idOf(d)
		if _, dup := out.Index[id]; dup {
			return fmt.Errorf("%s: duplicate id %q", file, id)
		}
		out.Palette[i] = id
		out.Index[id] = uint16(i)
	}
	return nil
}

func validate(name string, raw []byte) error {
	schemaRaw, err := embedded.ReadFile(path.Join("schemas", name+".schema.json"))
	if err != nil {
		return err
	}
	schema, err := jsonschema.CompileString(name+".schema.json", string(schemaRaw))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

// Digest combines every table digest into one value for handshakes.
func (c *Catalogs) Digest() string {
	var b bytes.Buffer
	for _, d := range []string{c.Terrain.Digest, c.Furniture.Digest, c.Traps.Digest, c.Fields.Digest, c.Parts.Digest, c.Items.Digest} {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return sha256Hex(b.Bytes())
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// overlayFS serves files from dir, falling back to the embedded defaults.
type overlayFS struct {
	dir fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.dir.Open(name)
	if err == nil {
		return f, nil
	}
	return embedded.Open(path.Join("defaults", name))
}
