package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tilesim.dev/internal/persistence/chunkdb"
	persistlog "tilesim.dev/internal/persistence/log"
	"tilesim.dev/internal/sim/world/terrain/store"
)

func main() {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dbPath := fs.String("db", "./data/chunks.sqlite", "chunk database path")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, args := fs.Arg(0), fs.Args()[1:]

	if cmd == "ticks" {
		ticksCmd(args)
		return
	}

	db, err := chunkdb.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch cmd {
	case "list":
		listCmd(db)
	case "stats":
		statsCmd(db)
	case "dump":
		dumpCmd(db, args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin [-db path] list|stats|dump <cx> <cy> <cz>")
	fmt.Fprintln(os.Stderr, "       admin ticks <file.jsonl.zst>")
}

func listCmd(db *chunkdb.DB) {
	rows, err := db.List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		fmt.Printf("%5d %5d %3d  v%d  %8s  %s\n", r.X, r.Y, r.Z, r.Version, humanize.Bytes(uint64(r.Bytes)), age(r.Updated()))
	}
}

func statsCmd(db *chunkdb.DB) {
	st, err := db.Stats()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stats:", err)
		os.Exit(1)
	}
	fmt.Printf("chunks: %s\n", humanize.Comma(st.Chunks))
	fmt.Printf("bytes:  %s\n", humanize.Bytes(uint64(st.Bytes)))
	if st.Chunks > 0 {
		fmt.Printf("avg:    %s\n", humanize.Bytes(uint64(st.Bytes/st.Chunks)))
	}
	if st.Oldest.Valid {
		fmt.Printf("oldest: %s\n", ageString(st.Oldest.String))
	}
	if st.Newest.Valid {
		fmt.Printf("newest: %s\n", ageString(st.Newest.String))
	}
	if d, err := db.GetMeta("catalog_digest"); err == nil && d != "" {
		fmt.Printf("catalogs: %s\n", d)
	}
}

func dumpCmd(db *chunkdb.DB, args []string) {
	if len(args) != 3 {
		usage()
		os.Exit(2)
	}
	var c [3]int
	for i, a := range args {
		v, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad coordinate %q: %v\n", a, err)
			os.Exit(2)
		}
		c[i] = v
	}
	ch, err := db.Load(store.Coord{X: c[0], Y: c[1], Z: c[2]})
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}

	type summary struct {
		Coord       [3]int         `json:"coord"`
		Size        int            `json:"size"`
		Terrain     map[string]int `json:"terrain"`
		Furniture   map[string]int `json:"furniture,omitempty"`
		Traps       map[string]int `json:"traps,omitempty"`
		Fields      map[string]int `json:"fields,omitempty"`
		ItemStacks  int            `json:"item_cells"`
		Vehicles    []string       `json:"vehicles,omitempty"`
		Temperature int            `json:"temperature"`
		Signage     int            `json:"signage,omitempty"`
		Graffiti    int            `json:"graffiti,omitempty"`
	}
	s := summary{
		Coord:       [3]int{ch.X, ch.Y, ch.Z},
		Size:        ch.Size,
		Terrain:     countPalette(ch.TerPalette, ch.Ter),
		Furniture:   countPalette(ch.FurnPalette, ch.Furn),
		Traps:       countPalette(ch.TrapPalette, ch.Trap),
		Fields:      map[string]int{},
		ItemStacks:  len(ch.Items),
		Temperature: ch.Temperature,
		Signage:     len(ch.Signage),
		Graffiti:    len(ch.Graffiti),
	}
	for _, f := range ch.Fields {
		s.Fields[f.Type]++
	}
	for _, v := range ch.Vehicles {
		s.Vehicles = append(s.Vehicles, fmt.Sprintf("%s %q at (%d,%d,%d) parts=%d", v.ID, v.Name, v.X, v.Y, v.Z, len(v.Parts)))
	}
	sort.Strings(s.Vehicles)
	printJSON(s)
}

// ticksCmd prints every record of a tick log file.
func ticksCmd(args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}
	reports, err := persistlog.ReadTicks(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, r := range reports {
		printJSON(r)
	}
}

// countPalette counts cells per palette entry, skipping the null entry.
func countPalette(palette []string, cells []uint16) map[string]int {
	out := map[string]int{}
	for _, id := range cells {
		if int(id) >= len(palette) {
			continue
		}
		name := palette[id]
		if name == "" || strings.HasSuffix(name, "_null") {
			continue
		}
		out[name]++
	}
	return out
}

func ageString(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return ts + " (" + age(t) + ")"
}

func age(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
