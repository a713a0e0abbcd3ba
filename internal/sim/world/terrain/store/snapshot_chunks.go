package store

import (
	"fmt"
	"sort"

	snapv1 "tilesim.dev/internal/persistence/snapshot"
	"tilesim.dev/internal/sim/catalogs"
	"tilesim.dev/internal/sim/world/kernel/model"
)

// ExportChunk converts a chunk into its stored form. Palettes only carry the
// ids the chunk uses.
func ExportChunk(cat *catalogs.Catalogs, ch *Chunk) snapv1.ChunkV1 {
	out := snapv1.ChunkV1{
		Version:     snapv1.ChunkVersion,
		X:           ch.Coord.X,
		Y:           ch.Coord.Y,
		Z:           ch.Coord.Z,
		Size:        ch.Size,
		Radiation:   append([]int(nil), ch.Radiation...),
		Temperature: ch.Temperature,
	}
	out.TerPalette, out.Ter = exportPalette(ch.Ter, cat.Terrain.Name)
	out.FurnPalette, out.Furn = exportPalette(ch.Furn, cat.Furniture.Name)
	out.TrapPalette, out.Trap = exportPalette(ch.Trap, cat.Traps.Name)

	for i, items := range ch.Items {
		if len(items) == 0 {
			continue
		}
		out.Items = append(out.Items, snapv1.CellItemsV1{Cell: i, Items: exportItems(items)})
	}
	for i, fs := range ch.Fields {
		for _, f := range fs {
			out.Fields = append(out.Fields, snapv1.FieldV1{Cell: i, Type: cat.Fields.Name(f.Type), Density: f.Density, Age: f.Age})
		}
	}
	out.Signage = exportNotes(ch.Signage)
	out.Graffiti = exportNotes(ch.Graffiti)
	out.Computer = exportMarker(ch.Computer)
	out.Camp = exportMarker(ch.Camp)
	for _, v := range ch.Vehicles {
		vv := snapv1.VehicleV1{
			ID:       v.ID,
			Name:     v.Name,
			X:        v.Anchor.X,
			Y:        v.Anchor.Y,
			Z:        v.Anchor.Z,
			Facing:   int(v.Facing),
			Velocity: v.Velocity,
		}
		for _, p := range v.Parts {
			vv.Parts = append(vv.Parts, snapv1.VehiclePartV1{Type: p.Type, MX: p.Mount.X, MY: p.Mount.Y, HP: p.HP, Items: exportItems(p.Items)})
		}
		out.Vehicles = append(out.Vehicles, vv)
	}
	return out
}

func exportPalette(ids []uint16, name func(uint16) string) ([]string, []uint16) {
	local := map[uint16]uint16{}
	var palette []string
	out := make([]uint16, len(ids))
	for i, id := range ids {
		li, ok := local[id]
		if !ok {
			li = uint16(len(palette))
			local[id] = li
			palette = append(palette, name(id))
		}
		out[i] = li
	}
	return palette, out
}

func exportItems(items []model.Item) []snapv1.ItemV1 {
	if len(items) == 0 {
		return nil
	}
	out := make([]snapv1.ItemV1, len(items))
	for i, it := range items {
		out[i] = snapv1.ItemV1{Type: it.Type, Charges: it.Charges, Active: it.Active, Birthday: it.Birthday}
	}
	return out
}

func exportNotes(m map[int]string) []snapv1.NoteV1 {
	if len(m) == 0 {
		return nil
	}
	out := make([]snapv1.NoteV1, 0, len(m))
	for cell, text := range m {
		out = append(out, snapv1.NoteV1{Cell: cell, Text: text})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out
}

func exportMarker(m *Marker) *snapv1.MarkerV1 {
	if m == nil {
		return nil
	}
	return &snapv1.MarkerV1{X: m.Pos.X, Y: m.Pos.Y, Name: m.Name, Security: m.Security}
}

// ImportChunk rebuilds a chunk from its stored form. Ids the catalogs no
// longer know become the null entry and are returned in unknown.
func ImportChunk(cat *catalogs.Catalogs, in snapv1.ChunkV1) (ch *Chunk, unknown []string, err error) {
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}
	ch = NewChunk(Coord{X: in.X, Y: in.Y, Z: in.Z}, in.Size)
	ch.Temperature = in.Temperature
	copy(ch.Radiation, in.Radiation)

	miss := map[string]bool{}
	importPalette(ch.Ter, in.Ter, in.TerPalette, cat.Terrain.ID, miss)
	importPalette(ch.Furn, in.Furn, in.FurnPalette, cat.Furniture.ID, miss)
	importPalette(ch.Trap, in.Trap, in.TrapPalette, cat.Traps.ID, miss)

	for _, ci := range in.Items {
		ch.Items[ci.Cell] = append(ch.Items[ci.Cell], importItems(ci.Items)...)
	}
	for _, f := range in.Fields {
		id, ok := cat.Fields.ID(f.Type)
		if !ok || id == 0 {
			miss[f.Type] = true
			continue
		}
		ch.Fields[f.Cell].Add(Field{Type: id, Density: f.Density, Age: f.Age})
	}
	ch.CountFields()
	for _, n := range in.Signage {
		ch.Signage[n.Cell] = n.Text
	}
	for _, n := range in.Graffiti {
		ch.Graffiti[n.Cell] = n.Text
	}
	ch.Computer = importMarker(in.Computer)
	ch.Camp = importMarker(in.Camp)
	for _, vv := range in.Vehicles {
		v := &model.Vehicle{
			ID:       vv.ID,
			Name:     vv.Name,
			Anchor:   model.Tripoint{X: vv.X, Y: vv.Y, Z: vv.Z},
			Facing:   model.Facing(vv.Facing),
			Velocity: vv.Velocity,
		}
		for _, p := range vv.Parts {
			v.Parts = append(v.Parts, model.VehiclePart{Type: p.Type, Mount: model.Point{X: p.MX, Y: p.MY}, HP: p.HP, Items: importItems(p.Items)})
		}
		ch.Vehicles = append(ch.Vehicles, v)
	}

	for name := range miss {
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)
	return ch, unknown, nil
}

func importPalette(dst, src []uint16, palette []string, lookup func(string) (uint16, bool), miss map[string]bool) {
	ids := make([]uint16, len(palette))
	for i, name := range palette {
		id, ok := lookup(name)
		if !ok {
			miss[name] = true
		}
		ids[i] = id
	}
	for i, li := range src {
		dst[i] = ids[li]
	}
}

func importItems(in []snapv1.ItemV1) []model.Item {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Item, len(in))
	for i, it := range in {
		out[i] = model.Item{Type: it.Type, Charges: it.Charges, Active: it.Active, Birthday: it.Birthday}
	}
	return out
}

func importMarker(m *snapv1.MarkerV1) *Marker {
	if m == nil {
		return nil
	}
	return &Marker{Pos: model.Point{X: m.X, Y: m.Y}, Name: m.Name, Security: m.Security}
}

// ExpectSize rejects stored chunks of a different chunk size.
func ExpectSize(in snapv1.ChunkV1, size int) error {
	if in.Size != size {
		return fmt.Errorf("chunk %d,%d,%d: size %d want %d", in.X, in.Y, in.Z, in.Size, size)
	}
	return nil
}
