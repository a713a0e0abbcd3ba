package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Window     Window     `yaml:"window"`
	Visibility Visibility `yaml:"visibility"`
	Lighting   Lighting   `yaml:"lighting"`
	Pathing    Pathing    `yaml:"pathing"`
	Fields     Fields     `yaml:"fields"`
	Vehicles   Vehicles   `yaml:"vehicles"`
	Server     Server     `yaml:"server"`
}

type Window struct {
	WidthChunks int `yaml:"width_chunks"`
	ChunkSize   int `yaml:"chunk_size"`
	MinLayer    int `yaml:"min_layer"`
	MaxLayer    int `yaml:"max_layer"`
}

type Visibility struct {
	OpaqueThreshold float64 `yaml:"opaque_threshold"`
	SightRange      int     `yaml:"sight_range"`
}

type Lighting struct {
	AmbientLow      float64 `yaml:"ambient_low"`
	AmbientLit      float64 `yaml:"ambient_lit"`
	SourceBright    float64 `yaml:"source_bright"`
	SourceLocal     float64 `yaml:"source_local"`
	NaturalLight    float64 `yaml:"natural_light"`
	FireLuminance   float64 `yaml:"fire_luminance"`
	VehicleLightLum float64 `yaml:"vehicle_light_luminance"`
}

type Pathing struct {
	DiagonalWeight int `yaml:"diagonal_weight"`
	BashPenalty    int `yaml:"bash_penalty"`
	SearchMargin   int `yaml:"search_margin"`
	MaxExpansions  int `yaml:"max_expansions"`
	FlatCostMin    int `yaml:"flat_cost_min"`
	FlatCostMax    int `yaml:"flat_cost_max"`
}

type Fields struct {
	MaxDensity int   `yaml:"max_density"`
	Seed       int64 `yaml:"seed"`
}

type Vehicles struct {
	MaxSpeed           int `yaml:"max_speed"`
	RoughTerrainCost   int `yaml:"rough_terrain_cost"`
	MinTractionPct     int `yaml:"min_traction_pct"`
	ShallowTractionPct int `yaml:"shallow_traction_pct"`
}

type Server struct {
	TickRateHz int    `yaml:"tick_rate_hz"`
	Addr       string `yaml:"addr"`
	DataDir    string `yaml:"data_dir"`
	TickLog    bool   `yaml:"tick_log"`

	// SnapshotEvery writes the window snapshot every N ticks; 0 disables.
	SnapshotEvery uint64 `yaml:"snapshot_every_ticks"`
	// ArchiveEvery keeps a copy of the snapshot every N ticks; 0 disables.
	ArchiveEvery uint64 `yaml:"archive_every_ticks"`
	// ObserverQueue is the per-observer frame queue length.
	ObserverQueue int `yaml:"observer_queue"`
	// ShiftMax SHIFT requests are accepted per observer every
	// ShiftWindowTicks ticks.
	ShiftWindowTicks uint64 `yaml:"shift_window_ticks"`
	ShiftMax         int    `yaml:"shift_max"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Default is the tuning used when no file is given.
func Default() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

func (t *Tuning) ApplyDefaults() {
	if t.Window.WidthChunks <= 0 {
		t.Window.WidthChunks = 11
	}
	if t.Window.ChunkSize <= 0 {
		t.Window.ChunkSize = 12
	}
	if t.Visibility.OpaqueThreshold <= 0 {
		t.Visibility.OpaqueThreshold = 0.1
	}
	if t.Visibility.SightRange <= 0 {
		t.Visibility.SightRange = 60
	}
	if t.Lighting.AmbientLow <= 0 {
		t.Lighting.AmbientLow = 1
	}
	if t.Lighting.AmbientLit <= 0 {
		t.Lighting.AmbientLit = 2
	}
	if t.Lighting.SourceBright <= 0 {
		t.Lighting.SourceBright = 10
	}
	if t.Lighting.SourceLocal <= 0 {
		t.Lighting.SourceLocal = 0.1
	}
	if t.Lighting.FireLuminance <= 0 {
		t.Lighting.FireLuminance = 20
	}
	if t.Lighting.VehicleLightLum <= 0 {
		t.Lighting.VehicleLightLum = 40
	}
	if t.Pathing.DiagonalWeight <= 0 {
		t.Pathing.DiagonalWeight = 14
	}
	if t.Pathing.BashPenalty <= 0 {
		t.Pathing.BashPenalty = 20
	}
	if t.Pathing.SearchMargin <= 0 {
		t.Pathing.SearchMargin = 24
	}
	if t.Pathing.MaxExpansions <= 0 {
		t.Pathing.MaxExpansions = 20000
	}
	if t.Pathing.FlatCostMin <= 0 {
		t.Pathing.FlatCostMin = 2
	}
	if t.Pathing.FlatCostMax <= 0 {
		t.Pathing.FlatCostMax = 2
	}
	if t.Fields.MaxDensity <= 0 {
		t.Fields.MaxDensity = 3
	}
	if t.Vehicles.MaxSpeed <= 0 {
		t.Vehicles.MaxSpeed = 6
	}
	if t.Vehicles.RoughTerrainCost <= 0 {
		t.Vehicles.RoughTerrainCost = 4
	}
	if t.Vehicles.MinTractionPct <= 0 {
		t.Vehicles.MinTractionPct = 30
	}
	if t.Vehicles.ShallowTractionPct <= 0 {
		t.Vehicles.ShallowTractionPct = 50
	}
	if t.Server.TickRateHz <= 0 {
		t.Server.TickRateHz = 5
	}
	if t.Server.Addr == "" {
		t.Server.Addr = ":8080"
	}
	if t.Server.DataDir == "" {
		t.Server.DataDir = "./data"
	}
	if t.Server.ObserverQueue <= 0 {
		t.Server.ObserverQueue = 8
	}
	if t.Server.ShiftWindowTicks == 0 {
		t.Server.ShiftWindowTicks = 10
	}
	if t.Server.ShiftMax <= 0 {
		t.Server.ShiftMax = 4
	}
}

func (t Tuning) Validate() error {
	if t.Window.MaxLayer < t.Window.MinLayer {
		return fmt.Errorf("window: max_layer %d below min_layer %d", t.Window.MaxLayer, t.Window.MinLayer)
	}
	if t.Visibility.OpaqueThreshold > 1 {
		return fmt.Errorf("visibility: opaque_threshold %v above 1", t.Visibility.OpaqueThreshold)
	}
	if t.Pathing.FlatCostMax < t.Pathing.FlatCostMin {
		return fmt.Errorf("pathing: flat_cost_max below flat_cost_min")
	}
	if t.Fields.MaxDensity > 3 {
		return fmt.Errorf("fields: max_density %d above 3", t.Fields.MaxDensity)
	}
	if t.Server.ArchiveEvery > 0 && (t.Server.SnapshotEvery == 0 || t.Server.ArchiveEvery%t.Server.SnapshotEvery != 0) {
		return fmt.Errorf("server: archive_every_ticks must be a multiple of snapshot_every_ticks")
	}
	return nil
}
