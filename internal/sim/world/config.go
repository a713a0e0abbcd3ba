package world

import "tilesim.dev/internal/sim/tuning"

type Config struct {
	// WidthChunks is the window edge in chunks; the window is square.
	WidthChunks int
	ChunkSize   int
	MinLayer    int
	MaxLayer    int

	OpaqueThreshold float64
	SightRange      int

	AmbientLow      float64
	AmbientLit      float64
	SourceBright    float64
	SourceLocal     float64
	NaturalLight    float64
	FireLuminance   float64
	VehicleLightLum float64

	DiagonalWeight int
	BashPenalty    int
	SearchMargin   int
	MaxExpansions  int
	FlatCostMin    int
	FlatCostMax    int

	MaxFieldDensity int
	Seed            int64

	MaxVehicleSpeed    int
	RoughTerrainCost   int
	MinTractionPct     int
	ShallowTractionPct int
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		WidthChunks:        t.Window.WidthChunks,
		ChunkSize:          t.Window.ChunkSize,
		MinLayer:           t.Window.MinLayer,
		MaxLayer:           t.Window.MaxLayer,
		OpaqueThreshold:    t.Visibility.OpaqueThreshold,
		SightRange:         t.Visibility.SightRange,
		AmbientLow:         t.Lighting.AmbientLow,
		AmbientLit:         t.Lighting.AmbientLit,
		SourceBright:       t.Lighting.SourceBright,
		SourceLocal:        t.Lighting.SourceLocal,
		NaturalLight:       t.Lighting.NaturalLight,
		FireLuminance:      t.Lighting.FireLuminance,
		VehicleLightLum:    t.Lighting.VehicleLightLum,
		DiagonalWeight:     t.Pathing.DiagonalWeight,
		BashPenalty:        t.Pathing.BashPenalty,
		SearchMargin:       t.Pathing.SearchMargin,
		MaxExpansions:      t.Pathing.MaxExpansions,
		FlatCostMin:        t.Pathing.FlatCostMin,
		FlatCostMax:        t.Pathing.FlatCostMax,
		MaxFieldDensity:    t.Fields.MaxDensity,
		Seed:               t.Fields.Seed,
		MaxVehicleSpeed:    t.Vehicles.MaxSpeed,
		RoughTerrainCost:   t.Vehicles.RoughTerrainCost,
		MinTractionPct:     t.Vehicles.MinTractionPct,
		ShallowTractionPct: t.Vehicles.ShallowTractionPct,
	}
}

func (c *Config) applyDefaults() {
	d := ConfigFromTuning(tuning.Default())
	if c.WidthChunks <= 0 {
		c.WidthChunks = d.WidthChunks
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.MaxLayer < c.MinLayer {
		c.MaxLayer = c.MinLayer
	}
	if c.OpaqueThreshold <= 0 {
		c.OpaqueThreshold = d.OpaqueThreshold
	}
	if c.SightRange <= 0 {
		c.SightRange = d.SightRange
	}
	if c.AmbientLow <= 0 {
		c.AmbientLow = d.AmbientLow
	}
	if c.AmbientLit <= 0 {
		c.AmbientLit = d.AmbientLit
	}
	if c.SourceBright <= 0 {
		c.SourceBright = d.SourceBright
	}
	if c.SourceLocal <= 0 {
		c.SourceLocal = d.SourceLocal
	}
	if c.FireLuminance <= 0 {
		c.FireLuminance = d.FireLuminance
	}
	if c.VehicleLightLum <= 0 {
		c.VehicleLightLum = d.VehicleLightLum
	}
	if c.DiagonalWeight <= 0 {
		c.DiagonalWeight = d.DiagonalWeight
	}
	if c.BashPenalty <= 0 {
		c.BashPenalty = d.BashPenalty
	}
	if c.SearchMargin <= 0 {
		c.SearchMargin = d.SearchMargin
	}
	if c.MaxExpansions <= 0 {
		c.MaxExpansions = d.MaxExpansions
	}
	if c.FlatCostMin <= 0 {
		c.FlatCostMin = d.FlatCostMin
	}
	if c.FlatCostMax < c.FlatCostMin {
		c.FlatCostMax = c.FlatCostMin
	}
	if c.MaxFieldDensity <= 0 || c.MaxFieldDensity > 3 {
		c.MaxFieldDensity = 3
	}
	if c.MaxVehicleSpeed <= 0 {
		c.MaxVehicleSpeed = d.MaxVehicleSpeed
	}
	if c.RoughTerrainCost <= 0 {
		c.RoughTerrainCost = d.RoughTerrainCost
	}
	if c.MinTractionPct <= 0 {
		c.MinTractionPct = d.MinTractionPct
	}
	if c.ShallowTractionPct <= 0 {
		c.ShallowTractionPct = d.ShallowTractionPct
	}
}
