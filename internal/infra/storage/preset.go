package storage

import (
	"context"

	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
)

// RunRequest converts the preset into an engine request. Random seeds are
// left unset so every run from a preset differs unless the caller pins them.
func (p Preset) RunRequest() engine.RunRequest {
	prob := p.SeedProbability
	return engine.RunRequest{
		Width:           p.Width,
		Height:          p.Height,
		Depth:           p.Depth,
		Reproduce:       p.Reproduce,
		Survive:         p.Survive,
		Dying:           p.Dying,
		Topology:        p.Topology,
		SeedMode:        p.SeedMode,
		SeedProbability: &prob,
	}
}

// FindBuiltIn returns the built-in preset called name.
func FindBuiltIn(name string) (Preset, bool) {
	for _, p := range BuiltInPresets() {
		if p.Name == name {
			p.BuiltIn = true
			return p, true
		}
	}
	return Preset{}, false
}

// BuiltInPresets are the rule sets every server starts with.
func BuiltInPresets() []Preset {
	return []Preset{
		{
			Name:        "445",
			Description: "Slow crystalline growth from a dense seed",
			Width:       48, Height: 48, Depth: 48,
			Reproduce: "4", Survive: "4", Dying: "1-4",
			Topology: "moore", SeedMode: "global", SeedProbability: 0.3,
		},
		{
			Name:        "amoeba",
			Description: "Large pulsing blobs that never settle",
			Width:       64, Height: 64, Depth: 64,
			Reproduce: "5-7,12-13,15", Survive: "9-26", Dying: "1-5",
			Topology: "moore", SeedMode: "global", SeedProbability: 0.3,
		},
		{
			Name:        "clouds",
			Description: "Dense noise that condenses into smooth clouds",
			Width:       64, Height: 64, Depth: 64,
			Reproduce: "13-14,17-19", Survive: "13-26", Dying: "1-2",
			Topology: "moore", SeedMode: "global", SeedProbability: 0.5,
		},
		{
			Name:        "crystal",
			Description: "Axis-aligned growth from a small central seed",
			Width:       32, Height: 32, Depth: 32,
			Reproduce: "1,3", Survive: "0-6", Dying: "1-2",
			Topology: "vonneumann", SeedMode: "center", SeedProbability: 0.3,
		},
		{
			Name:        "pyroclastic",
			Description: "Expanding shells with long-lived embers",
			Width:       48, Height: 48, Depth: 48,
			Reproduce: "6-8", Survive: "4-7", Dying: "1-10",
			Topology: "moore", SeedMode: "center", SeedProbability: 0.5,
		},
	}
}

// SeedBuiltInPresets writes the built-in presets, replacing earlier copies
// but leaving user presets alone.
func SeedBuiltInPresets(ctx context.Context, repo PresetRepository) error {
	for _, p := range BuiltInPresets() {
		p.BuiltIn = true
		if err := repo.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
