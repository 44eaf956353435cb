package entities

import "strings"

// PresetThickness is the thickness given to layers created from a preset.
const PresetThickness = 50.0

// MaterialPreset seeds the physical defaults of a new layer.
// Color is a rendering hint only.
type MaterialPreset struct {
	Name      string  `json:"name" yaml:"name"`
	Formula   string  `json:"formula" yaml:"formula"`
	Density   float64 `json:"density" yaml:"density"`
	Roughness float64 `json:"roughness" yaml:"roughness"`
	Color     string  `json:"color" yaml:"color"`
}

var materialPresets = []MaterialPreset{
	{Name: "Silicon", Formula: "Si", Density: 2.33, Roughness: 3.0, Color: "#94a3b8"},
	{Name: "Silica", Formula: "SiO2", Density: 2.20, Roughness: 4.0, Color: "#3b82f6"},
	{Name: "Alumina", Formula: "Al2O3", Density: 3.95, Roughness: 3.5, Color: "#ef4444"},
	{Name: "Gold", Formula: "Au", Density: 19.32, Roughness: 5.0, Color: "#eab308"},
	{Name: "Chromium", Formula: "Cr", Density: 7.19, Roughness: 4.5, Color: "#6366f1"},
	{Name: "Titanium", Formula: "Ti", Density: 4.50, Roughness: 3.8, Color: "#8b5cf6"},
	{Name: "Copper", Formula: "Cu", Density: 8.96, Roughness: 4.2, Color: "#f97316"},
	{Name: "Nickel", Formula: "Ni", Density: 8.90, Roughness: 4.0, Color: "#14b8a6"},
}

// MaterialPresets returns a copy of the preset table.
func MaterialPresets() []MaterialPreset {
	out := make([]MaterialPreset, len(materialPresets))
	copy(out, materialPresets)
	return out
}

// FindPreset looks a preset up by name or formula, ignoring case.
func FindPreset(key string) (MaterialPreset, bool) {
	for _, p := range materialPresets {
		if strings.EqualFold(p.Name, key) || strings.EqualFold(p.Formula, key) {
			return p, true
		}
	}
	return MaterialPreset{}, false
}

// NewLayer instantiates a layer from the preset, labelled with its formula.
func (p MaterialPreset) NewLayer() MaterialLayer {
	return NewMaterialLayer(p.Formula, PresetThickness, p.Density, p.Roughness)
}
