package entities

import (
	"fmt"
	"math"

	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// Defaults for a layer created by an "add" action.
const (
	DefaultLayerMaterial  = "New Material"
	DefaultLayerThickness = 50.0
	DefaultLayerRoughness = 3.0
	DefaultLayerDensity   = 1.0
)

// MaterialLayer is one physical layer of a thin-film sample.
// Thickness and roughness are in ångström, density in g/cm³.
type MaterialLayer struct {
	ID        values.LayerID `json:"id" yaml:"id"`
	Material  string         `json:"material" yaml:"material"`
	Thickness float64        `json:"thickness" yaml:"thickness"`
	Density   float64        `json:"density" yaml:"density"`
	Roughness float64        `json:"roughness" yaml:"roughness"`
}

// NewMaterialLayer creates a layer with a fresh ID.
func NewMaterialLayer(material string, thickness, density, roughness float64) MaterialLayer {
	return MaterialLayer{
		ID:        values.NewLayerID(),
		Material:  material,
		Thickness: thickness,
		Density:   density,
		Roughness: roughness,
	}
}

// NewDefaultLayer creates the layer inserted by a plain "add".
func NewDefaultLayer() MaterialLayer {
	return NewMaterialLayer(DefaultLayerMaterial, DefaultLayerThickness, DefaultLayerDensity, DefaultLayerRoughness)
}

// EffectiveThickness is the thickness used in depth arithmetic.
// Negative and non-finite values count as zero.
func (l MaterialLayer) EffectiveThickness() float64 {
	return nonNegativeFinite(l.Thickness)
}

// EffectiveRoughness clamps negative and non-finite roughness to zero.
func (l MaterialLayer) EffectiveRoughness() float64 {
	return nonNegativeFinite(l.Roughness)
}

func nonNegativeFinite(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// LayerField names an editable layer attribute.
type LayerField string

const (
	FieldMaterial  LayerField = "material"
	FieldThickness LayerField = "thickness"
	FieldDensity   LayerField = "density"
	FieldRoughness LayerField = "roughness"
)

// ParseLayerField parses a field name.
func ParseLayerField(s string) (LayerField, error) {
	f := LayerField(s)
	switch f {
	case FieldMaterial, FieldThickness, FieldDensity, FieldRoughness:
		return f, nil
	default:
		return "", fmt.Errorf("unknown layer field %q (expected material, thickness, density or roughness)", s)
	}
}

// IsNumeric reports whether the field holds a number.
func (f LayerField) IsNumeric() bool {
	return f != FieldMaterial
}
