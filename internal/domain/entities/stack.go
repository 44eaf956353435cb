package entities

import (
	"fmt"
	"math"
	"strconv"

	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// LayerStack is an ordered surface-to-substrate sequence of layers.
// The last element is always the substrate: it is never removed and never moved,
// and new layers are always inserted above it.
type LayerStack struct {
	layers []MaterialLayer
}

// NewLayerStack builds a stack from its overlayers (outermost first) and substrate.
func NewLayerStack(substrate MaterialLayer, overlayers ...MaterialLayer) *LayerStack {
	layers := make([]MaterialLayer, 0, len(overlayers)+1)
	layers = append(layers, overlayers...)
	layers = append(layers, substrate)
	return &LayerStack{layers: layers}
}

// NewLayerStackFromLayers treats the last element of layers as the substrate.
func NewLayerStackFromLayers(layers []MaterialLayer) (*LayerStack, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("layer stack requires at least a substrate")
	}
	copied := make([]MaterialLayer, len(layers))
	copy(copied, layers)
	return &LayerStack{layers: copied}, nil
}

// DefaultLayerStack returns the stack a new workspace starts with: native oxide on silicon.
func DefaultLayerStack() *LayerStack {
	return NewLayerStack(
		NewMaterialLayer("Si Substrate", 0, 2.33, 3.2),
		NewMaterialLayer("SiO2", 25.0, 2.2, 4.1),
	)
}

// Insert appends a new overlayer directly above the substrate.
func (s *LayerStack) Insert(layer MaterialLayer) {
	if layer.ID.IsZero() {
		layer.ID = values.NewLayerID()
	}
	last := len(s.layers) - 1
	s.layers = append(s.layers, MaterialLayer{})
	copy(s.layers[last+1:], s.layers[last:])
	s.layers[last] = layer
}

// Update sets one field of the layer identified by id.
// Numeric fields accept a finite float64, int or decimal string; material accepts a string.
// No physical plausibility check is applied.
func (s *LayerStack) Update(id values.LayerID, field LayerField, value any) error {
	idx := s.IndexOf(id)
	if idx < 0 {
		return fmt.Errorf("layer %s not found", id)
	}
	layer := &s.layers[idx]

	if field == FieldMaterial {
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s expects a string, got %T", field, value)
		}
		layer.Material = name
		return nil
	}

	v, err := toFloat(value)
	if err != nil {
		return fmt.Errorf("field %s: %w", field, err)
	}
	switch field {
	case FieldThickness:
		layer.Thickness = v
	case FieldDensity:
		layer.Density = v
	case FieldRoughness:
		layer.Roughness = v
	default:
		return fmt.Errorf("unknown layer field %q", field)
	}
	return nil
}

// Remove deletes the layer identified by id.
// It returns false without changing the stack if id is unknown or is the substrate.
func (s *LayerStack) Remove(id values.LayerID) bool {
	idx := s.IndexOf(id)
	if idx < 0 || idx == s.substrateIndex() {
		return false
	}
	s.layers = append(s.layers[:idx], s.layers[idx+1:]...)
	return true
}

// Reorder moves the overlayer at oldIndex to newIndex, keeping the relative order of the rest.
// It returns false without changing the stack if either index is out of range or addresses
// the substrate.
func (s *LayerStack) Reorder(oldIndex, newIndex int) bool {
	sub := s.substrateIndex()
	if oldIndex < 0 || newIndex < 0 || oldIndex >= sub || newIndex >= sub {
		return false
	}
	if oldIndex == newIndex {
		return true
	}
	moved := s.layers[oldIndex]
	if oldIndex < newIndex {
		copy(s.layers[oldIndex:newIndex], s.layers[oldIndex+1:newIndex+1])
	} else {
		copy(s.layers[newIndex+1:oldIndex+1], s.layers[newIndex:oldIndex])
	}
	s.layers[newIndex] = moved
	return true
}

// Overlayers returns a copy of every layer except the substrate.
func (s *LayerStack) Overlayers() []MaterialLayer {
	out := make([]MaterialLayer, s.substrateIndex())
	copy(out, s.layers[:s.substrateIndex()])
	return out
}

// Substrate returns the terminal layer.
func (s *LayerStack) Substrate() MaterialLayer {
	return s.layers[s.substrateIndex()]
}

// Layers returns a copy of all layers, substrate last.
func (s *LayerStack) Layers() []MaterialLayer {
	out := make([]MaterialLayer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Len returns the number of layers including the substrate.
func (s *LayerStack) Len() int {
	return len(s.layers)
}

// Find returns the layer with the given id.
func (s *LayerStack) Find(id values.LayerID) (MaterialLayer, bool) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return MaterialLayer{}, false
	}
	return s.layers[idx], true
}

// FindByPrefix resolves a layer from a full ID or a unique ID prefix.
func (s *LayerStack) FindByPrefix(prefix string) (MaterialLayer, error) {
	if prefix == "" {
		return MaterialLayer{}, fmt.Errorf("layer %q not found", prefix)
	}
	var match *MaterialLayer
	for i := range s.layers {
		id := s.layers[i].ID.String()
		if len(prefix) > len(id) || id[:len(prefix)] != prefix {
			continue
		}
		if match != nil {
			return MaterialLayer{}, fmt.Errorf("layer prefix %q is ambiguous", prefix)
		}
		match = &s.layers[i]
	}
	if match == nil {
		return MaterialLayer{}, fmt.Errorf("layer %q not found", prefix)
	}
	return *match, nil
}

// IndexOf returns the position of id, or -1.
func (s *LayerStack) IndexOf(id values.LayerID) int {
	for i := range s.layers {
		if s.layers[i].ID.Equals(id) {
			return i
		}
	}
	return -1
}

// IsSubstrate reports whether id addresses the terminal layer.
func (s *LayerStack) IsSubstrate(id values.LayerID) bool {
	return s.Substrate().ID.Equals(id)
}

// TotalThickness sums the effective thickness of all overlayers.
func (s *LayerStack) TotalThickness() float64 {
	total := 0.0
	for _, l := range s.layers[:s.substrateIndex()] {
		total += l.EffectiveThickness()
	}
	return total
}

// Clone returns an independent deep copy. Pipeline runs operate on clones.
func (s *LayerStack) Clone() *LayerStack {
	return &LayerStack{layers: s.Layers()}
}

func (s *LayerStack) substrateIndex() int {
	return len(s.layers) - 1
}

func toFloat(value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", value)
	}
	return f, nil
}
