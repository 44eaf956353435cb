// Package values contains domain value objects that encapsulate
// primitive types with validation and such.
package values

import (
	"fmt"

	"github.com/google/uuid"
)

// LayerID uniquely identifies a material layer.
// It stays stable when the layer is moved inside its stack.
type LayerID struct {
	value uuid.UUID
}

// NewLayerID creates a new random layer ID
func NewLayerID() LayerID {
	return LayerID{value: uuid.New()}
}

// ParseLayerID parses a string into a LayerID
func ParseLayerID(s string) (LayerID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return LayerID{}, fmt.Errorf("invalid layer ID: %w", err)
	}
	return LayerID{value: id}, nil
}

// MustParseLayerID parses a string or panics (for tests only)
func MustParseLayerID(s string) LayerID {
	id, err := ParseLayerID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the string representation
func (l LayerID) String() string {
	return l.value.String()
}

// Short returns the first eight characters, enough to address a layer on the command line.
func (l LayerID) Short() string {
	return l.value.String()[:8]
}

// IsZero returns true if this is the zero value
func (l LayerID) IsZero() bool {
	return l.value == uuid.Nil
}

// Equals checks if two LayerIDs are equal
func (l LayerID) Equals(other LayerID) bool {
	return l.value == other.value
}

// MarshalText implements encoding.TextMarshaler
func (l LayerID) MarshalText() ([]byte, error) {
	return []byte(l.value.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *LayerID) UnmarshalText(data []byte) error {
	id, err := ParseLayerID(string(data))
	if err != nil {
		return err
	}
	*l = id
	return nil
}
