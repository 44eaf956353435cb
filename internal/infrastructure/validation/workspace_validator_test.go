package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reglet-dev/xrrlab/internal/application/errors"
)

const validDocument = `
format_version: 1.0.0
name: wafer-7
instrument:
  wavelength: 1.5406
  beam_width: 0.2
  axis_unit: 2theta
columns:
  x: 0
  y: 1
layers:
  - id: 9b2f4c1e-3d4a-4f6b-8e2a-1c2d3e4f5a6b
    material: SiO2
    thickness: 25
    density: 2.2
    roughness: 4.1
  - material: Si Substrate
    thickness: 0
    density: 2.33
    roughness: 3.2
data:
  source: scan.xy
  original_x: [0.5, 1.0]
  y: [1.0, 0.1]
`

func TestWorkspaceValidator_Valid(t *testing.T) {
	v := NewWorkspaceValidator()
	require.NoError(t, v.Validate([]byte(validDocument)))

	// JSON is valid YAML
	require.NoError(t, v.Validate([]byte(`{"format_version":"1.2.0","instrument":{"wavelength":1.54},"layers":[{"material":"Si","thickness":0,"density":2.33,"roughness":3}]}`)))
}

func TestWorkspaceValidator_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "missing layers",
			doc:   "format_version: 1.0.0\ninstrument:\n  wavelength: 1.54\n",
			field: "document",
		},
		{
			name:  "negative wavelength",
			doc:   "format_version: 1.0.0\ninstrument:\n  wavelength: -1\nlayers:\n  - {material: Si, thickness: 0, density: 2.33, roughness: 3}\n",
			field: "document",
		},
		{
			name:  "unknown unit",
			doc:   "format_version: 1.0.0\ninstrument:\n  wavelength: 1.54\n  axis_unit: furlong\nlayers:\n  - {material: Si, thickness: 0, density: 2.33, roughness: 3}\n",
			field: "document",
		},
		{
			name:  "unexpected key",
			doc:   "format_version: 1.0.0\ncolour: red\ninstrument:\n  wavelength: 1.54\nlayers:\n  - {material: Si, thickness: 0, density: 2.33, roughness: 3}\n",
			field: "document",
		},
		{
			name:  "future major version",
			doc:   "format_version: 2.0.0\ninstrument:\n  wavelength: 1.54\nlayers:\n  - {material: Si, thickness: 0, density: 2.33, roughness: 3}\n",
			field: "format_version",
		},
		{
			name:  "not semver",
			doc:   "format_version: latest\ninstrument:\n  wavelength: 1.54\nlayers:\n  - {material: Si, thickness: 0, density: 2.33, roughness: 3}\n",
			field: "format_version",
		},
	}

	v := NewWorkspaceValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.doc))
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
