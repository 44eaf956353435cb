// Package validation checks persisted workspace documents before they are decoded.
package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "github.com/reglet-dev/xrrlab/internal/application/errors"
	"github.com/reglet-dev/xrrlab/internal/application/ports"
)

//go:embed workspace.schema.json
var workspaceSchema []byte

// SupportedFormats is the range of workspace format versions this build can read.
const SupportedFormats = "^1.0.0"

var _ ports.WorkspaceValidator = (*WorkspaceValidator)(nil)

// WorkspaceValidator validates YAML or JSON workspace documents against the embedded
// JSON Schema and the supported format_version range.
type WorkspaceValidator struct {
	once       sync.Once
	schema     *jsonschema.Schema
	compileErr error
	constraint *semver.Constraints
}

// NewWorkspaceValidator creates a validator. The schema is compiled on first use.
func NewWorkspaceValidator() *WorkspaceValidator {
	c, err := semver.NewConstraint(SupportedFormats)
	if err != nil {
		panic(fmt.Sprintf("invalid format constraint %q: %v", SupportedFormats, err))
	}
	return &WorkspaceValidator{constraint: c}
}

// Validate checks a document. Structural problems are reported together as a ValidationError.
func (v *WorkspaceValidator) Validate(data []byte) error {
	schema, err := v.compiled()
	if err != nil {
		return err
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return apperrors.NewValidationError("document", fmt.Sprintf("not valid YAML: %v", err))
	}
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return apperrors.NewValidationError("document", fmt.Sprintf("not a JSON value: %v", err))
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return schemaError(verr)
		}
		return fmt.Errorf("workspace validation failed: %w", err)
	}

	m, _ := doc.(map[string]interface{})
	version, _ := m["format_version"].(string)
	return v.checkVersion(version)
}

func (v *WorkspaceValidator) compiled() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if err := compiler.AddResource("workspace.schema.json", bytes.NewReader(workspaceSchema)); err != nil {
			v.compileErr = fmt.Errorf("failed to add workspace schema: %w", err)
			return
		}
		v.schema, v.compileErr = compiler.Compile("workspace.schema.json")
	})
	return v.schema, v.compileErr
}

func (v *WorkspaceValidator) checkVersion(raw string) error {
	version, err := semver.NewVersion(raw)
	if err != nil {
		return apperrors.NewValidationError("format_version", fmt.Sprintf("%q is not a semantic version", raw))
	}
	if ok, reasons := v.constraint.Validate(version); !ok {
		details := make([]string, 0, len(reasons))
		for _, r := range reasons {
			details = append(details, r.Error())
		}
		return apperrors.NewValidationError("format_version",
			fmt.Sprintf("version %s is not supported (want %s)", version, SupportedFormats), details...)
	}
	return nil
}

// schemaError flattens a schema error tree into one ValidationError.
func schemaError(err *jsonschema.ValidationError) error {
	var details []string
	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if e.Message != "" && len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			details = append(details, fmt.Sprintf("%s: %s", location, e.Message))
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(err)

	if len(details) == 0 {
		details = append(details, err.Error())
	}
	return apperrors.NewValidationError("document", "does not match the workspace schema", details...)
}
