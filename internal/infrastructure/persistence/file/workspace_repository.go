// Package file stores a workspace as a YAML document on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/persistence"
)

// DefaultWorkspaceFile is the workspace document used when no path is configured.
const DefaultWorkspaceFile = "xrrlab.yaml"

// Ensure interface compliance
var _ repositories.WorkspaceRepository = (*WorkspaceRepository)(nil)

// WorkspaceRepository reads and writes one YAML workspace document.
type WorkspaceRepository struct {
	path      string
	validator ports.WorkspaceValidator
}

// NewWorkspaceRepository creates a repository for the document at path.
// validator may be nil to skip schema checks on load.
func NewWorkspaceRepository(path string, validator ports.WorkspaceValidator) *WorkspaceRepository {
	if path == "" {
		path = DefaultWorkspaceFile
	}
	return &WorkspaceRepository{path: path, validator: validator}
}

// Path returns the document path.
func (r *WorkspaceRepository) Path() string {
	return r.path
}

// Load reads and validates the document.
func (r *WorkspaceRepository) Load(_ context.Context) (*entities.Workspace, error) {
	//nolint:gosec // G304: workspace path is chosen by the user
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("workspace %s: %w", r.path, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}

	ws, err := persistence.DecodeWorkspace(data, r.validator)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", r.path, err)
	}
	return ws, nil
}

// Save writes the document through a temporary file so a crash never leaves it half written.
func (r *WorkspaceRepository) Save(_ context.Context, ws *entities.Workspace) error {
	data, err := persistence.EncodeWorkspace(ws)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".xrrlab-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temporary workspace file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace workspace: %w", err)
	}
	return nil
}

// Exists reports whether the document exists.
func (r *WorkspaceRepository) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(r.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
