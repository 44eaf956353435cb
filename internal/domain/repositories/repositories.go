// Package repositories defines interfaces for domain persistence.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// AnalysisResultRepository persists published analysis results.
type AnalysisResultRepository interface {
	// Save persists a result. Saving the same run ID again replaces it.
	Save(ctx context.Context, result *execution.AnalysisResult) error

	// FindByID retrieves a result by its run ID.
	FindByID(ctx context.Context, id values.RunID) (*execution.AnalysisResult, error)

	// FindRecent retrieves the newest results first; limit <= 0 means all.
	FindRecent(ctx context.Context, limit int) ([]*execution.AnalysisResult, error)

	// FindBetween retrieves results started within [start, end], newest first.
	FindBetween(ctx context.Context, start, end time.Time) ([]*execution.AnalysisResult, error)
}

// WorkspaceRepository persists the editable state of one workspace.
type WorkspaceRepository interface {
	// Load returns the stored workspace, or ErrNotFound.
	Load(ctx context.Context) (*entities.Workspace, error)

	// Save replaces the stored workspace.
	Save(ctx context.Context, ws *entities.Workspace) error

	// Exists reports whether a workspace has been stored.
	Exists(ctx context.Context) (bool, error)
}
