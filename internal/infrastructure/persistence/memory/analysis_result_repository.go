// Package memory provides in-memory implementations of domain repositories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

// Ensure interface compliance
var _ repositories.AnalysisResultRepository = (*AnalysisResultRepository)(nil)

// AnalysisResultRepository keeps analysis results for the lifetime of the process.
type AnalysisResultRepository struct {
	results map[values.RunID]*execution.AnalysisResult
	mu      sync.RWMutex
}

// NewAnalysisResultRepository creates a new in-memory repository.
func NewAnalysisResultRepository() *AnalysisResultRepository {
	return &AnalysisResultRepository{
		results: make(map[values.RunID]*execution.AnalysisResult),
	}
}

// Save stores the result pointer. Published results are immutable, so no copy is taken.
func (r *AnalysisResultRepository) Save(_ context.Context, result *execution.AnalysisResult) error {
	if result == nil || result.RunID.IsZero() {
		return fmt.Errorf("cannot save a result without a run ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.RunID] = result
	return nil
}

// FindByID retrieves a result by run ID.
func (r *AnalysisResultRepository) FindByID(_ context.Context, id values.RunID) (*execution.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.results[id]
	if !ok {
		return nil, fmt.Errorf("analysis result %s: %w", id, repositories.ErrNotFound)
	}
	return result, nil
}

// FindRecent retrieves the newest results first.
func (r *AnalysisResultRepository) FindRecent(_ context.Context, limit int) ([]*execution.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*execution.AnalysisResult, 0, len(r.results))
	for _, res := range r.results {
		matches = append(matches, res)
	}
	sortNewestFirst(matches)

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// FindBetween retrieves results whose start time lies in [start, end].
func (r *AnalysisResultRepository) FindBetween(_ context.Context, start, end time.Time) ([]*execution.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*execution.AnalysisResult
	for _, res := range r.results {
		if !res.StartTime.Before(start) && !res.StartTime.After(end) {
			matches = append(matches, res)
		}
	}
	sortNewestFirst(matches)
	return matches, nil
}

func sortNewestFirst(results []*execution.AnalysisResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].StartTime.After(results[j].StartTime)
	})
}
