package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	"github.com/reglet-dev/xrrlab/internal/domain/values"
)

const resultPrefix = "result/"

// Ensure interface compliance
var _ repositories.AnalysisResultRepository = (*AnalysisResultRepository)(nil)

// AnalysisResultRepository stores results as JSON keyed by run ID.
// Decoded results carry the error message but not the original error value.
type AnalysisResultRepository struct {
	db *DB
}

// NewAnalysisResultRepository creates a repository on db.
func NewAnalysisResultRepository(db *DB) *AnalysisResultRepository {
	return &AnalysisResultRepository{db: db}
}

func resultKey(id values.RunID) []byte {
	return []byte(resultPrefix + id.String())
}

// Save stores result, replacing an earlier state of the same run.
func (r *AnalysisResultRepository) Save(ctx context.Context, result *execution.AnalysisResult) error {
	if result == nil || result.RunID.IsZero() {
		return fmt.Errorf("cannot save a result without a run ID")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return r.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(resultKey(result.RunID), data)
	})
}

// FindByID retrieves one result.
func (r *AnalysisResultRepository) FindByID(ctx context.Context, id values.RunID) (*execution.AnalysisResult, error) {
	var result execution.AnalysisResult
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("analysis result %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result %s: %w", id, err)
	}
	return &result, nil
}

// FindRecent returns the newest results first.
func (r *AnalysisResultRepository) FindRecent(ctx context.Context, limit int) ([]*execution.AnalysisResult, error) {
	results, err := r.scan(ctx, func(*execution.AnalysisResult) bool { return true })
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FindBetween returns results started within [start, end], newest first.
func (r *AnalysisResultRepository) FindBetween(ctx context.Context, start, end time.Time) ([]*execution.AnalysisResult, error) {
	return r.scan(ctx, func(res *execution.AnalysisResult) bool {
		return !res.StartTime.Before(start) && !res.StartTime.After(end)
	})
}

func (r *AnalysisResultRepository) scan(ctx context.Context, keep func(*execution.AnalysisResult) bool) ([]*execution.AnalysisResult, error) {
	var results []*execution.AnalysisResult
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(resultPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var res execution.AnalysisResult
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &res)
			}); err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}
			if keep(&res) {
				results = append(results, &res)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartTime.After(results[j].StartTime)
	})
	return results, nil
}
