package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/repositories"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/persistence"
)

const workspacePrefix = "workspace/"

// Ensure interface compliance
var _ repositories.WorkspaceRepository = (*WorkspaceRepository)(nil)

// WorkspaceRepository keeps a named workspace document in the database.
type WorkspaceRepository struct {
	db        *DB
	key       []byte
	validator ports.WorkspaceValidator
}

// NewWorkspaceRepository stores the workspace under name.
func NewWorkspaceRepository(db *DB, name string, validator ports.WorkspaceValidator) *WorkspaceRepository {
	return &WorkspaceRepository{db: db, key: []byte(workspacePrefix + name), validator: validator}
}

// Load decodes the stored document.
func (r *WorkspaceRepository) Load(ctx context.Context) (*entities.Workspace, error) {
	var data []byte
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(r.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("workspace %s: %w", r.key, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}
	return persistence.DecodeWorkspace(data, r.validator)
}

// Save replaces the stored document.
func (r *WorkspaceRepository) Save(ctx context.Context, ws *entities.Workspace) error {
	data, err := persistence.EncodeWorkspace(ws)
	if err != nil {
		return err
	}
	return r.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(r.key, data)
	})
}

// Exists reports whether the document is stored.
func (r *WorkspaceRepository) Exists(ctx context.Context) (bool, error) {
	err := r.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(r.key)
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
