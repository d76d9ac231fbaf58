// Package store persists the run ledger kept in each output directory.
package store

import (
	"context"

	"github.com/me/visiumflow/pkg/model"
)

// Store defines the run ledger.
type Store interface {
	CreateRun(ctx context.Context, run *model.RunRecord) error
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*model.RunRecord, error)
	UpdateRun(ctx context.Context, run *model.RunRecord) error

	Close() error
	Migrate(ctx context.Context) error
}
