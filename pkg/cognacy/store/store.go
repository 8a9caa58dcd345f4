package store

import (
	"context"
	"time"

	"github.com/cognicore/cognacy/pkg/cognacy/model"
)

// Store persists trained models and the runs that produced them
type Store interface {
	Close() error

	// Models
	SaveModel(ctx context.Context, m *model.Model) (string, error)
	GetModel(ctx context.Context, id string) (*model.Model, error)
	LatestModel(ctx context.Context, kind model.Kind) (*model.Model, error)
	ListModels(ctx context.Context) ([]Summary, error)
	DeleteModel(ctx context.Context, id string) error

	// Runs
	SaveRun(ctx context.Context, r Run) error
	RunsForModel(ctx context.Context, modelID string) ([]Run, error)
}

// Summary describes a stored model without its parameters
type Summary struct {
	ID        string
	Kind      model.Kind
	Symbols   int
	CreatedAt time.Time
}

// Run records one training run
type Run struct {
	ModelID   string
	Dataset   string
	Pairs     int
	Epochs    int
	Batches   int
	Pruned    int
	Converged bool
	FScore    float64 // 0 when the dataset had no gold cognate classes
	CreatedAt time.Time
}
