// Package maintenance keeps a model store tidy between training runs.
package maintenance

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/store"
)

// Pruner deletes all but the newest models of each kind.
type Pruner struct {
	Store store.Store
	Keep  int // models kept per kind
}

// Result summarizes a pruning run.
type Result struct {
	Processed int
	Deleted   int
	Errors    int
}

// Prune walks the stored models newest first and deletes every model past
// the first Keep of its kind, together with its runs. Failed deletes are
// counted and skipped.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	var res Result
	if p.Store == nil || p.Keep < 1 {
		return res, fmt.Errorf("pruner: need a store and keep >= 1: %w", internalerr.ErrInvalidConfig)
	}

	models, err := p.Store.ListModels(ctx)
	if err != nil {
		return res, err
	}
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].CreatedAt.Equal(models[j].CreatedAt) {
			return models[i].ID > models[j].ID
		}
		return models[i].CreatedAt.After(models[j].CreatedAt)
	})

	seen := make(map[string]int)
	for _, m := range models {
		res.Processed++
		seen[string(m.Kind)]++
		if seen[string(m.Kind)] <= p.Keep {
			continue
		}
		if err := p.Store.DeleteModel(ctx, m.ID); err != nil {
			res.Errors++
			continue
		}
		res.Deleted++
	}
	return res, nil
}
