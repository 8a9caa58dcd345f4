package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
	"github.com/cognicore/cognacy/pkg/cognacy/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu     sync.RWMutex
	models map[string][]byte
	meta   map[string]store.Summary
	runs   map[string][]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		models: make(map[string][]byte),
		meta:   make(map[string]store.Summary),
		runs:   make(map[string][]store.Run),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveModel stores a copy of the model, assigning an ID if it has none.
func (s *Store) SaveModel(ctx context.Context, m *model.Model) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if m.ID == "" {
		m.ID = model.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.ID] = body
	s.meta[m.ID] = store.Summary{
		ID:        m.ID,
		Kind:      m.Kind,
		Symbols:   len([]rune(m.Symbols)),
		CreatedAt: m.CreatedAt,
	}
	return m.ID, nil
}

func decode(body []byte) (*model.Model, error) {
	var m model.Model
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetModel implements store.Store.
func (s *Store) GetModel(ctx context.Context, id string) (*model.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.models[id]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", id, internalerr.ErrNotFound)
	}
	return decode(body)
}

// LatestModel implements store.Store.
func (s *Store) LatestModel(ctx context.Context, kind model.Kind) (*model.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := ""
	for id, m := range s.meta {
		if m.Kind == kind && id > latest {
			latest = id
		}
	}
	if latest == "" {
		return nil, fmt.Errorf("latest %s model: %w", kind, internalerr.ErrNotFound)
	}
	return decode(s.models[latest])
}

// ListModels implements store.Store.
func (s *Store) ListModels(ctx context.Context) ([]store.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Summary, 0, len(s.meta))
	for _, m := range s.meta {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// DeleteModel implements store.Store.
func (s *Store) DeleteModel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[id]; !ok {
		return fmt.Errorf("model %s: %w", id, internalerr.ErrNotFound)
	}
	delete(s.models, id)
	delete(s.meta, id)
	delete(s.runs, id)
	return nil
}

// SaveRun implements store.Store.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[r.ModelID]; !ok {
		return fmt.Errorf("run for model %s: %w", r.ModelID, internalerr.ErrNotFound)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.runs[r.ModelID] = append(s.runs[r.ModelID], r)
	return nil
}

// RunsForModel implements store.Store.
func (s *Store) RunsForModel(ctx context.Context, modelID string) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]store.Run(nil), s.runs[modelID]...), nil
}
