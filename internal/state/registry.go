package state

import (
	"context"
	"errors"
	"slices"
	"sync"

	"ml_dashboard/internal/storage"
	"ml_dashboard/pkg"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	apperrors "ml_dashboard/internal/errors"
)

// Registry is the ordered list of models trained in this dashboard.
// Duplicate ids are kept.
type Registry struct {
	mu      sync.Mutex
	backend storage.Backend
	key     string
	models  []pkg.ModelRecord
	logger  zerolog.Logger
}

// NewRegistry rehydrates the list persisted under key, falling back to an
// empty list when the data is absent or malformed.
func NewRegistry(ctx context.Context, backend storage.Backend, key string, logger zerolog.Logger) *Registry {
	r := &Registry{
		backend: backend,
		key:     key,
		models:  []pkg.ModelRecord{},
		logger:  logger.With().Str("component", "model_registry").Logger(),
	}

	data, err := backend.Load(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return r
	case err != nil:
		r.logger.Warn().Err(err).Str("key", key).Msg("Failed to load model registry, starting empty")
		return r
	}

	var models []pkg.ModelRecord
	if err := sonic.Unmarshal(data, &models); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Persisted model registry is malformed, starting empty")
		return r
	}
	if models != nil {
		r.models = models
	}
	return r
}

// List returns the models in insertion order
func (r *Registry) List() []pkg.ModelRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.models)
}

// Add appends a model and persists the list
func (r *Registry) Add(ctx context.Context, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models = append(r.models, pkg.ModelRecord{ID: id, Name: name})
	return r.persist(ctx)
}

// ReplaceAll swaps the whole list and persists it
func (r *Registry) ReplaceAll(ctx context.Context, models []pkg.ModelRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models = slices.Clone(models)
	if r.models == nil {
		r.models = []pkg.ModelRecord{}
	}
	return r.persist(ctx)
}

// Clear empties the list and deletes the persisted entry
func (r *Registry) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models = []pkg.ModelRecord{}
	if err := r.backend.Delete(ctx, r.key); err != nil {
		r.logger.Error().Err(err).Str("key", r.key).Msg("Failed to delete model registry")
		return apperrors.Storage("failed to delete model registry", err)
	}
	return nil
}

func (r *Registry) persist(ctx context.Context) error {
	data, err := sonic.Marshal(r.models)
	if err != nil {
		return apperrors.Storage("failed to encode model registry", err)
	}
	if err := r.backend.Save(ctx, r.key, data); err != nil {
		r.logger.Error().Err(err).Str("key", r.key).Msg("Failed to persist model registry")
		return apperrors.Storage("failed to persist model registry", err)
	}
	return nil
}
