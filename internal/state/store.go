package state

import (
	"context"
	"errors"
	"sync"

	"ml_dashboard/internal/storage"
	"ml_dashboard/pkg"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	apperrors "ml_dashboard/internal/errors"
)

// Store holds the dashboard session state and mirrors it to a backend
type Store struct {
	mu      sync.Mutex
	backend storage.Backend
	key     string
	state   pkg.SessionState
	logger  zerolog.Logger
}

// NewStore rehydrates the state persisted under key. Absent or malformed
// data yields the empty state; construction never fails.
func NewStore(ctx context.Context, backend storage.Backend, key string, logger zerolog.Logger) *Store {
	s := &Store{
		backend: backend,
		key:     key,
		state:   pkg.EmptySessionState(),
		logger:  logger.With().Str("component", "state_store").Logger(),
	}

	data, err := backend.Load(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s
	case err != nil:
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to load persisted state, starting empty")
		return s
	}

	loaded := pkg.EmptySessionState()
	if err := sonic.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Persisted state is malformed, starting empty")
		return s
	}
	s.state = normalize(loaded)
	s.logger.Debug().Str("session_id", s.state.SessionID).Str("model_id", s.state.ModelID).Msg("State rehydrated")
	return s
}

// Get returns a copy of the current state
func (s *Store) Get() pkg.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.state)
}

// Update merges p into the current state and persists the result. The
// in-memory state advances even when persisting fails; the storage error
// is returned alongside the new state.
func (s *Store) Update(ctx context.Context, p Patch) (pkg.SessionState, error) {
	next, _, err := s.UpdateIf(ctx, nil, p)
	return next, err
}

// UpdateIf applies p only when guard accepts the current state. A nil
// guard always applies.
func (s *Store) UpdateIf(ctx context.Context, guard func(pkg.SessionState) bool, p Patch) (pkg.SessionState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if guard != nil && !guard(Clone(s.state)) {
		return Clone(s.state), false, nil
	}

	s.state = Merge(s.state, p)
	err := s.persist(ctx)
	return Clone(s.state), true, err
}

// Reset replaces the state with the empty state and removes the persisted copy
func (s *Store) Reset(ctx context.Context) (pkg.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = pkg.EmptySessionState()
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("Failed to delete persisted state")
		return Clone(s.state), apperrors.Storage("failed to delete persisted state", err)
	}
	return Clone(s.state), nil
}

// persist must be called with mu held
func (s *Store) persist(ctx context.Context) error {
	data, err := sonic.Marshal(s.state)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode state")
		return apperrors.Storage("failed to encode state", err)
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("Failed to persist state")
		return apperrors.Storage("failed to persist state", err)
	}
	return nil
}
