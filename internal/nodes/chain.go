package nodes

import (
	"context"
	"errors"
	"fmt"

	"ml_dashboard/internal/core"
	"ml_dashboard/internal/state"
	"ml_dashboard/pkg"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	apperrors "ml_dashboard/internal/errors"
)

// ErrStale marks a backend result dropped because the session or model it
// was requested for has been replaced in the meantime.
var ErrStale = errors.New("result discarded: dashboard state changed while the request was in flight")

// Backend is the part of the analytics backend the flows need
type Backend interface {
	Upload(ctx context.Context, filename string, data []byte) (*pkg.UploadResponse, error)
	Train(ctx context.Context, sessionID, targetColumn string) (*pkg.TrainResponse, error)
	Predict(ctx context.Context, modelID string, rows []pkg.Row) (*pkg.PredictResponse, error)
	Summary(ctx context.Context, modelID string) (*pkg.SummaryResponse, error)
}

// Deps are the collaborators shared by every node
type Deps struct {
	Store    *state.Store
	Registry *state.Registry
	Backend  Backend
	Config   core.DashboardConfig
	Logger   zerolog.Logger
}

// run is the per-call value threaded through a node's chain. The first
// step error is kept so callers see it unwrapped.
type run struct {
	err error
}

func (r *run) record(err error) {
	if r.err == nil {
		r.err = err
	}
}

// cause prefers the recorded step error over the chain's wrapped error
func (r *run) cause(chainErr error) error {
	if r.err != nil {
		return r.err
	}
	return chainErr
}

type recorder interface {
	record(error)
}

// step adapts fn into a chain lambda over the shared per-call value
func step[T recorder](fn func(context.Context, T) error) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in T) (T, error) {
		if err := fn(ctx, in); err != nil {
			in.record(err)
			return in, err
		}
		return in, nil
	})
}

// buildChain compiles steps into one runnable executed in order
func buildChain[T recorder](ctx context.Context, name string, steps ...func(context.Context, T) error) (compose.Runnable[T, T], error) {
	chain := compose.NewChain[T, T]()
	for _, fn := range steps {
		chain.AppendLambda(step(fn))
	}
	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating %s chain: %w", name, err)
	}
	return runnable, nil
}

// userError prefixes err's user message while keeping its code
func userError(prefix string, err error) error {
	if apperrors.GetCode(err) == apperrors.CodeValidationError {
		return err
	}
	return apperrors.Wrap(err, prefix+apperrors.UserMessage(err))
}

// failed records err as the user-visible error and ends the flow. guard
// limits the write to the state the request was issued against.
func failed(ctx context.Context, deps Deps, guard func(pkg.SessionState) bool, err error) core.NodeOutput {
	next, applied, storeErr := deps.Store.UpdateIf(ctx, guard, state.ErrorPatch(apperrors.UserMessage(err)))
	if storeErr != nil {
		deps.Logger.Warn().Err(storeErr).Msg("Failed to persist error state")
	}
	if !applied {
		return core.NodeOutput{Error: ErrStale, Complete: true}
	}
	return core.NodeOutput{Error: err, State: &next, Complete: true}
}

// committed builds the output of a successful flow step
func committed(deps Deps, next pkg.SessionState, applied bool, storeErr error, data map[string]any) core.NodeOutput {
	if storeErr != nil {
		deps.Logger.Warn().Err(storeErr).Msg("State advanced but was not persisted")
	}
	if !applied {
		deps.Logger.Info().Msg("Dropped stale backend response")
		return core.NodeOutput{Error: ErrStale, Complete: true}
	}
	return core.NodeOutput{Data: data, State: &next}
}

func sessionIs(id string) func(pkg.SessionState) bool {
	return func(s pkg.SessionState) bool { return s.SessionID == id }
}

func modelIs(id string) func(pkg.SessionState) bool {
	return func(s pkg.SessionState) bool { return s.ModelID == id }
}
