package nodes

import (
	"context"
	"fmt"

	"ml_dashboard/internal/core"
	"ml_dashboard/internal/state"
	"ml_dashboard/pkg"

	apperrors "ml_dashboard/internal/errors"
)

// Dashboard groups the view flows over one state store and registry
type Dashboard struct {
	deps    Deps
	Upload  *UploadNode
	Train   *TrainNode
	Predict *PredictNode
	Summary *SummaryNode
}

// NewDashboard builds every node
func NewDashboard(ctx context.Context, deps Deps) (*Dashboard, error) {
	upload, err := NewUploadNode(ctx, deps)
	if err != nil {
		return nil, err
	}
	train, err := NewTrainNode(ctx, deps)
	if err != nil {
		return nil, err
	}
	predict, err := NewPredictNode(ctx, deps)
	if err != nil {
		return nil, err
	}
	summary, err := NewSummaryNode(ctx, deps)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		deps:    deps,
		Upload:  upload,
		Train:   train,
		Predict: predict,
		Summary: summary,
	}, nil
}

// Nodes returns the flow nodes in pipeline order
func (d *Dashboard) Nodes() []core.Node {
	return []core.Node{d.Upload, d.Train, d.Summary, d.Predict}
}

// Register adds every node to a graph processor
func (d *Dashboard) Register(p core.GraphProcessor) error {
	for _, n := range d.Nodes() {
		if err := p.AddNode(n); err != nil {
			return fmt.Errorf("registering %s: %w", n.GetName(), err)
		}
	}
	return nil
}

// State returns the current session state
func (d *Dashboard) State() pkg.SessionState {
	return d.deps.Store.Get()
}

// Models returns the registry in training order
func (d *Dashboard) Models() []pkg.ModelRecord {
	return d.deps.Registry.List()
}

// SelectTarget sets the target column after checking it against the schema
func (d *Dashboard) SelectTarget(ctx context.Context, column string) (pkg.SessionState, error) {
	current := d.deps.Store.Get()
	var err error
	switch {
	case column == "":
		err = apperrors.Validation("Please select a target column.")
	case current.SessionID == "" || len(current.Schema) == 0:
		err = apperrors.Validation("No CSV data found. Please upload a CSV file first.")
	case !current.HasColumn(column):
		err = apperrors.Validation(fmt.Sprintf("Unknown target column %q.", column))
	}
	if err != nil {
		out := failed(ctx, d.deps, sessionIs(current.SessionID), err)
		return d.deps.Store.Get(), out.Error
	}

	next, storeErr := d.deps.Store.Update(ctx, state.Patch{
		TargetColumn: state.Set(column),
		Error:        state.Set(""),
	})
	if storeErr != nil {
		d.deps.Logger.Warn().Err(storeErr).Msg("Target column not persisted")
	}
	return next, nil
}

// Reset clears the session state and the model registry
func (d *Dashboard) Reset(ctx context.Context) pkg.SessionState {
	resetAll(ctx, d.deps)
	d.deps.Logger.Info().Msg("Dashboard reset")
	return d.deps.Store.Get()
}
