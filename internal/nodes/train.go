package nodes

import (
	"context"
	"fmt"

	"ml_dashboard/internal/core"
	"ml_dashboard/internal/state"
	"ml_dashboard/pkg"

	"github.com/cloudwego/eino/compose"

	apperrors "ml_dashboard/internal/errors"
)

const defaultModelNameFormat = "Model for %s"

type trainCall struct {
	run
	sessionID string
	target    string
	resp      *pkg.TrainResponse
}

// TrainNode requests a model for the uploaded session
type TrainNode struct {
	deps  Deps
	chain compose.Runnable[*trainCall, *trainCall]
}

// NewTrainNode compiles the train request chain
func NewTrainNode(ctx context.Context, deps Deps) (*TrainNode, error) {
	n := &TrainNode{deps: deps}
	chain, err := buildChain(ctx, "train", n.request)
	if err != nil {
		return nil, err
	}
	n.chain = chain
	return n, nil
}

func (n *TrainNode) GetName() string        { return string(core.NodeTypeTrain) }
func (n *TrainNode) GetType() core.NodeType { return core.NodeTypeTrain }

// Execute trains against input.TargetColumn, or the selected target when empty
func (n *TrainNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	current := n.deps.Store.Get()
	target := input.TargetColumn
	if target == "" {
		target = current.TargetColumn
	}

	if err := validateTrain(current, target); err != nil {
		return failed(ctx, n.deps, sessionIs(current.SessionID), err), nil
	}

	// remember the choice even if training fails so the user can retry
	if _, err := n.deps.Store.Update(ctx, state.Patch{TargetColumn: state.Set(target)}); err != nil {
		n.deps.Logger.Warn().Err(err).Msg("Target column not persisted")
	}

	call := &trainCall{sessionID: current.SessionID, target: target}
	if _, err := n.chain.Invoke(ctx, call); err != nil {
		err = call.cause(err)
		n.deps.Logger.Error().Err(err).Str("session_id", call.sessionID).Str("target", target).Msg("Training failed")
		return failed(ctx, n.deps, sessionIs(call.sessionID), userError("Training failed: ", err)), nil
	}

	// a new model invalidates the previous model's results
	next, applied, storeErr := n.deps.Store.UpdateIf(ctx, sessionIs(call.sessionID), state.Patch{
		ModelID:           state.Set(call.resp.ModelID),
		Metrics:           state.Set(call.resp.Metrics),
		TargetColumn:      state.Set(target),
		Predictions:       state.Set[*pkg.PredictionResult](nil),
		Insights:          state.Set([]pkg.Insight{}),
		FeatureImportance: state.Set([]pkg.FeatureImportance{}),
		Error:             state.Set(""),
	})
	if applied {
		name := input.ModelName
		if name == "" {
			name = n.modelName(target)
		}
		if err := n.deps.Registry.Add(ctx, call.resp.ModelID, name); err != nil {
			n.deps.Logger.Warn().Err(err).Msg("Model registry not persisted")
		}
		n.deps.Logger.Info().Str("model_id", call.resp.ModelID).Str("name", name).Msg("Model trained")
	}

	return committed(n.deps, next, applied, storeErr, map[string]any{
		"model_id": call.resp.ModelID,
		"target":   target,
	}), nil
}

func (n *TrainNode) request(ctx context.Context, c *trainCall) error {
	resp, err := n.deps.Backend.Train(ctx, c.sessionID, c.target)
	if err != nil {
		return err
	}
	if resp.ModelID == "" {
		return apperrors.External("backend returned no model id", 0, nil)
	}
	c.resp = resp
	return nil
}

func (n *TrainNode) modelName(target string) string {
	format := n.deps.Config.ModelNameFormat
	if format == "" {
		format = defaultModelNameFormat
	}
	return fmt.Sprintf(format, target)
}

func validateTrain(s pkg.SessionState, target string) error {
	if target == "" {
		return apperrors.Validation("Please select a target column.")
	}
	if s.SessionID == "" || len(s.CSVData) == 0 {
		return apperrors.Validation("No CSV data found. Please upload a CSV file first.")
	}
	if len(s.Schema) > 0 && !s.HasColumn(target) {
		return apperrors.Validation(fmt.Sprintf("Unknown target column %q.", target))
	}
	return nil
}
