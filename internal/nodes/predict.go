package nodes

import (
	"context"

	"ml_dashboard/internal/core"
	"ml_dashboard/internal/dataset"
	"ml_dashboard/internal/state"
	"ml_dashboard/pkg"

	"github.com/cloudwego/eino/compose"

	apperrors "ml_dashboard/internal/errors"
)

type predictCall struct {
	run
	modelID  string
	target   string
	file     *core.FileInput
	rows     []pkg.Row
	excluded []string
	resp     *pkg.PredictResponse
}

// PredictNode scores new rows with the current model
type PredictNode struct {
	deps  Deps
	chain compose.Runnable[*predictCall, *predictCall]
}

// NewPredictNode compiles the load, filter, request chain
func NewPredictNode(ctx context.Context, deps Deps) (*PredictNode, error) {
	n := &PredictNode{deps: deps}
	chain, err := buildChain(ctx, "predict", n.load, n.filter, n.request)
	if err != nil {
		return nil, err
	}
	n.chain = chain
	return n, nil
}

func (n *PredictNode) GetName() string        { return string(core.NodeTypePredict) }
func (n *PredictNode) GetType() core.NodeType { return core.NodeTypePredict }

// Execute predicts input.PredictFile, or input.PredictRows when no file is given
func (n *PredictNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	current := n.deps.Store.Get()
	if current.ModelID == "" {
		return failed(ctx, n.deps, modelIs(""), apperrors.Validation("No model ID available. Please train a model first.")), nil
	}
	if current.TargetColumn == "" {
		return failed(ctx, n.deps, modelIs(current.ModelID), apperrors.Validation("Please select a target column.")), nil
	}
	if input.PredictFile.Empty() && len(input.PredictRows) == 0 {
		return failed(ctx, n.deps, modelIs(current.ModelID), apperrors.Validation("Please provide rows to predict.")), nil
	}

	call := &predictCall{
		modelID: current.ModelID,
		target:  current.TargetColumn,
		file:    input.PredictFile,
		rows:    input.PredictRows,
	}
	if _, err := n.chain.Invoke(ctx, call); err != nil {
		err = call.cause(err)
		if apperrors.Is(err, apperrors.CodeParseError) {
			n.deps.Logger.Warn().Err(err).Msg("Prediction input rejected")
			return core.NodeOutput{Error: err, Complete: true}, nil
		}
		n.deps.Logger.Error().Err(err).Str("model_id", call.modelID).Msg("Prediction failed")
		return failed(ctx, n.deps, modelIs(call.modelID), userError("Prediction failed: ", err)), nil
	}

	next, applied, storeErr := n.deps.Store.UpdateIf(ctx, modelIs(call.modelID), state.Patch{
		Predictions: state.Set(&pkg.PredictionResult{
			PredictionID: call.resp.PredictionID,
			Predictions:  call.resp.Predictions,
		}),
		Error: state.Set(""),
	})

	n.deps.Logger.Info().
		Str("model_id", call.modelID).
		Str("prediction_id", call.resp.PredictionID).
		Int("rows", len(call.rows)).
		Strs("excluded", call.excluded).
		Msg("Predictions received")

	return committed(n.deps, next, applied, storeErr, map[string]any{
		"prediction_id":    call.resp.PredictionID,
		"excluded_columns": call.excluded,
	}), nil
}

func (n *PredictNode) load(_ context.Context, c *predictCall) error {
	if c.file.Empty() {
		return nil
	}
	up, err := dataset.Load(c.file.Name, c.file.Data, 0)
	if err != nil {
		return err
	}
	c.rows = up.Table.Rows
	return nil
}

func (n *PredictNode) filter(_ context.Context, c *predictCall) error {
	ratio := n.deps.Config.HighCardinalityRatio
	if ratio <= 0 {
		ratio = dataset.DefaultHighCardinalityRatio
	}
	c.rows, c.excluded = dataset.FilterForPrediction(c.rows, c.target, ratio)
	return nil
}

func (n *PredictNode) request(ctx context.Context, c *predictCall) error {
	resp, err := n.deps.Backend.Predict(ctx, c.modelID, c.rows)
	if err != nil {
		return err
	}
	c.resp = resp
	return nil
}
