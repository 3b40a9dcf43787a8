package nodes

import (
	"context"

	"ml_dashboard/internal/core"
	"ml_dashboard/internal/insights"
	"ml_dashboard/internal/state"
	"ml_dashboard/pkg"

	"github.com/cloudwego/eino/compose"

	apperrors "ml_dashboard/internal/errors"
)

type summaryCall struct {
	run
	modelID    string
	insights   []pkg.Insight
	importance []pkg.FeatureImportance
}

// SummaryNode fetches insights for the current model and derives chart data
type SummaryNode struct {
	deps  Deps
	chain compose.Runnable[*summaryCall, *summaryCall]
}

// NewSummaryNode compiles the fetch, extract chain
func NewSummaryNode(ctx context.Context, deps Deps) (*SummaryNode, error) {
	n := &SummaryNode{deps: deps}
	chain, err := buildChain(ctx, "summary", n.fetch, n.extract)
	if err != nil {
		return nil, err
	}
	n.chain = chain
	return n, nil
}

func (n *SummaryNode) GetName() string        { return string(core.NodeTypeSummary) }
func (n *SummaryNode) GetType() core.NodeType { return core.NodeTypeSummary }

func (n *SummaryNode) Execute(ctx context.Context, _ core.NodeInput) (core.NodeOutput, error) {
	current := n.deps.Store.Get()
	if current.ModelID == "" {
		return failed(ctx, n.deps, modelIs(""), apperrors.Validation("No model ID available. Please train a model first.")), nil
	}

	call := &summaryCall{modelID: current.ModelID}
	if _, err := n.chain.Invoke(ctx, call); err != nil {
		err = call.cause(err)
		n.deps.Logger.Error().Err(err).Str("model_id", call.modelID).Msg("Summary fetch failed")
		return failed(ctx, n.deps, modelIs(call.modelID), userError("Failed to fetch summary: ", err)), nil
	}

	next, applied, storeErr := n.deps.Store.UpdateIf(ctx, modelIs(call.modelID), state.Patch{
		Insights:          state.Set(call.insights),
		FeatureImportance: state.Set(call.importance),
		Error:             state.Set(""),
	})

	n.deps.Logger.Info().
		Str("model_id", call.modelID).
		Int("insights", len(call.insights)).
		Int("features", len(call.importance)).
		Msg("Summary loaded")

	return committed(n.deps, next, applied, storeErr, map[string]any{
		"insights": len(call.insights),
		"features": len(call.importance),
	}), nil
}

func (n *SummaryNode) fetch(ctx context.Context, c *summaryCall) error {
	resp, err := n.deps.Backend.Summary(ctx, c.modelID)
	if err != nil {
		return err
	}
	c.insights = resp.Insights
	if c.insights == nil {
		c.insights = []pkg.Insight{}
	}
	return nil
}

func (n *SummaryNode) extract(_ context.Context, c *summaryCall) error {
	c.importance = insights.ExtractFeatureImportance(c.insights)
	return nil
}
