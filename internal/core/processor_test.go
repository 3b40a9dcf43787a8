package core

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNode struct {
	name   string
	output NodeOutput
	seen   []NodeInput
}

func (s *stubNode) Execute(_ context.Context, input NodeInput) (NodeOutput, error) {
	s.seen = append(s.seen, input)
	return s.output, nil
}

func (s *stubNode) GetName() string     { return s.name }
func (s *stubNode) GetType() NodeType { return NodeType(s.name) }

func runFlow() GraphFlow {
	return GraphFlow{
		StartNode: "upload",
		Edges: map[string][]GraphEdge{
			"upload": {{To: "train", Priority: 1}},
			"train": {
				{To: CompleteNode, Priority: 2},
				{To: "predict", Condition: map[string]any{MetaHasPredictInput: true}, Priority: 1},
			},
			"predict": {{To: CompleteNode, Priority: 1}},
		},
	}
}

func newProcessor(t *testing.T, nodes ...Node) GraphProcessor {
	t.Helper()
	p := NewGraphProcessor(Config{Graph: GraphConfig{DefaultFlow: runFlow()}}, zerolog.Nop())
	for _, n := range nodes {
		require.NoError(t, p.AddNode(n))
	}
	return p
}

func TestExecuteFollowsConditions(t *testing.T) {
	upload := &stubNode{name: "upload", output: NodeOutput{Data: map[string]any{"session_id": "s1"}}}
	train := &stubNode{name: "train"}
	predict := &stubNode{name: "predict"}
	p := newProcessor(t, upload, train, predict)

	out, err := p.Execute(context.Background(), ProcessorInput{
		Upload:      &FileInput{Name: "a.csv", Data: []byte("a\n1\n")},
		PredictFile: &FileInput{Name: "b.csv", Data: []byte("a\n2\n")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"upload", "train", "predict"}, out.ExecutionPath)
	assert.Equal(t, "s1", out.Metadata["upload_session_id"])
	require.Len(t, train.seen, 1)
	assert.Equal(t, "s1", train.seen[0].Metadata["session_id"])
	assert.False(t, out.Failed())
}

func TestExecuteSkipsPredictWithoutInput(t *testing.T) {
	p := newProcessor(t, &stubNode{name: "upload"}, &stubNode{name: "train"}, &stubNode{name: "predict"})

	out, err := p.Execute(context.Background(), ProcessorInput{
		Upload: &FileInput{Name: "a.csv", Data: []byte("a\n1\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"upload", "train"}, out.ExecutionPath)
}

func TestExecuteStopsOnNodeError(t *testing.T) {
	failing := &stubNode{name: "upload", output: NodeOutput{Error: errors.New("bad csv"), Complete: true}}
	train := &stubNode{name: "train"}
	p := newProcessor(t, failing, train)

	out, err := p.Execute(context.Background(), ProcessorInput{})
	require.NoError(t, err)

	assert.True(t, out.Failed())
	assert.Equal(t, []string{"upload: bad csv"}, out.Errors)
	assert.Empty(t, train.seen)
}

func TestExecuteMissingNode(t *testing.T) {
	p := newProcessor(t, &stubNode{name: "upload"})

	_, err := p.Execute(context.Background(), ProcessorInput{})
	assert.ErrorContains(t, err, "node not found: train")
}

func TestExecuteDetectsLoops(t *testing.T) {
	loop := &stubNode{name: "loop", output: NodeOutput{NextNode: "loop"}}
	p := NewGraphProcessor(Config{Graph: GraphConfig{MaxSteps: 5}}, zerolog.Nop())
	require.NoError(t, p.AddNode(loop))
	require.NoError(t, p.SetFlow(GraphFlow{StartNode: "loop"}))

	_, err := p.Execute(context.Background(), ProcessorInput{})
	assert.ErrorContains(t, err, "exceeded 5 steps")
}

func TestAddNodeValidation(t *testing.T) {
	p := NewGraphProcessor(Config{}, zerolog.Nop())

	assert.Error(t, p.AddNode(nil))
	assert.Error(t, p.AddNode(&stubNode{}))
	assert.Error(t, p.AddNode(&stubNode{name: CompleteNode}))
	assert.Error(t, p.SetFlow(GraphFlow{}))

	require.NoError(t, p.AddNode(&stubNode{name: "train"}))
	n, err := p.GetNode("train")
	require.NoError(t, err)
	assert.Equal(t, "train", n.GetName())
}

func TestSortEdgesByPriorityIsStable(t *testing.T) {
	sorted := sortEdgesByPriority([]GraphEdge{
		{To: "c", Priority: 2},
		{To: "a", Priority: 1},
		{To: "b", Priority: 1},
	})
	assert.Equal(t, "a", sorted[0].To)
	assert.Equal(t, "b", sorted[1].To)
	assert.Equal(t, "c", sorted[2].To)
}
