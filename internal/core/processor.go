package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Run metadata keys seeded by the processor
const (
	MetaHasUpload       = "has_upload"
	MetaHasPredictInput = "has_predict_input"
)

const defaultMaxSteps = 32

// DefaultGraphProcessor implements the GraphProcessor interface
type DefaultGraphProcessor struct {
	nodes  map[string]Node
	config Config
	flow   GraphFlow
	logger zerolog.Logger
}

// NewGraphProcessor creates a new graph processor
func NewGraphProcessor(config Config, logger zerolog.Logger) GraphProcessor {
	return &DefaultGraphProcessor{
		nodes:  make(map[string]Node),
		config: config,
		flow:   config.Graph.DefaultFlow,
		logger: logger.With().Str("component", "graph_processor").Logger(),
	}
}

// Execute runs the graph flow with the given input
func (g *DefaultGraphProcessor) Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error) {
	startTime := time.Now()

	nodeInput := NodeInput{
		Upload:       input.Upload,
		PredictFile:  input.PredictFile,
		TargetColumn: input.TargetColumn,
		ModelName:    input.ModelName,
		Metadata: map[string]any{
			MetaHasUpload:       !input.Upload.Empty(),
			MetaHasPredictInput: !input.PredictFile.Empty(),
		},
	}

	output := &ProcessorOutput{
		Metadata: make(map[string]any),
	}

	maxSteps := g.config.Graph.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	currentNode := g.flow.StartNode
	for currentNode != "" && currentNode != CompleteNode {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(output.ExecutionPath) >= maxSteps {
			return nil, fmt.Errorf("flow exceeded %d steps at node %s", maxSteps, currentNode)
		}
		output.ExecutionPath = append(output.ExecutionPath, currentNode)

		node, exists := g.nodes[currentNode]
		if !exists {
			return nil, fmt.Errorf("node not found: %s", currentNode)
		}

		g.logger.Debug().Str("node", currentNode).Msg("Executing node")
		nodeOutput, err := node.Execute(ctx, nodeInput)
		if err != nil {
			g.logger.Error().Err(err).Str("node", currentNode).Msg("Node execution failed")
			return nil, fmt.Errorf("error executing node %s: %w", currentNode, err)
		}

		// Handle node error (non-fatal)
		if nodeOutput.Error != nil {
			g.logger.Warn().Err(nodeOutput.Error).Str("node", currentNode).Msg("Node returned error")
			output.Errors = append(output.Errors, fmt.Sprintf("%s: %v", currentNode, nodeOutput.Error))
		}

		g.processNodeOutput(currentNode, nodeOutput, output, &nodeInput)

		if nodeOutput.Complete {
			break
		}

		nextNode := nodeOutput.NextNode
		if nextNode == "" {
			nextNode = g.getNextNode(currentNode, nodeOutput, nodeInput)
		}
		currentNode = nextNode
	}

	processingTime := time.Since(startTime)
	output.ProcessingTime = processingTime.Milliseconds()

	g.logger.Info().
		Strs("path", output.ExecutionPath).
		Int("errors", len(output.Errors)).
		Dur("elapsed", processingTime).
		Msg("Flow completed")

	return output, nil
}

// AddNode adds a node to the processor
func (g *DefaultGraphProcessor) AddNode(node Node) error {
	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}

	nodeName := node.GetName()
	if nodeName == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	if nodeName == CompleteNode {
		return fmt.Errorf("node name %q is reserved", CompleteNode)
	}

	g.nodes[nodeName] = node
	g.logger.Debug().Str("node", nodeName).Str("type", string(node.GetType())).Msg("Added node")

	return nil
}

// GetNode retrieves a node by name
func (g *DefaultGraphProcessor) GetNode(name string) (Node, error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node not found: %s", name)
	}
	return node, nil
}

// SetFlow sets the execution flow
func (g *DefaultGraphProcessor) SetFlow(flow GraphFlow) error {
	if flow.StartNode == "" {
		return fmt.Errorf("start node cannot be empty")
	}

	g.flow = flow
	return nil
}

// processNodeOutput carries a node's data to the next node and the run output
func (g *DefaultGraphProcessor) processNodeOutput(nodeName string, nodeOutput NodeOutput, globalOutput *ProcessorOutput, nodeInput *NodeInput) {
	if nodeOutput.State != nil {
		globalOutput.State = nodeOutput.State
	}
	for key, value := range nodeOutput.Data {
		globalOutput.Metadata[fmt.Sprintf("%s_%s", nodeName, key)] = value
		nodeInput.Metadata[key] = value
	}
}

// getNextNode picks the first edge, by priority, whose condition holds
func (g *DefaultGraphProcessor) getNextNode(currentNode string, nodeOutput NodeOutput, nodeInput NodeInput) string {
	edges, exists := g.flow.Edges[currentNode]
	if !exists || len(edges) == 0 {
		return CompleteNode
	}

	for _, edge := range sortEdgesByPriority(edges) {
		if evaluateCondition(edge.Condition, nodeOutput.Data, nodeInput.Metadata) {
			return edge.To
		}
	}

	return CompleteNode
}

// sortEdgesByPriority sorts edges by priority (lower number = higher priority)
func sortEdgesByPriority(edges []GraphEdge) []GraphEdge {
	sorted := make([]GraphEdge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// evaluateCondition checks every key of condition for equality
func evaluateCondition(condition map[string]any, data, metadata map[string]any) bool {
	for key, expectedValue := range condition {
		actualValue, exists := data[key]
		if !exists {
			actualValue, exists = metadata[key]
		}
		if !exists || actualValue != expectedValue {
			return false
		}
	}
	return true
}
