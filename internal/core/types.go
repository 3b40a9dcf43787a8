package core

import (
	"context"

	"ml_dashboard/pkg"
)

// Node represents a single processing unit in the graph flow
type Node interface {
	Execute(ctx context.Context, input NodeInput) (NodeOutput, error)
	GetName() string
	GetType() NodeType
}

// NodeType defines the different types of nodes in the graph
type NodeType string

const (
	NodeTypeUpload  NodeType = "upload"
	NodeTypeTrain   NodeType = "train"
	NodeTypePredict NodeType = "predict"
	NodeTypeSummary NodeType = "summary"
)

// CompleteNode ends a flow
const CompleteNode = "complete"

// FileInput is a dataset file handed to a node
type FileInput struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// Empty reports whether no file was given
func (f *FileInput) Empty() bool {
	return f == nil || len(f.Data) == 0
}

// NodeInput contains the input data for a node
type NodeInput struct {
	Upload       *FileInput     `json:"upload,omitempty"`
	PredictFile  *FileInput     `json:"predict_file,omitempty"`
	PredictRows  []pkg.Row      `json:"predict_rows,omitempty"`
	TargetColumn string         `json:"target_column,omitempty"`
	ModelName    string         `json:"model_name,omitempty"`
	Metadata     map[string]any `json:"metadata"`
}

// NodeOutput contains the output data from a node. A node that fails
// reports Error with Complete set so the flow stops.
type NodeOutput struct {
	Data     map[string]any    `json:"data"`
	State    *pkg.SessionState `json:"state,omitempty"`
	NextNode string            `json:"next_node,omitempty"`
	Error    error             `json:"error,omitempty"`
	Complete bool              `json:"complete"`
}

// GraphProcessor orchestrates the execution of nodes in a graph flow
type GraphProcessor interface {
	Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error)
	AddNode(node Node) error
	GetNode(name string) (Node, error)
	SetFlow(flow GraphFlow) error
}

// ProcessorInput is the main input for the graph processor
type ProcessorInput struct {
	Upload       *FileInput `json:"upload,omitempty"`
	PredictFile  *FileInput `json:"predict_file,omitempty"`
	TargetColumn string     `json:"target_column"`
	ModelName    string     `json:"model_name,omitempty"`
}

// ProcessorOutput is the main output from the graph processor
type ProcessorOutput struct {
	State          *pkg.SessionState `json:"state,omitempty"`
	ExecutionPath  []string          `json:"execution_path"`
	Errors         []string          `json:"errors,omitempty"`
	ProcessingTime int64             `json:"processing_time_ms"`
	Metadata       map[string]any    `json:"metadata"`
}

// Failed reports whether any node returned an error
func (o *ProcessorOutput) Failed() bool {
	return len(o.Errors) > 0
}

// GraphFlow defines the execution flow between nodes
type GraphFlow struct {
	StartNode string                 `json:"start_node" yaml:"start_node"`
	Edges     map[string][]GraphEdge `json:"edges" yaml:"edges"` // node_name -> possible next nodes
}

// GraphEdge represents a connection between two nodes with conditions.
// Conditions are matched against the node's output data, then the run
// metadata.
type GraphEdge struct {
	To        string         `json:"to" yaml:"to"`
	Condition map[string]any `json:"condition,omitempty" yaml:"condition,omitempty"`
	Priority  int            `json:"priority" yaml:"priority"`
}

// Config holds all configuration for the dashboard flows
type Config struct {
	Dashboard DashboardConfig `json:"dashboard"`
	Graph     GraphConfig     `json:"graph"`
}

// DashboardConfig tunes the view flows
type DashboardConfig struct {
	PreviewRows          int     `json:"preview_rows"`
	HighCardinalityRatio float64 `json:"high_cardinality_ratio"`
	ModelNameFormat      string  `json:"model_name_format"`
	ImportanceTopN       int     `json:"importance_top_n"`
}

// GraphConfig holds graph flow configuration
type GraphConfig struct {
	DefaultFlow GraphFlow `json:"default_flow"`
	MaxSteps    int       `json:"max_steps"`
}
