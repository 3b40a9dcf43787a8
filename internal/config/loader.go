package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"ml_dashboard/internal/core"
	"ml_dashboard/internal/dataset"

	"gopkg.in/yaml.v3"

	apperrors "ml_dashboard/internal/errors"
)

// DefaultModelNameFormat receives the target column
const DefaultModelNameFormat = "Model for %s"

// YAMLConfig represents the structure of config.yaml
type YAMLConfig struct {
	Dashboard struct {
		PreviewRows          int     `yaml:"preview_rows"`
		HighCardinalityRatio float64 `yaml:"high_cardinality_ratio"`
		ModelNameFormat      string  `yaml:"model_name_format"`
		ImportanceTopN       int     `yaml:"importance_top_n"`
	} `yaml:"dashboard"`
	Graph struct {
		MaxSteps int             `yaml:"max_steps"`
		Flow     *core.GraphFlow `yaml:"flow,omitempty"`
	} `yaml:"graph"`
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults.
func LoadConfig(filepath string) (*YAMLConfig, error) {
	config := defaults()

	data, err := os.ReadFile(filepath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, &apperrors.AppError{Code: apperrors.CodeConfigInvalid, Message: "invalid YAML in " + filepath, Cause: err}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaults() *YAMLConfig {
	var c YAMLConfig
	c.Dashboard.HighCardinalityRatio = dataset.DefaultHighCardinalityRatio
	c.Dashboard.ModelNameFormat = DefaultModelNameFormat
	return &c
}

func (c *YAMLConfig) validate() error {
	d := c.Dashboard
	if d.PreviewRows < 0 {
		return apperrors.ConfigInvalid("dashboard.preview_rows must not be negative")
	}
	if d.HighCardinalityRatio <= 0 || d.HighCardinalityRatio > 1 {
		return apperrors.ConfigInvalid("dashboard.high_cardinality_ratio must be in (0, 1]")
	}
	if strings.Count(d.ModelNameFormat, "%s") != 1 || strings.Count(d.ModelNameFormat, "%") != 1 {
		return apperrors.ConfigInvalid("dashboard.model_name_format needs exactly one %s verb")
	}
	if d.ImportanceTopN < 0 {
		return apperrors.ConfigInvalid("dashboard.importance_top_n must not be negative")
	}
	if c.Graph.Flow != nil && c.Graph.Flow.StartNode == "" {
		return apperrors.ConfigInvalid("graph.flow.start_node is required")
	}
	return nil
}

// BuildCoreConfig creates core.Config from the YAML config
func BuildCoreConfig(yamlConfig *YAMLConfig) core.Config {
	flow := DefaultFlow()
	if yamlConfig.Graph.Flow != nil {
		flow = *yamlConfig.Graph.Flow
	}

	return core.Config{
		Dashboard: core.DashboardConfig{
			PreviewRows:          yamlConfig.Dashboard.PreviewRows,
			HighCardinalityRatio: yamlConfig.Dashboard.HighCardinalityRatio,
			ModelNameFormat:      yamlConfig.Dashboard.ModelNameFormat,
			ImportanceTopN:       yamlConfig.Dashboard.ImportanceTopN,
		},
		Graph: core.GraphConfig{
			DefaultFlow: flow,
			MaxSteps:    yamlConfig.Graph.MaxSteps,
		},
	}
}

// DefaultFlow is upload, train, summary, then predict when rows were given
func DefaultFlow() core.GraphFlow {
	return core.GraphFlow{
		StartNode: string(core.NodeTypeUpload),
		Edges: map[string][]core.GraphEdge{
			string(core.NodeTypeUpload): {
				{To: string(core.NodeTypeTrain), Priority: 1},
			},
			string(core.NodeTypeTrain): {
				{To: string(core.NodeTypeSummary), Priority: 1},
			},
			string(core.NodeTypeSummary): {
				{To: string(core.NodeTypePredict), Condition: map[string]any{core.MetaHasPredictInput: true}, Priority: 1},
				{To: core.CompleteNode, Priority: 2},
			},
			string(core.NodeTypePredict): {
				{To: core.CompleteNode, Priority: 1},
			},
		},
	}
}
