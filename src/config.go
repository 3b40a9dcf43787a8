package src

import (
	"fmt"
	"ml_dashboard/src/model"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogConfig     model.LogConfig     `envconfig:""`
	BackendConfig model.BackendConfig `envconfig:""`
	StorageConfig model.StorageConfig `envconfig:""`
	ServerConfig  model.ServerConfig  `envconfig:""`
}

func LoadConfig() (*Config, error) {
	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	return &config, nil
}
