package model

import "time"

// ----------------------------------------------------
// ================ Config ================

// LogConfig configures the global zerolog logger
type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Format     string `envconfig:"LOG_FORMAT" default:"console" yaml:"format"`
	Output     string `envconfig:"LOG_OUTPUT" default:"stderr" yaml:"output"`
	FilePath   string `envconfig:"LOG_FILE_PATH" default:"logs/ml_dashboard.log" yaml:"file_path"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"rfc3339" yaml:"time_format"`
}

// BackendConfig points the gateway at the analytics backend
type BackendConfig struct {
	URL     string        `envconfig:"BACKEND_URL" default:"http://127.0.0.1:8000/api" yaml:"url"`
	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"60s" yaml:"timeout"`
}

// StorageConfig selects and configures the persistence backend.
// Driver is one of file, sqlite, redis, memory.
type StorageConfig struct {
	Driver     string        `envconfig:"STORAGE_DRIVER" default:"file" yaml:"driver"`
	Dir        string        `envconfig:"STORAGE_DIR" default:"data/state" yaml:"dir"`
	SQLitePath string        `envconfig:"STORAGE_SQLITE_PATH" default:"data/ml_dashboard.db" yaml:"sqlite_path"`
	RedisURL   string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0" yaml:"redis_url"`
	TTL        time.Duration `envconfig:"STORAGE_TTL" default:"0s" yaml:"ttl"`
	StateKey   string        `envconfig:"STATE_KEY" default:"ml-dashboard-state" yaml:"state_key"`
	ModelsKey  string        `envconfig:"MODELS_KEY" default:"ml-dashboard-models" yaml:"models_key"`
}

// ServerConfig configures the local dashboard API
type ServerConfig struct {
	Addr string `envconfig:"SERVER_ADDR" default:":8090" yaml:"addr"`
}
