package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Token   string `toml:"token" mapstructure:"token"`
	Host    string `toml:"host" mapstructure:"host"`
	Port    string `toml:"port" mapstructure:"port"`
	Libonnx string `toml:"libonnx" mapstructure:"libonnx"`

	ModelDir      string `toml:"model_dir" mapstructure:"model_dir"`
	ModelFileName string `toml:"model_file_name" mapstructure:"model_file_name"`
	MappingsDir   string `toml:"mappings_dir" mapstructure:"mappings_dir"`
	// OutputNames pins attribute -> model output name. Empty means declared order.
	OutputNames map[string]string `toml:"output_names" mapstructure:"output_names"`
	PoolSize    int               `toml:"pool_size" mapstructure:"pool_size"`

	MaxUploadMB        int64  `toml:"max_upload_mb" mapstructure:"max_upload_mb"`
	LogLevel           string `toml:"log_level" mapstructure:"log_level"`
	LogFormat          string `toml:"log_format" mapstructure:"log_format"`
	Metrics            bool   `toml:"metrics" mapstructure:"metrics"`
	ShutdownTimeoutSec int    `toml:"shutdown_timeout_sec" mapstructure:"shutdown_timeout_sec"`
}

func Default() Config {
	return Config{
		Token:              "",
		Host:               "0.0.0.0",
		Port:               "5005",
		ModelDir:           "models",
		ModelFileName:      "fashion_multi_task_model.onnx",
		MappingsDir:        "mappings",
		PoolSize:           1,
		MaxUploadMB:        10,
		LogLevel:           "info",
		LogFormat:          "text",
		Metrics:            true,
		ShutdownTimeoutSec: 5,
	}
}

var (
	cfg      Config
	loadErr  error
	loadOnce sync.Once
)

// C returns the process configuration, loading it on first use from
// FASHIONTAGGER_CONFIG (default config.toml).
func C() (Config, error) {
	loadOnce.Do(func() {
		path := os.Getenv("FASHIONTAGGER_CONFIG")
		if path == "" {
			path = "config.toml"
		}
		cfg, loadErr = Load(path)
		if loadErr != nil {
			loadErr = fmt.Errorf("failed to load %s: %w", path, loadErr)
		}
	})
	return cfg, loadErr
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := toml.Unmarshal(data, &c); err != nil {
			return c, err
		}
	}
	applyEnv(&c)
	if c.PoolSize <= 0 {
		c.PoolSize = 1
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 10
	}
	return c, nil
}

func applyEnv(c *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("FASHIONTAGGER_HOST", &c.Host)
	setString("FASHIONTAGGER_PORT", &c.Port)
	setString("FASHIONTAGGER_TOKEN", &c.Token)
	setString("FASHIONTAGGER_LIBONNX", &c.Libonnx)
	setString("FASHIONTAGGER_MODEL_DIR", &c.ModelDir)
	setString("FASHIONTAGGER_MAPPINGS_DIR", &c.MappingsDir)
	setString("FASHIONTAGGER_LOG_LEVEL", &c.LogLevel)
	if v := os.Getenv("FASHIONTAGGER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PoolSize = n
		}
	}
}
