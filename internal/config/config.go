package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "10m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the gateway's settings. Values come from an optional YAML
// file with environment overrides on top.
type Config struct {
	Server struct {
		Addr            string   `yaml:"addr"`
		ShutdownTimeout Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Classifier struct {
		BaseURL string `yaml:"baseURL"`
	} `yaml:"classifier"`

	Redis struct {
		Addr      string   `yaml:"addr"`
		ResultTTL Duration `yaml:"resultTTL"`
	} `yaml:"redis"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.ShutdownTimeout = Duration(15 * time.Second)
	cfg.Classifier.BaseURL = "http://localhost:5000"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.ResultTTL = Duration(30 * time.Minute)
	return cfg
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. A missing file is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CLASSIFIER_API_URL"); v != "" {
		c.Classifier.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}
