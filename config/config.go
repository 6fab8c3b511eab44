package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config drives the echo node. The poll set itself takes no configuration;
// everything here belongs to the wiring around it.
type Config struct {
	Node struct {
		Addr          string `yaml:"addr"`
		PollTimeoutMs int    `yaml:"poll_timeout_ms"`
		MaxClients    int    `yaml:"max_clients"`
	} `yaml:"node"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Node.Addr = ":11411"
	cfg.Node.PollTimeoutMs = 100
	cfg.Node.MaxClients = 1024
	cfg.Log.Level = "info"
	return cfg
}

// Load reads a yaml config from path. A missing file yields the defaults;
// fields the file omits keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
