package main

import (
	"os"
	"path"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// configs is the optional config.yaml in the config directory. Profiles
// under accounts override flags, the way per-account settings worked with
// the CSV importer this grew out of.
type configs struct {
	Accounts map[string]map[string]string `yaml:"accounts"`
	AI       struct {
		Backend string `yaml:"backend"` // claude (default) or gemini
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"ai"`
	Chart string `yaml:"chart"`
	API   struct {
		BaseURL           string `yaml:"base_url"`
		RequestsPerWindow int    `yaml:"requests_per_window"`
		WindowSeconds     int    `yaml:"window_seconds"`
	} `yaml:"api"`
}

// loadConfig reads .env (if present) into the environment, then parses
// config.yaml from the config directory. A missing config file is fine.
func loadConfig(dir string) (*configs, error) {
	_ = godotenv.Load()

	var c configs
	c.API.RequestsPerWindow = 60
	c.API.WindowSeconds = 60

	data, err := os.ReadFile(path.Join(dir, "config.yaml"))
	if os.IsNotExist(err) {
		return &c, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config.yaml")
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "unable to parse config.yaml")
	}
	return &c, nil
}
