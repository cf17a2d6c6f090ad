package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Backend struct {
		BaseURL        string  `yaml:"base_url" json:"base_url"`
		TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		RatePerSec     float64 `yaml:"rate_per_sec" json:"rate_per_sec"`
		Burst          int     `yaml:"burst" json:"burst"`
	} `yaml:"backend" json:"backend"`

	Upload struct {
		DefaultMode string `yaml:"default_mode" json:"default_mode"` // enrichment | verification
		MaxFileMiB  int    `yaml:"max_file_mib" json:"max_file_mib"`
	} `yaml:"upload" json:"upload"`

	Watch struct {
		RefreshSeconds int `yaml:"refresh_seconds" json:"refresh_seconds"`
		StreamAttempts int `yaml:"stream_attempts" json:"stream_attempts"`
	} `yaml:"watch" json:"watch"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
