// Package config loads optimizer and service tuning knobs. Defaults come
// from code, an optional YAML file overrides them, and environment
// variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Optimizer Optimizer `yaml:"optimizer"`
	RateLimit RateLimit `yaml:"rateLimit"`
}

type Optimizer struct {
	MaxJobs            int     `yaml:"maxJobs"`
	ClusterRadiusMiles float64 `yaml:"clusterRadiusMiles"`
	MinEfficiencyScore int     `yaml:"minEfficiencyScore"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func Default() Config {
	return Config{
		Optimizer: Optimizer{
			MaxJobs:            10,
			ClusterRadiusMiles: 5,
			MinEfficiencyScore: 70,
		},
		RateLimit: RateLimit{RPS: 50, Burst: 100},
	}
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and then applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// FromEnv builds a config without a file, honoring OPTIMIZER_CONFIG if set.
func FromEnv() (Config, error) {
	return Load(os.Getenv("OPTIMIZER_CONFIG"))
}

func (c *Config) applyEnv() {
	if n, ok := envInt("OPTIMIZER_MAX_JOBS"); ok {
		c.Optimizer.MaxJobs = n
	}
	if f, ok := envFloat("CLUSTER_RADIUS_MILES"); ok {
		c.Optimizer.ClusterRadiusMiles = f
	}
	if n, ok := envInt("MIN_EFFICIENCY_SCORE"); ok {
		c.Optimizer.MinEfficiencyScore = n
	}
	if f, ok := envFloat("RATE_RPS"); ok {
		c.RateLimit.RPS = f
	}
	if n, ok := envInt("RATE_BURST"); ok {
		c.RateLimit.Burst = n
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
