package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	snapwyr "github.com/snapwyr/snapwyr-go"
	"github.com/snapwyr/snapwyr-go/pkg/dashboard"
	"github.com/snapwyr/snapwyr-go/pkg/redact"
)

// fileConfig is the YAML surface of the standalone dashboard.
type fileConfig struct {
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	MaxRequests int    `yaml:"maxRequests"`

	LogBody       bool     `yaml:"logBody"`
	Silent        bool     `yaml:"silent"`
	Format        string   `yaml:"format"`
	Prefix        string   `yaml:"prefix"`
	ErrorsOnly    bool     `yaml:"errorsOnly"`
	SlowThreshold int64    `yaml:"slowThreshold"`
	Methods       []string `yaml:"methods"`
	StatusCodes   []int    `yaml:"statusCodes"`
	Ignore        []string `yaml:"ignore"`
	Redact        []string `yaml:"redact"`
	SizeTracking  bool     `yaml:"sizeTracking"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *fileConfig) serverConfig() dashboard.Config {
	return dashboard.Config{
		Port:        c.Port,
		Host:        c.Host,
		MaxRequests: c.MaxRequests,
	}
}

func (c *fileConfig) emitterOptions() *snapwyr.Options {
	return &snapwyr.Options{
		LogBody:        c.LogBody,
		Silent:         c.Silent,
		Format:         c.Format,
		Prefix:         c.Prefix,
		ErrorsOnly:     c.ErrorsOnly,
		SlowThreshold:  c.SlowThreshold,
		Methods:        c.Methods,
		StatusCodes:    c.StatusCodes,
		IgnorePatterns: c.Ignore,
		Redact:         redact.Keys(c.Redact...),
		SizeTracking:   c.SizeTracking,
	}
}
