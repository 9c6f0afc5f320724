package main

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	httpfrontend "github.com/chihaya/bdecode/frontend/http"
	"github.com/chihaya/bdecode/pkg/log"

	// Imports to register storage drivers.
	_ "github.com/chihaya/bdecode/storage/memory"
	_ "github.com/chihaya/bdecode/storage/redis"
)

type storageConfig struct {
	Name   string      `yaml:"name"`
	Config interface{} `yaml:"config"`
}

// Config represents the configuration used for executing bdecode.
type Config struct {
	LogLevel    string              `yaml:"log_level"`
	LogFormat   string              `yaml:"log_format"`
	MetricsAddr string              `yaml:"metrics_addr"`
	HTTPConfig  httpfrontend.Config `yaml:"http"`
	Storage     storageConfig       `yaml:"storage"`
}

// LogFields renders the current config as a set of Logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"logLevel":    cfg.LogLevel,
		"logFormat":   cfg.LogFormat,
		"metricsAddr": cfg.MetricsAddr,
		"storage":     cfg.Storage.Name,
	}
}

// ApplyLogging configures the global logger from the config.
func (cfg Config) ApplyLogging() error {
	if cfg.LogLevel != "" {
		if err := log.SetLevel(cfg.LogLevel); err != nil {
			return err
		}
	}

	if cfg.LogFormat != "" {
		if err := log.SetFormat(cfg.LogFormat); err != nil {
			return err
		}
	}

	return nil
}

// ConfigFile represents a namespaced YAML configation file.
type ConfigFile struct {
	Bdecode Config `yaml:"bdecode"`
}

// ParseConfigFile returns a new ConfigFile given the path to a YAML
// configuration file.
//
// It supports relative and absolute paths and environment variables.
func ParseConfigFile(path string) (*ConfigFile, error) {
	if path == "" {
		return nil, errors.New("no config path specified")
	}

	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contents, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var cfgFile ConfigFile
	err = yaml.Unmarshal(contents, &cfgFile)
	if err != nil {
		return nil, err
	}

	if cfgFile.Bdecode.Storage.Name == "" {
		cfgFile.Bdecode.Storage.Name = "memory"
	}

	return &cfgFile, nil
}
