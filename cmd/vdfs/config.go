package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// config is the on-disk configuration. Relative volume paths are resolved
// against the directory holding the file.
//
//	volumes:
//	  - Data/Works.vdf
//	  - Data/*.mod
//	cache_dir: /var/cache/vdfs
//	cache_max_bytes: 536870912
//	log_level: debug
type config struct {
	Volumes       []string `yaml:"volumes"`
	CacheDir      string   `yaml:"cache_dir"`
	CacheMaxBytes int64    `yaml:"cache_max_bytes"`
	LogLevel      string   `yaml:"log_level"`
}

// loadConfig reads the configuration at path. An empty path yields the zero
// config.
func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, v := range cfg.Volumes {
		if !filepath.IsAbs(v) {
			cfg.Volumes[i] = filepath.Join(base, v)
		}
	}
	return cfg, nil
}
