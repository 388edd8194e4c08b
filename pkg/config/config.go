// Package config loads the engine's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lunaire/sgbd/pkg/storage"
)

// Config holds every setting the engine reads at startup.
type Config struct {
	DBPath       string `json:"dbpath"`
	PageSize     int    `json:"pagesize"`
	MaxFileCount int    `json:"dm_maxfilecount"`
	BufferCount  int    `json:"bm_buffercount"`
	Policy       string `json:"bm_policy"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		DBPath:       "./databases",
		PageSize:     storage.DefaultPageSize,
		MaxFileCount: 4,
		BufferCount:  2,
		Policy:       "LRU",
	}
}

// Load reads path as JSON and overlays it onto Default(). A missing file
// is not an error — it yields the defaults unchanged. Unknown keys in the
// file are ignored by json.Unmarshal's normal field-matching behavior.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// BufferPolicy parses the Policy field into a storage.Policy, defaulting
// to LRU for anything other than the literal "MRU".
func (c *Config) BufferPolicy() storage.Policy {
	return storage.ParsePolicy(c.Policy)
}
