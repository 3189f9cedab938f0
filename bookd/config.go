package main

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Book identity: search strength and minimum empties stored.
	Level    int `json:"level" yaml:"level"`
	NEmpties int `json:"n_empties" yaml:"n_empties"`

	// Error tolerances feeding the negamaxed confidence intervals.
	MidgameError int `json:"midgame_error" yaml:"midgame_error"`
	EndcutError  int `json:"endcut_error" yaml:"endcut_error"`

	// Growth defaults, overridable per command.
	PlayerDeviation   int `json:"player_deviation" yaml:"player_deviation"`
	OpponentDeviation int `json:"opponent_deviation" yaml:"opponent_deviation"`
	DeviationLower    int `json:"deviation_lower" yaml:"deviation_lower"`
	DeviationUpper    int `json:"deviation_upper" yaml:"deviation_upper"`
	FillDepth         int `json:"fill_depth" yaml:"fill_depth"`

	// Persistence.
	BookPath           string `json:"book_path" yaml:"book_path"`
	CheckpointMinutes  int    `json:"checkpoint_minutes" yaml:"checkpoint_minutes"`
	ExpectedBookNodes  int    `json:"expected_book_nodes" yaml:"expected_book_nodes"`
	CompressCheckpoint bool   `json:"compress_checkpoint" yaml:"compress_checkpoint"`

	// Server.
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	LogProgress bool `json:"log_progress" yaml:"log_progress"`
}

type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

func DefaultConfig() Config {
	return Config{
		Level:    10,
		NEmpties: 24,

		MidgameError: 2,
		EndcutError:  1,

		PlayerDeviation:   2,
		OpponentDeviation: 1,
		DeviationLower:    -10,
		DeviationUpper:    10,
		FillDepth:         2,

		BookPath:           "book.obk",
		CheckpointMinutes:  60,
		ExpectedBookNodes:  0,
		CompressCheckpoint: true,

		ListenAddr: ":8081",

		LogProgress: true,
	}
}

var configStore = &ConfigStore{config: DefaultConfig()}

func GetConfig() Config {
	return configStore.Get()
}

func (c *ConfigStore) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ConfigStore) Update(newConfig Config) {
	c.mu.Lock()
	c.config = newConfig
	c.mu.Unlock()
}

// LoadConfigFile overlays a YAML file onto the defaults and installs the
// result in the shared store.
func LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	configStore.Update(config)
	return nil
}
