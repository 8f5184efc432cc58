// Package config resolves runtime settings from flags, a memtree.yaml
// config file, and MEMTREE_* environment variables, in that order.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultNS is the namespace bare paths resolve against.
const DefaultNS = "core"

// Config is the resolved runtime configuration.
type Config struct {
	DBPath      string   `mapstructure:"db_path" json:"db_path"`
	SnapshotDir string   `mapstructure:"snapshot_dir" json:"snapshot_dir"`
	Namespaces  []string `mapstructure:"namespaces" json:"namespaces"`
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".memtree"
	}
	return filepath.Join(home, ".memtree")
}

// Init wires defaults and env binding into viper. Call once, before Load,
// from cobra's OnInitialize hook.
func Init(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(defaultDataDir())
		viper.SetConfigName("memtree")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("db_path", filepath.Join(defaultDataDir(), "memory.db"))
	viper.SetDefault("snapshot_dir", filepath.Join(defaultDataDir(), "snapshots"))
	viper.SetDefault("namespaces", []string{"core", "writer", "game", "notes", "system"})

	viper.SetEnvPrefix("MEMTREE")
	viper.AutomaticEnv()

	// Missing config file is fine; defaults and env carry it.
	_ = viper.ReadInConfig()
}

// Load materializes the active configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidNS reports whether ns is one of the configured namespaces.
func (c *Config) ValidNS(ns string) bool {
	for _, n := range c.Namespaces {
		if strings.EqualFold(n, ns) {
			return true
		}
	}
	return false
}
