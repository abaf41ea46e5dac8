package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"

	"github.com/ikmak/topologycore/address"
)

// fileConfig mirrors the handful of settings a deployment admin wants to
// tweak without recompiling: seeds, replica set name, and timing. It is
// unmarshalled straight out of a TOML file; any field the file leaves
// unset keeps the default loadConfig starts from. TOPOMON_SEEDS and
// TOPOMON_REPLICA_SET, when set, override the seeds and replica set name.
type fileConfig struct {
	Seeds                  []string `toml:"seeds"`
	ReplicaSet             string   `toml:"replica_set"`
	HeartbeatIntervalMS    int64    `toml:"heartbeat_interval_ms"`
	ServerSelectionTimeout int64    `toml:"server_selection_timeout_ms"`
}

// loadConfig reads .env into the process environment (if present), then
// loads and parses the TOML file at path, letting TOPOMON_-prefixed
// environment variables override individual fields.
func loadConfig(path string) (*fileConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("topomon: loading .env: %w", err)
	}

	cfg := &fileConfig{
		HeartbeatIntervalMS:    10_000,
		ServerSelectionTimeout: 30_000,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("topomon: reading %s: %w", path, err)
		}
		if err := toml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("topomon: parsing %s: %w", path, err)
		}
	}

	if seeds := os.Getenv("TOPOMON_SEEDS"); seeds != "" {
		cfg.Seeds = strings.Split(seeds, ",")
	}
	if rs := os.Getenv("TOPOMON_REPLICA_SET"); rs != "" {
		cfg.ReplicaSet = rs
	}
	if len(cfg.Seeds) == 0 {
		cfg.Seeds = []string{"localhost:27017"}
	}
	return cfg, nil
}

func (c *fileConfig) addresses() []address.Address {
	addrs := make([]address.Address, len(c.Seeds))
	for i, s := range c.Seeds {
		addrs[i] = address.Address(strings.TrimSpace(s)).Canonicalize()
	}
	return addrs
}

func (c *fileConfig) heartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

func (c *fileConfig) serverSelectionTimeout() time.Duration {
	return time.Duration(c.ServerSelectionTimeout) * time.Millisecond
}
