package config

import "time"

// Config holds runtime settings for the Dayly client.
//
// Fields:
//   - ServerAddr: base URL of the content service REST API.
//   - DataDir: directory holding the local database and payload cache.
//   - SyncInterval: how often the periodic sync pass runs.
//   - CacheMemoryEntries / CacheMemoryBytes: memory-tier cache bounds.
//
// Units: SyncInterval is a time.Duration (e.g., 5*time.Minute).
type Config struct {
	ServerAddr         string
	DataDir            string
	SyncInterval       time.Duration
	CacheMemoryEntries int
	CacheMemoryBytes   int64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.DataDir = ".dayly"
	c.SyncInterval = 5 * time.Minute
	c.CacheMemoryEntries = 64
	c.CacheMemoryBytes = 32 << 20
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
