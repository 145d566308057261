package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/antong314/dayly/internal/flagx"
	"github.com/antong314/dayly/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "5m"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerAddr         string         `json:"server_addr"`
	DataDir            string         `json:"data_dir"`
	SyncInterval       timex.Duration `json:"sync_interval"`
	CacheMemoryEntries int            `json:"cache_memory_entries"`
	CacheMemoryBytes   int64          `json:"cache_memory_bytes"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// via the -c or -config flags. An empty path means no JSON is loaded.
// Read or unmarshal errors panic; intended usage is
// defaults -> parseJson -> parseFlags, where later stages override earlier
// ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerAddr != "" {
		cfg.ServerAddr = jc.ServerAddr
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.CacheMemoryEntries != 0 {
		cfg.CacheMemoryEntries = jc.CacheMemoryEntries
	}
	if jc.CacheMemoryBytes != 0 {
		cfg.CacheMemoryBytes = jc.CacheMemoryBytes
	}
}
