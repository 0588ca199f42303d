package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/miretia/internal/flagx"
	"github.com/dmitrijs2005/miretia/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Pointer fields
// tell "absent" apart from a zero value so a partial file only overrides
// what it names.
type JsonConfig struct {
	EndpointAddrGRPC  *string         `json:"endpoint_addr_grpc"`
	EndpointAddrAdmin *string         `json:"endpoint_addr_admin"`
	EnablePprof       *bool           `json:"enable_pprof"`
	DatabaseDSN       *string         `json:"database_dsn"`
	LogLevel          *string         `json:"log_level"`
	HashMemoryKiB     *uint32         `json:"hash_memory_kib"`
	HashIterations    *uint32         `json:"hash_iterations"`
	HashParallelism   *uint8          `json:"hash_parallelism"`
	HashConcurrency   *int64          `json:"hash_concurrency"`
	ShutdownTimeout   *timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the JSON file named by -c or -config, if any.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFileFlag(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.EndpointAddrAdmin, c.EndpointAddrAdmin)
	set(&config.EnablePprof, c.EnablePprof)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.LogLevel, c.LogLevel)
	set(&config.HashMemoryKiB, c.HashMemoryKiB)
	set(&config.HashIterations, c.HashIterations)
	set(&config.HashParallelism, c.HashParallelism)
	set(&config.HashConcurrency, c.HashConcurrency)
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
