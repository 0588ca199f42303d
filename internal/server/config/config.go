// Package config handles configuration for the server component: defaults,
// then a JSON file, then .env and environment variables, then command-line
// flags. Later sources override earlier ones.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/miretia/internal/cryptox"
)

// Config holds runtime settings for the miretia server.
type Config struct {
	EndpointAddrGRPC  string        `env:"MIRETIA_GRPC_ADDRESS"`
	EndpointAddrAdmin string        `env:"MIRETIA_ADMIN_ADDRESS"`
	EnablePprof       bool          `env:"MIRETIA_ADMIN_PPROF"`
	DatabaseDSN       string        `env:"MIRETIA_DATABASE_DSN"`
	LogLevel          string        `env:"MIRETIA_LOG_LEVEL"`
	HashMemoryKiB     uint32        `env:"MIRETIA_HASH_MEMORY_KIB"`
	HashIterations    uint32        `env:"MIRETIA_HASH_ITERATIONS"`
	HashParallelism   uint8         `env:"MIRETIA_HASH_PARALLELISM"`
	HashConcurrency   int64         `env:"MIRETIA_HASH_CONCURRENCY"`
	ShutdownTimeout   time.Duration `env:"MIRETIA_SHUTDOWN_TIMEOUT"`
}

// LoadDefaults populates Config with development defaults. The default store
// is in-memory buntdb, so nothing survives a restart.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrAdmin = ":9090"
	c.EnablePprof = false
	c.DatabaseDSN = "memory://"
	c.LogLevel = "info"
	c.HashMemoryKiB = cryptox.DefaultParams.Memory
	c.HashIterations = cryptox.DefaultParams.Iterations
	c.HashParallelism = cryptox.DefaultParams.Parallelism
	c.HashConcurrency = 4
	c.ShutdownTimeout = 10 * time.Second
}

// LoadConfig builds a Config from defaults, the JSON file named by -c/-config,
// the environment and the flags in args (os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HashParams returns the argon2id parameters for new hashes.
func (c *Config) HashParams() cryptox.Params {
	p := cryptox.DefaultParams
	p.Memory = c.HashMemoryKiB
	p.Iterations = c.HashIterations
	p.Parallelism = c.HashParallelism
	return p
}

func (c *Config) Validate() error {
	var errs []error
	if c.EndpointAddrGRPC == "" {
		errs = append(errs, errors.New("grpc address is required"))
	}
	if c.EndpointAddrAdmin == "" {
		errs = append(errs, errors.New("admin address is required"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.HashIterations < 1 {
		errs = append(errs, errors.New("hash iterations must be at least 1"))
	}
	if c.HashParallelism < 1 {
		errs = append(errs, errors.New("hash parallelism must be at least 1"))
	}
	// argon2 needs at least 8 KiB per lane
	if c.HashMemoryKiB < 8*uint32(c.HashParallelism) {
		errs = append(errs, fmt.Errorf("hash memory must be at least %d KiB", 8*uint32(c.HashParallelism)))
	}
	if c.HashConcurrency < 1 {
		errs = append(errs, errors.New("hash concurrency must be at least 1"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
