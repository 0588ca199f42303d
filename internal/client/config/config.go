// Package config handles configuration for the client CLI: defaults, then a
// JSON file, then environment variables, then global flags.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/miretia/internal/timex"
)

type Config struct {
	ServerEndpointAddr string        `env:"MIRETIA_SERVER_ADDRESS"`
	RequestTimeout     time.Duration `env:"MIRETIA_REQUEST_TIMEOUT"`
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
}

// JsonConfig is the on-disk shape of the JSON config file.
type JsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
}

// LoadConfig parses the global flags at the front of args and returns the
// config together with the remaining arguments (the command and its flags).
//
// Global flags:
//
//	-a string     server address (host:port)
//	-t duration   per-request timeout
//	-c, -config   JSON config file
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	var (
		addr       string
		timeout    time.Duration
		configFile string
	)
	fs := flag.NewFlagSet("miretia-client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&addr, "a", "", "address and port to access server")
	fs.DurationVar(&timeout, "t", 0, "request timeout")
	fs.StringVar(&configFile, "config", "", "path to config file")
	fs.StringVar(&configFile, "c", "", "path to config file (short)")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if configFile != "" {
		if err := parseJson(cfg, configFile); err != nil {
			return nil, nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, nil, fmt.Errorf("parse env: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			cfg.ServerEndpointAddr = addr
		case "t":
			cfg.RequestTimeout = timeout
		}
	})

	if cfg.ServerEndpointAddr == "" {
		return nil, nil, errors.New("server address is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, nil, errors.New("request timeout must be positive")
	}
	return cfg, fs.Args(), nil
}

func parseJson(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if c.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *c.ServerEndpointAddr
	}
	if c.RequestTimeout != nil {
		cfg.RequestTimeout = c.RequestTimeout.Duration
	}
	return nil
}
