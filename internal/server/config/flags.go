package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/miretia/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   admin HTTP bind address (e.g., ":9090")
//	-d string   database DSN (postgres://, sqlite://, memory://, buntdb://)
//	-l string   log level (debug, info, warn, error)
//	-n int      maximum concurrent password hash computations
//
// Args are filtered with flagx.FilterArgs first so flags meant for other
// components (like -c) do not trip the parser.
func parseFlags(config *Config, args []string) error {
	// Filter args to include only the flags handled here.
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-d", "-l", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrAdmin, "m", config.EndpointAddrAdmin, "address and port to run admin server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.Int64Var(&config.HashConcurrency, "n", config.HashConcurrency, "max concurrent password hashes")

	return fs.Parse(args)
}
