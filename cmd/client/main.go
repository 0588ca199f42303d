package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/miretia/internal/client/cli"
	"github.com/dmitrijs2005/miretia/internal/client/client"
	"github.com/dmitrijs2005/miretia/internal/client/config"
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, args, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	c, err := client.NewGRPCClient(cfg.ServerEndpointAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	app := cli.NewApp(c, os.Stdin, os.Stdout, cfg.RequestTimeout)
	switch err := app.Run(ctx, args); {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrUsage):
		fmt.Fprintln(os.Stderr, err)
		return 2
	case errors.Is(err, cli.ErrRejected):
		return 1
	default:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}
