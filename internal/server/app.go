// Package server wires the account service together: store, hasher,
// metrics, the gRPC API and the admin endpoints, and runs them until
// the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/miretia/internal/cryptox"
	"github.com/dmitrijs2005/miretia/internal/logging"
	"github.com/dmitrijs2005/miretia/internal/server/admin"
	"github.com/dmitrijs2005/miretia/internal/server/config"
	"github.com/dmitrijs2005/miretia/internal/server/metrics"
	"github.com/dmitrijs2005/miretia/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/miretia/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/miretia/internal/server/grpc"
)

// newRepositoryManager is a seam for tests.
var newRepositoryManager = repomanager.NewRepositoryManager

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	metrics  *metrics.Metrics
	accounts *services.AccountService
	grpc     *gs.GRPCServer
	admin    *admin.Server
}

// NewApp opens and migrates the store and builds every component. Logs go
// to out as JSON lines.
func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {
	logger := logging.NewJSONLogger(out, c.LogLevel)

	repos, err := newRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := metrics.New()
	if p, ok := repos.(interface{ DB() *sql.DB }); ok {
		if err := m.RegisterDB(p.DB(), "accounts"); err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("metrics init error: %w", err)
		}
	}

	hasher := cryptox.NewPasswordHasher(c.HashParams(), c.HashConcurrency)
	accounts := services.NewAccountService(repos.Accounts(), hasher, logger, services.WithRegistrationObserver(m))

	return &App{
		config:   c,
		logger:   logger,
		repos:    repos,
		metrics:  m,
		accounts: accounts,
		grpc: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, accounts,
			gs.WithObserver(m), gs.WithShutdownTimeout(c.ShutdownTimeout)),
		admin: admin.NewServer(c.EndpointAddrAdmin, logger, m.Registry(), repos, c.EnablePprof),
	}, nil
}

// Run serves until ctx is canceled, SIGINT/SIGTERM arrives or a server
// fails, then closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "dsn_scheme", dsnScheme(app.config.DatabaseDSN))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.grpc.Run(gctx); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := app.admin.Run(gctx); err != nil {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	runErr := g.Wait()
	if runErr != nil {
		app.logger.Error(context.Background(), "server failed", "error", runErr)
	}

	if err := app.repos.Close(); err != nil {
		app.logger.Warn(context.Background(), "closing store", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")

	return runErr
}

// dsnScheme keeps credentials out of the startup log.
func dsnScheme(dsn string) string {
	scheme, _, _ := strings.Cut(dsn, "://")
	return scheme
}
