package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/miretia/internal/logging"
	"github.com/dmitrijs2005/miretia/internal/server/models"
	"google.golang.org/grpc"
)

// AccountService is the business API the transport exposes.
type AccountService interface {
	Register(ctx context.Context, in models.RegistrationInput) (*models.AccountResult, error)
	GetByID(ctx context.Context, id string) (*models.AccountResult, error)
	GetByEmail(ctx context.Context, email string) (*models.AccountResult, error)
	GetByUsername(ctx context.Context, username string) (*models.AccountResult, error)
	List(ctx context.Context) ([]models.Account, error)
	Delete(ctx context.Context, id string) (*models.DeleteResult, error)
}

// RequestObserver is told about every finished call.
type RequestObserver interface {
	ObserveRequest(method, code string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}

type GRPCServer struct {
	address         string
	accounts        AccountService
	logger          logging.Logger
	observer        RequestObserver
	shutdownTimeout time.Duration
}

// Option configures a GRPCServer.
type Option func(*GRPCServer)

// WithObserver reports every finished call to o.
func WithObserver(o RequestObserver) Option {
	return func(s *GRPCServer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithShutdownTimeout bounds the graceful stop; in-flight calls still running
// after d are canceled. Zero waits indefinitely.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *GRPCServer) {
		s.shutdownTimeout = d
	}
}

func NewGRPCServer(a string, l logging.Logger, accounts AccountService, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		accounts: accounts,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newServer creates the gRPC server with interceptors and the account
// service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.observeInterceptor, s.recoverInterceptor))
	srv.RegisterService(&serviceDesc, s)
	return srv
}

// Run serves until ctx is canceled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on listen until ctx is canceled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		s.stop(srv)
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	<-stopped
	return nil
}

func (s *GRPCServer) stop(srv *grpc.Server) {
	if s.shutdownTimeout <= 0 {
		srv.GracefulStop()
		return
	}

	graceful := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(graceful)
	}()

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-graceful:
	case <-timer.C:
		s.logger.Warn(context.Background(), "graceful stop timed out, closing connections")
		srv.Stop()
		<-graceful
	}
}
