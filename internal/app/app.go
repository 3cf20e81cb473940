package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/godilite/ila-server/internal/config"
	handler "github.com/godilite/ila-server/internal/grpc"
	"github.com/godilite/ila-server/internal/transport/rest"
	grpcsrv "github.com/godilite/ila-server/pkg/grpc/server"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	core       *Core
	httpServer *http.Server
	httpLis    net.Listener
	grpcServer *grpcsrv.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	checks := map[string]rest.HealthCheck{
		"database": core.DB.PingContext,
	}
	if core.Cache != nil {
		checks["cache"] = core.Cache.Ping
	}
	api := rest.NewServer(core.Runner, checks, logger.Named("http"))

	httpLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTPPort))
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("failed to listen on HTTP port %d: %w", cfg.HTTPPort, err)
	}

	grpcHandlers := handler.NewGRPCHandlers(core.Runner, logger, cfg.GRPCTimeout)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRecovery(true),
	)
	if err != nil {
		httpLis.Close()
		core.Close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.Register(s, grpcHandlers)
	})

	return &App{
		logger: logger,
		core:   core,
		httpServer: &http.Server{
			Handler:           api.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		httpLis:    httpLis,
		grpcServer: grpcServer,
	}, nil
}

// HTTPAddr returns the address the HTTP API listens on.
func (a *App) HTTPAddr() net.Addr {
	return a.httpLis.Addr()
}

// GRPCAddr returns the address the gRPC service listens on.
func (a *App) GRPCAddr() net.Addr {
	return a.grpcServer.Addr()
}

// Run serves HTTP and gRPC until ctx is canceled or the HTTP server fails, then shuts
// both down and releases storage.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting",
		zap.String("http", a.HTTPAddr().String()),
		zap.String("grpc", a.GRPCAddr().String()))

	a.grpcServer.Start()

	serveErr := make(chan error, 1)
	go func() {
		if err := a.httpServer.Serve(a.httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	a.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", zap.Error(err))
	}
	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("grpc shutdown error", zap.Error(err))
	}
	if err := a.core.Close(); err != nil {
		a.logger.Error("storage shutdown error", zap.Error(err))
	}

	if shutdownCtx.Err() == context.DeadlineExceeded {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}
	return runErr
}
