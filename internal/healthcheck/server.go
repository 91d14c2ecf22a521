// Package healthcheck serves the standard gRPC health protocol so
// orchestrators can probe the relay without speaking HTTP.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the health service name the relay reports under. The
// empty name reports the same status.
const ServiceName = "camrelay"

const shutdownTimer = 5 * time.Second

type Server struct {
	srv    *grpc.Server
	health *health.Server
	addr   string
	logger *zap.Logger

	mu      sync.Mutex
	serving bool
}

func New(addr string, logger *zap.Logger) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger), recoveryInterceptor(logger)),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s := &Server{srv: srv, health: hs, addr: addr, logger: logger}
	s.SetServing(false)
	return s
}

// SetServing flips both the overall and the named service status.
func (s *Server) SetServing(serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.serving = serving
}

func (s *Server) Serving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serving
}

// ListenAndServe listens on the configured address and blocks until Stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := &net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Serve blocks until Stop. A stopped server returns nil.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop reports NOT_SERVING and drains open calls, forcing the stop when
// ctx ends or after a few seconds.
func (s *Server) Stop(ctx context.Context) {
	s.SetServing(false)
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(shutdownTimer)
	defer timer.Stop()

	select {
	case <-stopped:
		s.logger.Info("grpc health stopped")
	case <-ctx.Done():
		s.logger.Warn("grpc health shutdown cancelled, forcing stop")
		s.srv.Stop()
	case <-timer.C:
		s.logger.Warn("grpc health shutdown timed out, forcing stop")
		s.srv.Stop()
	}
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.Duration("dur", time.Since(start)),
			zap.Error(err),
		)
		return resp, err
	}
}

var errInternal = errors.New("internal error")

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc panic", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = errInternal
			}
		}()
		return handler(ctx, req)
	}
}
