package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/proxy"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/service"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store/memory"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store/sqlite"
	"github.com/BrandonDHaskell/camrelay/internal/config"
	"github.com/BrandonDHaskell/camrelay/internal/db"
	"github.com/BrandonDHaskell/camrelay/internal/healthcheck"
	"github.com/BrandonDHaskell/camrelay/internal/httpapi"
	"github.com/BrandonDHaskell/camrelay/internal/metrics"
)

// grpcStopTimeout bounds the gRPC drain after HTTP has shut down.
const grpcStopTimeout = 5 * time.Second

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "camrelay-server: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camrelay-server: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("camrelay-server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()

	// Stores
	sessions, closeSessions, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	deviceStore := memory.NewDeviceStore()

	m := metrics.New()
	m.RegisterDeviceCount(func() float64 {
		n, _ := deviceStore.Count(context.Background())
		return float64(n)
	})

	// Services
	devices := service.NewDeviceService(deviceStore, cfg.OnlineWindow, nil)
	monitor := service.NewLivenessMonitor(deviceStore, service.LivenessConfig{
		OnlineWindow:   cfg.OnlineWindow,
		EvictionWindow: cfg.EvictionWindow,
		SweepInterval:  cfg.SweepInterval,
	}, nil, logger.Named("liveness"), m)
	pruner := service.NewSessionPruner(sessions, service.PrunerConfig{
		RetentionDays: cfg.SessionRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger.Named("pruner"))

	gateway := proxy.NewGateway(proxy.Dependencies{
		Devices:  devices,
		Sessions: sessions,
		Logger:   logger.Named("relay"),
		Metrics:  m,
		Config: proxy.Config{
			StreamTimeout:   cfg.StreamTimeout,
			CaptureTimeout:  cfg.CaptureTimeout,
			CaptureMaxBytes: cfg.CaptureMaxBytes,
		},
	})

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:        logger,
		Addr:          cfg.HTTPAddr(),
		DeviceService: devices,
		Gateway:       gateway,
		Mailbox:       service.NewMailboxService(memory.NewMailboxStore()),
		Sessions:      sessions,
		Metrics:       m,
		PublicBaseURL: cfg.PublicBaseURL,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		StartedAt:     startedAt,
	})

	var health *healthcheck.Server
	if cfg.GRPCAddr != "" {
		health = healthcheck.New(cfg.GRPCAddr, logger.Named("grpc"))
	}

	monitor.Start(ctx)
	defer monitor.Stop()
	pruner.Start(ctx)
	defer pruner.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr()),
			zap.String("env", cfg.Env),
			zap.Duration("online_window", cfg.OnlineWindow),
			zap.Duration("eviction_window", cfg.EvictionWindow),
		)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if health != nil {
		g.Go(func() error { return health.ListenAndServe(gctx) })
		health.SetServing(true)
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("grace", cfg.ShutdownGrace))
		if health != nil {
			health.SetServing(false)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("grace period over, closing remaining relays",
				zap.Int64("active_relays", gateway.ActiveRelays()),
				zap.Error(err),
			)
			_ = srv.Close()
		}

		if health != nil {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), grpcStopTimeout)
			defer cancelStop()
			health.Stop(stopCtx)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("camrelay-server stopped", zap.Duration("uptime", time.Since(startedAt)))
	return err
}

// openSessionStore picks the sqlite-backed relay session log when a
// database path is configured and the in-memory one otherwise.
func openSessionStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.RelaySessionStore, func(), error) {
	if cfg.DBPath == "" {
		logger.Info("relay session log in memory")
		return memory.NewRelaySessionStore(), func() {}, nil
	}

	conn, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	version, err := db.SchemaVersion(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	writer := db.NewWorker(conn)
	logger.Info("relay session log in sqlite",
		zap.String("path", cfg.DBPath),
		zap.Int("schema_version", version),
	)

	closeFn := func() {
		writer.Close()
		if err := conn.Close(); err != nil {
			logger.Warn("close db", zap.Error(err))
		}
	}
	return sqlite.NewRelaySessionStore(conn, writer), closeFn, nil
}
