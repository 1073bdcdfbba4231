package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/config"
	"pet-adoption-portal/internal/grpcweb"
	"pet-adoption-portal/internal/handler"
	"pet-adoption-portal/internal/middleware"
	"pet-adoption-portal/internal/obs"
	"pet-adoption-portal/internal/portal"
	"pet-adoption-portal/internal/session"
	"pet-adoption-portal/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := obs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, closeStore, err := openSessions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics := obs.NewMetrics()
	client, err := api.New(api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Logger:  log,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}
	mgr := session.NewManager(sessions, cfg.SessionTTL, log)
	svc := portal.New(client, mgr, log)

	rl := middleware.NewRateLimiter(cfg.LoginRPS, cfg.LoginBurst)
	defer rl.Stop()

	// grpc server
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl, handler.MethodLogin),
			middleware.Auth(handler.MethodLogin),
		),
	)
	handler.RegisterPortalService(srv, handler.NewGRPCServer(svc, log))
	hs := health.NewServer()
	hs.SetServingStatus(handler.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	errc := make(chan error, 2)
	go func() {
		log.Info("grpc listening", zap.String("port", cfg.GRPCPort))
		errc <- srv.Serve(lis)
	}()

	// grpc-web bridge -> forwards browser calls to the grpc listener
	bridge, err := grpcweb.New("localhost:"+cfg.GRPCPort, log)
	if err != nil {
		return err
	}
	defer bridge.Close()

	h := handler.New(svc, log)
	httpSrv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: h.Routes(handler.Options{
			Sessions: mgr,
			Limiter:  rl,
			Metrics:  metrics,
			GRPCWeb:  bridge.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("port", cfg.HTTPPort), zap.String("api", cfg.APIBaseURL))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errc:
		log.Error("server failed", zap.Error(err))
	}
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	srv.GracefulStop()
	return nil
}

// openSessions picks the session store: postgres when DATABASE_URL is set,
// memory otherwise. Expired rows are purged in the background.
func openSessions(ctx context.Context, cfg config.Config, log *zap.Logger) (session.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory session store")
		mem := session.NewMemoryStore()
		done := purgeEvery(ctx, time.Minute, log, mem.Purge)
		return mem, done, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	st := store.New(pool)
	if err := st.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("connected to postgres")
	done := purgeEvery(ctx, 5*time.Minute, log, st.Purge)
	return st, func() { done(); pool.Close() }, nil
}

func purgeEvery(ctx context.Context, every time.Duration, log *zap.Logger, purge func(context.Context) (int64, error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := purge(ctx)
				if err != nil {
					log.Warn("purge sessions", zap.Error(err))
				} else if n > 0 {
					log.Debug("purged sessions", zap.Int64("count", n))
				}
			}
		}
	}()
	return func() { cancel(); <-finished }
}
