package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/leanlab/loyalty-engine/internal/adapters/cache"
	grpcadapter "github.com/leanlab/loyalty-engine/internal/adapters/grpc"
	httpadapter "github.com/leanlab/loyalty-engine/internal/adapters/http"
	"github.com/leanlab/loyalty-engine/internal/adapters/openai"
	"github.com/leanlab/loyalty-engine/internal/adapters/postgres"
	"github.com/leanlab/loyalty-engine/internal/adapters/security"
	"github.com/leanlab/loyalty-engine/internal/application"
	"github.com/leanlab/loyalty-engine/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping loyalty engine", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)

	// A nil verifier keeps the webhook route closed until the secret is
	// deployed; the service reports the misconfiguration per request.
	var verifier ports.SignatureVerifier
	if cfg.StripeWebhookSecret != "" {
		verifier = security.NewStripeVerifier(cfg.StripeWebhookSecret)
	} else {
		logger.Warn("stripe webhook secret not configured; payment ingestion disabled")
	}

	var tokens ports.TokenVerifier
	if cfg.JWTSecret != "" {
		tokens, err = security.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init jwt verifier: %w", err)
		}
	} else {
		logger.Warn("jwt secret not configured; read and admin endpoints disabled")
	}

	var generator ports.MessageGenerator
	if cfg.OpenAIAPIKey != "" {
		generator = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:        cfg.ServiceID,
			ReferralBonus:      cfg.ReferralBonus,
			ReviewBonus:        cfg.ReviewBonus,
			WeeklyReviewCap:    cfg.WeeklyReviewCap,
			ActiveUserLookback: cfg.ActiveUserLookback,
			WebhookDedupTTL:    cfg.WebhookDedupTTL,
		},
		Orders:          repos.Orders,
		Referrals:       repos.Referrals,
		Reviews:         repos.Reviews,
		Ledger:          repos.Ledger,
		Wallets:         repos.Wallets,
		Payments:        repos.Payments,
		Personalization: repos.Personalization,
		Analytics:       repos.Analytics,
		Stats:           repos.Stats,
		Fridges:         repos.Fridges,
		Verifier:        verifier,
		Dedup:           cacheadapter.NewRedisDeliveryDedup(redisClient),
		Generator:       generator,
	})

	handler := httpadapter.NewHandler(svc, tokens)
	router := httpadapter.NewRouter(handler, cfg.CronSecret)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewWalletInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker executes one scheduled cycle and exits; the external scheduler
// owns the cadence. WORKER_JOB selects the job, defaulting to the weekly
// analysis.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := envOrDefault("WORKER_JOB", "weekly-analysis")
	var runErr error
	switch job {
	case "weekly-analysis":
		outcome, err := r.service.RunWeeklyAnalysis(ctx)
		if err != nil {
			runErr = err
			break
		}
		r.logger.Info("weekly analysis completed",
			"operation", "weekly_analysis",
			"outcome", "success",
			"processed", outcome.Processed,
			"skipped", outcome.Skipped,
		)
	case "daily-reports":
		outcome, err := r.service.RunDailyReports(ctx)
		if err != nil {
			runErr = err
			break
		}
		r.logger.Info("daily reports completed",
			"operation", "daily_reports",
			"outcome", "success",
			"sales_fridges", outcome.SalesFridges,
			"restock_alerts", outcome.RestockAlerts,
		)
	default:
		runErr = fmt.Errorf("unknown worker job %q", job)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return runErr
}
