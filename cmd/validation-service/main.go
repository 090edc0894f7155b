package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/cache"
	"github.com/lbarreto/live-odds-engine/internal/odds"
	"github.com/lbarreto/live-odds-engine/internal/provider"
	sharedcache "github.com/lbarreto/live-odds-engine/internal/shared/cache"
	"github.com/lbarreto/live-odds-engine/internal/shared/config"
	"github.com/lbarreto/live-odds-engine/internal/shared/db"
	"github.com/lbarreto/live-odds-engine/internal/shared/logger"
	"github.com/lbarreto/live-odds-engine/internal/shared/metrics"
	"github.com/lbarreto/live-odds-engine/internal/ticket"
	"github.com/lbarreto/live-odds-engine/internal/validation"
	"github.com/lbarreto/live-odds-engine/internal/validation/httpapi"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Inicializa dependências: Postgres (bilhetes) e Redis (cache/locks)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	store := cache.NewStore(cache.NewRedisBackend(redisClient), cfg.CompressionThreshold, log)

	client := provider.NewClient(provider.Config{
		BaseURL:    cfg.ProviderBaseURL,
		APIKey:     cfg.ProviderAPIKey,
		RPS:        cfg.ProviderRPS,
		Timeout:    cfg.ProviderTimeout,
		MaxRetries: cfg.ProviderMaxRetries,
		MaxBackoff: cfg.ProviderMaxBackoff,
	}, store, log)

	engine := validation.NewEngine(
		log,
		client,
		ticket.NewRepo(pg),
		validation.NewCriticalGuard(store, cfg.CriticalLockWindow),
		odds.NewSelector(cfg.BookmakerPriority),
		validation.Tolerance{Abs: cfg.OddsToleranceAbs, Pct: cfg.OddsTolerancePct},
	)

	// Métricas Prometheus por desfecho de validação
	validated := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_validations_total", Help: "validações por código de resposta"}, []string{"code"})
	prometheus.MustRegister(validated)
	engine.OnValidated = func(code string) { validated.WithLabelValues(code).Inc() }

	// Servidor HTTP para métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	api := &httpapi.API{Log: log, Engine: engine}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("validation-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("validation-service stopped")
}
