package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/broadcast"
	"github.com/lbarreto/live-odds-engine/internal/cache"
	"github.com/lbarreto/live-odds-engine/internal/detector"
	"github.com/lbarreto/live-odds-engine/internal/odds"
	"github.com/lbarreto/live-odds-engine/internal/provider"
	"github.com/lbarreto/live-odds-engine/internal/scheduler"
	sharedcache "github.com/lbarreto/live-odds-engine/internal/shared/cache"
	"github.com/lbarreto/live-odds-engine/internal/shared/config"
	sharedkafka "github.com/lbarreto/live-odds-engine/internal/shared/kafka"
	"github.com/lbarreto/live-odds-engine/internal/shared/logger"
	"github.com/lbarreto/live-odds-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	store := cache.NewStore(cache.NewRedisBackend(redisClient), cfg.CompressionThreshold, log)

	// Cliente do provedor com orçamento de requisições compartilhado
	client := provider.NewClient(provider.Config{
		BaseURL:    cfg.ProviderBaseURL,
		APIKey:     cfg.ProviderAPIKey,
		RPS:        cfg.ProviderRPS,
		Timeout:    cfg.ProviderTimeout,
		MaxRetries: cfg.ProviderMaxRetries,
		MaxBackoff: cfg.ProviderMaxBackoff,
	}, store, log)

	// Métricas Prometheus para monitoramento do pipeline de refresh
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_provider_requests_total", Help: "requisições ao provedor"}, []string{"endpoint"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_provider_cache_hits_total", Help: "respostas servidas do cache"}, []string{"endpoint"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_provider_retries_429_total", Help: "retries por rate limit"})
	dailyLimit := prometheus.NewGauge(prometheus.GaugeOpts{Name: "odds_provider_daily_limit_reached", Help: "flag de limite diário esgotado"})
	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_refresh_ticks_total", Help: "ciclos de refresh"}, []string{"mode"})
	fixturesOK := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_refresh_fixtures_total", Help: "jogos processados"}, []string{"mode"})
	fixturesErr := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_refresh_fixture_errors_total", Help: "jogos com erro"}, []string{"mode"})
	changes := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_changes_emitted_total", Help: "mudanças de odds emitidas"})
	batchTimeouts := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_refresh_batch_timeouts_total", Help: "lotes abandonados por timeout"})
	prometheus.MustRegister(requests, cacheHits, retries, dailyLimit, ticks, fixturesOK, fixturesErr, changes, batchTimeouts)

	client.OnRequest = func(endpoint string) { requests.WithLabelValues(endpoint).Inc() }
	client.OnCacheHit = func(endpoint string) { cacheHits.WithLabelValues(endpoint).Inc() }
	client.OnRetry429 = func() { retries.Inc() }
	client.OnDailyLimit = func() { dailyLimit.Set(1) }

	// Broadcaster: Pub/Sub para o fan-out WS e Kafka para o histórico
	writer := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsChanges)
	defer writer.Close()
	caster := broadcast.New(redisClient, writer, log)

	sched := scheduler.New(
		log,
		client,
		odds.NewSelector(cfg.BookmakerPriority),
		detector.New(),
		store,
		caster,
		scheduler.Config{
			LiveInterval:     cfg.LiveRefreshInterval,
			UpcomingInterval: cfg.UpcomingRefreshInterval,
			MaxPerTick:       cfg.MaxFixturesPerTick,
			BatchSize:        cfg.BatchSize,
			BatchTimeout:     cfg.BatchTimeout,
			BatchPause:       cfg.BatchPause,
		},
	)
	sched.OnTick = func(mode string) { ticks.WithLabelValues(mode).Inc() }
	sched.OnFixtureDone = func(mode string) { fixturesOK.WithLabelValues(mode).Inc() }
	sched.OnFixtureError = func(mode string) { fixturesErr.WithLabelValues(mode).Inc() }
	sched.OnChangesEmitted = func(n int) { changes.Add(float64(n)) }
	sched.OnBatchTimeout = func() { batchTimeouts.Inc() }

	// Cron da meia-noite limpa a flag de limite diário do provedor
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.DailyLimitResetCron, func() {
		client.ClearDailyLimit()
		dailyLimit.Set(0)
	}); err != nil {
		log.Fatal("daily limit cron", zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	// Servidor HTTP para métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("odds-refresher started",
		zap.Duration("live_interval", cfg.LiveRefreshInterval),
		zap.Duration("upcoming_interval", cfg.UpcomingRefreshInterval))
	sched.Run(ctx)
	log.Info("odds-refresher stopped")
}
