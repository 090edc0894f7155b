package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/cache"
	sharedcache "github.com/lbarreto/live-odds-engine/internal/shared/cache"
	"github.com/lbarreto/live-odds-engine/internal/shared/config"
	"github.com/lbarreto/live-odds-engine/internal/shared/logger"
	"github.com/lbarreto/live-odds-engine/internal/shared/metrics"
	"github.com/lbarreto/live-odds-engine/internal/stream"
	"github.com/lbarreto/live-odds-engine/internal/stream/httpapi"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hub WebSocket alimentado pelos canais Redis Pub/Sub do refresher
	hub := stream.NewHub(func(r *http.Request) bool { return true })
	stream.StartRedisSubscriber(ctx, redisClient, hub, log)

	// Servidor HTTP para métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	api := &httpapi.API{Store: store}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(hub.HandleWS),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("odds-stream listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("odds-stream stopped")
}
