// cmd/interview-engine/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"interview-engine/internal/ai"
	"interview-engine/internal/common/aws"
	"interview-engine/internal/common/config"
	"interview-engine/internal/common/database"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/common/observability"
	"interview-engine/internal/engine/feedback"
	"interview-engine/internal/engine/orchestrator"
	"interview-engine/internal/engine/quota"
	"interview-engine/internal/gateway"
	"interview-engine/internal/notify"
	"interview-engine/internal/speech"
	"interview-engine/internal/store"
	"interview-engine/pkg/phaseplan"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting interview engine...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Interview plan ---
	var plan *phaseplan.Plan
	if cfg.Engine.PlanFile != "" {
		plan, err = phaseplan.Load(cfg.Engine.PlanFile)
		if err != nil {
			zapLog.Fatal("plan load failed", zap.Error(err))
		}
	} else {
		plan = phaseplan.Default()
	}
	zapLog.Info("Interview plan loaded",
		zap.String("plan", plan.Name),
		zap.Int("phases", len(plan.Phases)),
	)

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 10, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- AI collaborator ---
	gemini, err := ai.NewGemini(ctx, cfg.AI, log)
	if err != nil {
		zapLog.Fatal("gemini client failed", zap.Error(err))
	}
	zapLog.Info("Gemini client initialized", zap.String("model", cfg.AI.Model))

	// --- Session collaborators ---
	sessionStore := store.NewSessionStore(rdb.GetClient(), log)
	usageStore := store.NewUsageStore(
		rdb.GetClient(),
		pg.GetDB(),
		time.Duration(cfg.Quota.CacheTTLSeconds)*time.Second,
		log,
	)
	archive := store.NewTranscriptArchive(esClient.Client, cfg.Database.Elasticsearch.Index, log)

	gate := quota.NewGate(usageStore, cfg.Quota.BillingURL, log)
	aggregator := feedback.NewAggregator(gemini, log)

	deps := orchestrator.Dependencies{
		Interviewer: gemini,
		Transcriber: speech.NewTranscriber(cfg.Speech, log),
		Synthesizer: speech.NewSynthesizer(cfg.Speech, log),
		Store:       sessionStore,
		Reporter:    aggregator,
		Archiver:    archive,
	}

	// --- Notifications (optional) ---
	if cfg.Notifications.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		deps.Notifier = notify.NewNotifier(sesClient, snsClient, cfg.Notifications, log)
		zapLog.Info("Notifications enabled", zap.String("region", cfg.Notifications.Region))
	}

	// --- Metrics server ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Gateway.MetricsAddress))
		if err := http.ListenAndServe(cfg.Gateway.MetricsAddress, mux); err != nil {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	// --- Gateway server ---
	gw := gateway.NewServer(cfg.Engine, cfg.Gateway, plan, gate, deps, log)
	server := &http.Server{
		Addr:    cfg.Gateway.Address,
		Handler: gw.Handler(),
	}

	go func() {
		zapLog.Info("Gateway listening", zap.String("address", cfg.Gateway.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("gateway server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("gateway shutdown failed", zap.Error(err))
	}

	zapLog.Info("Interview engine stopped")
}
