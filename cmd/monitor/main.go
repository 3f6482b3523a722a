// cmd/monitor/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kc-restaurants/internal/common/aws"
	"kc-restaurants/internal/common/config"
	"kc-restaurants/internal/common/database"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/retry"
	"kc-restaurants/internal/enrich"
	"kc-restaurants/internal/geo"
	"kc-restaurants/internal/pipeline"
	"kc-restaurants/internal/places"
	"kc-restaurants/internal/predictor"
	"kc-restaurants/internal/report"
	"kc-restaurants/internal/store"
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

	zapLog.Info("Starting restaurant monitor...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis (best effort, lookups degrade to cache misses) ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Warn("redis unavailable, place-id cache disabled", zap.Error(err))
		redis = nil
	} else {
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Record store over both backends ---
	doc := store.NewDocumentBackend(esClient, cfg.Database.Elasticsearch.Index, log)
	if err := doc.EnsureIndex(ctx); err != nil {
		zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
	}

	rel := store.NewRelationalBackend(pg, log)
	if err := rel.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres schema setup failed", zap.Error(err))
	}

	recordStore := store.New(doc, rel, log)

	// --- Prediction and enrichment wiring ---
	retryer := retry.New(cfg.Retry, log)

	cache := places.NewCache(redis, config.GetDuration(cfg.Places.CacheTTL), log)
	quota := places.NewQuotaTracker(cfg.Places.MonthlyBudgetUSD)
	placesClient := places.NewClient(cfg.Places, retryer, cache, quota, log)

	pred := predictor.New(geo.NewIndex(recordStore), cfg.Predictor, log)
	enricher := enrich.New(placesClient, pred, recordStore, log)
	processor := pipeline.NewProcessor(recordStore, enricher, log)

	// --- Digest reporter (SES only when enabled) ---
	var reporter *report.Reporter
	if cfg.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Email.AWSRegion)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		reporter = report.New(sesClient, cfg.Email, log)
	} else {
		reporter = report.New(nil, cfg.Email, log)
	}

	zapLog.Info("All clients initialized")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(recordStore.Status(r.Context()))
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Run the pipeline once ---
	fetcher := pipeline.NewFeedFetcher(cfg.Feed, retryer)

	feed, err := fetcher.Fetch(ctx)
	if err != nil {
		zapLog.Fatal("feed download failed", zap.Error(err))
	}

	result, err := processor.Process(ctx, feed)
	feed.Close()
	if err != nil {
		zapLog.Fatal("feed processing failed", zap.Error(err))
	}

	textCalls, detailCalls := quota.Calls()
	zapLog.Info("Run complete",
		zap.String("run_id", result.Stats.RunID),
		zap.Int("total", result.Stats.TotalRecords),
		zap.Int("food", result.Stats.FoodBusinesses),
		zap.Int("new", result.Stats.NewBusinesses),
		zap.Int("enriched", result.Stats.Enriched),
		zap.Int("text_search_calls", textCalls),
		zap.Int("details_calls", detailCalls),
		zap.Float64("api_cost_usd", quota.EstimatedCostUSD()),
	)

	if result.Stats.NewBusinesses > 0 {
		if err := reporter.SendDigest(ctx, result.Stats, result.NewBusinesses); err != nil {
			zapLog.Error("digest send failed", zap.Error(err))
		}
	}

	zapLog.Info("Restaurant monitor finished")
}
