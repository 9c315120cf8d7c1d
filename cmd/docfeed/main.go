package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docfeed/internal/chunk"
	"github.com/kailas-cloud/docfeed/internal/config"
	"github.com/kailas-cloud/docfeed/internal/consumer"
	"github.com/kailas-cloud/docfeed/internal/db"
	dbRedis "github.com/kailas-cloud/docfeed/internal/db/redis"
	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/internal/index"
	idxQdrant "github.com/kailas-cloud/docfeed/internal/index/qdrant"
	logpkg "github.com/kailas-cloud/docfeed/internal/logger"
	"github.com/kailas-cloud/docfeed/internal/metrics"
	queueAmqp "github.com/kailas-cloud/docfeed/internal/queue/amqp"
	budgetrepo "github.com/kailas-cloud/docfeed/internal/repository/budget"
	geminiEmb "github.com/kailas-cloud/docfeed/internal/transport/gemini"
	openaiEmb "github.com/kailas-cloud/docfeed/internal/transport/openai"
	"github.com/kailas-cloud/docfeed/internal/transport/ops"
	batchuc "github.com/kailas-cloud/docfeed/internal/usecase/batch"
	embeddinguc "github.com/kailas-cloud/docfeed/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docfeed/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docfeed/internal/usecase/ingest"
	"github.com/kailas-cloud/docfeed/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docfeed worker",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("queue", cfg.Queue.Name),
		zap.String("collection", cfg.Index.Collection),
		zap.String("provider", cfg.Embedding.Provider),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	idxStore, err := idxQdrant.NewStore(idxQdrant.Config{
		Host:   cfg.Index.Host,
		Port:   cfg.Index.Port,
		APIKey: cfg.Index.APIKey,
		UseTLS: cfg.Index.UseTLS,
	})
	if err != nil {
		logger.Fatal("Failed to create index store", zap.Error(err))
	}
	defer func() { _ = idxStore.Close() }()

	// Redis is optional: it only backs budget counters. The worker runs
	// fine without it, budgets just reset on restart.
	var store db.Store
	if len(cfg.Database.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")
	}

	// Build embedder chain — composition root
	embedder, embedderHealth := buildEmbedder(ctx, cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	spec := index.CollectionSpec{
		Name:      cfg.Index.Collection,
		Dimension: uint64(cfg.Embedding.Dimensions),
		Distance:  index.Distance(cfg.Index.Distance),
	}
	pipe := ingestuc.New(embedder, idxStore, idxStore, spec, logger)

	sup := queueAmqp.NewSupervisor(queueAmqp.Config{
		URL:           cfg.Queue.URL,
		Queue:         cfg.Queue.Name,
		TLSVerify:     cfg.Queue.TLSVerify,
		RetryAttempts: cfg.Queue.RetryAttempts,
		RetryBackoff:  time.Duration(cfg.Queue.RetryBackoffSec) * time.Second,
	}, logger)

	healthSvc := healthuc.New(idxStore, embedderHealth).WithQueue(sup)
	if store != nil {
		healthSvc = healthSvc.WithStore(store)
	}

	opsAddr := fmt.Sprintf(":%d", cfg.Ops.Port)
	opsSrv := ops.NewServer(ops.Config{
		Addr:         opsAddr,
		ReadTimeout:  time.Duration(cfg.Ops.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Ops.WriteTimeoutSec) * time.Second,
	}, healthSvc, logger)

	go func() {
		logger.Info("Starting ops server", zap.String("addr", opsAddr))
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Ops server error", zap.Error(err))
		}
	}()

	// One-shot catch-up over the local docs directory before draining the
	// queue. Failures are logged inside Run and never abort startup.
	batchSvc := batchuc.New(pipe, cfg.Batch.RootDir, cfg.Batch.Extensions,
		chunkProfile(cfg.Chunking.Batch), logger)
	report := batchSvc.Run(ctx)
	logger.Info("Batch ingestion finished",
		zap.Int("files_processed", report.FilesProcessed),
		zap.Int("chunks_uploaded", report.ChunksUploaded),
	)

	if err := sup.Start(ctx); err != nil {
		logger.Fatal("Failed to connect to queue", zap.Error(err))
	}

	cons := consumer.New(pipe, logger).
		WithProfiles(chunkProfile(cfg.Chunking.Streaming), chunkProfile(cfg.Chunking.Batch))

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		cons.Run(runCtx, sup.Deliveries())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		// Stop cancels the consumer registration; the delivery channel
		// drains and closes, and Run returns after the in-flight message.
		sup.Stop()
		<-consumerDone
	case amqpErr := <-sup.Closed():
		logger.Error("Queue connection lost", zap.Error(amqpErr))
		exitCode = 1
		cancelRun()
		<-consumerDone
	case <-consumerDone:
		logger.Error("Delivery stream ended unexpectedly")
		exitCode = 1
	}

	sup.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Ops.ShutdownSec)*time.Second)
	defer cancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during ops shutdown", zap.Error(err))
	}

	if exitCode != 0 {
		// os.Exit skips defers; release what matters by hand.
		_ = idxStore.Close()
		if store != nil {
			store.Close()
		}
		_ = logger.Sync()
		os.Exit(exitCode)
	}

	logger.Info("Worker stopped gracefully")
}

// buildEmbedder assembles the decorator chain: provider -> Instrumented.
// It returns the chain plus the bare provider for readiness probes; the
// instrumented wrapper does not forward HealthCheck.
func buildEmbedder(
	ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger,
) (domain.Embedder, domain.HealthChecker) {
	provName := cfg.Embedding.Provider
	provCfg := cfg.Embedding.Providers[provName]

	var (
		base   domain.Embedder
		health domain.HealthChecker
	)
	switch provName {
	case "openai":
		e := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   provName,
			Logger:     logger,
		})
		base, health = e, e
	default:
		e, err := geminiEmb.NewEmbedder(ctx, &geminiEmb.Config{
			APIKey: provCfg.APIKey,
			Model:  cfg.Embedding.Model,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("Failed to create embedder", zap.Error(err))
		}
		base, health = e, e
	}

	// Single BudgetTracker shared by the instrumented wrapper.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if store != nil {
			// Connect persistence store — loads current counters from DB.
			budget.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	chain := embeddinguc.NewInstrumentedEmbedder(
		base, provName, cfg.Embedding.Model, budgetChecker, logger,
	)
	return chain, health
}

func chunkProfile(p config.ChunkProfile) chunk.Profile {
	return chunk.Profile{Size: p.Size, Overlap: p.Overlap}
}
