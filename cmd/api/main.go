package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/harmonia-labs/cadenza/internal/adapters/analyzer"
	"github.com/harmonia-labs/cadenza/internal/adapters/rest"
	"github.com/harmonia-labs/cadenza/internal/adapters/sqlite"
	"github.com/harmonia-labs/cadenza/internal/config"
	"github.com/harmonia-labs/cadenza/internal/core/ports"
	"github.com/harmonia-labs/cadenza/internal/core/services"
	"github.com/harmonia-labs/cadenza/internal/worker"
)

func main() {
	// 1. Configuration (Environment Variables)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	// 2. Initialize "Driven" Adapters (The Tools)
	// -- Database Adapter
	dbAdapter, err := sqlite.NewAdapter(cfg.DBPath)
	if err != nil {
		sugar.Fatalw("Failed to initialize database", "error", err)
	}
	defer dbAdapter.Close()

	// -- Descriptor Analyzer (optional; imports fall back to the payload
	// alone when no analyzer is configured)
	var provider ports.DescriptorProvider
	if cfg.AnalyzerURL != "" {
		provider = analyzer.NewClient(cfg.AnalyzerURL, cfg.AnalyzerID, cfg.AnalyzerSecret, sugar)
	}

	// 3. Initialize Core Logic (The Driver)
	// Dependency Injection: the agnostic services only ever see ports.
	harmonic := services.NewHarmonicEngine()
	similar := services.NewSimilarityEngine(dbAdapter)
	suggester := services.NewMixSuggester(dbAdapter, harmonic)
	composer := services.NewVectorComposer()
	cluster := services.NewClusterEngine(dbAdapter, sugar)
	batch := services.NewSimilarityBatch(dbAdapter, similar, cfg.TopK, services.DefaultBatchParallelism, sugar)
	ingest := services.NewIngestService(dbAdapter, provider)

	// 4. Initialize "Driving" Adapter (The Interface)
	pool := worker.NewPool(dbAdapter, composer, cfg.QueueSize, sugar)
	pool.Start(cfg.Workers)
	defer pool.Stop()

	handler := rest.NewHandler(ingest, harmonic, similar, suggester, cluster, batch, dbAdapter, pool)

	// 5. Start the Server
	sugar.Infow("🎛️ Cadenza API is running", "addr", cfg.Addr)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			sugar.Fatalw("Server failed", "error", err)
		}
	case <-ctx.Done():
		sugar.Infow("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Warnw("Shutdown error", "error", err)
		}
	}
}
