package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/familytales/memorybook-api/api"
	"github.com/familytales/memorybook-api/api/types"
	"github.com/familytales/memorybook-api/internal/clients/gcp"
	"github.com/familytales/memorybook-api/internal/database"
	"github.com/familytales/memorybook-api/internal/services/extraction"
	"github.com/familytales/memorybook-api/internal/services/jobs"
	"github.com/familytales/memorybook-api/internal/services/narration"
	"github.com/familytales/memorybook-api/internal/services/publisher"
	"github.com/familytales/memorybook-api/internal/services/synthesis"
	"github.com/familytales/memorybook-api/internal/services/threads"
	"github.com/familytales/memorybook-api/internal/services/workers"
	"github.com/familytales/memorybook-api/pkg/config"
	"github.com/familytales/memorybook-api/pkg/retry"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Memory Book API server with the configured settings.

The server accepts thread and content item submissions, runs the
assembly pipeline on background workers, and serves published segment
maps.

Example:
  memorybook-api serve
  memorybook-api serve --port 9090
  memorybook-api serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

// collaboratorPolicy builds the retry policy shared by the pipeline's
// external collaborators from processing config.
func collaboratorPolicy(cfg *config.Config) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.Processing.RetryAttempts > 0 {
		policy.MaxAttempts = cfg.Processing.RetryAttempts
	}
	if cfg.Processing.RetryDelay > 0 {
		policy.InitialDelay = cfg.Processing.RetryDelay
	}
	return policy
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Use config values if flags not provided
	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.LogQueries)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.AutoMigrate(migrationModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	visionClient, err := gcp.NewVisionClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create vision client: %w", err)
	}
	defer func() { _ = visionClient.Close() }()

	ttsClient, err := gcp.NewTTSClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	defer func() { _ = ttsClient.Close() }()

	bucketClient, err := gcp.NewBucketClient(ctx, cfg.Storage.Bucket, cfg.Storage.CDNDomain)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	defer func() { _ = bucketClient.Close() }()

	// Services
	threadService := threads.NewService(threads.NewRepository(db.DB))
	jobService := jobs.NewService(jobs.NewRepository(db.DB))

	policy := collaboratorPolicy(cfg)
	concurrency := cfg.Processing.ExtractionConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	extractService := extraction.NewService(threadService, visionClient, bucketClient, cfg.OCR, policy, concurrency)
	narrationService := narration.NewService(threadService)
	synthesisService := synthesis.NewService(ttsClient, cfg.TTS, policy)
	publishService := publisher.NewService(threadService, bucketClient, cfg.Storage, policy)

	// Worker pool for the assembly pipeline
	workerCount := cfg.Processing.Workers
	if workerCount <= 0 {
		workerCount = 2
	}
	pollInterval := cfg.Processing.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	pool := workers.NewWorkerPool(jobService, workerCount, pollInterval)
	pool.RegisterProcessor(workers.NewAssemblyProcessor(
		jobService,
		threadService,
		extractService,
		narrationService,
		synthesisService,
		publishService,
	))
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	defer pool.Stop()

	// Periodic job cleanup keeps the queue table bounded
	retentionDays := cfg.Processing.JobRetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := jobService.CleanupOldJobs(ctx, retentionDays); err != nil {
					log.Printf("[ERROR] Job cleanup failed: %v", err)
				}
			}
		}
	}()

	// HTTP server
	server := api.NewServer(fmt.Sprintf("%s:%d", serverHost, serverPort), cfg.Server)
	server.SetDatabase(db)
	server.SetDependencies(&types.Dependencies{
		DB:            db,
		ThreadService: threadService,
		JobService:    jobService,
		WorkerPool:    pool,
	})
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	fmt.Printf("Starting Memory Book API server on %s:%d\n", serverHost, serverPort)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Printf("Server is ready to handle requests at %s:%d\n", serverHost, serverPort)

	select {
	case <-stop:
		fmt.Println("\nShutting down server...")
	case err := <-serverErr:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		fmt.Println("Shutting down server...")
	}

	// Stop claiming new jobs before the HTTP server drains
	pool.Stop()
	cancel()

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Server forced to shutdown: %v\n", err)
		return err
	}

	fmt.Println("Server gracefully stopped")
	return nil
}
