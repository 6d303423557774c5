package main

import (
	"log/slog"
	"os"

	"github.com/brunocserra/extincor-pdf-function/internal/api"
	"github.com/brunocserra/extincor-pdf-function/internal/assets"
	"github.com/brunocserra/extincor-pdf-function/internal/config"
	"github.com/brunocserra/extincor-pdf-function/internal/gotenberg"
	"github.com/brunocserra/extincor-pdf-function/internal/jobs"
	"github.com/brunocserra/extincor-pdf-function/internal/pipeline"
	"github.com/brunocserra/extincor-pdf-function/internal/storage"
	"github.com/brunocserra/extincor-pdf-function/pkg/database"
	"github.com/brunocserra/extincor-pdf-function/pkg/kafka"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewClients(cfg.Database.URL, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to initialize database clients", "error", err)
		os.Exit(1)
	}
	defer db.DB.Close()

	if err := db.CreateReportsTable(); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.RetryMax, cfg.Kafka.RetryBackoff)
	if err != nil {
		slog.Error("failed to create kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	converter, err := gotenberg.NewClient(cfg.Gotenberg)
	if err != nil {
		slog.Error("renderer is not configured", "error", err)
		os.Exit(1)
	}

	blobs, err := newBlobStore(cfg)
	if err != nil {
		slog.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}

	renderer, err := pipeline.NewRenderer()
	if err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	tracker := jobs.NewRedisStageTracker(db.Redis, cfg.Redis.StageTTL)

	// the synchronous render path reports its outcome in the response, so
	// stage tracking stays off for it
	handler := jobs.NewHandler(
		cfg,
		renderer,
		converter,
		blobs,
		assets.NewResolver(cfg.Images),
		jobs.NewNotifier(cfg, producer),
		jobs.NopStageTracker{},
	)

	server := api.NewServer(cfg, db, producer, handler, tracker)
	if err := server.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	if cfg.Blob.SupabaseURL != "" && cfg.Blob.SupabaseKey != "" {
		return storage.NewSupabaseStorage(cfg.Blob)
	}
	slog.Warn("supabase storage not configured, using local blob store", "dir", cfg.Blob.LocalDir)
	return storage.NewLocalStorage(cfg.Blob.LocalDir)
}
