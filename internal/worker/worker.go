package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"

	"github.com/brunocserra/extincor-pdf-function/internal/config"
	"github.com/brunocserra/extincor-pdf-function/internal/jobs"
	"github.com/brunocserra/extincor-pdf-function/internal/models"
	"github.com/brunocserra/extincor-pdf-function/pkg/database"
)

// JobRunner is the slice of the pipeline the worker drives per message.
// Satisfied by *jobs.Handler.
type JobRunner interface {
	Handle(ctx context.Context, raw []byte) (jobs.Output, error)
}

// Worker consumes document-generation jobs from Kafka and records their
// outcome in Postgres. Redelivery on failure is the broker's concern; the
// worker only marks the message and moves on.
type Worker struct {
	cfg      *config.Config
	db       *database.Clients
	consumer sarama.ConsumerGroup
	runner   JobRunner
	ready    chan bool
}

func NewWorker(cfg *config.Config, db *database.Clients, consumer sarama.ConsumerGroup, runner JobRunner) *Worker {
	return &Worker{
		cfg:      cfg,
		db:       db,
		consumer: consumer,
		runner:   runner,
		ready:    make(chan bool),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	topics := []string{w.cfg.Kafka.Topic}
	slog.Info("starting worker", "topics", topics, "group", w.cfg.Kafka.Group)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for err := range w.consumer.Errors() {
			slog.Error("kafka consumer error", "error", err)
		}
	}()

	go func() {
		for {
			if err := w.consumer.Consume(ctx, topics, w); err != nil {
				slog.Error("consumer session ended with error", "error", err)
			}
			if ctx.Err() != nil {
				return
			}
			// new session, reset readiness
			w.ready = make(chan bool)
		}
	}()

	<-w.ready
	slog.Info("worker ready, consuming jobs")

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down worker")
	}
	return nil
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (w *Worker) Setup(sarama.ConsumerGroupSession) error {
	close(w.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (w *Worker) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from one claimed partition.
func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := w.processJob(session.Context(), message); err != nil {
			slog.Error("job failed", "offset", message.Offset, "error", err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (w *Worker) processJob(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var job models.GeneratePDFJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return fmt.Errorf("failed to parse job message: %w", err)
	}
	slog.Info("job received", "jobId", job.ID, "offset", msg.Offset, "partition", msg.Partition)

	w.markStatus(job.ID, models.StatusProcessing, "", "")

	out, err := w.runner.Handle(ctx, job.Payload)
	if err != nil {
		w.markStatus(job.ID, models.StatusFailed, "", err.Error())
		return err
	}

	w.markStatus(job.ID, models.StatusCompleted, out.BlobURL, "")
	slog.Info("job completed", "jobId", job.ID, "reportId", out.ReportID, "blob", out.BlobName)
	return nil
}

// markStatus is best effort: the job row is bookkeeping, not the source of
// truth for the result message.
func (w *Worker) markStatus(jobID int, status, blobURL, errMsg string) {
	if jobID == 0 {
		return
	}
	_, err := w.db.DB.Exec(
		"UPDATE reports SET status=$1, blob_url=$2, error=$3, updated_at=NOW() WHERE id=$4",
		status, blobURL, errMsg, jobID,
	)
	if err != nil {
		slog.Error("failed to update report status", "jobId", jobID, "status", status, "error", err)
	}
}
