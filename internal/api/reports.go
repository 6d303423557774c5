package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2"

	"github.com/brunocserra/extincor-pdf-function/internal/jobs"
	"github.com/brunocserra/extincor-pdf-function/internal/models"
	"github.com/brunocserra/extincor-pdf-function/internal/pipeline"
)

// handleCreateReport accepts a report payload, persists the job row and
// enqueues it for the worker. The payload is passed through untouched; all
// shaping happens in the pipeline.
func (s *Server) handleCreateReport(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.Body()...)

	if err := jobs.ValidatePayload(raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	payload, err := pipeline.ParsePayload(raw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	reportID := payload.ReportID()

	var jobID int
	err = s.db.DB.QueryRow(
		"INSERT INTO reports (report_id, template, status, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		reportID, payload.TemplateName(), models.StatusPending, time.Now(),
	).Scan(&jobID)
	if err != nil {
		slog.Error("failed to insert report row", "reportId", reportID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create job",
		})
	}

	msg, err := json.Marshal(models.GeneratePDFJob{ID: jobID, Payload: raw})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to encode job",
		})
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.cfg.Kafka.Topic,
		Key:   sarama.StringEncoder(reportID),
		Value: sarama.ByteEncoder(msg),
	})
	if err != nil {
		slog.Error("failed to enqueue job", "jobId", jobID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to enqueue job",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":       jobID,
		"reportId": reportID,
		"status":   models.StatusPending,
	})
}

func (s *Server) handleGetReport(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job id",
		})
	}

	var report models.Report
	if err := s.db.DB.Get(&report, "SELECT * FROM reports WHERE id=$1", id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}

	resp := fiber.Map{"report": report}
	if stage, ok := s.tracker.Current(c.Context(), report.ReportID); ok {
		resp["stage"] = stage
	}
	return c.JSON(resp)
}

func (s *Server) handleListReports(c *fiber.Ctx) error {
	reports := []models.Report{}
	if err := s.db.DB.Select(&reports, "SELECT * FROM reports ORDER BY id DESC LIMIT 50"); err != nil {
		slog.Error("failed to list reports", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list jobs",
		})
	}
	return c.JSON(fiber.Map{"reports": reports})
}

// handleRenderReport runs the whole pipeline inline and answers with the
// blob location, mirroring the original synchronous endpoint. Downstream
// failures map to 502-style 500s with a human-readable message.
func (s *Server) handleRenderReport(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.Body()...)

	if err := jobs.ValidatePayload(raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	out, err := s.handler.Handle(c.Context(), raw)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":   "PDF " + out.ReportID + " generated and stored",
		"url":       out.BlobURL,
		"sizeBytes": out.SizeBytes,
		"images":    out.ImageCount,
	})
}
