package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/brunocserra/extincor-pdf-function/internal/assets"
	"github.com/brunocserra/extincor-pdf-function/internal/config"
	"github.com/brunocserra/extincor-pdf-function/internal/gotenberg"
	"github.com/brunocserra/extincor-pdf-function/internal/models"
	"github.com/brunocserra/extincor-pdf-function/internal/pipeline"
	"github.com/brunocserra/extincor-pdf-function/internal/storage"
)

// Handler runs the full document pipeline for one job: normalize the
// payload, resolve photos, render HTML, convert to PDF, upload the blob and
// publish the result.
type Handler struct {
	renderer  *pipeline.Renderer
	converter gotenberg.Renderer
	blobs     storage.BlobStore
	resolver  *assets.Resolver
	notifier  Notifier
	tracker   StageTracker

	container string
	prefix    string
	imageBase string
}

// Output summarizes a completed job.
type Output struct {
	ReportID   string
	BlobName   string
	BlobURL    string
	SizeBytes  int
	ImageCount int
	Skipped    int
}

func NewHandler(cfg *config.Config, renderer *pipeline.Renderer, converter gotenberg.Renderer,
	blobs storage.BlobStore, resolver *assets.Resolver, notifier Notifier, tracker StageTracker) *Handler {
	return &Handler{
		renderer:  renderer,
		converter: converter,
		blobs:     blobs,
		resolver:  resolver,
		notifier:  notifier,
		tracker:   tracker,
		container: cfg.Blob.Container,
		prefix:    cfg.Blob.Prefix,
		imageBase: cfg.Images.ProductImageBaseURL,
	}
}

// Handle processes one raw job payload. A parse failure aborts before any
// external call and without a result message, since the job cannot even be
// addressed; every later fatal error sends a best-effort FAILED result
// before being returned.
func (h *Handler) Handle(ctx context.Context, raw []byte) (Output, error) {
	payload, err := pipeline.ParsePayload(raw)
	if err != nil {
		return Output{}, err
	}
	reportID := payload.ReportID()
	log := slog.With("reportId", reportID)
	log.Info("starting report generation")
	h.tracker.Update(ctx, reportID, StageReceived)

	h.tracker.Update(ctx, reportID, StageNormalizing)
	photoURLs := payload.PhotoURLs()

	h.tracker.Update(ctx, reportID, StageImagesResolving)
	resolved := h.resolver.Resolve(ctx, photoURLs)
	if resolved.Skipped > 0 {
		log.Warn("some photos were skipped", "skipped", resolved.Skipped, "resolved", len(resolved.Assets))
	}
	photoNames := make([]string, len(resolved.Assets))
	for i, a := range resolved.Assets {
		photoNames[i] = a.Filename
	}

	h.tracker.Update(ctx, reportID, StageRenderingHTML)
	vm := pipeline.BuildViewModel(payload, photoNames, pipeline.Options{ProductImageBaseURL: h.imageBase})
	html, err := h.renderer.Render(vm)
	if err != nil {
		return Output{}, h.fail(ctx, payload, reportID, err)
	}

	h.tracker.Update(ctx, reportID, StageConvertingPDF)
	pdf, err := h.converter.Convert(ctx, html, resolved.Assets)
	if err != nil {
		return Output{}, h.fail(ctx, payload, reportID, err)
	}
	log.Info("pdf converted", "sizeBytes", len(pdf))

	h.tracker.Update(ctx, reportID, StageUploading)
	blobName := storage.BlobName(h.prefix, reportID)
	blobURL, err := h.blobs.Upload(ctx, blobName, pdf, "application/pdf")
	if err != nil {
		return Output{}, h.fail(ctx, payload, reportID, err)
	}

	h.tracker.Update(ctx, reportID, StageNotifying)
	result := models.Result{
		Version:      1,
		ReportID:     reportID,
		Status:       models.ResultSucceeded,
		CreatedAtUTC: time.Now().UTC(),
		Source:       &models.ResultSource{Dataverse: payload.Dataverse(reportID)},
		PDF: &models.ResultPDF{
			ContainerName: h.container,
			BlobName:      blobName,
			BlobURL:       blobURL,
			SizeBytes:     len(pdf),
		},
		Images: &models.ResultImages{Count: len(resolved.Assets)},
	}
	if err := h.notifier.Notify(ctx, result); err != nil {
		log.Error("failed to publish result", "error", err)
	}

	h.tracker.Update(ctx, reportID, StageDone)
	log.Info("report generation complete", "blob", blobName, "photos", len(resolved.Assets), "sizeBytes", len(pdf))

	return Output{
		ReportID:   reportID,
		BlobName:   blobName,
		BlobURL:    blobURL,
		SizeBytes:  len(pdf),
		ImageCount: len(resolved.Assets),
		Skipped:    resolved.Skipped,
	}, nil
}

// fail records the terminal stage and sends a best-effort FAILED result
// before handing the error back to the caller's retry policy.
func (h *Handler) fail(ctx context.Context, payload pipeline.Payload, reportID string, jobErr error) error {
	slog.Error("report generation failed", "reportId", reportID, "error", jobErr)
	h.tracker.Update(ctx, reportID, StageFailed)

	result := models.Result{
		Version:      1,
		ReportID:     reportID,
		Status:       models.ResultFailed,
		CreatedAtUTC: time.Now().UTC(),
		Source:       &models.ResultSource{Dataverse: payload.Dataverse(reportID)},
		Error:        jobErr.Error(),
	}
	if err := h.notifier.Notify(ctx, result); err != nil {
		slog.Error("failed to publish failure result", "reportId", reportID, "error", err)
	}
	return jobErr
}
