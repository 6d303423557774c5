package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stage is the point a job has reached in the document pipeline.
type Stage string

const (
	StageReceived        Stage = "RECEIVED"
	StageNormalizing     Stage = "NORMALIZING"
	StageImagesResolving Stage = "IMAGES_RESOLVING"
	StageRenderingHTML   Stage = "RENDERING_HTML"
	StageConvertingPDF   Stage = "CONVERTING_PDF"
	StageUploading       Stage = "UPLOADING"
	StageNotifying       Stage = "NOTIFYING"
	StageDone            Stage = "DONE"
	StageFailed          Stage = "FAILED"
)

// StageTracker records pipeline progress per report. Tracking is advisory:
// a tracker failure never fails the job.
type StageTracker interface {
	Update(ctx context.Context, reportID string, stage Stage)
	Current(ctx context.Context, reportID string) (Stage, bool)
}

// RedisStageTracker keeps the current stage of each report in Redis with a
// TTL, so the API can answer status lookups while a job is in flight.
type RedisStageTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStageTracker(client *redis.Client, ttl time.Duration) *RedisStageTracker {
	return &RedisStageTracker{client: client, ttl: ttl}
}

func stageKey(reportID string) string {
	return "report:stage:" + reportID
}

func (t *RedisStageTracker) Update(ctx context.Context, reportID string, stage Stage) {
	if err := t.client.Set(ctx, stageKey(reportID), string(stage), t.ttl).Err(); err != nil {
		slog.Warn("failed to record job stage", "reportId", reportID, "stage", stage, "error", err)
	}
}

func (t *RedisStageTracker) Current(ctx context.Context, reportID string) (Stage, bool) {
	val, err := t.client.Get(ctx, stageKey(reportID)).Result()
	if err != nil {
		return "", false
	}
	return Stage(val), true
}

// NopStageTracker discards updates. Used by the synchronous HTTP render
// path, which reports its outcome directly in the response.
type NopStageTracker struct{}

func (NopStageTracker) Update(ctx context.Context, reportID string, stage Stage) {}

func (NopStageTracker) Current(ctx context.Context, reportID string) (Stage, bool) {
	return "", false
}
