package models

import (
	"encoding/json"
	"time"
)

// Report is one document-generation job tracked in Postgres.
type Report struct {
	ID        int       `json:"id" db:"id"`
	ReportID  string    `json:"report_id" db:"report_id"`
	Template  string    `json:"template" db:"template"`
	Status    string    `json:"status" db:"status"`
	BlobURL   string    `json:"blob_url,omitempty" db:"blob_url"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// GeneratePDFJob is the Kafka message consumed by the worker. Payload carries
// the raw report JSON untouched so the pipeline can resolve its many shapes.
type GeneratePDFJob struct {
	ID      int             `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// ResultStatus values emitted on the results topic.
const (
	ResultSucceeded = "SUCCEEDED"
	ResultFailed    = "FAILED"
)

// DataverseRef tells the upstream Flow where to write the finished document.
type DataverseRef struct {
	Table      string `json:"table"`
	RowID      string `json:"rowId,omitempty"`
	FileColumn string `json:"fileColumn"`
	FileName   string `json:"fileName"`
}

// ResultSource wraps routing metadata carried from the job payload.
type ResultSource struct {
	Dataverse DataverseRef `json:"dataverse"`
}

// ResultPDF describes the persisted output blob.
type ResultPDF struct {
	ContainerName string `json:"containerName"`
	BlobName      string `json:"blobName"`
	BlobURL       string `json:"blobUrl"`
	SizeBytes     int    `json:"sizeBytes"`
}

// ResultImages reports how many photo assets made it into the document.
type ResultImages struct {
	Count int `json:"count"`
}

// Result is the completion/failure notification, one per job.
type Result struct {
	Version      int           `json:"version"`
	ReportID     string        `json:"reportId"`
	Status       string        `json:"status"`
	CreatedAtUTC time.Time     `json:"createdAtUtc"`
	Source       *ResultSource `json:"source,omitempty"`
	PDF          *ResultPDF    `json:"pdf,omitempty"`
	Images       *ResultImages `json:"images,omitempty"`
	Error        string        `json:"error,omitempty"`
}
