package jobs

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/brunocserra/extincor-pdf-function/internal/pipeline"
)

var (
	ErrInvalidJSON      = errors.New("invalid JSON payload")
	ErrMissingReportID  = errors.New("reportId or header.reportNumber is required")
	ErrMissingReportNil = errors.New("report data is required")
)

// ValidatePayload performs the intake-boundary checks for an HTTP-submitted
// report: parseable JSON, a non-empty body and a resolvable identifier.
// The queue path is more tolerant and synthesizes a fallback identifier,
// so only the API uses the strict form.
func ValidatePayload(payload []byte) error {
	if !gjson.ValidBytes(payload) {
		return ErrInvalidJSON
	}
	root := gjson.ParseBytes(payload)
	if !root.Get("data").IsObject() && (!root.IsObject() || len(root.Map()) == 0) {
		return ErrMissingReportNil
	}

	p, err := pipeline.ParsePayload(payload)
	if err != nil {
		return ErrInvalidJSON
	}
	if !p.HasReportID() {
		return ErrMissingReportID
	}
	return nil
}
