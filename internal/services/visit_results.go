package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
)

// Item stages. Failures report the stage they stopped in.
const (
	StageNormalized        = "normalized"
	StageMediaUploading    = "media_uploading"
	StageMediaFailed       = "media_failed"
	StageMediaUploaded     = "media_uploaded"
	StageTransacting       = "transacting"
	StageTransactionFailed = "transaction_failed"
	StageCommitted         = "committed"
	StageCompensating      = "compensating"
	StageReported          = "reported"
)

type SuccessEntry struct {
	Index int `json:"index"`
	*domainagg.VisitView
}

type FailureEntry struct {
	Index     int             `json:"index"`
	Input     json.RawMessage `json:"input"`
	Error     string          `json:"error"`
	Code      string          `json:"code"`
	Stage     string          `json:"stage"`
	Path      string          `json:"path,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// BatchResults collects per-item outcomes in input order.
type BatchResults struct {
	Created []SuccessEntry
	Updated []SuccessEntry
	Failed  []FailureEntry
}

func NewBatchResults() *BatchResults {
	return &BatchResults{
		Created: []SuccessEntry{},
		Updated: []SuccessEntry{},
		Failed:  []FailureEntry{},
	}
}

func (r *BatchResults) AddSuccess(index int, created bool, view *domainagg.VisitView) {
	entry := SuccessEntry{Index: index, VisitView: view}
	if created {
		r.Created = append(r.Created, entry)
		return
	}
	r.Updated = append(r.Updated, entry)
}

// AddFailure records err against item. Input echoes the raw item so the
// caller can fix and resend just that one.
func (r *BatchResults) AddFailure(item VisitItem, stage string, err error, requestID string) {
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	input := item.Raw
	if len(input) == 0 || !json.Valid(input) {
		input = json.RawMessage("null")
	}
	r.Failed = append(r.Failed, FailureEntry{
		Index:     item.Index,
		Input:     input,
		Error:     domainagg.MessageOf(err),
		Code:      string(code),
		Stage:     stage,
		Path:      domainagg.PathOf(err),
		RequestID: requestID,
	})
}

func (r *BatchResults) Total() int {
	return len(r.Created) + len(r.Updated) + len(r.Failed)
}

// Status is 400 when every item failed, 207 when some did, 201 when at least
// one visit was created and 200 otherwise.
func (r *BatchResults) Status() int {
	switch {
	case len(r.Failed) > 0 && len(r.Failed) == r.Total():
		return http.StatusBadRequest
	case len(r.Failed) > 0:
		return http.StatusMultiStatus
	case len(r.Created) > 0:
		return http.StatusCreated
	default:
		return http.StatusOK
	}
}

type BatchSummary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type BatchResultLists struct {
	Created []SuccessEntry `json:"created"`
	Updated []SuccessEntry `json:"updated"`
	Failed  []FailureEntry `json:"failed"`
}

type BatchResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Summary BatchSummary     `json:"summary"`
	Results BatchResultLists `json:"results"`
}

func (r *BatchResults) Response() BatchResponse {
	summary := BatchSummary{
		Total:   r.Total(),
		Created: len(r.Created),
		Updated: len(r.Updated),
		Failed:  len(r.Failed),
	}
	var msg string
	switch {
	case summary.Failed == 0:
		msg = fmt.Sprintf("Processed %d visits", summary.Total)
	case summary.Failed == summary.Total:
		msg = fmt.Sprintf("All %d visits failed", summary.Total)
	default:
		msg = fmt.Sprintf("Processed %d visits with %d failures", summary.Total, summary.Failed)
	}
	return BatchResponse{
		Success: summary.Failed == 0,
		Message: msg,
		Summary: summary,
		Results: BatchResultLists{
			Created: r.Created,
			Updated: r.Updated,
			Failed:  r.Failed,
		},
	}
}
