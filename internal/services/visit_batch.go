package services

import (
	"context"
	"fmt"
	"sort"

	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/ctxutil"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeFailed  = "failed"
)

// VisitBatchService runs the bulk-upsert pipeline: normalize, then per item
// upload media, write the aggregate and compensate.
type VisitBatchService interface {
	// Process returns an error only when the batch cannot be normalized.
	Process(ctx context.Context, in BatchInput, files map[int]ItemFiles) (*BatchResults, error)
	Get(ctx context.Context, visitID uint) (*domainagg.VisitView, error)
}

type visitBatchService struct {
	log         *logger.Logger
	visits      domainagg.VisitAggregate
	uploader    *MediaUploader
	compensator *Compensator
	hooks       observability.PipelineHooks
}

func NewVisitBatchService(
	baseLog *logger.Logger,
	visits domainagg.VisitAggregate,
	uploader *MediaUploader,
	compensator *Compensator,
	hooks observability.PipelineHooks,
) VisitBatchService {
	if hooks == nil {
		hooks = observability.NopPipelineHooks()
	}
	return &visitBatchService{
		log:         baseLog.With("service", "VisitBatchService"),
		visits:      visits,
		uploader:    uploader,
		compensator: compensator,
		hooks:       hooks,
	}
}

func (s *visitBatchService) Process(ctx context.Context, in BatchInput, files map[int]ItemFiles) (*BatchResults, error) {
	if s == nil || s.visits == nil || s.uploader == nil || s.compensator == nil {
		return nil, fmt.Errorf("visit batch service not configured")
	}
	log := s.log.With(ctxutil.LogFields(ctx)...)

	items, err := NormalizeVisitBatch(in)
	if err != nil {
		log.Warn("Visit batch rejected", "shape", in.Shape, "error", err)
		return nil, err
	}
	if stray := strayFileIndexes(files, len(items)); len(stray) > 0 {
		log.Warn("Ignoring files for unknown batch items", "indexes", stray)
	}

	results := NewBatchResults()
	requestID := ctxutil.RequestID(ctx)
	for _, item := range items {
		outcome := s.processItem(ctx, log, item, files[item.Index], results, requestID)
		s.hooks.ItemDone(ctx, item.Index, outcome)
	}

	log.Info("Visit batch processed",
		"shape", in.Shape,
		"total", results.Total(),
		"created", len(results.Created),
		"updated", len(results.Updated),
		"failed", len(results.Failed),
	)
	return results, nil
}

func (s *visitBatchService) processItem(
	ctx context.Context,
	log *logger.Logger,
	item VisitItem,
	files ItemFiles,
	results *BatchResults,
	requestID string,
) string {
	if item.Err != nil {
		results.AddFailure(item, StageNormalized, item.Err, requestID)
		log.Warn("Visit item failed", "index", item.Index, "stage", StageNormalized, "error", item.Err)
		return OutcomeFailed
	}

	mediaCtx, endMedia := s.hooks.Stage(ctx, item.Index, StageMediaUploading)
	media, err := s.uploader.UploadItem(mediaCtx, item.Index, files)
	if err != nil {
		endMedia(StageMediaFailed, err)
		s.compensate(ctx, ItemOutcome{Index: item.Index, Failed: true, Ledger: media.Ledger})
		results.AddFailure(item, StageMediaFailed, err, requestID)
		log.Warn("Visit item failed", "index", item.Index, "stage", StageMediaFailed, "error", err)
		return OutcomeFailed
	}
	endMedia(StageMediaUploaded, nil)

	input := item.Input
	if len(media.Slots) > 0 {
		input.Media = media.Slots
	}

	txCtx, endTx := s.hooks.Stage(ctx, item.Index, StageTransacting)
	res, err := s.visits.Upsert(txCtx, input)
	if err != nil {
		endTx(StageTransactionFailed, err)
		s.compensate(ctx, ItemOutcome{Index: item.Index, Failed: true, Ledger: media.Ledger})
		results.AddFailure(item, StageTransactionFailed, err, requestID)
		log.Warn("Visit item failed",
			"index", item.Index,
			"stage", StageTransactionFailed,
			"code", domainagg.CodeOf(err),
			"path", domainagg.PathOf(err),
			"error", err,
		)
		return OutcomeFailed
	}
	endTx(StageCommitted, nil)

	s.compensate(ctx, ItemOutcome{Index: item.Index, PreviousMedia: res.PreviousMedia})
	results.AddSuccess(item.Index, res.Created, res.View)

	outcome := OutcomeUpdated
	if res.Created {
		outcome = OutcomeCreated
	}
	visitID := uint(0)
	if res.View != nil {
		visitID = res.View.VisitID
	}
	log.Debug("Visit item committed", "index", item.Index, "visit_id", visitID, "outcome", outcome)
	return outcome
}

func (s *visitBatchService) compensate(ctx context.Context, outcome ItemOutcome) {
	cctx, end := s.hooks.Stage(ctx, outcome.Index, StageCompensating)
	status := "noop"
	if s.compensator.AfterItem(cctx, outcome) > 0 {
		status = "done"
	}
	end(status, nil)
}

func (s *visitBatchService) Get(ctx context.Context, visitID uint) (*domainagg.VisitView, error) {
	if s == nil || s.visits == nil {
		return nil, fmt.Errorf("visit batch service not configured")
	}
	return s.visits.Get(ctx, visitID)
}

func strayFileIndexes(files map[int]ItemFiles, n int) []int {
	var out []int
	for idx := range files {
		if idx < 0 || idx >= n {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}
