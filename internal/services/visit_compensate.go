package services

import (
	"context"
	"time"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

const (
	CompensateReasonFailedItem = "failed_item"
	CompensateReasonSuperseded = "superseded"

	compensationTimeout = 30 * time.Second
)

// ItemOutcome is what the compensator needs to know about a finished item.
type ItemOutcome struct {
	Index  int
	Failed bool
	Ledger *MediaLedger
	// PreviousMedia holds the stored URL lists of slots replaced by a
	// successful update.
	PreviousMedia map[domain.MediaSlot]*string
}

// Compensator removes blobs that no committed row points at.
type Compensator struct {
	log     *logger.Logger
	store   MediaStore
	metrics *observability.Metrics
}

func NewCompensator(baseLog *logger.Logger, store MediaStore, metrics *observability.Metrics) *Compensator {
	return &Compensator{
		log:     baseLog.With("service", "Compensator"),
		store:   store,
		metrics: metrics,
	}
}

// AfterItem deletes the item's new uploads when it failed, or the superseded
// uploads when an update replaced them. Delete errors are logged only.
// It returns the number of URLs it attempted to delete.
func (c *Compensator) AfterItem(ctx context.Context, outcome ItemOutcome) int {
	var urls []string
	reason := CompensateReasonFailedItem
	if outcome.Failed {
		urls = outcome.Ledger.URLs()
	} else {
		reason = CompensateReasonSuperseded
		for _, slot := range domain.MediaSlots {
			urls = append(urls, domain.SplitMediaURLs(outcome.PreviousMedia[slot])...)
		}
	}
	if len(urls) == 0 || c.store == nil {
		return 0
	}

	// The request may already be done; cleanup still runs to completion.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for _, url := range urls {
		if err := c.store.Delete(ctx, url); err != nil {
			c.metrics.IncCompensationDelete(reason, "error")
			c.log.Warn("CompensationError: media delete failed",
				"index", outcome.Index,
				"reason", reason,
				"url", url,
				"error", err,
			)
			continue
		}
		c.metrics.IncCompensationDelete(reason, "success")
	}
	c.log.Debug("Media compensation done", "index", outcome.Index, "reason", reason, "count", len(urls))
	return len(urls)
}
