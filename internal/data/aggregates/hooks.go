package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/fieldsales-backend/internal/observability"
)

// Identifier kinds reported through Hooks.IncIdentifierCollision.
const (
	IdentifierPaymentNumber = "payment_number"
	IdentifierCoolerCode    = "cooler_code"
)

// Hooks receives the visit aggregate's write signals.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	// IncIdentifierCollision fires each time a generated number or code
	// loses the unique-index race and is regenerated.
	IncIdentifierCollision(kind string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) IncIdentifierCollision(string)                  {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks exports aggregate signals as Prometheus series.
// A nil metrics set yields hooks that drop everything.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{metrics: metrics}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h metricsHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h metricsHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}

func (h metricsHooks) IncIdentifierCollision(kind string) {
	h.metrics.IncIdentifierCollision(kind)
}
