// Package domain holds the persisted field-visit aggregate: a visit and the
// orders, payments, cooler inspections and survey responses captured with it.
package domain

// MediaSlot names one of the three image lists stored on a visit.
type MediaSlot string

const (
	MediaSlotSelf     MediaSlot = "self_images"
	MediaSlotCustomer MediaSlot = "customer_images"
	MediaSlotCooler   MediaSlot = "cooler_images"
)

// MediaSlots lists every slot in a stable order.
var MediaSlots = []MediaSlot{MediaSlotSelf, MediaSlotCustomer, MediaSlotCooler}

// AllModels is the migration set, parents before children.
func AllModels() []interface{} {
	return []interface{}{
		&Visit{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Cooler{},
		&CoolerInspection{},
		&SurveyResponse{},
		&SurveyAnswer{},
	}
}
