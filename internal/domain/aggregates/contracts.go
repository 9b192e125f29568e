package aggregates

// Contract names an aggregate, the operations it reports under, and the
// tables one write transaction may touch.
type Contract struct {
	Name string
	// Root is the table whose row identifies the aggregate.
	Root string
	// Tables lists every table a write may touch, Root included.
	Tables []string

	UpsertOp string
	GetOp    string
}

// Aggregate is implemented by every aggregate so callers can read its contract.
type Aggregate interface {
	Contract() Contract
}

// Covers reports whether a write of this aggregate may touch table.
func (c Contract) Covers(table string) bool {
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}
