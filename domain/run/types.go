package run

import (
	"time"
)

// Outcome is one observed test execution, as recorded by the storage layer.
// Failed is true when any failure stage was recorded for the run.
type Outcome struct {
	EntityID string    `json:"entity_id" db:"entity"`
	Snapshot time.Time `json:"snapshot" db:"snapshot"`
	Failed   bool      `json:"failed" db:"failed"`
}

// Span holds the first and last observed event timestamps for one entity.
type Span struct {
	EntityID   string    `json:"entity_id" db:"entity"`
	FirstEvent time.Time `json:"first_event" db:"first_event"`
	LastEvent  time.Time `json:"last_event" db:"last_event"`
}
