package domain

import "time"

// OrderStateHistory is an append-only row describing one state transition.
// Rows are never updated or deleted.
type OrderStateHistory struct {
	ID            int64
	FileID        *string
	OrderID       *string
	DistributorID *int
	PreviousState *string
	CurrentState  string
	SourceService string
	EventTime     time.Time
}
