package b2b

import (
	"errors"
	"time"
)

// Status represents the lifecycle of a business return.
type Status string

const (
	StatusScheduled        Status = "scheduled"
	StatusWaiting          Status = "waiting"
	StatusReceiving        Status = "receiving"
	StatusConfirmed        Status = "confirmed"
	StatusPutawayScheduled Status = "putaway-scheduled"
	StatusPutaway          Status = "putaway"
	StatusPutawayDone      Status = "putaway-done"
	StatusCanceled         Status = "canceled"
)

// Statuses lists every status in lifecycle order, canceled last.
var Statuses = []Status{
	StatusScheduled, StatusWaiting, StatusReceiving, StatusConfirmed,
	StatusPutawayScheduled, StatusPutaway, StatusPutawayDone, StatusCanceled,
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusPutawayDone || s == StatusCanceled
}

// Received reports whether the returned stock has been posted inbound.
func (s Status) Received() bool {
	switch s {
	case StatusConfirmed, StatusPutawayScheduled, StatusPutaway, StatusPutawayDone:
		return true
	default:
		return false
	}
}

// Rank orders statuses along the forward sequence. Canceled ranks last.
func (s Status) Rank() int {
	for i, st := range Statuses {
		if s == st {
			return i
		}
	}
	return -1
}

// CanEditQuantity checks if the confirmed quantity may still be overridden.
func (s Status) CanEditQuantity() bool {
	return s == StatusWaiting || s == StatusReceiving
}

// Order is a return shipped back by a business customer.
type Order struct {
	ID            string
	Owner         string
	SourceName    string
	MovementRef   string
	SKU           string
	PlannedQty    int
	ConfirmedQty  int
	TransportType string
	Status        Status
	ScheduledDate time.Time
	CreatedAt     time.Time
	InstructedAt  *time.Time
	ConfirmedAt   *time.Time
	PutawayDoneAt *time.Time
}

// CreateRequest schedules an expected business return.
type CreateRequest struct {
	Owner         string `validate:"required"`
	SourceName    string `validate:"required"`
	MovementRef   string
	SKU           string `validate:"required"`
	PlannedQty    int    `validate:"gt=0"`
	TransportType string `validate:"omitempty,oneof=truck parcel pallet courier"`
	ScheduledDate time.Time
}

// Filter narrows order listings.
type Filter struct {
	Status Status
	SKU    string
	Owner  string
}

var (
	// ErrInvalidQuantity indicates a non-positive confirmed quantity.
	ErrInvalidQuantity = errors.New("b2b return: quantity must be greater than zero")
)
