package movement

import (
	"errors"
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

// Status represents the lifecycle of a movement order.
type Status string

const (
	StatusPlanned  Status = "planned"
	StatusWaiting  Status = "waiting"
	StatusMoving   Status = "moving"
	StatusDone     Status = "done"
	StatusCanceled Status = "canceled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPlanned, StatusWaiting, StatusMoving, StatusDone, StatusCanceled}

// IsOpen reports whether the order still holds its quantity.
func (s Status) IsOpen() bool {
	return s == StatusPlanned || s == StatusWaiting || s == StatusMoving
}

// CanInstruct checks if the order can be handed to the floor.
func (s Status) CanInstruct() bool {
	return s == StatusPlanned
}

// CanMarkPlanned checks if the order can be parked back in planned.
func (s Status) CanMarkPlanned() bool {
	return s == StatusPlanned || s == StatusWaiting
}

// CanStart checks if the move can begin.
func (s Status) CanStart() bool {
	return s == StatusWaiting
}

// CanComplete checks if the order can be finished.
func (s Status) CanComplete() bool {
	return s.IsOpen()
}

// CanCancel checks if the order can be canceled.
func (s Status) CanCancel() bool {
	return s.IsOpen()
}

// Order moves a quantity of one SKU between two locations.
type Order struct {
	ID           string
	Owner        string
	SKU          string
	Quantity     int
	From         inventory.Location
	To           inventory.Location
	Status       Status
	Note         string
	Manual       bool
	CreatedAt    time.Time
	InstructedAt *time.Time
	CompletedAt  *time.Time
}

// CreateRequest represents a request to plan a movement.
type CreateRequest struct {
	Owner    string `validate:"required"`
	SKU      string `validate:"required"`
	Quantity int    `validate:"gt=0"`
	From     string
	To       string `validate:"required"`
	Note     string
}

// Filter narrows order listings.
type Filter struct {
	Status Status
	SKU    string
	Owner  string
}

var (
	// ErrSameLocation indicates a move whose source and destination match.
	ErrSameLocation = errors.New("movement: source and destination must differ")
)
