package dispatch

import (
	"errors"
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

// Status of a dispatch record.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Statuses lists every dispatch status.
var Statuses = []Status{StatusCompleted, StatusCanceled}

// CanCancel checks if the dispatch can be canceled.
func (s Status) CanCancel() bool {
	return s == StatusCompleted
}

// Order is a completed stock dispatch. Posted is the quantity actually taken
// off hand, which the ledger may have floored below Quantity.
type Order struct {
	ID           string
	Owner        string
	SKU          string
	Quantity     int
	Location     inventory.Location
	CompletedOn  time.Time
	Status       Status
	AllocationID string
	Posted       int
	Picks        []inventory.Pick
	Note         string
	CreatedAt    time.Time
	CanceledAt   *time.Time
}

// AllocationStatus tracks an allocation awaiting shipment.
type AllocationStatus string

const (
	AllocationOpen     AllocationStatus = "open"
	AllocationReleased AllocationStatus = "released"
	AllocationShipped  AllocationStatus = "shipped"
)

// IsOpen reports whether the allocation still holds stock.
func (s AllocationStatus) IsOpen() bool {
	return s == AllocationOpen
}

// Allocation earmarks stock for a later dispatch.
type Allocation struct {
	ID         string
	Owner      string
	SKU        string
	Quantity   int
	Status     AllocationStatus
	DispatchID string
	Note       string
	CreatedAt  time.Time
	ClosedAt   *time.Time
}

// CreateRequest describes one dispatch. Location defaults to the item's
// current location and Date to today.
type CreateRequest struct {
	Owner    string `validate:"required"`
	SKU      string `validate:"required"`
	Quantity int    `validate:"gt=0"`
	Location string
	Date     time.Time
	Note     string
}

// AllocateRequest reserves stock for a later shipment.
type AllocateRequest struct {
	Owner    string `validate:"required"`
	SKU      string `validate:"required"`
	Quantity int    `validate:"gt=0"`
	Note     string
}

// Filter narrows dispatch listings.
type Filter struct {
	Status Status
	SKU    string
	Owner  string
	From   time.Time
	To     time.Time
}

var (
	// ErrInsufficientStock indicates the request exceeds available quantity.
	ErrInsufficientStock = errors.New("dispatch: insufficient available stock")
	// ErrEmptyBatch indicates a bulk dispatch without lines.
	ErrEmptyBatch = errors.New("dispatch: no lines")
)
