package b2c

import (
	"errors"
	"time"
)

// Status represents the lifecycle of a consumer return.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusConfirmed Status = "confirmed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusWaiting, StatusConfirmed}

// CanConfirm checks if the return can be received.
func (s Status) CanConfirm() bool {
	return s == StatusWaiting
}

// Order is a parcel returned by an end customer.
type Order struct {
	ID             string
	Owner          string
	SalesOrderRef  string
	TrackingNumber string
	Recipient      string
	SKU            string
	Quantity       int
	Status         Status
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// CreateRequest registers an expected return.
type CreateRequest struct {
	Owner          string `validate:"required"`
	SalesOrderRef  string `validate:"required"`
	TrackingNumber string `validate:"required"`
	Recipient      string
	SKU            string `validate:"required"`
	Quantity       int    `validate:"gt=0"`
}

// Filter narrows order listings.
type Filter struct {
	Status Status
	SKU    string
	Owner  string
}

var (
	// ErrInvalidQuantity indicates a non-positive confirmed quantity.
	ErrInvalidQuantity = errors.New("b2c return: quantity must be greater than zero")
	// ErrNoFocusedOrder is returned when confirming a scan session without a loaded order.
	ErrNoFocusedOrder = errors.New("b2c return: no order loaded")
	// ErrDuplicateTracking indicates a tracking number already in use.
	ErrDuplicateTracking = errors.New("b2c return: tracking number already registered")
)
