package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TransactionKind enumerates supported ledger movements.
type TransactionKind string

const (
	// KindInbound represents received stock.
	KindInbound TransactionKind = "inbound"
	// KindOutbound represents shipped stock.
	KindOutbound TransactionKind = "outbound"
	// KindRelocation records a location change without quantity change.
	KindRelocation TransactionKind = "relocation"
	// KindAdjustment indicates manual or compensating corrections.
	KindAdjustment TransactionKind = "adjustment"
	// KindAllocation records lot quantity consumed by FEFO allocation.
	KindAllocation TransactionKind = "allocation"
)

// IsValid reports whether k is a known kind.
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindInbound, KindOutbound, KindRelocation, KindAdjustment, KindAllocation:
		return true
	default:
		return false
	}
}

// StockStatus tags an item for display and replenishment.
type StockStatus string

const (
	StatusNormal StockStatus = "normal"
	StatusLow    StockStatus = "low"
	StatusDefect StockStatus = "defect"
)

// UnderflowPolicy decides what Adjust does when on-hand would go negative.
type UnderflowPolicy string

const (
	// UnderflowClamp floors the resulting quantity at zero.
	UnderflowClamp UnderflowPolicy = "clamp"
	// UnderflowReject refuses the adjustment with ErrNegativeStock.
	UnderflowReject UnderflowPolicy = "reject"
)

// IsValid reports whether p is a known policy.
func (p UnderflowPolicy) IsValid() bool {
	return p == UnderflowClamp || p == UnderflowReject
}

// Location is a zone/rack/bin storage address.
type Location struct {
	Zone string
	Rack string
	Bin  string
}

// String renders the location as ZONE-RACK-BIN.
func (l Location) String() string {
	if l.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", l.Zone, l.Rack, l.Bin)
}

// IsZero reports whether no part of the address is set.
func (l Location) IsZero() bool {
	return l.Zone == "" && l.Rack == "" && l.Bin == ""
}

// ParseLocation parses ZONE-RACK-BIN, e.g. "B-02-01".
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
	}
	for _, p := range parts {
		if p == "" {
			return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
		}
	}
	return Location{Zone: parts[0], Rack: parts[1], Bin: parts[2]}, nil
}

// MustParseLocation is ParseLocation for literals; it panics on malformed input.
func MustParseLocation(s string) Location {
	loc, err := ParseLocation(s)
	if err != nil {
		panic(err)
	}
	return loc
}

// Item is the per-SKU stock record.
type Item struct {
	SKU         string
	Name        string
	Location    Location
	Status      StockStatus
	SafetyStock int
	OnHand      int
}

func (i *Item) refreshStatus() {
	if i.Status == StatusDefect {
		return
	}
	if i.OnHand < i.SafetyStock {
		i.Status = StatusLow
		return
	}
	i.Status = StatusNormal
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID   string
	SKU  string
	Kind TransactionKind
	// Delta is the quantity change actually applied.
	Delta int
	// Requested is the delta the caller asked for; differs from Delta when clamped.
	Requested int
	LotNumber string
	Location  Location
	Reason    string
	Reference string
	At        time.Time
}

// Lot is a quantity-bearing batch of a SKU with its own expiry.
type Lot struct {
	ID          string
	SKU         string
	LotNumber   string
	BatchNumber string
	Expiry      time.Time
	Remaining   int
	Location    Location
	seq         int
}

// Pick is the quantity taken from one lot by an allocation.
type Pick struct {
	LotID     string
	LotNumber string
	Expiry    time.Time
	Quantity  int
}

// Allocation is the result of a FEFO allocation call.
type Allocation struct {
	SKU       string
	Picks     []Pick
	Requested int
	Picked    int
	Shortfall int
}

// RegisterItemRequest seeds a catalog item.
type RegisterItemRequest struct {
	SKU         string `validate:"required"`
	Name        string
	Location    string `validate:"required"`
	SafetyStock int    `validate:"gte=0"`
	OnHand      int    `validate:"gte=0"`
	Defect      bool
}

// RegisterLotRequest registers a new lot.
type RegisterLotRequest struct {
	SKU         string `validate:"required"`
	LotNumber   string `validate:"required"`
	BatchNumber string
	Expiry      time.Time `validate:"required"`
	Quantity    int       `validate:"gte=0"`
	Location    string
}

// AdjustInput describes a quantity change.
type AdjustInput struct {
	SKU       string
	Delta     int
	Kind      TransactionKind
	Reason    string
	Reference string
}

// RelocationInput describes a location overwrite.
type RelocationInput struct {
	SKU       string
	To        Location
	Reason    string
	Reference string
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Status StockStatus
	Zone   string
	Search string
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	SKU       string
	Kind      TransactionKind
	Reference string
}

var (
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")
	// ErrInvalidKind indicates an unknown transaction kind.
	ErrInvalidKind = errors.New("inventory: unknown transaction kind")
	// ErrInvalidLocation indicates a malformed location string.
	ErrInvalidLocation = errors.New("inventory: location must be ZONE-RACK-BIN")
	// ErrDuplicateSKU is returned when registering an existing SKU.
	ErrDuplicateSKU = errors.New("inventory: sku already registered")
	// ErrDuplicateLot is returned when registering an existing lot number for a SKU.
	ErrDuplicateLot = errors.New("inventory: lot already registered")
)
