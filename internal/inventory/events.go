package inventory

import "time"

// StockPostedEvent describes a quantity change that has been committed to the ledger.
type StockPostedEvent struct {
	TransactionID string
	SKU           string
	Kind          TransactionKind
	Delta         int
	OnHand        int
	SafetyStock   int
	Status        StockStatus
	PreviousState StockStatus
	PostedAt      time.Time
}

// BecameLow reports whether the posting moved the item into low stock.
func (e StockPostedEvent) BecameLow() bool {
	return e.Status == StatusLow && e.PreviousState != StatusLow
}
