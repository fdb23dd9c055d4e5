package inventory

import "context"

// PostingHandler receives committed stock postings, e.g. for replenishment alerts.
type PostingHandler interface {
	HandleStockPosted(ctx context.Context, evt StockPostedEvent) error
}

// ReservationSource reports quantity held by open records referencing a SKU.
type ReservationSource interface {
	ReservedQuantity(sku string) int
}
