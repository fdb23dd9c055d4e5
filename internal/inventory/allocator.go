package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// LotAllocator registers lots and consumes them first-expire-first-out.
type LotAllocator struct {
	repo RepositoryPort
	deps shared.Deps
}

// NewLotAllocator builds LotAllocator over the same repository as the ledger.
func NewLotAllocator(repo RepositoryPort, deps shared.Deps) *LotAllocator {
	return &LotAllocator{repo: repo, deps: deps.WithDefaults()}
}

// RegisterLot creates a lot record. Lots are tracked apart from on-hand quantity.
func (a *LotAllocator) RegisterLot(ctx context.Context, req RegisterLotRequest) (Lot, error) {
	if err := a.deps.Validator.Struct(req); err != nil {
		return Lot{}, fmt.Errorf("inventory: register lot: %w", err)
	}
	var loc Location
	if req.Location != "" {
		parsed, err := ParseLocation(req.Location)
		if err != nil {
			return Lot{}, err
		}
		loc = parsed
	}
	lot := Lot{
		ID:          a.deps.IDs.NewID("LOT"),
		SKU:         req.SKU,
		LotNumber:   req.LotNumber,
		BatchNumber: req.BatchNumber,
		Expiry:      req.Expiry,
		Remaining:   req.Quantity,
		Location:    loc,
	}
	err := a.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.FindLot(ctx, req.SKU, req.LotNumber); err == nil {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateLot, req.SKU, req.LotNumber)
		} else if !errors.Is(err, ErrLotNotFound) {
			return err
		}
		return tx.PutLot(ctx, lot)
	})
	if err != nil {
		return Lot{}, err
	}
	return lot, nil
}

// AllocateFEFO picks up to qty units of sku from lots with stock, earliest
// expiry first; lots sharing an expiry keep registration order. All picks are
// committed together. Demand beyond supply yields a short allocation, never an
// error. Every call consumes stock.
func (a *LotAllocator) AllocateFEFO(ctx context.Context, sku string, qty int) (Allocation, error) {
	return a.allocate(ctx, sku, qty, "")
}

// AllocateFEFOFor is AllocateFEFO with the originating record recorded on each entry.
func (a *LotAllocator) AllocateFEFOFor(ctx context.Context, sku string, qty int, reference string) (Allocation, error) {
	return a.allocate(ctx, sku, qty, reference)
}

func (a *LotAllocator) allocate(ctx context.Context, sku string, qty int, reference string) (Allocation, error) {
	result := Allocation{SKU: sku, Requested: qty, Picks: []Pick{}}
	if qty <= 0 {
		return result, nil
	}
	err := a.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lots, err := tx.ListLots(ctx, sku)
		if err != nil {
			return err
		}
		candidates := make([]Lot, 0, len(lots))
		for _, lot := range lots {
			if lot.Remaining > 0 {
				candidates = append(candidates, lot)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Expiry.Before(candidates[j].Expiry)
		})

		need := qty
		now := a.deps.Clock.Now()
		for _, lot := range candidates {
			if need == 0 {
				break
			}
			pick := min(lot.Remaining, need)
			need -= pick
			lot.Remaining -= pick
			if err := tx.PutLot(ctx, lot); err != nil {
				return err
			}
			entry := Transaction{
				ID:        a.deps.IDs.NewID("TX"),
				SKU:       sku,
				Kind:      KindAllocation,
				Delta:     -pick,
				Requested: -pick,
				LotNumber: lot.LotNumber,
				Location:  lot.Location,
				Reason:    "fefo allocation",
				Reference: reference,
				At:        now,
			}
			if err := tx.InsertTransaction(ctx, entry); err != nil {
				return err
			}
			result.Picks = append(result.Picks, Pick{
				LotID:     lot.ID,
				LotNumber: lot.LotNumber,
				Expiry:    lot.Expiry,
				Quantity:  pick,
			})
			result.Picked += pick
		}
		result.Shortfall = qty - result.Picked
		return nil
	})
	if err != nil {
		return Allocation{SKU: sku, Requested: qty, Picks: []Pick{}}, err
	}
	for _, pick := range result.Picks {
		a.deps.Metrics.ObservePosting(string(KindAllocation), pick.Quantity)
	}
	a.deps.Metrics.ObserveShortfall(result.Shortfall)
	if result.Shortfall > 0 {
		a.deps.Logger.Info("fefo allocation short",
			slog.String("sku", sku),
			slog.Int("requested", qty),
			slog.Int("picked", result.Picked))
	}
	return result, nil
}

// Lots lists the lots of sku in registration order, including empty ones.
func (a *LotAllocator) Lots(ctx context.Context, sku string) ([]Lot, error) {
	return a.repo.ListLots(ctx, sku)
}

// Lot returns a lot by ID.
func (a *LotAllocator) Lot(ctx context.Context, id string) (Lot, error) {
	return a.repo.GetLot(ctx, id)
}

// LotSupply sums the remaining quantity across the lots of sku.
func (a *LotAllocator) LotSupply(ctx context.Context, sku string) (int, error) {
	lots, err := a.repo.ListLots(ctx, sku)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, lot := range lots {
		total += lot.Remaining
	}
	return total, nil
}
