package b2c

import (
	"context"
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// ScanKind classifies how a scanned code was interpreted.
type ScanKind string

const (
	// ScanLoaded means the code identified a return which is now in focus.
	ScanLoaded ScanKind = "loaded"
	// ScanMatched means the code equals the focused return's SKU and was counted.
	ScanMatched ScanKind = "matched"
	// ScanMismatch means an order is in focus and the code is not its SKU.
	ScanMismatch ScanKind = "mismatch"
	// ScanUnknown means no order is in focus and the code identifies none.
	ScanUnknown ScanKind = "unknown"
	// ScanAlreadyConfirmed means the code identifies a return that was already received.
	ScanAlreadyConfirmed ScanKind = "already-confirmed"
	// ScanRepeated means the focused return's own tracking or sales-order code was scanned again.
	ScanRepeated ScanKind = "repeated"
)

// ScanResult reports the interpretation of one scan.
type ScanResult struct {
	Kind    ScanKind
	Code    string
	OrderID string
	// Count is the number of units of the focused SKU scanned so far.
	Count int
}

// ScanSession reconciles barcode scans of a returned parcel against the
// expected return. A session serves one operator and is not safe for
// concurrent use.
type ScanSession struct {
	svc     *Service
	focus   *Order
	scanned map[string]int
	history []ScanResult
}

// NewScanSession starts an empty session over svc.
func NewScanSession(svc *Service) *ScanSession {
	return &ScanSession{svc: svc, scanned: make(map[string]int)}
}

// Scan interprets code. The first recognised tracking or sales-order code
// loads the return; each later scan must be the loaded return's SKU.
func (s *ScanSession) Scan(code string) ScanResult {
	code = strings.TrimSpace(code)
	res := s.scan(code)
	s.history = append(s.history, res)
	return res
}

func (s *ScanSession) scan(code string) ScanResult {
	if s.focus == nil {
		o, ok := s.svc.FindByCode(code)
		if !ok {
			return ScanResult{Kind: ScanUnknown, Code: code}
		}
		if !o.Status.CanConfirm() {
			return ScanResult{Kind: ScanAlreadyConfirmed, Code: code, OrderID: o.ID}
		}
		s.focus = &o
		return ScanResult{Kind: ScanLoaded, Code: code, OrderID: o.ID}
	}
	if strings.EqualFold(code, s.focus.TrackingNumber) || strings.EqualFold(code, s.focus.SalesOrderRef) {
		return ScanResult{Kind: ScanRepeated, Code: code, OrderID: s.focus.ID, Count: s.scanned[s.focus.SKU]}
	}
	if !strings.EqualFold(code, s.focus.SKU) {
		return ScanResult{Kind: ScanMismatch, Code: code, OrderID: s.focus.ID, Count: s.scanned[s.focus.SKU]}
	}
	s.scanned[s.focus.SKU]++
	return ScanResult{Kind: ScanMatched, Code: code, OrderID: s.focus.ID, Count: s.scanned[s.focus.SKU]}
}

// Focused returns the loaded return, if any.
func (s *ScanSession) Focused() (Order, bool) {
	if s.focus == nil {
		return Order{}, false
	}
	return *s.focus, true
}

// Scanned returns the accumulated unit count per SKU.
func (s *ScanSession) Scanned() map[string]int {
	out := make(map[string]int, len(s.scanned))
	for k, v := range s.scanned {
		out[k] = v
	}
	return out
}

// History returns every scan result of the session in order.
func (s *ScanSession) History() []ScanResult {
	out := make([]ScanResult, len(s.history))
	copy(out, s.history)
	return out
}

// ProposedQuantity is the scanned count of the focused SKU, or the expected
// quantity when no unit has been scanned yet.
func (s *ScanSession) ProposedQuantity() int {
	if s.focus == nil {
		return 0
	}
	if n := s.scanned[s.focus.SKU]; n > 0 {
		return n
	}
	return s.focus.Quantity
}

// Confirm receives the focused return with the proposed quantity and resets
// the session once the confirmation is applied.
func (s *ScanSession) Confirm(ctx context.Context) (shared.Outcome, error) {
	if s.focus == nil {
		return "", ErrNoFocusedOrder
	}
	qty := s.ProposedQuantity()
	outcome, err := s.svc.Confirm(ctx, s.focus.ID, &qty)
	if err != nil {
		return outcome, err
	}
	if outcome == shared.OutcomeApplied {
		s.Reset()
	}
	return outcome, nil
}

// Reset clears the focus and the scan buffer.
func (s *ScanSession) Reset() {
	s.focus = nil
	s.scanned = make(map[string]int)
	s.history = nil
}
