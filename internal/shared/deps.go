package shared

import (
	"log/slog"

	"github.com/odyssey-erp/odyssey-wms/internal/observability"
)

// Deps bundles the collaborators every service is constructed with.
type Deps struct {
	IDs       IDIssuer
	Clock     Clock
	Logger    *slog.Logger
	Audit     AuditPort
	Validator *Validator
	Metrics   *observability.Metrics
}

// WithDefaults fills unset collaborators. Audit and Metrics stay optional.
func (d Deps) WithDefaults() Deps {
	if d.IDs == nil {
		d.IDs = NewSequenceIssuer()
	}
	d.Clock = ClockOrSystem(d.Clock)
	d.Logger = LoggerOrDiscard(d.Logger)
	if d.Validator == nil {
		d.Validator = NewValidator()
	}
	return d
}
