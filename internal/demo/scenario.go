package demo

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/dispatch"
	"github.com/odyssey-erp/odyssey-wms/internal/returns/b2c"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Step is one command of the scripted scenario.
type Step struct {
	Workflow string
	Command  string
	Result   shared.BatchResult
	Detail   string
}

// Report lists the steps of a scenario run in order.
type Report struct {
	Steps []Step
}

func (r *Report) add(workflow, command string, res shared.BatchResult, detail string) {
	r.Steps = append(r.Steps, Step{Workflow: workflow, Command: command, Result: res, Detail: detail})
}

// Run drives the seeded records through a typical working day: a movement
// is completed, a business return is received and put away, a parcel return
// is scanned and confirmed, the open allocation ships with FEFO picks and a
// direct dispatch is recorded.
func Run(ctx context.Context, rt *app.Runtime, seeded Seeded) (Report, error) {
	var report Report
	if len(seeded.Movements) < 2 || len(seeded.B2BReturns) == 0 || len(seeded.B2CReturns) == 0 || len(seeded.Allocations) == 0 {
		return report, fmt.Errorf("demo: scenario needs seeded records: %w", shared.ErrInvalidRequest)
	}

	move := seeded.Movements[:1]
	report.add("movement", "instruct", rt.Movement.Instruct(ctx, move), "")
	report.add("movement", "start", rt.Movement.Start(ctx, move), "")
	res, err := rt.Movement.Complete(ctx, move)
	if err != nil {
		return report, err
	}
	report.add("movement", "complete", res, "")
	report.add("movement", "mark_planned", rt.Movement.MarkPlanned(ctx, seeded.Movements[1:2]), "")

	ret := seeded.B2BReturns[:1]
	report.add("b2b_return", "start_receiving", rt.B2B.StartReceiving(ctx, ret), "scheduled returns are not received yet")
	report.add("b2b_return", "issue_instructions", rt.B2B.IssueInstructions(ctx, ret), "")
	report.add("b2b_return", "start_receiving", rt.B2B.StartReceiving(ctx, ret), "")
	outcome, err := rt.B2B.SetConfirmedQuantity(ctx, ret[0], 22)
	if err != nil {
		return report, err
	}
	report.add("b2b_return", "set_quantity", single(ret[0], outcome), "2 units damaged in transit")
	if res, err = rt.B2B.ConfirmReceiving(ctx, ret); err != nil {
		return report, err
	}
	report.add("b2b_return", "confirm_receiving", res, "")
	report.add("b2b_return", "start_putaway", rt.B2B.StartPutaway(ctx, ret), "")
	report.add("b2b_return", "start_putaway", rt.B2B.StartPutaway(ctx, ret), "")
	report.add("b2b_return", "complete_putaway", rt.B2B.CompletePutaway(ctx, ret), "")

	parcel := seeded.B2CReturns[0]
	session := b2c.NewScanSession(rt.B2C)
	scans := []string{parcel.SalesOrderRef, parcel.SKU, parcel.SKU, "SKU-B"}
	kinds := make([]string, 0, len(scans))
	for _, code := range scans {
		kinds = append(kinds, string(session.Scan(code).Kind))
	}
	outcome, err = session.Confirm(ctx)
	if err != nil {
		return report, err
	}
	report.add("b2c_return", "confirm", single(parcel.ID, outcome), "scans: "+strings.Join(kinds, ", "))

	if res, err = rt.Dispatch.Ship(ctx, seeded.Allocations); err != nil {
		return report, err
	}
	detail := ""
	for _, a := range rt.Dispatch.Allocations(dispatch.AllocationShipped) {
		o, err := rt.Dispatch.Get(a.DispatchID)
		if err != nil {
			return report, err
		}
		detail += describePicks(o)
	}
	report.add("dispatch", "ship", res, detail)

	o, err := rt.Dispatch.CreateDispatch(ctx, dispatch.CreateRequest{Owner: owner, SKU: "SKU-D", Quantity: 5, Note: "sample kits"})
	if err != nil {
		return report, err
	}
	report.add("dispatch", "create", single(o.ID, shared.OutcomeApplied), "")
	return report, nil
}

func single(id string, outcome shared.Outcome) shared.BatchResult {
	var res shared.BatchResult
	res.Add(id, outcome)
	return res
}

func describePicks(o dispatch.Order) string {
	parts := make([]string, 0, len(o.Picks))
	for _, p := range o.Picks {
		parts = append(parts, fmt.Sprintf("%s x%d", p.LotNumber, p.Quantity))
	}
	return fmt.Sprintf("%s picks %s", o.ID, strings.Join(parts, ", "))
}
