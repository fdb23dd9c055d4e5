package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/demo"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

type printer struct {
	w     io.Writer
	title cases.Caser
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, title: cases.Title(language.English)}
}

// label turns identifiers such as "putaway-scheduled" into "Putaway Scheduled".
func (p *printer) label(s string) string {
	return p.title.String(strings.NewReplacer("-", " ", "_", " ").Replace(s))
}

func (p *printer) section(name string) {
	fmt.Fprintf(p.w, "\n== %s ==\n", name)
}

func (p *printer) table(fn func(tw *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fn(tw)
	tw.Flush()
}

func (p *printer) steps(report demo.Report) {
	p.section("Scenario")
	p.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "WORKFLOW\tCOMMAND\tAPPLIED\tSKIPPED\tMISSING\tDETAIL")
		for _, s := range report.Steps {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
				p.label(s.Workflow), p.label(s.Command),
				len(s.Result.Applied()), len(s.Result.Skipped()), len(s.Result.Missing()), s.Detail)
		}
	})
}

func (p *printer) items(ctx context.Context, rt *app.Runtime) error {
	items, err := rt.Ledger.Items(ctx, inventory.ItemFilter{})
	if err != nil {
		return err
	}
	p.section("Stock")
	p.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "SKU\tNAME\tLOCATION\tSTATUS\tON HAND\tRESERVED\tAVAILABLE")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
				it.SKU, it.Name, it.Location, p.label(string(it.Status)), it.OnHand,
				rt.Ledger.ReservedQuantity(it.SKU), rt.Ledger.AvailableQuantity(ctx, it.SKU))
		}
	})
	return nil
}

func (p *printer) counts(rt *app.Runtime) {
	p.section("Orders by status")
	p.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "WORKFLOW\tSTATUS\tCOUNT")
		row := func(workflow string, counts map[string]int) {
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", p.label(workflow), p.label(k), counts[k])
			}
		}
		row("movement", stringKeys(rt.Movement.Counts()))
		row("b2b_return", stringKeys(rt.B2B.Counts()))
		row("b2c_return", stringKeys(rt.B2C.Counts()))
		row("dispatch", stringKeys(rt.Dispatch.Counts()))
	})
}

func (p *printer) journal(ctx context.Context, rt *app.Runtime) error {
	entries, err := rt.Ledger.Transactions(ctx, inventory.TransactionFilter{})
	if err != nil {
		return err
	}
	p.section("Transaction journal")
	p.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tSKU\tKIND\tDELTA\tLOT\tLOCATION\tREFERENCE\tREASON")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%+d\t%s\t%s\t%s\t%s\n",
				e.ID, e.SKU, p.label(string(e.Kind)), e.Delta, e.LotNumber, e.Location, e.Reference, e.Reason)
		}
	})
	return nil
}

func (p *printer) metrics(rt *app.Runtime) error {
	totals, err := rt.Metrics.Totals()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	p.section("Counters")
	p.table(func(tw *tabwriter.Writer) {
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%g\n", name, totals[name])
		}
	})
	return nil
}

func stringKeys[K ~string](m map[K]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
