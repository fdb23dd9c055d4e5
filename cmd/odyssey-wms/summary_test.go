package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/demo"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

func TestLabel(t *testing.T) {
	p := newPrinter(&bytes.Buffer{})
	assert.Equal(t, "Putaway Scheduled", p.label("putaway-scheduled"))
	assert.Equal(t, "Mark Planned", p.label("mark_planned"))
	assert.Equal(t, "Low", p.label("low"))
}

func TestSummaryPrintsEverySection(t *testing.T) {
	ctx := context.Background()
	rt := app.NewRuntime(&app.Config{}, nil, app.Options{Clock: shared.FixedClock{At: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)}})
	seeded, err := demo.Seed(ctx, rt)
	require.NoError(t, err)
	report, err := demo.Run(ctx, rt, seeded)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := newPrinter(&buf)
	p.steps(report)
	require.NoError(t, p.items(ctx, rt))
	p.counts(rt)
	require.NoError(t, p.journal(ctx, rt))
	require.NoError(t, p.metrics(rt))

	out := buf.String()
	for _, want := range []string{"== Scenario ==", "== Stock ==", "== Orders by status ==", "== Transaction journal ==", "odyssey_wms_transitions_total", "Putaway Done", "L1"} {
		assert.Contains(t, out, want)
	}
}
