package shared

// Outcome reports what a command did with a single target record.
type Outcome string

const (
	// OutcomeApplied means the transition was applied.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkippedInvalidState means the record was not in an eligible source state.
	OutcomeSkippedInvalidState Outcome = "skipped-invalid-state"
	// OutcomeNotFound means no record matched the ID.
	OutcomeNotFound Outcome = "not-found"
)

// ItemResult pairs a record ID with the outcome of a command.
type ItemResult struct {
	ID      string
	Outcome Outcome
}

// BatchResult collects per-ID outcomes of a batch command in call order.
type BatchResult struct {
	Items []ItemResult
}

// Add appends an outcome for id.
func (r *BatchResult) Add(id string, outcome Outcome) {
	r.Items = append(r.Items, ItemResult{ID: id, Outcome: outcome})
}

// Applied lists the IDs the command changed.
func (r BatchResult) Applied() []string {
	return r.with(OutcomeApplied)
}

// Skipped lists the IDs left untouched because of their current state.
func (r BatchResult) Skipped() []string {
	return r.with(OutcomeSkippedInvalidState)
}

// Missing lists the IDs that matched no record.
func (r BatchResult) Missing() []string {
	return r.with(OutcomeNotFound)
}

// OutcomeOf returns the outcome recorded for id and whether one exists.
func (r BatchResult) OutcomeOf(id string) (Outcome, bool) {
	for _, item := range r.Items {
		if item.ID == id {
			return item.Outcome, true
		}
	}
	return "", false
}

func (r BatchResult) with(outcome Outcome) []string {
	ids := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Outcome == outcome {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// UniqueIDs drops empty and repeated IDs while keeping the first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
