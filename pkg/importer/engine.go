// Package importer reconciles tabular input rows against existing records,
// producing a row-by-row report and a staged create/update plan that a commit
// writer can apply atomically. The engine itself performs no writes.
package importer

import (
	"fmt"

	"github.com/pmc-edu/results-portal/pkg/schema"
)

// RawRow is one record of an input file, keyed by column name. Line carries
// the 1-based source line for diagnostics (the header is line 1).
type RawRow struct {
	Line   int
	Fields map[string]string
}

// Verdict is the natural-key resolver's answer for one row.
type Verdict int

const (
	// VerdictNotFound marks the row as a candidate for creation.
	VerdictNotFound Verdict = iota
	// VerdictFound carries the matched existing entity; candidate for update.
	VerdictFound
	// VerdictReferenceMissing means a record the row depends on does not
	// exist (a result row whose roll number matches no student). Always a
	// skip, never a create.
	VerdictReferenceMissing
)

type Resolution[E any] struct {
	Verdict  Verdict
	Existing E
	Reason   string
}

// Resolver resolves a validated row against a point-in-time snapshot of the
// record store. Implementations are read-only; the snapshot is loaded once
// per batch in an explicit pre-pass, not cached across invocations.
type Resolver[E any] interface {
	Resolve(row schema.Row) Resolution[E]
}

// Descriptor parameterizes the engine for one entity kind. Domains compose a
// descriptor from plain functions instead of subclassing the engine.
type Descriptor[E any] struct {
	Kind     string
	Schema   schema.Schema
	Resolver Resolver[E]

	// Key extracts the natural key used to match rows to entities and to
	// detect duplicates within the batch.
	Key func(row schema.Row) string
	// Build constructs a new entity from a row (create path).
	Build func(row schema.Row) E
	// Diff compares an existing entity with a row, field by field.
	Diff func(existing E, row schema.Row) []FieldChange
	// Apply returns the existing entity with the row's values applied.
	Apply func(existing E, row schema.Row) E
	// Inspect returns non-blocking warnings for a row (may be nil).
	Inspect func(row schema.Row) []string
}

// Plan is the engine's output: the report plus the staged entities the commit
// writer applies. Creates and Updates are in first-appearance input order.
type Plan[E any] struct {
	Report  *Report
	Creates []E
	Updates []E
}

// Reconcile processes rows strictly in input order and decides, per row,
// whether the operation is a create, an update (with diff), a skip or an
// error. Duplicate natural keys within the batch resolve first-write-wins:
// the first occurrence of an unseen key becomes CREATED and later occurrences
// are diffed against the staged in-batch entity, so one file can never stage
// the same key twice.
func Reconcile[E any](d Descriptor[E], rows []RawRow, sourceFilename string) *Plan[E] {
	plan := &Plan[E]{
		Report: &Report{Kind: d.Kind, SourceFilename: sourceFilename},
	}

	pendingCreates := map[string]int{}
	pendingUpdates := map[string]int{}

	for _, raw := range rows {
		rr := RowResult{RowNumber: raw.Line}

		row, ferrs := d.Schema.Validate(raw.Fields)
		if len(ferrs) > 0 {
			rr.Outcome = OutcomeError
			for _, fe := range ferrs {
				rr.Reasons = append(rr.Reasons, fe.Error())
			}
			plan.Report.add(rr)
			continue
		}

		rr.Key = d.Key(row)
		if d.Inspect != nil {
			rr.Warnings = d.Inspect(row)
		}

		if i, ok := pendingCreates[rr.Key]; ok {
			changes := d.Diff(plan.Creates[i], row)
			if len(changes) == 0 {
				rr.Outcome = OutcomeSkipped
				rr.Reasons = append(rr.Reasons, "no change")
			} else {
				rr.Outcome = OutcomeUpdated
				rr.Diff = changes
				plan.Creates[i] = d.Apply(plan.Creates[i], row)
			}
			plan.Report.add(rr)
			continue
		}
		if i, ok := pendingUpdates[rr.Key]; ok {
			changes := d.Diff(plan.Updates[i], row)
			if len(changes) == 0 {
				rr.Outcome = OutcomeSkipped
				rr.Reasons = append(rr.Reasons, "no change")
			} else {
				rr.Outcome = OutcomeUpdated
				rr.Diff = changes
				plan.Updates[i] = d.Apply(plan.Updates[i], row)
			}
			plan.Report.add(rr)
			continue
		}

		res := d.Resolver.Resolve(row)
		switch res.Verdict {
		case VerdictReferenceMissing:
			rr.Outcome = OutcomeSkipped
			rr.Reasons = append(rr.Reasons, res.Reason)
		case VerdictNotFound:
			rr.Outcome = OutcomeCreated
			plan.Creates = append(plan.Creates, d.Build(row))
			pendingCreates[rr.Key] = len(plan.Creates) - 1
		case VerdictFound:
			changes := d.Diff(res.Existing, row)
			if len(changes) == 0 {
				rr.Outcome = OutcomeSkipped
				rr.Reasons = append(rr.Reasons, "no change")
			} else {
				rr.Outcome = OutcomeUpdated
				rr.Diff = changes
				plan.Updates = append(plan.Updates, d.Apply(res.Existing, row))
				pendingUpdates[rr.Key] = len(plan.Updates) - 1
			}
		default:
			rr.Outcome = OutcomeError
			rr.Reasons = append(rr.Reasons, fmt.Sprintf("unexpected resolver verdict %d", res.Verdict))
		}
		plan.Report.add(rr)
	}

	return plan
}
