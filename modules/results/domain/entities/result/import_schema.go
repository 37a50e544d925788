package result

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pmc-edu/results-portal/pkg/importer"
	"github.com/pmc-edu/results-portal/pkg/schema"
)

// ImportSchema describes the canonical results.csv payload.
func ImportSchema() schema.Schema {
	return schema.Schema{
		Name: "results",
		Fields: []schema.Field{
			{Name: "roll_no", Kind: schema.KindString, Required: true},
			{Name: "name", Kind: schema.KindString, Required: true},
			{Name: "block", Kind: schema.KindString, Required: true},
			{Name: "year", Kind: schema.KindInt, Required: true},
			{Name: "subject", Kind: schema.KindString, Required: true},
			{Name: "written_marks", Kind: schema.KindDecimal, Required: true, NonNegative: true},
			{Name: "viva_marks", Kind: schema.KindDecimal, Required: true, NonNegative: true},
			{Name: "total_marks", Kind: schema.KindDecimal, Required: true, NonNegative: true},
			{Name: "grade", Kind: schema.KindString, Required: true},
			{Name: "exam_date", Kind: schema.KindDate, Required: true},
			{Name: "respondent_id", Kind: schema.KindString},
		},
	}
}

// marksSumTolerance absorbs rounding in hand-entered totals.
var marksSumTolerance = decimal.NewFromFloat(0.01)

// marksString renders marks at the stored scale, so a value read back from a
// numeric(7,2) column compares equal to its fresh input form.
func marksString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// InspectRow returns the non-blocking warnings for a result row. A total that
// does not equal written+viva is a warning, not an error: legitimate
// free-entry totals must not be blocked, but the mismatch stays visible in
// the report for human review. Negative marks are not inspected here; they
// fail validation outright via the schema's NonNegative constraint.
func InspectRow(row schema.Row) []string {
	var warnings []string

	written := row.Decimal("written_marks")
	viva := row.Decimal("viva_marks")
	total := row.Decimal("total_marks")
	expected := written.Add(viva)
	if expected.Sub(total).Abs().GreaterThan(marksSumTolerance) {
		warnings = append(warnings, fmt.Sprintf(
			"total_marks %s does not equal written+viva (%s expected)",
			total.String(), expected.String(),
		))
	}

	return warnings
}

// RowKey extracts the natural key from a validated result row.
func RowKey(row schema.Row) string {
	return NaturalKey(row.String("roll_no"), row.String("subject"), row.Date("exam_date"))
}

// FromRow builds a new Result from a validated import row. The caller wires
// the owning student and, at commit time, the import batch.
func FromRow(row schema.Row) Result {
	r := Result{
		RespondentID: row.String("respondent_id"),
		RollNumber:   row.String("roll_no"),
		StudentName:  row.String("name"),
		Block:        row.String("block"),
		Year:         row.Int("year"),
		Subject:      row.String("subject"),
		WrittenMarks: row.Decimal("written_marks"),
		VivaMarks:    row.Decimal("viva_marks"),
		TotalMarks:   row.Decimal("total_marks"),
		Grade:        row.String("grade"),
		ExamDate:     row.Date("exam_date"),
		Status:       StatusDraft,
	}
	return r
}

type trackedField struct {
	column  string
	get     func(r Result) string
	fromRow func(row schema.Row) string
	set     func(r *Result, row schema.Row)
}

var trackedFields = []trackedField{
	{
		column:  "respondent_id",
		get:     func(r Result) string { return r.RespondentID },
		fromRow: func(row schema.Row) string { return row.String("respondent_id") },
		set:     func(r *Result, row schema.Row) { r.RespondentID = row.String("respondent_id") },
	},
	{
		column:  "name",
		get:     func(r Result) string { return r.StudentName },
		fromRow: func(row schema.Row) string { return row.String("name") },
		set:     func(r *Result, row schema.Row) { r.StudentName = row.String("name") },
	},
	{
		column:  "block",
		get:     func(r Result) string { return r.Block },
		fromRow: func(row schema.Row) string { return row.String("block") },
		set:     func(r *Result, row schema.Row) { r.Block = row.String("block") },
	},
	{
		column:  "year",
		get:     func(r Result) string { return fmt.Sprintf("%d", r.Year) },
		fromRow: func(row schema.Row) string { return fmt.Sprintf("%d", row.Int("year")) },
		set:     func(r *Result, row schema.Row) { r.Year = row.Int("year") },
	},
	{
		column:  "written_marks",
		get:     func(r Result) string { return marksString(r.WrittenMarks) },
		fromRow: func(row schema.Row) string { return marksString(row.Decimal("written_marks")) },
		set:     func(r *Result, row schema.Row) { r.WrittenMarks = row.Decimal("written_marks") },
	},
	{
		column:  "viva_marks",
		get:     func(r Result) string { return marksString(r.VivaMarks) },
		fromRow: func(row schema.Row) string { return marksString(row.Decimal("viva_marks")) },
		set:     func(r *Result, row schema.Row) { r.VivaMarks = row.Decimal("viva_marks") },
	},
	{
		column:  "total_marks",
		get:     func(r Result) string { return marksString(r.TotalMarks) },
		fromRow: func(row schema.Row) string { return marksString(row.Decimal("total_marks")) },
		set:     func(r *Result, row schema.Row) { r.TotalMarks = row.Decimal("total_marks") },
	},
	{
		column:  "grade",
		get:     func(r Result) string { return r.Grade },
		fromRow: func(row schema.Row) string { return row.String("grade") },
		set:     func(r *Result, row schema.Row) { r.Grade = row.String("grade") },
	},
}

// DiffRow compares an existing result with a validated import row. Workflow
// state and the natural-key columns are never part of the diff.
func DiffRow(existing Result, row schema.Row) []importer.FieldChange {
	var out []importer.FieldChange
	for i := range trackedFields {
		f := &trackedFields[i]
		if old, newValue := f.get(existing), f.fromRow(row); old != newValue {
			out = append(out, importer.FieldChange{Field: f.column, Old: old, New: newValue})
		}
	}
	return out
}

// ApplyRow returns the existing result with the row's values applied. The
// workflow status and log are untouched: re-imports must not reset a
// verified or published record back to DRAFT.
func ApplyRow(existing Result, row schema.Row) Result {
	for i := range trackedFields {
		trackedFields[i].set(&existing, row)
	}
	return existing
}
