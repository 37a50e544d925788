package student

import (
	"github.com/pmc-edu/results-portal/pkg/importer"
	"github.com/pmc-edu/results-portal/pkg/schema"
)

// ImportSchema describes the canonical students.csv payload. workspaceDomain
// constrains official_email to the institutional Google Workspace domain at
// validation time, not just at storage time.
func ImportSchema(workspaceDomain string) schema.Schema {
	return schema.Schema{
		Name: "students",
		Fields: []schema.Field{
			{Name: "roll_no", Kind: schema.KindString, Required: true},
			{Name: "first_name", Kind: schema.KindString, Required: true},
			{Name: "last_name", Kind: schema.KindString, Required: true},
			{Name: "display_name", Kind: schema.KindString, Required: true},
			{Name: "official_email", Kind: schema.KindEmail, Required: true, Domain: workspaceDomain},
			{Name: "recovery_email", Kind: schema.KindEmail},
			{Name: "batch_code", Kind: schema.KindString},
			{Name: "status", Kind: schema.KindEnum, Enum: Statuses()},
		},
	}
}

// trackedFields are the columns an import may change on an existing student.
// The roll number is the match key and is never rewritten by an update.
var trackedFields = []struct {
	column string
	get    func(s Student) string
	set    func(s *Student, v string)
}{
	{"first_name", func(s Student) string { return s.FirstName }, func(s *Student, v string) { s.FirstName = v }},
	{"last_name", func(s Student) string { return s.LastName }, func(s *Student, v string) { s.LastName = v }},
	{"display_name", func(s Student) string { return s.DisplayName }, func(s *Student, v string) { s.DisplayName = v }},
	{"official_email", func(s Student) string { return s.OfficialEmail }, func(s *Student, v string) { s.OfficialEmail = v }},
	{"recovery_email", func(s Student) string { return s.RecoveryEmail }, func(s *Student, v string) { s.RecoveryEmail = v }},
	{"batch_code", func(s Student) string { return s.BatchCode }, func(s *Student, v string) { s.BatchCode = v }},
	{"status", func(s Student) string { return string(s.Status) }, func(s *Student, v string) { s.Status = Status(v) }},
}

func rowStatus(row schema.Row) string {
	if !row.Has("status") {
		return string(StatusActive)
	}
	return row.String("status")
}

func rowValue(row schema.Row, column string) string {
	if column == "status" {
		return rowStatus(row)
	}
	return row.String(column)
}

// FromRow builds a new Student from a validated import row.
func FromRow(row schema.Row) Student {
	s := New(row.String("roll_no"), row.String("display_name"), row.String("official_email"))
	for i := range trackedFields {
		f := &trackedFields[i]
		f.set(&s, rowValue(row, f.column))
	}
	return s
}

// DiffRow compares an existing student with a validated import row, field by
// field, in schema order.
func DiffRow(existing Student, row schema.Row) []importer.FieldChange {
	var out []importer.FieldChange
	for i := range trackedFields {
		f := &trackedFields[i]
		if old, newValue := f.get(existing), rowValue(row, f.column); old != newValue {
			out = append(out, importer.FieldChange{Field: f.column, Old: old, New: newValue})
		}
	}
	return out
}

// ApplyRow returns the existing student with the row's values applied.
func ApplyRow(existing Student, row schema.Row) Student {
	for i := range trackedFields {
		f := &trackedFields[i]
		f.set(&existing, rowValue(row, f.column))
	}
	return existing
}
