package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmc-edu/results-portal/pkg/schema"
)

type course struct {
	Code  string
	Title string
}

type courseResolver struct {
	existing map[string]course
	blocked  map[string]bool
}

func (r *courseResolver) Resolve(row schema.Row) Resolution[course] {
	code := strings.ToLower(row.String("code"))
	if r.blocked[code] {
		return Resolution[course]{
			Verdict: VerdictReferenceMissing,
			Reason:  "unknown department for course: " + row.String("code"),
		}
	}
	if c, ok := r.existing[code]; ok {
		return Resolution[course]{Verdict: VerdictFound, Existing: c}
	}
	return Resolution[course]{Verdict: VerdictNotFound}
}

func courseDescriptor(r *courseResolver) Descriptor[course] {
	return Descriptor[course]{
		Kind: "courses",
		Schema: schema.Schema{
			Name: "courses",
			Fields: []schema.Field{
				{Name: "code", Kind: schema.KindString, Required: true},
				{Name: "title", Kind: schema.KindString, Required: true},
			},
		},
		Resolver: r,
		Key: func(row schema.Row) string {
			return strings.ToLower(row.String("code"))
		},
		Build: func(row schema.Row) course {
			return course{Code: row.String("code"), Title: row.String("title")}
		},
		Diff: func(existing course, row schema.Row) []FieldChange {
			var out []FieldChange
			if existing.Title != row.String("title") {
				out = append(out, FieldChange{Field: "title", Old: existing.Title, New: row.String("title")})
			}
			return out
		},
		Apply: func(existing course, row schema.Row) course {
			existing.Title = row.String("title")
			return existing
		},
		Inspect: func(row schema.Row) []string {
			if strings.Contains(row.String("title"), "TBD") {
				return []string{"title looks provisional"}
			}
			return nil
		},
	}
}

func rawRows(records ...map[string]string) []RawRow {
	out := make([]RawRow, 0, len(records))
	for i, rec := range records {
		out = append(out, RawRow{Line: i + 2, Fields: rec})
	}
	return out
}

func TestReconcile_CreateUpdateSkip(t *testing.T) {
	resolver := &courseResolver{existing: map[string]course{
		"anat-1": {Code: "ANAT-1", Title: "Anatomy I"},
		"phys-1": {Code: "PHYS-1", Title: "Physiology I"},
	}}

	plan := Reconcile(courseDescriptor(resolver), rawRows(
		map[string]string{"code": "BIOC-1", "title": "Biochemistry I"},
		map[string]string{"code": "ANAT-1", "title": "Anatomy I"},
		map[string]string{"code": "PHYS-1", "title": "Human Physiology I"},
	), "courses.csv")

	report := plan.Report
	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.False(t, report.HasBlockingErrors())

	assert.Equal(t, OutcomeCreated, report.Rows[0].Outcome)
	assert.Equal(t, OutcomeSkipped, report.Rows[1].Outcome)
	assert.Equal(t, []string{"no change"}, report.Rows[1].Reasons)
	assert.Equal(t, OutcomeUpdated, report.Rows[2].Outcome)
	require.Len(t, report.Rows[2].Diff, 1)
	assert.Equal(t, FieldChange{Field: "title", Old: "Physiology I", New: "Human Physiology I"}, report.Rows[2].Diff[0])

	require.Len(t, plan.Creates, 1)
	assert.Equal(t, "BIOC-1", plan.Creates[0].Code)
	require.Len(t, plan.Updates, 1)
	assert.Equal(t, "Human Physiology I", plan.Updates[0].Title)
}

func TestReconcile_ValidationErrorsDoNotAbortBatch(t *testing.T) {
	resolver := &courseResolver{existing: map[string]course{}}

	plan := Reconcile(courseDescriptor(resolver), rawRows(
		map[string]string{"code": "", "title": "Orphan"},
		map[string]string{"code": "BIOC-1", "title": "Biochemistry I"},
	), "courses.csv")

	require.Len(t, plan.Report.Rows, 2)
	assert.Equal(t, OutcomeError, plan.Report.Rows[0].Outcome)
	assert.Equal(t, []string{"code: is required"}, plan.Report.Rows[0].Reasons)
	assert.Equal(t, OutcomeCreated, plan.Report.Rows[1].Outcome)
	assert.True(t, plan.Report.HasBlockingErrors())
	require.Len(t, plan.Creates, 1)
}

func TestReconcile_ReferenceMissingAlwaysSkips(t *testing.T) {
	resolver := &courseResolver{
		existing: map[string]course{},
		blocked:  map[string]bool{"bioc-1": true},
	}

	plan := Reconcile(courseDescriptor(resolver), rawRows(
		map[string]string{"code": "BIOC-1", "title": "Biochemistry I"},
	), "courses.csv")

	require.Len(t, plan.Report.Rows, 1)
	assert.Equal(t, OutcomeSkipped, plan.Report.Rows[0].Outcome)
	assert.Equal(t, []string{"unknown department for course: BIOC-1"}, plan.Report.Rows[0].Reasons)
	assert.Empty(t, plan.Creates)
	assert.Empty(t, plan.Updates)
}

func TestReconcile_DuplicateKeyFirstWriteWins(t *testing.T) {
	resolver := &courseResolver{existing: map[string]course{}}

	plan := Reconcile(courseDescriptor(resolver), rawRows(
		map[string]string{"code": "BIOC-1", "title": "Biochemistry I"},
		map[string]string{"code": "bioc-1", "title": "Clinical Biochemistry I"},
		map[string]string{"code": "BIOC-1", "title": "Clinical Biochemistry I"},
	), "courses.csv")

	report := plan.Report
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)

	// one staged create carrying the last applied values, never two creates
	require.Len(t, plan.Creates, 1)
	assert.Equal(t, "Clinical Biochemistry I", plan.Creates[0].Title)
	assert.Empty(t, plan.Updates)
}

func TestReconcile_DuplicateOfExistingKeyCollapsesUpdates(t *testing.T) {
	resolver := &courseResolver{existing: map[string]course{
		"anat-1": {Code: "ANAT-1", Title: "Anatomy I"},
	}}

	plan := Reconcile(courseDescriptor(resolver), rawRows(
		map[string]string{"code": "ANAT-1", "title": "Gross Anatomy I"},
		map[string]string{"code": "ANAT-1", "title": "Gross Anatomy I"},
	), "courses.csv")

	assert.Equal(t, 1, plan.Report.Updated)
	assert.Equal(t, 1, plan.Report.Skipped)
	require.Len(t, plan.Updates, 1)
	assert.Equal(t, "Gross Anatomy I", plan.Updates[0].Title)
}

func TestReconcile_WarningsDoNotChangeOutcome(t *testing.T) {
	resolver := &courseResolver{existing: map[string]course{}}

	plan := Reconcile(courseDescriptor(resolver), rawRows(
		map[string]string{"code": "BIOC-1", "title": "TBD"},
	), "courses.csv")

	require.Len(t, plan.Report.Rows, 1)
	assert.Equal(t, OutcomeCreated, plan.Report.Rows[0].Outcome)
	assert.Equal(t, []string{"title looks provisional"}, plan.Report.Rows[0].Warnings)
	assert.Equal(t, 1, plan.Report.WarningCount)
	assert.False(t, plan.Report.HasBlockingErrors())
}

func TestReportIssues_OrderedAndFiltered(t *testing.T) {
	resolver := &courseResolver{existing: map[string]course{
		"anat-1": {Code: "ANAT-1", Title: "Anatomy I"},
	}}

	plan := Reconcile(courseDescriptor(resolver), rawRows(
		map[string]string{"code": "", "title": "Orphan"},
		map[string]string{"code": "BIOC-1", "title": "Biochemistry I"},
		map[string]string{"code": "ANAT-1", "title": "Anatomy I"},
	), "courses.csv")

	issues := plan.Report.Issues()
	require.Len(t, issues, 2)
	assert.Equal(t, 2, issues[0].RowNumber)
	assert.Equal(t, OutcomeError, issues[0].Outcome)
	assert.Equal(t, 4, issues[1].RowNumber)
	assert.Equal(t, OutcomeSkipped, issues[1].Outcome)
}

func TestModeValidate(t *testing.T) {
	require.NoError(t, ModePreview.Validate())
	require.NoError(t, ModeCommit.Validate())
	assert.ErrorIs(t, Mode("").Validate(), ErrModeRequired)
	assert.ErrorIs(t, Mode("dry-run").Validate(), ErrModeRequired)
}
