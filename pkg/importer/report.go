package importer

// Outcome classifies what the reconciliation decided for one input row.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

// FieldChange is one entry of a field-by-field diff between an existing
// entity and an incoming row.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// RowResult is the outcome of processing a single input row.
type RowResult struct {
	RowNumber int           `json:"row_number"`
	Key       string        `json:"natural_key,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Reasons   []string      `json:"reasons,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	Diff      []FieldChange `json:"diff,omitempty"`
}

func (r RowResult) HasErrors() bool {
	return r.Outcome == OutcomeError
}

// Report is the immutable summary of one import invocation. Rows are kept in
// input order; order matters both for readability and for the deterministic
// first-write-wins duplicate policy.
type Report struct {
	Kind           string      `json:"kind"`
	SourceFilename string      `json:"source_filename,omitempty"`
	TotalRows      int         `json:"total_rows"`
	Created        int         `json:"created"`
	Updated        int         `json:"updated"`
	Skipped        int         `json:"skipped"`
	Errored        int         `json:"errored"`
	WarningCount   int         `json:"warning_count"`
	Rows           []RowResult `json:"rows"`
}

func (r *Report) add(row RowResult) {
	r.TotalRows++
	r.WarningCount += len(row.Warnings)
	switch row.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeError:
		r.Errored++
	}
	r.Rows = append(r.Rows, row)
}

// HasBlockingErrors reports whether any row failed validation. Skips and
// warnings never block a commit; the caller decides whether to proceed.
func (r *Report) HasBlockingErrors() bool {
	return r.Errored > 0
}

// Issues returns, in input order, every row that did not result in a clean
// create or update, for error/skip review.
func (r *Report) Issues() []RowResult {
	var out []RowResult
	for _, row := range r.Rows {
		if row.Outcome == OutcomeSkipped || row.Outcome == OutcomeError || len(row.Warnings) > 0 {
			out = append(out, row)
		}
	}
	return out
}
