package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pmc-edu/results-portal/modules/accounts/domain/aggregates/student"
	"github.com/pmc-edu/results-portal/modules/results/domain/entities/importbatch"
	"github.com/pmc-edu/results-portal/modules/results/domain/entities/result"
	"github.com/pmc-edu/results-portal/pkg/composables"
	"github.com/pmc-edu/results-portal/pkg/eventbus"
	"github.com/pmc-edu/results-portal/pkg/importer"
	"github.com/pmc-edu/results-portal/pkg/schema"
)

// ImportOptions parameterizes one import invocation. Mode is mandatory;
// there is no implicit default between preview and commit.
type ImportOptions struct {
	Mode     importer.Mode
	Actor    string
	Filename string
	Notes    string
}

// BatchCommittedEvent is published exactly once per successful commit, after
// the transaction is durable. Previews and failed commits publish nothing.
type BatchCommittedEvent struct {
	BatchID uuid.UUID
	Kind    importbatch.Kind
	Actor   string
	Created int
	Updated int
	Skipped int
	Errored int
}

// ImportService runs the full reconciliation pipeline for both roster and
// result files: validate, resolve against a point-in-time snapshot, reconcile,
// then either stop (preview) or apply the staged plan in one transaction.
type ImportService struct {
	students   student.Repository
	results    result.Repository
	batches    importbatch.Repository
	transactor composables.Transactor
	publisher  eventbus.EventBus
	log        *logrus.Logger

	workspaceDomain string
}

func NewImportService(
	students student.Repository,
	results result.Repository,
	batches importbatch.Repository,
	transactor composables.Transactor,
	publisher eventbus.EventBus,
	log *logrus.Logger,
	workspaceDomain string,
) *ImportService {
	return &ImportService{
		students:        students,
		results:         results,
		batches:         batches,
		transactor:      transactor,
		publisher:       publisher,
		log:             log,
		workspaceDomain: workspaceDomain,
	}
}

// studentResolver matches rows to roster records by canonical roll number.
type studentResolver struct {
	byRoll map[string]student.Student
}

func (r *studentResolver) Resolve(row schema.Row) importer.Resolution[student.Student] {
	roll := student.CanonicalRoll(row.String("roll_no"))
	if existing, ok := r.byRoll[roll]; ok {
		return importer.Resolution[student.Student]{Verdict: importer.VerdictFound, Existing: existing}
	}
	return importer.Resolution[student.Student]{Verdict: importer.VerdictNotFound}
}

// ImportStudents reconciles a students file against the roster. In preview
// mode nothing is written; in commit mode creates and updates are applied in
// one transaction together with the audit batch record.
func (s *ImportService) ImportStudents(ctx context.Context, rows []importer.RawRow, opts ImportOptions) (*importer.Report, *importbatch.ImportBatch, error) {
	if err := opts.Mode.Validate(); err != nil {
		return nil, nil, err
	}

	existing, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	byRoll := make(map[string]student.Student, len(existing))
	for _, st := range existing {
		byRoll[student.CanonicalRoll(st.RollNumber)] = st
	}

	plan := importer.Reconcile(importer.Descriptor[student.Student]{
		Kind:     string(importbatch.KindStudents),
		Schema:   student.ImportSchema(s.workspaceDomain),
		Resolver: &studentResolver{byRoll: byRoll},
		Key: func(row schema.Row) string {
			return student.CanonicalRoll(row.String("roll_no"))
		},
		Build: student.FromRow,
		Diff:  student.DiffRow,
		Apply: student.ApplyRow,
	}, rows, opts.Filename)

	if opts.Mode == importer.ModePreview {
		s.logReport(plan.Report, opts)
		return plan.Report, nil, nil
	}

	now := time.Now().UTC()
	batch := importbatch.FromReport(importbatch.KindStudents, opts.Actor, opts.Filename, opts.Notes, plan.Report, now)

	err = s.transactor.InTx(ctx, func(ctx context.Context) error {
		if err := s.batches.Create(ctx, batch); err != nil {
			return err
		}
		for _, st := range plan.Creates {
			st.CreatedAt = now
			st.UpdatedAt = now
			if err := s.students.Create(ctx, st); err != nil {
				return err
			}
		}
		for _, st := range plan.Updates {
			st.UpdatedAt = now
			if err := s.students.Update(ctx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return plan.Report, nil, &importer.CommitError{Kind: string(importbatch.KindStudents), Cause: err}
	}

	s.logReport(plan.Report, opts)
	s.publishCommitted(batch)
	return plan.Report, batch, nil
}

// resultResolver matches rows both to the owning student and, by natural key,
// to an already stored result. A roll number with no roster record is a
// missing reference: the row is reported and skipped, never auto-created.
type resultResolver struct {
	studentsByRoll map[string]student.Student
	resultsByKey   map[string]result.Result
}

func (r *resultResolver) Resolve(row schema.Row) importer.Resolution[result.Result] {
	roll := student.CanonicalRoll(row.String("roll_no"))
	if _, ok := r.studentsByRoll[roll]; !ok {
		return importer.Resolution[result.Result]{
			Verdict: importer.VerdictReferenceMissing,
			Reason:  "unknown roll number: " + row.String("roll_no"),
		}
	}
	if existing, ok := r.resultsByKey[result.RowKey(row)]; ok {
		return importer.Resolution[result.Result]{Verdict: importer.VerdictFound, Existing: existing}
	}
	return importer.Resolution[result.Result]{Verdict: importer.VerdictNotFound}
}

// ImportResults reconciles a results file. New records enter the workflow at
// DRAFT with a synthetic status-log entry naming the importing actor; updates
// never touch workflow state.
func (s *ImportService) ImportResults(ctx context.Context, rows []importer.RawRow, opts ImportOptions) (*importer.Report, *importbatch.ImportBatch, error) {
	if err := opts.Mode.Validate(); err != nil {
		return nil, nil, err
	}

	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	studentsByRoll := make(map[string]student.Student, len(students))
	for _, st := range students {
		studentsByRoll[student.CanonicalRoll(st.RollNumber)] = st
	}

	stored, err := s.results.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	resultsByKey := make(map[string]result.Result, len(stored))
	for _, res := range stored {
		resultsByKey[res.Key()] = res
	}

	plan := importer.Reconcile(importer.Descriptor[result.Result]{
		Kind:   string(importbatch.KindResults),
		Schema: result.ImportSchema(),
		Resolver: &resultResolver{
			studentsByRoll: studentsByRoll,
			resultsByKey:   resultsByKey,
		},
		Key: result.RowKey,
		Build: func(row schema.Row) result.Result {
			res := result.FromRow(row)
			res.ID = uuid.New()
			res.StudentID = studentsByRoll[student.CanonicalRoll(row.String("roll_no"))].ID
			return res
		},
		Diff:    result.DiffRow,
		Apply:   result.ApplyRow,
		Inspect: result.InspectRow,
	}, rows, opts.Filename)

	if opts.Mode == importer.ModePreview {
		s.logReport(plan.Report, opts)
		return plan.Report, nil, nil
	}

	now := time.Now().UTC()
	batch := importbatch.FromReport(importbatch.KindResults, opts.Actor, opts.Filename, opts.Notes, plan.Report, now)

	err = s.transactor.InTx(ctx, func(ctx context.Context) error {
		if err := s.batches.Create(ctx, batch); err != nil {
			return err
		}
		for _, res := range plan.Creates {
			res.ImportBatchID = batch.ID
			res.CreatedAt = now
			res.UpdatedAt = now
			res.InitializeDraft(opts.Actor, now)
			if err := s.results.Create(ctx, res); err != nil {
				return err
			}
		}
		for _, res := range plan.Updates {
			res.ImportBatchID = batch.ID
			res.UpdatedAt = now
			if err := s.results.Update(ctx, res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return plan.Report, nil, &importer.CommitError{Kind: string(importbatch.KindResults), Cause: err}
	}

	s.logReport(plan.Report, opts)
	s.publishCommitted(batch)
	return plan.Report, batch, nil
}

func (s *ImportService) logReport(report *importer.Report, opts ImportOptions) {
	s.log.WithFields(logrus.Fields{
		"kind":     report.Kind,
		"mode":     string(opts.Mode),
		"file":     opts.Filename,
		"actor":    opts.Actor,
		"rows":     report.TotalRows,
		"created":  report.Created,
		"updated":  report.Updated,
		"skipped":  report.Skipped,
		"errored":  report.Errored,
		"warnings": report.WarningCount,
	}).Info("import processed")
}

func (s *ImportService) publishCommitted(batch *importbatch.ImportBatch) {
	s.publisher.Publish("import.committed", BatchCommittedEvent{
		BatchID: batch.ID,
		Kind:    batch.Kind,
		Actor:   batch.StartedBy,
		Created: batch.CreatedRows,
		Updated: batch.UpdatedRows,
		Skipped: batch.SkippedRows,
		Errored: batch.ErrorRows,
	})
}
