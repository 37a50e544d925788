package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pmc-edu/results-portal/modules/accounts/domain/aggregates/student"
	accountspersistence "github.com/pmc-edu/results-portal/modules/accounts/infrastructure/persistence"
	"github.com/pmc-edu/results-portal/modules/results/domain/entities/importbatch"
	"github.com/pmc-edu/results-portal/modules/results/domain/entities/result"
	"github.com/pmc-edu/results-portal/modules/results/infrastructure/persistence"
	"github.com/pmc-edu/results-portal/modules/results/services"
	"github.com/pmc-edu/results-portal/pkg/composables"
	"github.com/pmc-edu/results-portal/pkg/configuration"
	"github.com/pmc-edu/results-portal/pkg/eventbus"
	"github.com/pmc-edu/results-portal/pkg/importer"
	"github.com/pmc-edu/results-portal/pkg/schema"
)

type importOptions struct {
	file   string
	sheet  string
	dryRun bool
	commit bool
	actor  string
	notes  string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <students|results>",
		Short: "Reconcile a results or roster file against the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Input CSV or XLSX file (required)")
	cmd.Flags().StringVar(&opts.sheet, "xlsx-sheet", "", "Worksheet name for XLSX input (default: first sheet)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&opts.commit, "commit", false, "Apply creates and updates in one transaction")
	cmd.Flags().StringVar(&opts.actor, "actor", "", "Email of the person running the import (required)")
	cmd.Flags().StringVar(&opts.notes, "notes", "", "Free-form note stored on the batch record")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

// importSummary is the single stdout line a calling script parses; per-row
// issues follow as separate lines.
type importSummary struct {
	Kind     string `json:"kind"`
	Mode     string `json:"mode"`
	File     string `json:"file"`
	BatchID  string `json:"batch_id,omitempty"`
	Rows     int    `json:"rows"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Errored  int    `json:"errored"`
	Warnings int    `json:"warnings"`
}

func runImport(ctx context.Context, kind string, opts importOptions) error {
	if opts.dryRun == opts.commit {
		return withCode(exitUsage, fmt.Errorf("exactly one of --dry-run or --commit is required"))
	}
	mode := importer.ModePreview
	if opts.commit {
		mode = importer.ModeCommit
	}

	conf := configuration.Use()

	var sch schema.Schema
	switch kind {
	case string(importbatch.KindStudents):
		sch = student.ImportSchema(conf.GoogleWorkspaceDomain)
	case string(importbatch.KindResults):
		sch = result.ImportSchema()
	default:
		return withCode(exitUsage, fmt.Errorf("unknown import kind %q (want students or results)", kind))
	}

	rows, err := readInputRows(opts, sch)
	if err != nil {
		return withCode(exitValidation, err)
	}

	ctx, closePool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	log := conf.Logger()
	svc := services.NewImportService(
		accountspersistence.NewPgStudentRepository(),
		persistence.NewPgResultRepository(),
		persistence.NewPgImportBatchRepository(),
		composables.NewPgxTransactor(),
		eventbus.NewEventPublisher(log),
		log,
		conf.GoogleWorkspaceDomain,
	)

	svcOpts := services.ImportOptions{
		Mode:     mode,
		Actor:    opts.actor,
		Filename: filepath.Base(opts.file),
		Notes:    opts.notes,
	}

	var (
		report *importer.Report
		batch  *importbatch.ImportBatch
	)
	if kind == string(importbatch.KindStudents) {
		report, batch, err = svc.ImportStudents(ctx, rows, svcOpts)
	} else {
		report, batch, err = svc.ImportResults(ctx, rows, svcOpts)
	}
	if err != nil {
		var commitErr *importer.CommitError
		if as(err, &commitErr) {
			return withCode(exitDBWrite, err)
		}
		return withCode(exitDB, err)
	}

	summary := importSummary{
		Kind:     report.Kind,
		Mode:     string(mode),
		File:     report.SourceFilename,
		Rows:     report.TotalRows,
		Created:  report.Created,
		Updated:  report.Updated,
		Skipped:  report.Skipped,
		Errored:  report.Errored,
		Warnings: report.WarningCount,
	}
	if batch != nil {
		summary.BatchID = batch.ID.String()
	}
	if err := writeJSONLine(summary); err != nil {
		return err
	}
	for _, issue := range report.Issues() {
		if err := writeJSONLine(issue); err != nil {
			return err
		}
	}

	if report.HasBlockingErrors() {
		return withCode(exitValidation, fmt.Errorf("%d of %d rows failed validation", report.Errored, report.TotalRows))
	}
	return nil
}

func readInputRows(opts importOptions, sch schema.Schema) ([]importer.RawRow, error) {
	if strings.EqualFold(filepath.Ext(opts.file), ".xlsx") {
		return readXLSXRows(opts.file, opts.sheet, sch)
	}
	if opts.sheet != "" {
		return nil, fmt.Errorf("--xlsx-sheet is only valid for .xlsx input")
	}
	return readCSVRows(opts.file, sch)
}
