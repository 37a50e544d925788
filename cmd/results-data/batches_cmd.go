package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmc-edu/results-portal/modules/results/domain/entities/importbatch"
	"github.com/pmc-edu/results-portal/modules/results/infrastructure/persistence"
)

func newBatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Inspect committed import batches",
	}
	cmd.AddCommand(newBatchesListCmd())
	return cmd
}

func newBatchesListCmd() *cobra.Command {
	var (
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List committed import batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != "" && kind != string(importbatch.KindStudents) && kind != string(importbatch.KindResults) {
				return withCode(exitUsage, fmt.Errorf("unknown batch kind %q", kind))
			}
			return runBatchesList(cmd.Context(), importbatch.Kind(kind), limit)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind: students or results")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum batches to list")
	return cmd
}

type batchLine struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	StartedBy string    `json:"started_by"`
	File      string    `json:"file"`
	Rows      int       `json:"rows"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Errored   int       `json:"errored"`
	CreatedAt time.Time `json:"created_at"`
}

func runBatchesList(ctx context.Context, kind importbatch.Kind, limit int) error {
	ctx, closePool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	repo := persistence.NewPgImportBatchRepository()
	batches, err := repo.List(ctx, &importbatch.FindParams{Kind: kind, Limit: limit})
	if err != nil {
		return withCode(exitDB, err)
	}

	for _, b := range batches {
		line := batchLine{
			ID:        b.ID.String(),
			Kind:      string(b.Kind),
			StartedBy: b.StartedBy,
			File:      b.SourceFilename,
			Rows:      b.RowCount,
			Created:   b.CreatedRows,
			Updated:   b.UpdatedRows,
			Skipped:   b.SkippedRows,
			Errored:   b.ErrorRows,
			CreatedAt: b.CreatedAt,
		}
		if err := writeJSONLine(line); err != nil {
			return err
		}
	}
	return nil
}
