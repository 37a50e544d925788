package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pmc-edu/results-portal/migrations"
	"github.com/pmc-edu/results-portal/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate <up|down|status>",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(args[0])
		},
	}
	return cmd
}

func runMigrate(action string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return withCode(exitDB, err)
	}

	db, err := sql.Open("pgx", configuration.Use().Database.ConnectionString())
	if err != nil {
		return withCode(exitDB, fmt.Errorf("connect: %w", err))
	}
	defer func() { _ = db.Close() }()

	switch action {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	default:
		return withCode(exitUsage, fmt.Errorf("unknown migrate action %q", action))
	}
	if err != nil {
		return withCode(exitDBWrite, err)
	}
	return nil
}
