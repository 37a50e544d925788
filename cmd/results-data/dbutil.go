package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmc-edu/results-portal/pkg/composables"
	"github.com/pmc-edu/results-portal/pkg/configuration"
)

// openPool connects to the configured database and binds the pool into ctx
// for the repositories. The returned cleanup must run before exit.
func openPool(ctx context.Context) (context.Context, func(), error) {
	conf := configuration.Use()
	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		return ctx, nil, withCode(exitDB, fmt.Errorf("connect: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return ctx, nil, withCode(exitDB, fmt.Errorf("ping: %w", err))
	}
	return composables.WithPool(ctx, pool), pool.Close, nil
}
