package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pmc-edu/results-portal/modules/results/domain/entities/result"
	"github.com/pmc-edu/results-portal/modules/results/infrastructure/persistence"
	"github.com/pmc-edu/results-portal/modules/results/services"
	"github.com/pmc-edu/results-portal/pkg/composables"
	"github.com/pmc-edu/results-portal/pkg/configuration"
	"github.com/pmc-edu/results-portal/pkg/eventbus"
)

var workflowActions = []string{"submit", "verify", "return", "resubmit", "publish", "unpublish"}

func newWorkflowCmd() *cobra.Command {
	var (
		resultID string
		actor    string
	)

	cmd := &cobra.Command{
		Use:       "workflow <action>",
		Short:     "Move a result along the verification/publication workflow",
		Args:      cobra.ExactArgs(1),
		ValidArgs: workflowActions,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(resultID)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --result: %w", err))
			}
			return runWorkflow(cmd.Context(), args[0], id, actor)
		},
	}

	cmd.Flags().StringVar(&resultID, "result", "", "Result UUID (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "Email of the person acting (required)")
	_ = cmd.MarkFlagRequired("result")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func runWorkflow(ctx context.Context, action string, id uuid.UUID, actor string) error {
	ctx, closePool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	log := configuration.Use().Logger()
	svc := services.NewResultService(
		persistence.NewPgResultRepository(),
		composables.NewPgxTransactor(),
		eventbus.NewEventPublisher(log),
		log,
	)

	var res result.Result
	switch action {
	case "submit":
		res, err = svc.Submit(ctx, id, actor)
	case "verify":
		res, err = svc.Verify(ctx, id, actor)
	case "return":
		res, err = svc.Return(ctx, id, actor)
	case "resubmit":
		res, err = svc.Resubmit(ctx, id, actor)
	case "publish":
		res, err = svc.Publish(ctx, id, actor)
	case "unpublish":
		res, err = svc.Unpublish(ctx, id, actor)
	default:
		return withCode(exitUsage, fmt.Errorf("unknown workflow action %q", action))
	}
	if err != nil {
		return classifyWorkflowError(err)
	}

	return writeJSONLine(map[string]any{
		"result_id": res.ID.String(),
		"status":    string(res.Status),
		"actor":     actor,
	})
}

// classifyWorkflowError keeps the exit codes scriptable: a rejected edge and
// a nonexistent result are caller mistakes, not failed writes.
func classifyWorkflowError(err error) error {
	var illegal *result.IllegalTransitionError
	switch {
	case as(err, &illegal):
		return withCode(exitValidation, err)
	case is(err, result.ErrNotFound):
		return withCode(exitValidation, err)
	default:
		return withCode(exitDBWrite, err)
	}
}
