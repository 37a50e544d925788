package main

import (
	"fmt"
	"testing"

	"github.com/pmc-edu/results-portal/modules/results/domain/entities/result"
)

func TestClassifyWorkflowError_ExitCodes(t *testing.T) {
	illegal := &result.IllegalTransitionError{From: result.StatusDraft, To: result.StatusPublished}
	if got := exitCode(classifyWorkflowError(illegal)); got != exitValidation {
		t.Fatalf("illegal transition: expected exit %d, got %d", exitValidation, got)
	}

	// not-found must not be reported as a failed write, wrapped or not
	if got := exitCode(classifyWorkflowError(result.ErrNotFound)); got != exitValidation {
		t.Fatalf("not found: expected exit %d, got %d", exitValidation, got)
	}
	wrapped := fmt.Errorf("load result: %w", result.ErrNotFound)
	if got := exitCode(classifyWorkflowError(wrapped)); got != exitValidation {
		t.Fatalf("wrapped not found: expected exit %d, got %d", exitValidation, got)
	}

	if got := exitCode(classifyWorkflowError(fmt.Errorf("tx aborted"))); got != exitDBWrite {
		t.Fatalf("write failure: expected exit %d, got %d", exitDBWrite, got)
	}
}
