package result

import (
	"fmt"
	"time"
)

// Status is a result's position in the verification/publication workflow.
// Results enter at DRAFT when an import commit creates them and only move
// along the guarded edges below.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusVerified  Status = "verified"
	StatusPublished Status = "published"
	StatusReturned  Status = "returned"
)

// legalTransitions is the closed edge set of the workflow. PUBLISHED is
// terminal in practice but not structurally: unpublish reverts to VERIFIED.
var legalTransitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusVerified, StatusReturned},
	StatusReturned:  {StatusSubmitted},
	StatusVerified:  {StatusPublished},
	StatusPublished: {StatusVerified},
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IllegalTransitionError names both states of a rejected workflow action.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition from %s to %s", e.From, e.To)
}

// TransitionEntry is one immutable line of a result's status log. From is
// empty only for the synthetic entry written when the record is created.
type TransitionEntry struct {
	From  Status
	To    Status
	Actor string
	At    time.Time
	Note  string
}

// TransitionTo moves the result along one legal workflow edge, appending a
// log entry. On an illegal edge the result is left untouched and no entry is
// recorded. Publishing stamps PublishedAt; unpublishing clears it.
func (r *Result) TransitionTo(to Status, actor string, now time.Time) error {
	from := r.Status
	if !from.CanTransitionTo(to) {
		return &IllegalTransitionError{From: from, To: to}
	}

	r.StatusLog = append(r.StatusLog, TransitionEntry{
		From:  from,
		To:    to,
		Actor: actor,
		At:    now,
	})
	r.Status = to

	switch {
	case to == StatusPublished:
		at := now
		r.PublishedAt = &at
	case from == StatusPublished && to == StatusVerified:
		r.PublishedAt = nil
	}
	return nil
}

// InitializeDraft stamps the workflow state a freshly imported result starts
// in, with one synthetic log entry attributing the creation.
func (r *Result) InitializeDraft(actor string, now time.Time) {
	r.Status = StatusDraft
	r.StatusLog = []TransitionEntry{{
		From:  "",
		To:    StatusDraft,
		Actor: actor,
		At:    now,
		Note:  "created by import",
	}}
	r.PublishedAt = nil
}
