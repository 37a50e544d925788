package result_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmc-edu/results-portal/modules/results/domain/entities/result"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    result.Status
		to      result.Status
		allowed bool
	}{
		{result.StatusDraft, result.StatusSubmitted, true},
		{result.StatusSubmitted, result.StatusVerified, true},
		{result.StatusSubmitted, result.StatusReturned, true},
		{result.StatusReturned, result.StatusSubmitted, true},
		{result.StatusVerified, result.StatusPublished, true},
		{result.StatusPublished, result.StatusVerified, true},

		{result.StatusDraft, result.StatusVerified, false},
		{result.StatusDraft, result.StatusPublished, false},
		{result.StatusDraft, result.StatusReturned, false},
		{result.StatusSubmitted, result.StatusPublished, false},
		{result.StatusSubmitted, result.StatusDraft, false},
		{result.StatusReturned, result.StatusVerified, false},
		{result.StatusVerified, result.StatusSubmitted, false},
		{result.StatusVerified, result.StatusReturned, false},
		{result.StatusPublished, result.StatusDraft, false},
		{result.StatusPublished, result.StatusSubmitted, false},
		{result.StatusDraft, result.StatusDraft, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestResult_TransitionTo_AppendsLog(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	r := &result.Result{}
	r.InitializeDraft("importer@pmc.edu.pk", now)

	require.Equal(t, result.StatusDraft, r.Status)
	require.Len(t, r.StatusLog, 1)
	assert.Equal(t, result.Status(""), r.StatusLog[0].From)
	assert.Equal(t, result.StatusDraft, r.StatusLog[0].To)
	assert.Equal(t, "created by import", r.StatusLog[0].Note)

	require.NoError(t, r.TransitionTo(result.StatusSubmitted, "clerk@pmc.edu.pk", now.Add(time.Hour)))
	require.NoError(t, r.TransitionTo(result.StatusVerified, "verifier@pmc.edu.pk", now.Add(2*time.Hour)))

	require.Len(t, r.StatusLog, 3)
	last := r.StatusLog[2]
	assert.Equal(t, result.StatusSubmitted, last.From)
	assert.Equal(t, result.StatusVerified, last.To)
	assert.Equal(t, "verifier@pmc.edu.pk", last.Actor)
	assert.Equal(t, now.Add(2*time.Hour), last.At)
}

func TestResult_TransitionTo_IllegalLeavesResultUntouched(t *testing.T) {
	now := time.Now().UTC()
	r := &result.Result{}
	r.InitializeDraft("importer@pmc.edu.pk", now)

	err := r.TransitionTo(result.StatusPublished, "clerk@pmc.edu.pk", now)
	require.Error(t, err)

	var illegal *result.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, result.StatusDraft, illegal.From)
	assert.Equal(t, result.StatusPublished, illegal.To)

	assert.Equal(t, result.StatusDraft, r.Status)
	assert.Len(t, r.StatusLog, 1)
	assert.Nil(t, r.PublishedAt)
}

func TestResult_PublishUnpublish_PublishedAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	r := &result.Result{Status: result.StatusVerified}

	publishAt := now.Add(time.Minute)
	require.NoError(t, r.TransitionTo(result.StatusPublished, "admin@pmc.edu.pk", publishAt))
	require.NotNil(t, r.PublishedAt)
	assert.Equal(t, publishAt, *r.PublishedAt)
	assert.True(t, r.IsVisibleToStudent())

	require.NoError(t, r.TransitionTo(result.StatusVerified, "admin@pmc.edu.pk", publishAt.Add(time.Minute)))
	assert.Nil(t, r.PublishedAt)
	assert.False(t, r.IsVisibleToStudent())
}

func TestResult_ReturnedRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	r := &result.Result{Status: result.StatusSubmitted}

	require.NoError(t, r.TransitionTo(result.StatusReturned, "verifier@pmc.edu.pk", now))
	assert.Equal(t, result.StatusReturned, r.Status)

	require.NoError(t, r.TransitionTo(result.StatusSubmitted, "clerk@pmc.edu.pk", now.Add(time.Minute)))
	assert.Equal(t, result.StatusSubmitted, r.Status)
	assert.Len(t, r.StatusLog, 2)
}
