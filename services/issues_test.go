package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cityconnect-be/apperror"
	"cityconnect-be/backend"
	"cityconnect-be/models"
)

func newIssueService(t *testing.T, policy models.TransitionPolicy) (*IssueService, *backend.Binding) {
	t.Helper()
	b := backend.NewMemoryBinding()
	return NewIssueService(b.Issues, b.Feed, policy, zap.NewNop()), b
}

// steppingClock returns a clock that advances one minute per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Minute)
		return current
	}
}

func mustCreate(t *testing.T, s *IssueService, in models.NewIssue) string {
	t.Helper()
	res := s.CreateIssue(context.Background(), in)
	require.True(t, res.Success, res.Error)
	return res.Data
}

func TestCreateIssueForcesInitialState(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	ctx := context.Background()

	id := mustCreate(t, s, models.NewIssue{
		Title:       "  Broken streetlight ",
		Description: "Dark since Monday",
		Category:    models.Electricity,
		SubmittedBy: "citizen-1",
	})

	got := s.GetIssue(ctx, id)
	require.True(t, got.Success)
	assert.Equal(t, "Broken streetlight", got.Data.Title)
	assert.Equal(t, models.Pending, got.Data.Status)
	assert.Equal(t, models.Medium, got.Data.Priority)
	assert.Zero(t, got.Data.Votes)
	assert.NotNil(t, got.Data.Comments)
	assert.Empty(t, got.Data.Comments)
	assert.False(t, got.Data.CreatedAt.IsZero())
	assert.Equal(t, got.Data.CreatedAt, got.Data.UpdatedAt)
}

func TestCreateIssueValidation(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)

	tests := []struct {
		name  string
		in    models.NewIssue
		field string
	}{
		{"missing title", models.NewIssue{Category: models.Other}, "title"},
		{"unknown category", models.NewIssue{Title: "x", Category: "parks"}, "category"},
		{"unknown priority", models.NewIssue{Title: "x", Category: models.Other, Priority: "urgent"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.CreateIssue(context.Background(), tt.in)
			require.False(t, res.Success)
			assert.ErrorIs(t, res.Err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, res.Err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestGetIssueMissing(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)

	res := s.GetIssue(context.Background(), "nope")
	assert.False(t, res.Success)
	assert.Equal(t, "Issue not found", res.Error)
	assert.ErrorIs(t, res.Err, apperror.ErrNotFound)
}

func TestGetAllIssuesFilterCombinations(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	s.now = steppingClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	statuses := []models.IssueStatus{models.Pending, models.InProgress, models.Resolved}
	categories := []models.IssueCategory{models.RoadTransport, models.WasteManagement}
	for _, status := range statuses {
		for _, category := range categories {
			id := mustCreate(t, s, models.NewIssue{Title: "t", Category: category})
			require.True(t, s.UpdateIssueStatus(ctx, id, status, "").Success)
		}
	}

	filters := []models.IssueFilters{{}}
	for _, status := range statuses {
		filters = append(filters, models.IssueFilters{Status: status})
		for _, category := range categories {
			filters = append(filters, models.IssueFilters{Status: status, Category: category})
		}
	}
	for _, category := range categories {
		filters = append(filters, models.IssueFilters{Category: category})
	}

	for _, f := range filters {
		t.Run(fmt.Sprintf("%s/%s", f.Status, f.Category), func(t *testing.T) {
			res := s.GetAllIssues(ctx, f, 0)
			require.True(t, res.Success)
			require.NotEmpty(t, res.Data)
			for i, issue := range res.Data {
				assert.True(t, f.Matches(&issue))
				if i > 0 {
					assert.False(t, issue.CreatedAt.After(res.Data[i-1].CreatedAt), "not newest first")
				}
			}
		})
	}
}

func TestGetAllIssuesLimit(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	s.now = steppingClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	for i := 0; i < 60; i++ {
		mustCreate(t, s, models.NewIssue{Title: "t", Category: models.Other})
	}

	assert.Len(t, s.GetAllIssues(context.Background(), models.IssueFilters{}, 0).Data, backend.DefaultIssueLimit)
	assert.Len(t, s.GetAllIssues(context.Background(), models.IssueFilters{}, 5).Data, 5)
}

func TestGetAllIssuesRejectsUnknownFilter(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)

	res := s.GetAllIssues(context.Background(), models.IssueFilters{Status: "closed"}, 0)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, apperror.ErrValidation)
}

func TestGetUserIssues(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	mustCreate(t, s, models.NewIssue{Title: "a", Category: models.Other, SubmittedBy: "u1"})
	mustCreate(t, s, models.NewIssue{Title: "b", Category: models.Other, SubmittedBy: "u2"})

	res := s.GetUserIssues(context.Background(), "u1")
	require.True(t, res.Success)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "a", res.Data[0].Title)
}

func TestUpdateIssueStatusAnyPolicyAllowsReopen(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	ctx := context.Background()
	id := mustCreate(t, s, models.NewIssue{Title: "t", Category: models.Other})

	require.True(t, s.UpdateIssueStatus(ctx, id, models.Resolved, "staff-1").Success)
	res := s.UpdateIssueStatus(ctx, id, models.Pending, "staff-2")
	require.True(t, res.Success, res.Error)

	got := s.GetIssue(ctx, id)
	assert.Equal(t, models.Pending, got.Data.Status)
	assert.Equal(t, "staff-2", got.Data.UpdatedBy)
}

func TestUpdateIssueStatusForwardPolicy(t *testing.T) {
	s, _ := newIssueService(t, models.ForwardOnly)
	ctx := context.Background()
	id := mustCreate(t, s, models.NewIssue{Title: "t", Category: models.Other})

	skip := s.UpdateIssueStatus(ctx, id, models.Resolved, "staff-1")
	assert.False(t, skip.Success)
	assert.ErrorIs(t, skip.Err, apperror.ErrConflict)

	require.True(t, s.UpdateIssueStatus(ctx, id, models.InProgress, "staff-1").Success)
	require.True(t, s.UpdateIssueStatus(ctx, id, models.Resolved, "staff-1").Success)

	back := s.UpdateIssueStatus(ctx, id, models.Pending, "staff-1")
	assert.ErrorIs(t, back.Err, apperror.ErrConflict)
}

func TestUpdateIssueStatusErrors(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)

	invalid := s.UpdateIssueStatus(context.Background(), "x", "closed", "")
	assert.ErrorIs(t, invalid.Err, apperror.ErrValidation)

	missing := s.UpdateIssueStatus(context.Background(), "x", models.Resolved, "")
	assert.ErrorIs(t, missing.Err, apperror.ErrNotFound)
}

func TestUpdateIssuePatch(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	ctx := context.Background()
	id := mustCreate(t, s, models.NewIssue{Title: "old", Category: models.Other})

	title := "new"
	high := models.High
	require.True(t, s.UpdateIssue(ctx, id, models.IssuePatch{Title: &title, Priority: &high}, "u1").Success)

	got := s.GetIssue(ctx, id).Data
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, models.High, got.Priority)
	assert.Equal(t, models.Pending, got.Status)

	assert.ErrorIs(t, s.UpdateIssue(ctx, id, models.IssuePatch{}, "u1").Err, apperror.ErrValidation)
}

func TestConcurrentCommentsAreAllRetained(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	ctx := context.Background()
	id := mustCreate(t, s, models.NewIssue{Title: "t", Category: models.Other})

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := s.AddComment(ctx, id, CommentInput{Author: "u", Content: fmt.Sprintf("comment %d", i)})
			assert.True(t, res.Success)
		}(i)
	}
	wg.Wait()

	got := s.GetIssue(ctx, id).Data
	require.Len(t, got.Comments, n)
	seen := make(map[string]bool)
	for _, c := range got.Comments {
		seen[c.Content] = true
		assert.False(t, c.Timestamp.IsZero())
	}
	assert.Len(t, seen, n)
}

func TestAddCommentValidation(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)

	empty := s.AddComment(context.Background(), "x", CommentInput{Author: "u", Content: "  "})
	assert.ErrorIs(t, empty.Err, apperror.ErrValidation)

	missing := s.AddComment(context.Background(), "x", CommentInput{Author: "u", Content: "hi"})
	assert.ErrorIs(t, missing.Err, apperror.ErrNotFound)
}

func TestVoteIssueToggles(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	ctx := context.Background()
	id := mustCreate(t, s, models.NewIssue{Title: "t", Category: models.Other})

	first := s.VoteIssue(ctx, id, "u1")
	require.True(t, first.Success)
	assert.Equal(t, models.VoteResult{Voted: true, Votes: 1}, first.Data)

	second := s.VoteIssue(ctx, id, "u2")
	assert.Equal(t, int64(2), second.Data.Votes)

	undo := s.VoteIssue(ctx, id, "u1")
	assert.Equal(t, models.VoteResult{Voted: false, Votes: 1}, undo.Data)
}

func TestDeleteIssue(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	ctx := context.Background()
	id := mustCreate(t, s, models.NewIssue{Title: "t", Category: models.Other})

	require.True(t, s.DeleteIssue(ctx, id).Success)
	assert.ErrorIs(t, s.GetIssue(ctx, id).Err, apperror.ErrNotFound)
	assert.ErrorIs(t, s.DeleteIssue(ctx, id).Err, apperror.ErrNotFound)
}

func receive[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case v, open := <-sub.Updates():
		require.True(t, open, "subscription closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	var zero T
	return zero
}

func TestSubscribeToIssues(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	s.now = steppingClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	mustCreate(t, s, models.NewIssue{Title: "first", Category: models.Electricity})

	res := s.SubscribeToIssues(ctx, models.IssueFilters{Category: models.Electricity}, 0)
	require.True(t, res.Success)
	sub := res.Data
	defer sub.Stop()

	initial := receive(t, sub)
	require.Len(t, initial, 1)

	mustCreate(t, s, models.NewIssue{Title: "second", Category: models.Electricity})
	next := receive(t, sub)
	require.Len(t, next, 2)
	assert.Equal(t, "second", next[0].Title)

	sub.Stop()
	sub.Stop()
	_, open := <-sub.Updates()
	assert.False(t, open)
}

func TestSubscriptionFollowsStatusChangesAndDeletes(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	s.now = steppingClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	leak := mustCreate(t, s, models.NewIssue{Title: "leak", Category: models.WaterSanitation})
	drain := mustCreate(t, s, models.NewIssue{Title: "drain", Category: models.WaterSanitation})
	mustCreate(t, s, models.NewIssue{Title: "lamp", Category: models.Electricity})

	res := s.SubscribeToIssues(ctx, models.IssueFilters{Status: models.Pending, Category: models.WaterSanitation}, 0)
	require.True(t, res.Success)
	sub := res.Data
	defer sub.Stop()
	require.Len(t, receive(t, sub), 2)

	require.True(t, s.UpdateIssueStatus(ctx, leak, models.Resolved, "staff-1").Success)
	afterResolve := receive(t, sub)
	require.Len(t, afterResolve, 1)
	assert.Equal(t, drain, afterResolve[0].ID)

	require.True(t, s.UpdateIssueStatus(ctx, leak, models.Pending, "staff-1").Success)
	assert.Len(t, receive(t, sub), 2)

	require.True(t, s.DeleteIssue(ctx, drain).Success)
	afterDelete := receive(t, sub)
	require.Len(t, afterDelete, 1)
	assert.Equal(t, leak, afterDelete[0].ID)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	s, _ := newIssueService(t, models.AnyTransition)
	ctx, cancel := context.WithCancel(context.Background())

	res := s.SubscribeToIssues(ctx, models.IssueFilters{}, 0)
	require.True(t, res.Success)
	receive(t, res.Data)

	cancel()
	select {
	case _, open := <-res.Data.Updates():
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
	res.Data.Stop()
}

type panickingIssues struct{ backend.IssueStore }

func (panickingIssues) Get(context.Context, string) (*models.Issue, error) {
	panic("boom")
}

func TestServicePanicBecomesEnvelope(t *testing.T) {
	b := backend.NewMemoryBinding()
	s := NewIssueService(panickingIssues{b.Issues}, b.Feed, models.AnyTransition, zap.NewNop())

	var res Envelope[*models.Issue]
	require.NotPanics(t, func() { res = s.GetIssue(context.Background(), "x") })
	assert.False(t, res.Success)
	assert.Equal(t, "Something went wrong", res.Error)
}
