package backend

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityconnect-be/models"
)

func seedIssue(t *testing.T, s *MemoryStore, status models.IssueStatus, category models.IssueCategory, at time.Time) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		Title:     "Pothole on Main St",
		Category:  category,
		Status:    status,
		Priority:  models.Medium,
		Comments:  []models.Comment{},
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, s.Insert(context.Background(), issue))
	return issue
}

func TestMemoryListFiltersAndOrders(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	old := seedIssue(t, s, models.Pending, models.RoadTransport, base)
	seedIssue(t, s, models.Resolved, models.RoadTransport, base.Add(time.Hour))
	newest := seedIssue(t, s, models.Pending, models.RoadTransport, base.Add(2*time.Hour))
	seedIssue(t, s, models.Pending, models.Electricity, base.Add(3*time.Hour))

	got, err := s.List(ctx, models.IssueFilters{Status: models.Pending, Category: models.RoadTransport}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newest.ID, got[0].ID)
	assert.Equal(t, old.ID, got[1].ID)

	all, err := s.List(ctx, models.IssueFilters{}, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryUpdateStatusGuard(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	issue := seedIssue(t, s, models.Pending, models.Other, time.Now())

	err := s.UpdateStatus(ctx, issue.ID, models.Resolved, "staff-1", []models.IssueStatus{models.InProgress}, time.Now())
	assert.ErrorIs(t, err, ErrTransition)

	require.NoError(t, s.UpdateStatus(ctx, issue.ID, models.Resolved, "staff-1", nil, time.Now()))
	got, err := s.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Resolved, got.Status)
	assert.Equal(t, "staff-1", got.UpdatedBy)

	assert.ErrorIs(t, s.UpdateStatus(ctx, "missing", models.Pending, "", nil, time.Now()), ErrNotFound)
}

func TestMemoryAppendCommentConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	issue := seedIssue(t, s, models.Pending, models.Other, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AppendComment(ctx, issue.ID, models.Comment{Content: "same here", Timestamp: time.Now()}))
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 20)
}

func TestMemoryToggleVote(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	issue := seedIssue(t, s, models.Pending, models.Other, time.Now())

	res, err := s.ToggleVote(ctx, issue.ID, "u1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.VoteResult{Voted: true, Votes: 1}, res)

	res, err = s.ToggleVote(ctx, issue.ID, "u2", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Votes)

	res, err = s.ToggleVote(ctx, issue.ID, "u1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.VoteResult{Voted: false, Votes: 1}, res)
}

func TestMemoryReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	issue := seedIssue(t, s, models.Pending, models.Other, time.Now())

	got, err := s.Get(ctx, issue.ID)
	require.NoError(t, err)
	got.Comments = append(got.Comments, models.Comment{Content: "local only"})
	got.Status = models.Resolved

	again, err := s.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Comments)
	assert.Equal(t, models.Pending, again.Status)
}

func TestMemoryIdentitiesUniqueEmail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateIdentity(ctx, &models.Identity{Email: "ana@city.gov"}))
	err := s.CreateIdentity(ctx, &models.Identity{Email: "ANA@city.gov"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	found, err := s.IdentityByEmail(ctx, "ana@city.gov")
	require.NoError(t, err)
	assert.NotEmpty(t, found.ID)
}

func TestMemorySettingsMerge(t *testing.T) {
	settings := NewMemoryStore().Settings()
	ctx := context.Background()

	require.NoError(t, settings.Put(ctx, "config", "app", models.Settings{"theme": "light", "maxUploads": 3}, time.Now()))
	require.NoError(t, settings.Merge(ctx, "config", "app", models.Settings{"theme": "dark"}, time.Now()))

	doc, err := settings.Get(ctx, "config", "app")
	require.NoError(t, err)
	assert.Equal(t, models.Settings{"theme": "dark", "maxUploads": 3}, doc.Values)

	_, err = settings.Get(ctx, "pages", "about")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryObjects(t *testing.T) {
	objects := NewMemoryStore().Objects()
	ctx := context.Background()

	require.NoError(t, objects.Put(ctx, "issues/1_photo.jpg", "image/jpeg", strings.NewReader("jpeg-bytes")))
	obj, err := objects.Open(ctx, "issues/1_photo.jpg")
	require.NoError(t, err)
	defer obj.Close()

	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", obj.ContentType)

	require.NoError(t, objects.Delete(ctx, "issues/1_photo.jpg"))
	_, err = objects.Open(ctx, "issues/1_photo.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFeed(t *testing.T) {
	feed := NewMemoryFeed()
	ctx := context.Background()

	l, err := feed.Subscribe(ctx, IssuesTopic)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, IssuesTopic))
	require.NoError(t, feed.Publish(ctx, IssuesTopic))
	require.NoError(t, feed.Publish(ctx, "config:app"))

	select {
	case <-l.C():
	case <-time.After(time.Second):
		t.Fatal("expected a change signal")
	}
	// The two issue publishes were coalesced into one pending signal.
	select {
	case <-l.C():
		t.Fatal("unexpected second signal")
	default:
	}

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	_, open := <-l.C()
	assert.False(t, open)
}

func TestMemorySessions(t *testing.T) {
	s := NewMemorySessions()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "tok-1", time.Hour))
	revoked, err := s.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = s.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultIssueLimit, ClampLimit(0))
	assert.Equal(t, DefaultIssueLimit, ClampLimit(-4))
	assert.Equal(t, 10, ClampLimit(10))
	assert.Equal(t, MaxIssueLimit, ClampLimit(10_000))
}
