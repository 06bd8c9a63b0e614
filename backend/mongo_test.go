package backend

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"cityconnect-be/models"
)

func TestIssueFilter(t *testing.T) {
	cases := []struct {
		name    string
		filters models.IssueFilters
		want    bson.D
	}{
		{"empty", models.IssueFilters{}, bson.D{}},
		{"status", models.IssueFilters{Status: models.Pending}, bson.D{{Key: "status", Value: models.Pending}}},
		{"status and category", models.IssueFilters{Status: models.Resolved, Category: models.Electricity}, bson.D{
			{Key: "status", Value: models.Resolved},
			{Key: "category", Value: models.Electricity},
		}},
		{"submitter", models.IssueFilters{SubmittedBy: "u1"}, bson.D{{Key: "submittedBy", Value: "u1"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, issueFilter(tc.filters))
		})
	}
}

func TestIssuePatchUpdateOnlySetsGivenFields(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	title := "Broken streetlight"
	priority := models.High

	got := issuePatchUpdate(models.IssuePatch{Title: &title, Priority: &priority}, "staff-9", at)

	assert.Equal(t, bson.M{"$set": bson.M{
		"title":     title,
		"priority":  priority,
		"updatedBy": "staff-9",
		"updatedAt": at,
	}}, got)
}

func TestProfilePatchUpdate(t *testing.T) {
	at := time.Now()
	phone := "555-0100"

	got := profilePatchUpdate(models.ProfilePatch{Phone: &phone}, at)

	assert.Equal(t, bson.M{"$set": bson.M{"phone": phone, "updatedAt": at}}, got)
}

func TestSettingsMergeUpdate(t *testing.T) {
	at := time.Now()
	got := settingsMergeUpdate(models.Settings{"banner": "Road works", "maintenance": false}, at)

	assert.Equal(t, bson.M{"$set": bson.M{
		"values.banner":      "Road works",
		"values.maintenance": false,
		"updatedAt":          at,
	}}, got)
}

func TestPlainSettings(t *testing.T) {
	in := models.Settings{
		"theme": "dark",
		"HI":    bson.D{{Key: "title", Value: "x"}},
		"links": bson.A{bson.M{"href": "/about"}},
	}

	got := plainSettings(in)
	assert.Equal(t, models.Settings{
		"theme": "dark",
		"HI":    map[string]any{"title": "x"},
		"links": []any{map[string]any{"href": "/about"}},
	}, got)
}

func TestGridFSLookupPrefersNewestUpload(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "uploadDate", Value: -1}}, newestFile.Sort)
	require.NotNil(t, newestFile.Limit)
	assert.EqualValues(t, 1, *newestFile.Limit)
}

func TestCtxReaderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := ctxReader{ctx: ctx, r: strings.NewReader("chunk")}

	buf := make([]byte, 2)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cancel()
	_, err = io.Copy(io.Discard, r)
	assert.ErrorIs(t, err, context.Canceled)
}
