package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cityconnect-be/apperror"
	"cityconnect-be/backend"
	"cityconnect-be/models"
)

func newSettingsService() *SettingsService {
	b := backend.NewMemoryBinding()
	return NewSettingsService(b.Settings, b.Feed, zap.NewNop())
}

func TestAppConfigSetAndUpdate(t *testing.T) {
	s := newSettingsService()
	ctx := context.Background()

	missing := s.GetAppConfig(ctx)
	assert.ErrorIs(t, missing.Err, apperror.ErrNotFound)

	require.True(t, s.SetAppConfig(ctx, models.Settings{"maintenance": false, "theme": "light"}).Success)
	require.True(t, s.UpdateAppConfig(ctx, models.Settings{"theme": "dark"}).Success)

	got := s.GetAppConfig(ctx)
	require.True(t, got.Success)
	assert.Equal(t, models.Settings{"maintenance": false, "theme": "dark"}, got.Data)

	require.True(t, s.SetAppConfig(ctx, models.Settings{"theme": "high-contrast"}).Success)
	assert.Equal(t, models.Settings{"theme": "high-contrast"}, s.GetAppConfig(ctx).Data)
}

func TestPageDataRequiresID(t *testing.T) {
	s := newSettingsService()

	assert.ErrorIs(t, s.GetPageData(context.Background(), "").Err, apperror.ErrValidation)
	assert.ErrorIs(t, s.SetPageData(context.Background(), "", nil).Err, apperror.ErrValidation)
}

func TestListenToPageData(t *testing.T) {
	s := newSettingsService()
	ctx := context.Background()

	res := s.ListenToPageData(ctx, models.LandingPageID)
	require.True(t, res.Success)
	sub := res.Data
	defer sub.Stop()

	assert.Empty(t, receive(t, sub))

	require.True(t, s.UpdatePageData(ctx, models.LandingPageID, models.Settings{"headline": "Report it"}).Success)
	assert.Equal(t, models.Settings{"headline": "Report it"}, receive(t, sub))

	// Writes to another page are not delivered.
	require.True(t, s.SetPageData(ctx, "about", models.Settings{"body": "x"}).Success)
	require.True(t, s.UpdatePageData(ctx, models.LandingPageID, models.Settings{"subhead": "Fix it"}).Success)
	assert.Equal(t, models.Settings{"headline": "Report it", "subhead": "Fix it"}, receive(t, sub))
}

func TestSubscribeToAppConfig(t *testing.T) {
	s := newSettingsService()
	ctx := context.Background()
	require.True(t, s.SetAppConfig(ctx, models.Settings{"v": 1}).Success)

	res := s.SubscribeToAppConfig(ctx)
	require.True(t, res.Success)
	defer res.Data.Stop()

	assert.Equal(t, models.Settings{"v": 1}, receive(t, res.Data))
	require.True(t, s.UpdateAppConfig(ctx, models.Settings{"v": 2}).Success)
	assert.Equal(t, models.Settings{"v": 2}, receive(t, res.Data))
}

func TestSettingsRejectPathLikeKeys(t *testing.T) {
	s := newSettingsService()
	ctx := context.Background()
	require.True(t, s.SetAppConfig(ctx, models.Settings{"a": map[string]any{"b": 1}}).Success)

	for _, values := range []models.Settings{
		{"a.b": 2},
		{"$set": map[string]any{"a": 2}},
		{"a": map[string]any{"b.c": 2}},
		{"": 2},
	} {
		assert.ErrorIs(t, s.UpdateAppConfig(ctx, values).Err, apperror.ErrValidation)
		assert.ErrorIs(t, s.SetAppConfig(ctx, values).Err, apperror.ErrValidation)
		assert.ErrorIs(t, s.UpdatePageData(ctx, "about", values).Err, apperror.ErrValidation)
	}
	assert.Equal(t, models.Settings{"a": map[string]any{"b": 1}}, s.GetAppConfig(ctx).Data)
	assert.ErrorIs(t, s.GetPageData(ctx, "about").Err, apperror.ErrNotFound)
}
