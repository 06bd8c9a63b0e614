package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"cityconnect-be/apperror"
	"cityconnect-be/backend"
	"cityconnect-be/models"
)

// SettingsService stores the app configuration and page content documents.
// Values are free-form; only the keys are checked.
type SettingsService struct {
	settings backend.SettingsStore
	feed     backend.ChangeFeed
	logger   *zap.Logger
	now      func() time.Time
}

func NewSettingsService(settings backend.SettingsStore, feed backend.ChangeFeed, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, feed: feed, logger: logger.Named("settings"), now: time.Now}
}

func (s *SettingsService) get(ctx context.Context, collection, id, missing string) (models.Settings, error) {
	doc, err := s.settings.Get(ctx, collection, id)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, apperror.NotFound(missing)
	}
	if err != nil {
		s.logger.Error("reading settings failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil, apperror.Read("Failed to load "+collection, err)
	}
	return doc.Values, nil
}

// checkKeys rejects keys a document store would read as a path or an
// operator, at any depth.
func checkKeys(values map[string]any) error {
	for k, v := range values {
		if k == "" || strings.Contains(k, ".") || strings.HasPrefix(k, "$") {
			return apperror.ValidationFailed("values", "Invalid setting key: "+k)
		}
		if nested, ok := v.(map[string]any); ok {
			if err := checkKeys(nested); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SettingsService) write(ctx context.Context, collection, id string, values models.Settings, merge bool) error {
	if err := checkKeys(values); err != nil {
		return err
	}
	var err error
	if merge {
		err = s.settings.Merge(ctx, collection, id, values, s.now())
	} else {
		err = s.settings.Put(ctx, collection, id, values, s.now())
	}
	if err != nil {
		s.logger.Error("writing settings failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return apperror.Write("Failed to save "+collection, err)
	}
	if err := s.feed.Publish(ctx, backend.SettingsTopic(collection, id)); err != nil {
		s.logger.Warn("publishing settings change failed", zap.Error(err))
	}
	return nil
}

// subscribe delivers the document values, or an empty map while the
// document does not exist.
func (s *SettingsService) subscribe(ctx context.Context, collection, id string) (*Subscription[models.Settings], error) {
	return watch(ctx, s.feed, backend.SettingsTopic(collection, id), s.logger, func(ctx context.Context) (models.Settings, error) {
		doc, err := s.settings.Get(ctx, collection, id)
		if errors.Is(err, backend.ErrNotFound) {
			return models.Settings{}, nil
		}
		if err != nil {
			return nil, err
		}
		return doc.Values, nil
	})
}

func (s *SettingsService) GetAppConfig(ctx context.Context) (out Envelope[models.Settings]) {
	defer guard(s.logger, "GetAppConfig", &out)

	values, err := s.get(ctx, models.ConfigCollection, models.AppConfigID, "App config not found")
	if err != nil {
		return fail[models.Settings](err)
	}
	return ok(values)
}

// SetAppConfig replaces the whole configuration document.
func (s *SettingsService) SetAppConfig(ctx context.Context, values models.Settings) (out Envelope[Done]) {
	defer guard(s.logger, "SetAppConfig", &out)

	if err := s.write(ctx, models.ConfigCollection, models.AppConfigID, values, false); err != nil {
		return fail[Done](err)
	}
	return ok(Done{})
}

// UpdateAppConfig sets the given top-level keys and keeps the others.
func (s *SettingsService) UpdateAppConfig(ctx context.Context, values models.Settings) (out Envelope[Done]) {
	defer guard(s.logger, "UpdateAppConfig", &out)

	if err := s.write(ctx, models.ConfigCollection, models.AppConfigID, values, true); err != nil {
		return fail[Done](err)
	}
	return ok(Done{})
}

func (s *SettingsService) SubscribeToAppConfig(ctx context.Context) (out Envelope[*Subscription[models.Settings]]) {
	defer guard(s.logger, "SubscribeToAppConfig", &out)

	sub, err := s.subscribe(ctx, models.ConfigCollection, models.AppConfigID)
	if err != nil {
		s.logger.Error("subscribing to app config failed", zap.Error(err))
		return fail[*Subscription[models.Settings]](apperror.Read("Failed to load config", err))
	}
	return ok(sub)
}

func (s *SettingsService) GetPageData(ctx context.Context, pageID string) (out Envelope[models.Settings]) {
	defer guard(s.logger, "GetPageData", &out)

	if pageID == "" {
		return fail[models.Settings](apperror.ValidationFailed("pageId", "Page id is required"))
	}
	values, err := s.get(ctx, models.PagesCollection, pageID, "Page not found")
	if err != nil {
		return fail[models.Settings](err)
	}
	return ok(values)
}

func (s *SettingsService) SetPageData(ctx context.Context, pageID string, values models.Settings) (out Envelope[Done]) {
	defer guard(s.logger, "SetPageData", &out)

	if pageID == "" {
		return fail[Done](apperror.ValidationFailed("pageId", "Page id is required"))
	}
	if err := s.write(ctx, models.PagesCollection, pageID, values, false); err != nil {
		return fail[Done](err)
	}
	return ok(Done{})
}

func (s *SettingsService) UpdatePageData(ctx context.Context, pageID string, values models.Settings) (out Envelope[Done]) {
	defer guard(s.logger, "UpdatePageData", &out)

	if pageID == "" {
		return fail[Done](apperror.ValidationFailed("pageId", "Page id is required"))
	}
	if err := s.write(ctx, models.PagesCollection, pageID, values, true); err != nil {
		return fail[Done](err)
	}
	return ok(Done{})
}

func (s *SettingsService) ListenToPageData(ctx context.Context, pageID string) (out Envelope[*Subscription[models.Settings]]) {
	defer guard(s.logger, "ListenToPageData", &out)

	if pageID == "" {
		return fail[*Subscription[models.Settings]](apperror.ValidationFailed("pageId", "Page id is required"))
	}
	sub, err := s.subscribe(ctx, models.PagesCollection, pageID)
	if err != nil {
		s.logger.Error("subscribing to page failed", zap.String("pageID", pageID), zap.Error(err))
		return fail[*Subscription[models.Settings]](apperror.Read("Failed to load pages", err))
	}
	return ok(sub)
}
