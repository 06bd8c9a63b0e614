package models

import "time"

// Settings is an opaque key/value document. The app configuration and page
// contents are stored this way and are not validated.
type Settings map[string]any

// SettingsDoc is a singleton-keyed settings document.
type SettingsDoc struct {
	ID        string    `bson:"_id" json:"id"`
	Values    Settings  `bson:"values" json:"values"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

const (
	ConfigCollection = "config"
	PagesCollection  = "pages"
	AppConfigID      = "app"
	LandingPageID    = "landing"
)
