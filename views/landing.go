// Package views builds the view-models served to the web client: the
// landing page, the dashboard, form validation and the application shell
// that chooses between them.
package views

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"cityconnect-be/apperror"
	"cityconnect-be/models"
	"cityconnect-be/services"
)

const DefaultLanguage = "EN"

type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Landing struct {
	Language      string    `json:"language"`
	Title         string    `json:"title"`
	Subtitle      string    `json:"subtitle"`
	Description   string    `json:"description"`
	FeaturesTitle string    `json:"featuresTitle"`
	Features      []Feature `json:"features"`
	StatsTitle    string    `json:"statsTitle"`
}

var defaultLanding = map[string]Landing{
	"EN": {
		Title:         "Report Civic Issues",
		Subtitle:      "Easily",
		Description:   "CityConnect is a platform dedicated to making your city a better place. Report issues, track their resolution, and engage with your local government to foster a stronger community.",
		FeaturesTitle: "Why Choose CityConnect?",
		Features: []Feature{
			{"Quick Reporting", "Report issues in seconds with our intuitive interface"},
			{"Real-time Tracking", "Track the status of your reports in real-time"},
			{"Community Engagement", "Connect with your community and local government"},
		},
		StatsTitle: "Making a Difference",
	},
	"HI": {
		Title:         "नागरिक समस्याएं रिपोर्ट करें",
		Subtitle:      "आसानी से",
		Description:   "सिटीकनेक्ट आपके शहर को बेहतर बनाने के लिए समर्पित एक प्लेटफॉर्म है। समस्याओं की रिपोर्ट करें, उनके समाधान को ट्रैक करें, और एक मजबूत समुदाय बनाने के लिए अपनी स्थानीय सरकार के साथ जुड़ें।",
		FeaturesTitle: "सिटीकनेक्ट क्यों चुनें?",
		Features: []Feature{
			{"त्वरित रिपोर्टिंग", "हमारे सहज इंटरफेस के साथ सेकंडों में समस्याओं की रिपोर्ट करें"},
			{"रीयल-टाइम ट्रैकिंग", "अपनी रिपोर्टों की स्थिति को रीयल-टाइम में ट्रैक करें"},
			{"समुदायिक जुड़ाव", "अपने समुदाय और स्थानीय सरकार से जुड़ें"},
		},
		StatsTitle: "बदलाव लाना",
	},
}

// PageReader reads page content documents.
type PageReader interface {
	GetPageData(ctx context.Context, pageID string) services.Envelope[models.Settings]
}

type LandingView struct {
	pages  PageReader
	logger *zap.Logger
}

func NewLandingView(pages PageReader, logger *zap.Logger) *LandingView {
	return &LandingView{pages: pages, logger: logger.Named("landing")}
}

func defaultFor(lang string) Landing {
	l, ok := defaultLanding[lang]
	if !ok {
		lang = DefaultLanguage
		l = defaultLanding[lang]
	}
	l.Language = lang
	l.Features = append([]Feature(nil), l.Features...)
	return l
}

// Load returns the landing content for lang. Text stored in pages/landing,
// either at the top level or under a language key such as "HI", overrides
// the built-in copy; a missing or unreadable document leaves the defaults.
func (v *LandingView) Load(ctx context.Context, lang string) Landing {
	lang = strings.ToUpper(strings.TrimSpace(lang))
	landing := defaultFor(lang)

	res := v.pages.GetPageData(ctx, models.LandingPageID)
	if !res.Success {
		if !errors.Is(res.Err, apperror.ErrNotFound) {
			v.logger.Warn("loading landing content failed", zap.String("error", res.Error))
		}
		return landing
	}

	values := res.Data
	if localized, ok := values[landing.Language].(map[string]any); ok {
		values = localized
	}
	overlay(&landing.Title, values, "title")
	overlay(&landing.Subtitle, values, "subtitle")
	overlay(&landing.Description, values, "description")
	overlay(&landing.FeaturesTitle, values, "featuresTitle")
	overlay(&landing.StatsTitle, values, "statsTitle")
	return landing
}

func overlay(dst *string, values models.Settings, key string) {
	if s, ok := values[key].(string); ok && s != "" {
		*dst = s
	}
}
