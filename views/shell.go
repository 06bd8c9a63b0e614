package views

import (
	"context"

	"go.uber.org/zap"

	"cityconnect-be/models"
	"cityconnect-be/services"
)

type Screen string

const (
	ScreenLanding   Screen = "landing"
	ScreenDashboard Screen = "dashboard"
	ScreenError     Screen = "error"
)

const profileLoadFailed = "Failed to load user profile"

// Shell is the top-level view: exactly one of Landing and Dashboard is set,
// or neither when Screen is ScreenError.
type Shell struct {
	Screen    Screen     `json:"screen"`
	Session   *Session   `json:"session,omitempty"`
	Landing   *Landing   `json:"landing,omitempty"`
	Dashboard *Dashboard `json:"dashboard,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// SessionResolver resolves a session token to its identity.
type SessionResolver interface {
	CurrentUser(ctx context.Context, token string) (*models.Identity, error)
}

// ProfileReader reads user profiles.
type ProfileReader interface {
	GetUserProfile(ctx context.Context, userID string) services.Envelope[*models.User]
}

type ShellView struct {
	sessions  SessionResolver
	profiles  ProfileReader
	landing   *LandingView
	dashboard *DashboardView
	logger    *zap.Logger
}

func NewShellView(sessions SessionResolver, profiles ProfileReader, landing *LandingView, dashboard *DashboardView, logger *zap.Logger) *ShellView {
	return &ShellView{
		sessions:  sessions,
		profiles:  profiles,
		landing:   landing,
		dashboard: dashboard,
		logger:    logger.Named("shell"),
	}
}

// ResolveSession returns the session for token, or nil when signed out.
// A profile that cannot be loaded is reported as an error.
func (v *ShellView) ResolveSession(ctx context.Context, token string) (*Session, error) {
	identity, err := v.sessions.CurrentUser(ctx, token)
	if err != nil {
		v.logger.Warn("resolving session failed", zap.Error(err))
		return nil, nil
	}
	if identity == nil {
		return nil, nil
	}

	res := v.profiles.GetUserProfile(ctx, identity.ID)
	if !res.Success {
		v.logger.Error("getting user profile failed", zap.String("userID", identity.ID), zap.String("error", res.Error))
		return nil, res.Err
	}
	return &Session{Identity: identity, Profile: res.Data}, nil
}

// Load picks the screen for the request: the landing page when signed
// out, the dashboard when signed in, and the error screen when the signed-in
// user's profile cannot be loaded.
func (v *ShellView) Load(ctx context.Context, token, lang string) Shell {
	session, err := v.ResolveSession(ctx, token)
	if err != nil {
		return Shell{Screen: ScreenError, Error: profileLoadFailed}
	}
	if session == nil {
		landing := v.landing.Load(ctx, lang)
		return Shell{Screen: ScreenLanding, Landing: &landing}
	}

	dashboard := v.dashboard.Load(ctx, *session)
	return Shell{Screen: ScreenDashboard, Session: session, Dashboard: &dashboard}
}
