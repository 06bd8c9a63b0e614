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
	authUtils "cityconnect-be/utils"
)

const minPasswordLength = 6

// Session is the result of a successful login: the identity and the signed
// token that carries it.
type Session struct {
	Identity  *models.Identity `json:"identity"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

type AuthService struct {
	identities backend.IdentityStore
	users      backend.UserStore
	sessions   backend.SessionStore
	tokens     *authUtils.TokenIssuer
	logger     *zap.Logger
	now        func() time.Time

	// bootstrap lists the emails that may sign up as staff or admin.
	bootstrap map[string]bool
}

func NewAuthService(identities backend.IdentityStore, users backend.UserStore, sessions backend.SessionStore, tokens *authUtils.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{
		identities: identities,
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		logger:     logger.Named("auth"),
		now:        time.Now,
		bootstrap:  make(map[string]bool),
	}
}

// AllowPrivilegedSignup lets the given emails register as staff or admin.
// Everyone else registers as a citizen and is promoted by an admin.
func (s *AuthService) AllowPrivilegedSignup(emails ...string) {
	for _, email := range emails {
		if email = normalizeEmail(email); email != "" {
			s.bootstrap[email] = true
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkCredentials(email, password string) error {
	if email == "" || password == "" {
		return apperror.Auth("Email and password are required")
	}
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return apperror.Auth("Invalid email address")
	}
	return nil
}

// Register creates the identity and then its profile document. Only
// citizens can sign themselves up, unless the email was allowed through
// AllowPrivilegedSignup. The two writes are not transactional: if the
// profile write fails the identity stays behind without a profile and a
// WriteError is returned.
func (s *AuthService) Register(ctx context.Context, email, password string, fields models.ProfileFields) (*models.Identity, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, apperror.Auth("Password must be at least 6 characters long")
	}
	if fields.Role == "" {
		fields.Role = models.Citizen
	}
	fields.Email = email
	if err := validateProfile(fields); err != nil {
		return nil, err
	}
	if fields.Role.IsStaff() && !s.bootstrap[email] {
		return nil, apperror.Forbidden("Staff and admin accounts are created by an administrator")
	}

	identity := &models.Identity{Email: email, CreatedAt: s.now()}
	if err := identity.SetPassword(password); err != nil {
		return nil, apperror.Auth("Failed to hash password")
	}
	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, backend.ErrEmailTaken) {
			return nil, apperror.Auth("User already exists")
		}
		s.logger.Error("creating identity failed", zap.Error(err))
		return nil, apperror.Write("Registration failed", err)
	}

	profile := newProfile(identity.ID, fields, identity.CreatedAt)
	if err := s.users.Put(ctx, profile); err != nil {
		s.logger.Warn("profile write failed after identity creation; identity has no profile",
			zap.String("userID", identity.ID), zap.Error(err))
		return nil, apperror.Write("Failed to create user profile", err)
	}

	s.logger.Info("user registered", zap.String("userID", identity.ID), zap.String("role", string(fields.Role)))
	return identity, nil
}

// Login checks the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return nil, err
	}

	identity, err := s.identities.IdentityByEmail(ctx, email)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, apperror.Auth("Invalid email or password")
	}
	if err != nil {
		s.logger.Error("looking up identity failed", zap.Error(err))
		return nil, apperror.Read("Login failed", err)
	}
	if !identity.ComparePassword(password) {
		return nil, apperror.Auth("Invalid email or password")
	}

	token, claims, err := s.tokens.GenerateAndSetToken(identity.ID)
	if err != nil {
		s.logger.Error("signing session token failed", zap.Error(err))
		return nil, apperror.Auth("Failed to generate token")
	}
	return &Session{Identity: identity, Token: token, ExpiresAt: claims.ExpiresAt}, nil
}

// Logout revokes the session token. Unknown, expired or already revoked
// tokens are accepted silently.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims.TokenID, ttl); err != nil {
		s.logger.Error("revoking session failed", zap.Error(err))
		return apperror.Write("Logout failed", err)
	}
	return nil
}

// CurrentUser resolves the identity behind token. It returns nil, nil when
// there is no valid session.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil
	}
	revoked, err := s.sessions.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, apperror.Read("Failed to check session", err)
	}
	if revoked {
		return nil, nil
	}

	identity, err := s.identities.IdentityByID(ctx, claims.UserID)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Read("Failed to load session", err)
	}
	return identity, nil
}
