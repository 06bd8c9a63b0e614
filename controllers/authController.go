package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cityconnect-be/middlewares"
	"cityconnect-be/services"
	"cityconnect-be/views"
)

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Domain string
	Secure bool
}

type AuthController struct {
	auth    *services.AuthService
	shell   *views.ShellView
	cookies CookieOptions
}

func NewAuthController(auth *services.AuthService, shell *views.ShellView, cookies CookieOptions) *AuthController {
	return &AuthController{auth: auth, shell: shell, cookies: cookies}
}

func (a *AuthController) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	sameSite := http.SameSiteLaxMode
	if a.cookies.Secure {
		// Required for cross-origin cookies in production
		sameSite = http.SameSiteNoneMode
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	if token == "" {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   maxAge,
		Path:     "/",
		Domain:   a.cookies.Domain,
		Secure:   a.cookies.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

// Register handles user registration
func (a *AuthController) Register(c *gin.Context) {
	var form views.RegisterForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := form.Validate(); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	identity, err := a.auth.Register(ctx, form.Email, form.Password, form.Profile())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": identity})
}

// Login checks the credentials and sets the session cookie. The token is
// also returned for clients that send it as a Bearer header.
func (a *AuthController) Login(c *gin.Context) {
	var form views.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := form.Validate(); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := a.auth.Login(ctx, form.Email, form.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	a.setSessionCookie(c, session.Token, session.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": session})
}

// Logout revokes the session and clears the cookie. Calling it without a
// session succeeds.
func (a *AuthController) Logout(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := a.auth.Logout(ctx, middlewares.TokenFromRequest(c)); err != nil {
		respondError(c, err)
		return
	}

	a.setSessionCookie(c, "", time.Time{})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// Me returns the signed-in identity and profile.
func (a *AuthController) Me(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := a.shell.ResolveSession(ctx, middlewares.TokenFromRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": session})
}
