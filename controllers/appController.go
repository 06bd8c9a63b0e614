package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cityconnect-be/middlewares"
	"cityconnect-be/views"
)

// AppController serves the shell, dashboard and landing view-models.
type AppController struct {
	shell     *views.ShellView
	landing   *views.LandingView
	dashboard *views.DashboardView
}

func NewAppController(shell *views.ShellView, landing *views.LandingView, dashboard *views.DashboardView) *AppController {
	return &AppController{shell: shell, landing: landing, dashboard: dashboard}
}

// Shell returns the screen for the caller: landing, dashboard or the
// profile error screen. It always answers 200 so the client can render it.
func (ac *AppController) Shell(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	c.JSON(http.StatusOK, ac.shell.Load(ctx, middlewares.TokenFromRequest(c), c.Query("lang")))
}

func (ac *AppController) Landing(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	c.JSON(http.StatusOK, ac.landing.Load(ctx, c.Query("lang")))
}

// Dashboard requires a signed-in user with a profile.
func (ac *AppController) Dashboard(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := ac.shell.ResolveSession(ctx, middlewares.TokenFromRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not authenticated"})
		return
	}

	c.JSON(http.StatusOK, ac.dashboard.Load(ctx, *session))
}
