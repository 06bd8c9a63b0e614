package routes

import (
	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(api *gin.RouterGroup, h Handlers, g Guards) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", g.auth(), h.Auth.Me)
	}
}

// AppRoutes serves the view-models the client renders.
func AppRoutes(api *gin.RouterGroup, h Handlers, g Guards) {
	api.GET("/app", h.App.Shell)
	api.GET("/landing", h.App.Landing)
	api.GET("/dashboard", g.auth(), h.App.Dashboard)
}
