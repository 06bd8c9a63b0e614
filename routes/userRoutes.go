package routes

import (
	"github.com/gin-gonic/gin"
)

func UserRoutes(api *gin.RouterGroup, h Handlers, g Guards) {
	users := api.Group("/users", g.auth())
	{
		users.GET("/me", h.Users.GetProfile)
		users.POST("/me", h.Users.CreateProfile)
		users.PATCH("/me", h.Users.UpdateProfile)
		users.GET("/staff", g.staff(), h.Users.GetStaffUsers)
		users.GET("/:id", g.staff(), h.Users.GetUser)
		users.PATCH("/:id/role", g.admin(), h.Users.SetRole)
	}
}

func FileRoutes(api *gin.RouterGroup, h Handlers, g Guards) {
	uploads := api.Group("/uploads", g.auth())
	{
		uploads.POST("", h.Files.UploadFile)
		uploads.POST("/multiple", h.Files.UploadMultipleFiles)
	}
}

// SettingsRoutes: anyone may read, only admins may write.
func SettingsRoutes(api *gin.RouterGroup, h Handlers, g Guards) {
	cfg := api.Group("/config")
	{
		cfg.GET("/app", h.Settings.GetAppConfig)
		cfg.PUT("/app", g.auth(), g.admin(), h.Settings.SetAppConfig)
		cfg.PATCH("/app", g.auth(), g.admin(), h.Settings.UpdateAppConfig)
	}

	pages := api.Group("/pages")
	{
		pages.GET("/:pageId", h.Settings.GetPageData)
		pages.PUT("/:pageId", g.auth(), g.admin(), h.Settings.SetPageData)
		pages.PATCH("/:pageId", g.auth(), g.admin(), h.Settings.UpdatePageData)
	}
}
