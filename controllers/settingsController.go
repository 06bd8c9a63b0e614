package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cityconnect-be/models"
	"cityconnect-be/services"
)

// SettingsController serves the app configuration and page content
// documents. Bodies are stored as given.
type SettingsController struct {
	settings *services.SettingsService
}

func NewSettingsController(settings *services.SettingsService) *SettingsController {
	return &SettingsController{settings: settings}
}

func bindSettings(c *gin.Context) (models.Settings, bool) {
	var values models.Settings
	if err := c.ShouldBindJSON(&values); err != nil || values == nil {
		badRequest(c, "Request body must be a JSON object")
		return nil, false
	}
	return values, true
}

func (sc *SettingsController) GetAppConfig(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, sc.settings.GetAppConfig(ctx))
}

// SetAppConfig replaces the configuration; UpdateAppConfig merges into it.
func (sc *SettingsController) SetAppConfig(c *gin.Context) {
	values, ok := bindSettings(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, sc.settings.SetAppConfig(ctx, values))
}

func (sc *SettingsController) UpdateAppConfig(c *gin.Context) {
	values, ok := bindSettings(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, sc.settings.UpdateAppConfig(ctx, values))
}

func (sc *SettingsController) GetPageData(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, sc.settings.GetPageData(ctx, c.Param("pageId")))
}

func (sc *SettingsController) SetPageData(c *gin.Context) {
	values, ok := bindSettings(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, sc.settings.SetPageData(ctx, c.Param("pageId"), values))
}

func (sc *SettingsController) UpdatePageData(c *gin.Context) {
	values, ok := bindSettings(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, sc.settings.UpdatePageData(ctx, c.Param("pageId"), values))
}
