package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cityconnect-be/controllers"
	"cityconnect-be/middlewares"
	"cityconnect-be/models"
)

// Handlers are the controllers mounted by Register.
type Handlers struct {
	Auth     *controllers.AuthController
	Issues   *controllers.IssueController
	Stream   *controllers.StreamController
	Users    *controllers.UserController
	Files    *controllers.FileController
	Settings *controllers.SettingsController
	App      *controllers.AppController
}

// Guards are the dependencies of the access-control middlewares.
type Guards struct {
	Sessions        middlewares.SessionResolver
	Profiles        middlewares.ProfileReader
	Limiter         middlewares.Limiter
	IssueDailyLimit int
	APIKey          string
	Logger          *zap.Logger
}

func (g Guards) auth() gin.HandlerFunc {
	return middlewares.AuthMiddleware(g.Sessions)
}

func (g Guards) staff() gin.HandlerFunc {
	return middlewares.RequireRole(g.Profiles, models.Staff, models.Admin)
}

func (g Guards) admin() gin.HandlerFunc {
	return middlewares.RequireRole(g.Profiles, models.Admin)
}

// Register mounts every API route on r. Downloads under /files are public
// so stored URLs work in plain links and image tags.
func Register(r *gin.Engine, h Handlers, g Guards) {
	r.GET("/files/*key", h.Files.Download)

	api := r.Group("/api", middlewares.APIKey(g.APIKey))
	AuthRoutes(api, h, g)
	IssueRoutes(api, h, g)
	UserRoutes(api, h, g)
	FileRoutes(api, h, g)
	SettingsRoutes(api, h, g)
	AppRoutes(api, h, g)
}
