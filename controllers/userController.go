package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cityconnect-be/middlewares"
	"cityconnect-be/models"
	"cityconnect-be/services"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// GetProfile returns the signed-in user's profile.
func (uc *UserController) GetProfile(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, uc.users.GetUserProfile(ctx, middlewares.UserID(c)))
}

// GetUser returns any user's profile. Staff only.
func (uc *UserController) GetUser(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, uc.users.GetUserProfile(ctx, c.Param("id")))
}

// CreateProfile creates the signed-in user's missing profile, for
// identities whose profile write failed at registration. The profile is a
// citizen's; roles are changed by admins through SetRole.
func (uc *UserController) CreateProfile(c *gin.Context) {
	var fields models.ProfileFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusCreated, uc.users.CreateOwnProfile(ctx, middlewares.UserID(c), fields))
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, uc.users.UpdateUserProfile(ctx, middlewares.UserID(c), patch))
}

// SetRole changes another user's role. Admin only.
func (uc *UserController) SetRole(c *gin.Context) {
	var change models.RoleChange
	if err := c.ShouldBindJSON(&change); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, uc.users.SetUserRole(ctx, c.Param("id"), change))
}

// GetStaffUsers lists staff and admin profiles.
func (uc *UserController) GetStaffUsers(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, uc.users.GetStaffUsers(ctx))
}
