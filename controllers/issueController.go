package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cityconnect-be/apperror"
	"cityconnect-be/middlewares"
	"cityconnect-be/models"
	"cityconnect-be/services"
	"cityconnect-be/views"
)

type IssueController struct {
	issues *services.IssueService
	users  *services.UserService
}

func NewIssueController(issues *services.IssueService, users *services.UserService) *IssueController {
	return &IssueController{issues: issues, users: users}
}

func bindFilters(c *gin.Context) (models.IssueFilters, int, bool) {
	var filters models.IssueFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		badRequest(c, "Invalid filters")
		return filters, 0, false
	}
	limit, ok := queryLimit(c)
	if !ok {
		badRequest(c, "Invalid limit")
		return filters, 0, false
	}
	return filters, limit, true
}

// GetAllIssues lists issues newest first, optionally filtered by status and
// category.
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	filters, limit, ok := bindFilters(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, ic.issues.GetAllIssues(ctx, filters, limit))
}

// GetIssuesByUser lists the authenticated user's own issues.
func (ic *IssueController) GetIssuesByUser(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, ic.issues.GetUserIssues(ctx, middlewares.UserID(c)))
}

func (ic *IssueController) GetIssue(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, ic.issues.GetIssue(ctx, c.Param("id")))
}

// CreateIssue handles the creation of a new issue
func (ic *IssueController) CreateIssue(c *gin.Context) {
	var form views.IssueForm
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

	respond(c, http.StatusCreated, ic.issues.CreateIssue(ctx, form.NewIssue(middlewares.UserID(c))))
}

// authorizeOwnerOrStaff allows the issue's submitter and staff/admin users.
func (ic *IssueController) authorizeOwnerOrStaff(c *gin.Context, issueID string) bool {
	ctx, cancel := requestContext(c)
	defer cancel()

	userID := middlewares.UserID(c)
	issue := ic.issues.GetIssue(ctx, issueID)
	if !issue.Success {
		respondError(c, issue.Err)
		return false
	}
	if issue.Data.SubmittedBy == userID {
		return true
	}
	profile := ic.users.GetUserProfile(ctx, userID)
	if profile.Success && profile.Data.Role.IsStaff() {
		return true
	}
	respondError(c, apperror.Forbidden("You are not authorized to modify this issue"))
	return false
}

// UpdateIssue lets the submitter or staff edit the issue's details.
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	var patch models.IssuePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	id := c.Param("id")
	if !ic.authorizeOwnerOrStaff(c, id) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, ic.issues.UpdateIssue(ctx, id, patch, middlewares.UserID(c)))
}

// UpdateIssueStatus is restricted to staff and admin by the route.
func (ic *IssueController) UpdateIssueStatus(c *gin.Context) {
	var input struct {
		Status models.IssueStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Status is required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, ic.issues.UpdateIssueStatus(ctx, c.Param("id"), input.Status, middlewares.UserID(c)))
}

// AddComment appends a comment authored by the signed-in user.
func (ic *IssueController) AddComment(c *gin.Context) {
	var input struct {
		Content string `json:"content" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Comment cannot be empty")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	author := middlewares.UserID(c)
	if profile := ic.users.GetUserProfile(ctx, author); profile.Success && profile.Data.Name != "" {
		author = profile.Data.Name
	}

	respond(c, http.StatusCreated, ic.issues.AddComment(ctx, c.Param("id"), services.CommentInput{
		Author:  author,
		Content: input.Content,
	}))
}

// HandleVoteOnIssue toggles the user's vote on an issue
func (ic *IssueController) HandleVoteOnIssue(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, ic.issues.VoteIssue(ctx, c.Param("id"), middlewares.UserID(c)))
}

// DeleteIssue lets the submitter or staff remove the issue permanently.
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	id := c.Param("id")
	if !ic.authorizeOwnerOrStaff(c, id) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	respond(c, http.StatusOK, ic.issues.DeleteIssue(ctx, id))
}
