package routes

import (
	"github.com/gin-gonic/gin"

	"cityconnect-be/middlewares"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(api *gin.RouterGroup, h Handlers, g Guards) {
	issue := api.Group("/issues", g.auth())
	{
		issue.GET("", h.Issues.GetAllIssues)
		issue.GET("/mine", h.Issues.GetIssuesByUser)
		issue.GET("/stream", h.Stream.StreamIssues)
		issue.POST("", middlewares.IssueRateLimiter(g.Limiter, g.IssueDailyLimit, g.Logger), h.Issues.CreateIssue)
		issue.GET("/:id", h.Issues.GetIssue)
		issue.PATCH("/:id", h.Issues.UpdateIssue)
		issue.PUT("/:id/status", g.staff(), h.Issues.UpdateIssueStatus)
		issue.POST("/:id/comments", h.Issues.AddComment)
		issue.POST("/:id/vote", h.Issues.HandleVoteOnIssue)
		issue.DELETE("/:id", h.Issues.DeleteIssue)
	}
}
