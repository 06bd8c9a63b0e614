package views

import (
	"context"

	"go.uber.org/zap"

	"cityconnect-be/models"
	"cityconnect-be/services"
)

const recentIssueCount = 5

// Session is the signed-in user as seen by the views. It is built once per
// request by the shell and passed down explicitly.
type Session struct {
	Identity *models.Identity `json:"identity"`
	Profile  *models.User     `json:"profile"`
}

type Stats struct {
	TotalIssues      int                          `json:"totalIssues"`
	PendingIssues    int                          `json:"pendingIssues"`
	InProgressIssues int                          `json:"inProgressIssues"`
	ResolvedIssues   int                          `json:"resolvedIssues"`
	ByCategory       map[models.IssueCategory]int `json:"byCategory"`
	ByPriority       map[models.IssuePriority]int `json:"byPriority"`
}

func emptyStats() Stats {
	s := Stats{
		ByCategory: make(map[models.IssueCategory]int, len(models.Categories)),
		ByPriority: map[models.IssuePriority]int{models.Low: 0, models.Medium: 0, models.High: 0},
	}
	for _, c := range models.Categories {
		s.ByCategory[c] = 0
	}
	return s
}

// ComputeStats sums the grouped issue counts by status, category and
// priority.
func ComputeStats(counts []models.IssueCount) Stats {
	s := emptyStats()
	for _, c := range counts {
		s.TotalIssues += c.Count
		switch c.Status {
		case models.Pending:
			s.PendingIssues += c.Count
		case models.InProgress:
			s.InProgressIssues += c.Count
		case models.Resolved:
			s.ResolvedIssues += c.Count
		}
		s.ByCategory[c.Category] += c.Count
		s.ByPriority[c.Priority] += c.Count
	}
	return s
}

type Dashboard struct {
	User   *models.User   `json:"user"`
	Stats  Stats          `json:"stats"`
	Recent []models.Issue `json:"recent"`
	Issues []models.Issue `json:"issues"`
}

// IssueLister lists and counts issues.
type IssueLister interface {
	GetAllIssues(ctx context.Context, filters models.IssueFilters, limit int) services.Envelope[[]models.Issue]
	CountIssues(ctx context.Context) services.Envelope[[]models.IssueCount]
}

type DashboardView struct {
	issues IssueLister
	logger *zap.Logger
}

func NewDashboardView(issues IssueLister, logger *zap.Logger) *DashboardView {
	return &DashboardView{issues: issues, logger: logger.Named("dashboard")}
}

// Load builds the dashboard for session. The statistics cover every issue
// while the list holds the newest ones. A failed load is logged and leaves
// that part empty.
func (v *DashboardView) Load(ctx context.Context, session Session) Dashboard {
	d := Dashboard{
		User:   session.Profile,
		Stats:  emptyStats(),
		Recent: []models.Issue{},
		Issues: []models.Issue{},
	}

	if counts := v.issues.CountIssues(ctx); counts.Success {
		d.Stats = ComputeStats(counts.Data)
	} else {
		v.logger.Error("loading dashboard stats failed", zap.String("error", counts.Error), zap.Error(counts.Err))
	}

	res := v.issues.GetAllIssues(ctx, models.IssueFilters{}, 0)
	if !res.Success {
		v.logger.Error("loading dashboard issues failed", zap.String("error", res.Error), zap.Error(res.Err))
		return d
	}
	d.Issues = res.Data
	d.Recent = res.Data[:min(recentIssueCount, len(res.Data))]
	return d
}
