package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"cityconnect-be/apperror"
	"cityconnect-be/backend"
	"cityconnect-be/metrics"
	"cityconnect-be/models"
)

// Done is the payload of writes that return nothing.
type Done struct{}

// CommentInput is the caller-supplied part of a comment.
type CommentInput struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type IssueService struct {
	issues backend.IssueStore
	feed   backend.ChangeFeed
	policy models.TransitionPolicy
	logger *zap.Logger
	now    func() time.Time
}

func NewIssueService(issues backend.IssueStore, feed backend.ChangeFeed, policy models.TransitionPolicy, logger *zap.Logger) *IssueService {
	return &IssueService{
		issues: issues,
		feed:   feed,
		policy: policy,
		logger: logger.Named("issues"),
		now:    time.Now,
	}
}

// Policy is the status transition policy in force.
func (s *IssueService) Policy() models.TransitionPolicy {
	return s.policy
}

func (s *IssueService) readFailed(op string, err error, notFound string) error {
	if errors.Is(err, backend.ErrNotFound) {
		return apperror.NotFound(notFound)
	}
	s.logger.Error("backend read failed", zap.String("op", op), zap.Error(err))
	return apperror.Read("Failed to retrieve issues", err)
}

func (s *IssueService) writeFailed(op string, err error, message string) error {
	if errors.Is(err, backend.ErrNotFound) {
		return apperror.NotFound("Issue not found")
	}
	s.logger.Error("backend write failed", zap.String("op", op), zap.Error(err))
	return apperror.Write(message, err)
}

// changed signals subscribers. The write has already succeeded, so a
// publish failure is only logged.
func (s *IssueService) changed(ctx context.Context) {
	if err := s.feed.Publish(ctx, backend.IssuesTopic); err != nil {
		s.logger.Warn("publishing issue change failed", zap.Error(err))
	}
}

func validateFilters(filters models.IssueFilters) error {
	if filters.Status != "" && !filters.Status.Valid() {
		return apperror.ValidationFailed("status", "Invalid status")
	}
	if filters.Category != "" && !filters.Category.Valid() {
		return apperror.ValidationFailed("category", "Invalid category")
	}
	return nil
}

// CreateIssue stores a new issue and returns its id. Status is always
// pending, votes zero and comments empty.
func (s *IssueService) CreateIssue(ctx context.Context, in models.NewIssue) (out Envelope[string]) {
	defer guard(s.logger, "CreateIssue", &out)

	if strings.TrimSpace(in.Title) == "" {
		return fail[string](apperror.ValidationFailed("title", "Title is required"))
	}
	if !in.Category.Valid() {
		return fail[string](apperror.ValidationFailed("category", "Invalid category"))
	}
	if in.Priority == "" {
		in.Priority = models.Medium
	}
	if !in.Priority.Valid() {
		return fail[string](apperror.ValidationFailed("priority", "Invalid priority"))
	}

	now := s.now()
	issue := &models.Issue{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      models.Pending,
		Location:    in.Location,
		ImageURLs:   in.ImageURLs,
		SubmittedBy: in.SubmittedBy,
		Votes:       0,
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.issues.Insert(ctx, issue); err != nil {
		return fail[string](s.writeFailed("CreateIssue", err, "Failed to create issue"))
	}

	metrics.IssueCreated(string(issue.Category))
	s.logger.Info("issue created", zap.String("issueID", issue.ID), zap.String("category", string(issue.Category)))
	s.changed(ctx)
	return ok(issue.ID)
}

func (s *IssueService) GetIssue(ctx context.Context, id string) (out Envelope[*models.Issue]) {
	defer guard(s.logger, "GetIssue", &out)

	issue, err := s.issues.Get(ctx, id)
	if err != nil {
		return fail[*models.Issue](s.readFailed("GetIssue", err, "Issue not found"))
	}
	return ok(issue)
}

// GetAllIssues returns issues matching every given filter, newest first,
// capped at limit (DefaultIssueLimit when limit <= 0).
func (s *IssueService) GetAllIssues(ctx context.Context, filters models.IssueFilters, limit int) (out Envelope[[]models.Issue]) {
	defer guard(s.logger, "GetAllIssues", &out)

	if err := validateFilters(filters); err != nil {
		return fail[[]models.Issue](err)
	}
	issues, err := s.issues.List(ctx, filters, limit)
	if err != nil {
		return fail[[]models.Issue](s.readFailed("GetAllIssues", err, "Issue not found"))
	}
	return ok(issues)
}

// CountIssues groups every issue by status, category and priority. Unlike
// GetAllIssues it is not capped.
func (s *IssueService) CountIssues(ctx context.Context) (out Envelope[[]models.IssueCount]) {
	defer guard(s.logger, "CountIssues", &out)

	counts, err := s.issues.Counts(ctx)
	if err != nil {
		s.logger.Error("counting issues failed", zap.Error(err))
		return fail[[]models.IssueCount](apperror.Read("Failed to load issue statistics", err))
	}
	return ok(counts)
}

func (s *IssueService) GetUserIssues(ctx context.Context, userID string) Envelope[[]models.Issue] {
	if userID == "" {
		return fail[[]models.Issue](apperror.ValidationFailed("userId", "User id is required"))
	}
	return s.GetAllIssues(ctx, models.IssueFilters{SubmittedBy: userID}, 0)
}

// UpdateIssueStatus sets the status. Which moves are accepted depends on
// the configured TransitionPolicy; the default accepts any move.
func (s *IssueService) UpdateIssueStatus(ctx context.Context, id string, status models.IssueStatus, updatedBy string) (out Envelope[Done]) {
	defer guard(s.logger, "UpdateIssueStatus", &out)

	if !status.Valid() {
		return fail[Done](apperror.ValidationFailed("status", "Invalid status"))
	}
	err := s.issues.UpdateStatus(ctx, id, status, updatedBy, s.policy.AllowedFrom(status), s.now())
	if errors.Is(err, backend.ErrTransition) {
		return fail[Done](apperror.Conflictf("Issue cannot move to %s from its current status", status))
	}
	if err != nil {
		return fail[Done](s.writeFailed("UpdateIssueStatus", err, "Failed to update issue"))
	}

	metrics.IssueEvent("status")
	s.logger.Info("issue status updated", zap.String("issueID", id), zap.String("status", string(status)), zap.String("updatedBy", updatedBy))
	s.changed(ctx)
	return ok(Done{})
}

// UpdateIssue applies an explicit patch of the editable fields.
func (s *IssueService) UpdateIssue(ctx context.Context, id string, patch models.IssuePatch, updatedBy string) (out Envelope[Done]) {
	defer guard(s.logger, "UpdateIssue", &out)

	if patch.Empty() {
		return fail[Done](apperror.ValidationFailed("", "Nothing to update"))
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fail[Done](apperror.ValidationFailed("title", "Title is required"))
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return fail[Done](apperror.ValidationFailed("category", "Invalid category"))
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return fail[Done](apperror.ValidationFailed("priority", "Invalid priority"))
	}
	if err := s.issues.Patch(ctx, id, patch, updatedBy, s.now()); err != nil {
		return fail[Done](s.writeFailed("UpdateIssue", err, "Failed to update issue"))
	}

	s.changed(ctx)
	return ok(Done{})
}

// AddComment appends a comment stamped with the server time. The append is
// a single backend write, so concurrent comments are all kept.
func (s *IssueService) AddComment(ctx context.Context, id string, in CommentInput) (out Envelope[models.Comment]) {
	defer guard(s.logger, "AddComment", &out)

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return fail[models.Comment](apperror.ValidationFailed("content", "Comment cannot be empty"))
	}
	comment := models.Comment{Author: in.Author, Content: content, Timestamp: s.now()}
	if err := s.issues.AppendComment(ctx, id, comment); err != nil {
		return fail[models.Comment](s.writeFailed("AddComment", err, "Failed to add comment"))
	}

	metrics.IssueEvent("comment")
	s.changed(ctx)
	return ok(comment)
}

// VoteIssue toggles userID's vote on the issue.
func (s *IssueService) VoteIssue(ctx context.Context, id, userID string) (out Envelope[models.VoteResult]) {
	defer guard(s.logger, "VoteIssue", &out)

	if userID == "" {
		return fail[models.VoteResult](apperror.ValidationFailed("userId", "User id is required"))
	}
	res, err := s.issues.ToggleVote(ctx, id, userID, s.now())
	if err != nil {
		return fail[models.VoteResult](s.writeFailed("VoteIssue", err, "Failed to cast vote"))
	}

	metrics.IssueEvent("vote")
	s.changed(ctx)
	return ok(res)
}

// DeleteIssue permanently removes the issue and its votes.
func (s *IssueService) DeleteIssue(ctx context.Context, id string) (out Envelope[Done]) {
	defer guard(s.logger, "DeleteIssue", &out)

	if err := s.issues.Delete(ctx, id); err != nil {
		return fail[Done](s.writeFailed("DeleteIssue", err, "Failed to delete issue"))
	}

	metrics.IssueEvent("deleted")
	s.logger.Info("issue deleted", zap.String("issueID", id))
	s.changed(ctx)
	return ok(Done{})
}

// SubscribeToIssues opens a live query with the same filter and order rules
// as GetAllIssues.
func (s *IssueService) SubscribeToIssues(ctx context.Context, filters models.IssueFilters, limit int) (out Envelope[*Subscription[[]models.Issue]]) {
	defer guard(s.logger, "SubscribeToIssues", &out)

	if err := validateFilters(filters); err != nil {
		return fail[*Subscription[[]models.Issue]](err)
	}
	sub, err := watch(ctx, s.feed, backend.IssuesTopic, s.logger, func(ctx context.Context) ([]models.Issue, error) {
		return s.issues.List(ctx, filters, limit)
	})
	if err != nil {
		return fail[*Subscription[[]models.Issue]](s.readFailed("SubscribeToIssues", fmt.Errorf("opening issue subscription: %w", err), "Issue not found"))
	}
	return ok(sub)
}
