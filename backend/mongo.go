package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cityconnect-be/models"
)

const (
	identitiesCollection = "identities"
	usersCollection      = "users"
	issuesCollection     = "issues"
	votesCollection      = "votes"
)

// EnsureIndexes creates the unique and query indexes the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		identitiesCollection: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		votesCollection: {{
			Keys:    bson.D{{Key: "issue", Value: 1}, {Key: "user", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		issuesCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "submittedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		usersCollection: {{Keys: bson.D{{Key: "role", Value: 1}}}},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", name, err)
		}
	}
	return nil
}

// issueFilter translates IssueFilters into an exact-match AND query.
func issueFilter(filters models.IssueFilters) bson.D {
	filter := bson.D{}
	if filters.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: filters.Status})
	}
	if filters.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: filters.Category})
	}
	if filters.SubmittedBy != "" {
		filter = append(filter, bson.E{Key: "submittedBy", Value: filters.SubmittedBy})
	}
	return filter
}

// newestFirst orders by creation time descending, ties broken by id.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func issuePatchUpdate(patch models.IssuePatch, updatedBy string, at time.Time) bson.M {
	set := bson.M{"updatedAt": at}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.ImageURLs != nil {
		set["imageUrls"] = patch.ImageURLs
	}
	if updatedBy != "" {
		set["updatedBy"] = updatedBy
	}
	return bson.M{"$set": set}
}

// MongoIssues stores issues and votes.
type MongoIssues struct {
	issues *mongo.Collection
	votes  *mongo.Collection
}

func NewMongoIssues(db *mongo.Database) *MongoIssues {
	return &MongoIssues{
		issues: db.Collection(issuesCollection),
		votes:  db.Collection(votesCollection),
	}
}

func (s *MongoIssues) Insert(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = newID()
	}
	_, err := s.issues.InsertOne(ctx, issue)
	return err
}

func (s *MongoIssues) Get(ctx context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	err := s.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (s *MongoIssues) List(ctx context.Context, filters models.IssueFilters, limit int) ([]models.Issue, error) {
	findOptions := options.Find().
		SetSort(newestFirst).
		SetLimit(int64(ClampLimit(limit)))

	cursor, err := s.issues.Find(ctx, issueFilter(filters), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *MongoIssues) UpdateStatus(ctx context.Context, id string, status models.IssueStatus, updatedBy string, allowedFrom []models.IssueStatus, at time.Time) error {
	filter := bson.M{"_id": id}
	if allowedFrom != nil {
		filter["status"] = bson.M{"$in": allowedFrom}
	}
	set := bson.M{"status": status, "updatedAt": at}
	if updatedBy != "" {
		set["updatedBy"] = updatedBy
	}

	res, err := s.issues.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if allowedFrom == nil {
		return ErrNotFound
	}
	count, err := s.issues.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrTransition
}

func (s *MongoIssues) Patch(ctx context.Context, id string, patch models.IssuePatch, updatedBy string, at time.Time) error {
	res, err := s.issues.UpdateOne(ctx, bson.M{"_id": id}, issuePatchUpdate(patch, updatedBy, at))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendComment uses $push so the append happens server-side in one write.
func (s *MongoIssues) AppendComment(ctx context.Context, id string, comment models.Comment) error {
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": comment.Timestamp},
	}
	res, err := s.issues.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleVote relies on the unique (issue, user) index: a duplicate insert
// means the user already voted, so the vote is removed instead.
func (s *MongoIssues) ToggleVote(ctx context.Context, id, userID string, at time.Time) (models.VoteResult, error) {
	count, err := s.issues.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return models.VoteResult{}, err
	}
	if count == 0 {
		return models.VoteResult{}, ErrNotFound
	}

	delta, voted := int64(1), true
	_, err = s.votes.InsertOne(ctx, models.Vote{Issue: id, User: userID, CreatedAt: at})
	if mongo.IsDuplicateKeyError(err) {
		res, err := s.votes.DeleteOne(ctx, bson.M{"issue": id, "user": userID})
		if err != nil {
			return models.VoteResult{}, err
		}
		delta, voted = -res.DeletedCount, false
	} else if err != nil {
		return models.VoteResult{}, err
	}

	var updated models.Issue
	err = s.issues.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"votes": delta}, "$set": bson.M{"updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.VoteResult{}, ErrNotFound
	}
	if err != nil {
		return models.VoteResult{}, err
	}
	return models.VoteResult{Voted: voted, Votes: updated.Votes}, nil
}

// countsPipeline groups issues by status, category and priority.
var countsPipeline = mongo.Pipeline{
	{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: bson.D{
			{Key: "status", Value: "$status"},
			{Key: "category", Value: "$category"},
			{Key: "priority", Value: "$priority"},
		}},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}},
	{{Key: "$project", Value: bson.D{
		{Key: "_id", Value: 0},
		{Key: "status", Value: "$_id.status"},
		{Key: "category", Value: "$_id.category"},
		{Key: "priority", Value: "$_id.priority"},
		{Key: "count", Value: 1},
	}}},
}

func (s *MongoIssues) Counts(ctx context.Context) ([]models.IssueCount, error) {
	cursor, err := s.issues.Aggregate(ctx, countsPipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := make([]models.IssueCount, 0)
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *MongoIssues) Delete(ctx context.Context, id string) error {
	res, err := s.issues.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, _ = s.votes.DeleteMany(ctx, bson.M{"issue": id})
	return nil
}

// MongoIdentities stores authentication accounts.
type MongoIdentities struct {
	coll *mongo.Collection
}

func NewMongoIdentities(db *mongo.Database) *MongoIdentities {
	return &MongoIdentities{coll: db.Collection(identitiesCollection)}
}

func (s *MongoIdentities) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	if identity.ID == "" {
		identity.ID = newID()
	}
	_, err := s.coll.InsertOne(ctx, identity)
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *MongoIdentities) IdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoIdentities) IdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoIdentities) findOne(ctx context.Context, filter bson.M) (*models.Identity, error) {
	var identity models.Identity
	err := s.coll.FindOne(ctx, filter).Decode(&identity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}
