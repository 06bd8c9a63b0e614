package backend

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cityconnect-be/models"
)

// MongoUsers stores profiles keyed by identity id.
type MongoUsers struct {
	coll *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{coll: db.Collection(usersCollection)}
}

func (s *MongoUsers) Put(ctx context.Context, user *models.User) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoUsers) Create(ctx context.Context, user *models.User) error {
	_, err := s.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	return err
}

func (s *MongoUsers) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func profilePatchUpdate(patch models.ProfilePatch, at time.Time) bson.M {
	set := bson.M{"updatedAt": at}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.Department != nil {
		set["department"] = *patch.Department
	}
	if patch.EmployeeID != nil {
		set["employeeId"] = *patch.EmployeeID
	}
	return bson.M{"$set": set}
}

func (s *MongoUsers) Patch(ctx context.Context, id string, patch models.ProfilePatch, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, profilePatchUpdate(patch, at))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUsers) ListByRoles(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"role": bson.M{"$in": roles}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// MongoSettings stores opaque singleton documents across collections.
type MongoSettings struct {
	db *mongo.Database
}

func NewMongoSettings(db *mongo.Database) *MongoSettings {
	return &MongoSettings{db: db}
}

func (s *MongoSettings) Get(ctx context.Context, collection, id string) (*models.SettingsDoc, error) {
	var doc models.SettingsDoc
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Values = plainSettings(doc.Values)
	return &doc, nil
}

// plainSettings converts nested BSON documents and arrays to plain Go maps
// and slices so settings values look the same whichever store produced them.
func plainSettings(values models.Settings) models.Settings {
	out := make(models.Settings, len(values))
	for k, v := range values {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plainValue(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plainValue(e)
		}
		return m
	case primitive.A:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = plainValue(e)
		}
		return a
	}
	return v
}

func (s *MongoSettings) Put(ctx context.Context, collection, id string, values models.Settings, at time.Time) error {
	doc := models.SettingsDoc{ID: id, Values: values, UpdatedAt: at}
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func settingsMergeUpdate(values models.Settings, at time.Time) bson.M {
	set := bson.M{"updatedAt": at}
	for k, v := range values {
		set["values."+k] = v
	}
	return bson.M{"$set": set}
}

func (s *MongoSettings) Merge(ctx context.Context, collection, id string, values models.Settings, at time.Time) error {
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		settingsMergeUpdate(values, at),
		options.Update().SetUpsert(true),
	)
	return err
}
