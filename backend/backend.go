// Package backend binds the process to the managed backend: identities,
// documents, binary objects, the realtime change feed and session revocation.
// Each concern is an interface with a MongoDB/Redis implementation and an
// in-memory one used by tests and offline development.
package backend

import (
	"context"
	"errors"
	"io"
	"time"

	"cityconnect-be/models"
)

var (
	ErrNotFound   = errors.New("backend: document not found")
	ErrEmailTaken = errors.New("backend: email already registered")
	ErrExists     = errors.New("backend: document already exists")
	// ErrTransition is returned by UpdateStatus when the issue exists but its
	// current status is not one of the allowed ones.
	ErrTransition = errors.New("backend: status transition not allowed")
)

const (
	DefaultIssueLimit = 50
	MaxIssueLimit     = 500
)

// ClampLimit maps a caller-supplied result cap onto [1, MaxIssueLimit],
// using DefaultIssueLimit for zero or negative values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultIssueLimit
	}
	if limit > MaxIssueLimit {
		return MaxIssueLimit
	}
	return limit
}

type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity *models.Identity) error
	IdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	IdentityByID(ctx context.Context, id string) (*models.Identity, error)
}

type IssueStore interface {
	Insert(ctx context.Context, issue *models.Issue) error
	Get(ctx context.Context, id string) (*models.Issue, error)
	// List returns issues matching filters, newest first, at most limit.
	List(ctx context.Context, filters models.IssueFilters, limit int) ([]models.Issue, error)
	// UpdateStatus sets status, updatedAt and updatedBy (when non-empty).
	// A non-nil allowedFrom restricts the update to issues whose current
	// status is listed.
	UpdateStatus(ctx context.Context, id string, status models.IssueStatus, updatedBy string, allowedFrom []models.IssueStatus, at time.Time) error
	Patch(ctx context.Context, id string, patch models.IssuePatch, updatedBy string, at time.Time) error
	// AppendComment appends atomically; concurrent appends are all retained.
	AppendComment(ctx context.Context, id string, comment models.Comment) error
	// ToggleVote adds the user's vote, or removes it if already present.
	ToggleVote(ctx context.Context, id, userID string, at time.Time) (models.VoteResult, error)
	Delete(ctx context.Context, id string) error
	// Counts groups every issue by status, category and priority.
	Counts(ctx context.Context) ([]models.IssueCount, error)
}

type UserStore interface {
	Put(ctx context.Context, user *models.User) error
	// Create inserts user and fails with ErrExists if the id is taken.
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	Patch(ctx context.Context, id string, patch models.ProfilePatch, at time.Time) error
	ListByRoles(ctx context.Context, roles ...models.Role) ([]models.User, error)
}

// SettingsStore holds opaque singleton documents keyed by (collection, id).
type SettingsStore interface {
	Get(ctx context.Context, collection, id string) (*models.SettingsDoc, error)
	Put(ctx context.Context, collection, id string, values models.Settings, at time.Time) error
	// Merge sets the given keys, creating the document when missing.
	Merge(ctx context.Context, collection, id string, values models.Settings, at time.Time) error
}

// Object is a stored binary object opened for reading.
type Object struct {
	io.ReadCloser
	Key         string
	ContentType string
	Size        int64
}

type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// Listener receives a signal for every change published on its topic.
// Signals may be coalesced; receivers re-read state on each one.
type Listener interface {
	C() <-chan struct{}
	Close() error
}

type ChangeFeed interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string) (Listener, error)
}

type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Topics published on the change feed.
const (
	IssuesTopic = "issues"
)

func SettingsTopic(collection, id string) string {
	return collection + ":" + id
}
