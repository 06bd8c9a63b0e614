package backend

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cityconnect-be/models"
)

// MemoryStore implements every store interface in process. Documents are
// copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu         sync.Mutex
	identities map[string]*models.Identity
	issues     map[string]*models.Issue
	votes      map[string]map[string]bool
	users      map[string]*models.User
	settings   map[string]*models.SettingsDoc
	objects    map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]*models.Identity),
		issues:     make(map[string]*models.Issue),
		votes:      make(map[string]map[string]bool),
		users:      make(map[string]*models.User),
		settings:   make(map[string]*models.SettingsDoc),
		objects:    make(map[string]memoryObject),
	}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// Identities

func (m *MemoryStore) CreateIdentity(_ context.Context, identity *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(identity.Email)
	for _, existing := range m.identities {
		if strings.ToLower(existing.Email) == email {
			return ErrEmailTaken
		}
	}
	if identity.ID == "" {
		identity.ID = newID()
	}
	stored := *identity
	m.identities[identity.ID] = &stored
	return nil
}

func (m *MemoryStore) IdentityByEmail(_ context.Context, email string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, identity := range m.identities {
		if strings.ToLower(identity.Email) == email {
			found := *identity
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) IdentityByID(_ context.Context, id string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := *identity
	return &found, nil
}

// Issues

func copyIssue(issue *models.Issue) *models.Issue {
	c := *issue
	c.Comments = slices.Clone(issue.Comments)
	c.ImageURLs = slices.Clone(issue.ImageURLs)
	if c.Comments == nil {
		c.Comments = []models.Comment{}
	}
	return &c
}

func (m *MemoryStore) Insert(_ context.Context, issue *models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if issue.ID == "" {
		issue.ID = newID()
	}
	m.issues[issue.ID] = copyIssue(issue)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	issue, ok := m.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyIssue(issue), nil
}

func (m *MemoryStore) List(_ context.Context, filters models.IssueFilters, limit int) ([]models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	issues := make([]models.Issue, 0)
	for _, issue := range m.issues {
		if filters.Matches(issue) {
			issues = append(issues, *copyIssue(issue))
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].CreatedAt.Equal(issues[j].CreatedAt) {
			return issues[i].ID > issues[j].ID
		}
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
	if limit = ClampLimit(limit); len(issues) > limit {
		issues = issues[:limit]
	}
	return issues, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id string, status models.IssueStatus, updatedBy string, allowedFrom []models.IssueStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	issue, ok := m.issues[id]
	if !ok {
		return ErrNotFound
	}
	if allowedFrom != nil && !slices.Contains(allowedFrom, issue.Status) {
		return ErrTransition
	}
	issue.Status = status
	issue.UpdatedAt = at
	if updatedBy != "" {
		issue.UpdatedBy = updatedBy
	}
	return nil
}

func (m *MemoryStore) Patch(_ context.Context, id string, patch models.IssuePatch, updatedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	issue, ok := m.issues[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Title != nil {
		issue.Title = *patch.Title
	}
	if patch.Description != nil {
		issue.Description = *patch.Description
	}
	if patch.Category != nil {
		issue.Category = *patch.Category
	}
	if patch.Priority != nil {
		issue.Priority = *patch.Priority
	}
	if patch.Location != nil {
		issue.Location = *patch.Location
	}
	if patch.ImageURLs != nil {
		issue.ImageURLs = slices.Clone(patch.ImageURLs)
	}
	if updatedBy != "" {
		issue.UpdatedBy = updatedBy
	}
	issue.UpdatedAt = at
	return nil
}

func (m *MemoryStore) AppendComment(_ context.Context, id string, comment models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	issue, ok := m.issues[id]
	if !ok {
		return ErrNotFound
	}
	issue.Comments = append(issue.Comments, comment)
	issue.UpdatedAt = comment.Timestamp
	return nil
}

func (m *MemoryStore) ToggleVote(_ context.Context, id, userID string, at time.Time) (models.VoteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	issue, ok := m.issues[id]
	if !ok {
		return models.VoteResult{}, ErrNotFound
	}
	voters := m.votes[id]
	if voters == nil {
		voters = make(map[string]bool)
		m.votes[id] = voters
	}
	voted := !voters[userID]
	if voted {
		voters[userID] = true
		issue.Votes++
	} else {
		delete(voters, userID)
		issue.Votes--
	}
	issue.UpdatedAt = at
	return models.VoteResult{Voted: voted, Votes: issue.Votes}, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.issues[id]; !ok {
		return ErrNotFound
	}
	delete(m.issues, id)
	delete(m.votes, id)
	return nil
}

func (m *MemoryStore) Counts(_ context.Context) ([]models.IssueCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type group struct {
		status   models.IssueStatus
		category models.IssueCategory
		priority models.IssuePriority
	}
	groups := make(map[group]int)
	for _, issue := range m.issues {
		groups[group{issue.Status, issue.Category, issue.Priority}]++
	}
	counts := make([]models.IssueCount, 0, len(groups))
	for g, n := range groups {
		counts = append(counts, models.IssueCount{Status: g.status, Category: g.category, Priority: g.priority, Count: n})
	}
	return counts, nil
}

// MemoryStore serves two interfaces with Get/Put/Patch methods, so the user
// and settings stores are exposed through thin views.

func (m *MemoryStore) Users() UserStore { return memoryUsers{m} }

func (m *MemoryStore) Settings() SettingsStore { return memorySettings{m} }

func (m *MemoryStore) Objects() ObjectStore { return memoryObjects{m} }

type memoryUsers struct{ m *MemoryStore }

func (u memoryUsers) Put(_ context.Context, user *models.User) error {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	stored := *user
	u.m.users[user.ID] = &stored
	return nil
}

func (u memoryUsers) Create(_ context.Context, user *models.User) error {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	if _, ok := u.m.users[user.ID]; ok {
		return ErrExists
	}
	stored := *user
	u.m.users[user.ID] = &stored
	return nil
}

func (u memoryUsers) Get(_ context.Context, id string) (*models.User, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	user, ok := u.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := *user
	return &found, nil
}

func (u memoryUsers) Patch(_ context.Context, id string, patch models.ProfilePatch, at time.Time) error {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	user, ok := u.m.users[id]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(user)
	user.UpdatedAt = at
	return nil
}

func (u memoryUsers) ListByRoles(_ context.Context, roles ...models.Role) ([]models.User, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	users := make([]models.User, 0)
	for _, user := range u.m.users {
		if slices.Contains(roles, user.Role) {
			users = append(users, *user)
		}
	}
	return users, nil
}

type memorySettings struct{ m *MemoryStore }

func settingsKey(collection, id string) string {
	return collection + "/" + id
}

func copySettings(values models.Settings) models.Settings {
	c := make(models.Settings, len(values))
	for k, v := range values {
		c[k] = v
	}
	return c
}

func (s memorySettings) Get(_ context.Context, collection, id string) (*models.SettingsDoc, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	doc, ok := s.m.settings[settingsKey(collection, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.SettingsDoc{ID: doc.ID, Values: copySettings(doc.Values), UpdatedAt: doc.UpdatedAt}, nil
}

func (s memorySettings) Put(_ context.Context, collection, id string, values models.Settings, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	s.m.settings[settingsKey(collection, id)] = &models.SettingsDoc{ID: id, Values: copySettings(values), UpdatedAt: at}
	return nil
}

func (s memorySettings) Merge(_ context.Context, collection, id string, values models.Settings, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	key := settingsKey(collection, id)
	doc, ok := s.m.settings[key]
	if !ok {
		doc = &models.SettingsDoc{ID: id, Values: models.Settings{}}
		s.m.settings[key] = doc
	}
	for k, v := range values {
		doc.Values[k] = v
	}
	doc.UpdatedAt = at
	return nil
}

type memoryObjects struct{ m *MemoryStore }

func (o memoryObjects) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o.m.mu.Lock()
	defer o.m.mu.Unlock()

	o.m.objects[key] = memoryObject{contentType: contentType, data: data}
	return nil
}

func (o memoryObjects) Open(_ context.Context, key string) (*Object, error) {
	o.m.mu.Lock()
	defer o.m.mu.Unlock()

	obj, ok := o.m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		ReadCloser:  io.NopCloser(bytes.NewReader(obj.data)),
		Key:         key,
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (o memoryObjects) Delete(_ context.Context, key string) error {
	o.m.mu.Lock()
	defer o.m.mu.Unlock()

	if _, ok := o.m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(o.m.objects, key)
	return nil
}
