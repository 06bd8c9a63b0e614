package models

import (
	"time"
)

// IssueCategory enum
type IssueCategory string

const (
	RoadTransport   IssueCategory = "road-transport"
	WaterSanitation IssueCategory = "water-sanitation"
	Electricity     IssueCategory = "electricity"
	WasteManagement IssueCategory = "waste-management"
	PublicSafety    IssueCategory = "public-safety"
	Other           IssueCategory = "other"
)

// Categories lists every category in display order.
var Categories = []IssueCategory{RoadTransport, WaterSanitation, Electricity, WasteManagement, PublicSafety, Other}

func (c IssueCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IssuePriority enum
type IssuePriority string

const (
	Low    IssuePriority = "low"
	Medium IssuePriority = "medium"
	High   IssuePriority = "high"
)

func (p IssuePriority) Valid() bool {
	return p == Low || p == Medium || p == High
}

// IssueStatus enum
type IssueStatus string

const (
	Pending    IssueStatus = "pending"
	InProgress IssueStatus = "in-progress"
	Resolved   IssueStatus = "resolved"
)

func (s IssueStatus) Valid() bool {
	return s == Pending || s == InProgress || s == Resolved
}

// Comment is an entry appended to an issue's comment sequence.
type Comment struct {
	Author    string    `bson:"author,omitempty" json:"author,omitempty"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID          string        `bson:"_id,omitempty" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Category    IssueCategory `bson:"category" json:"category"`
	Priority    IssuePriority `bson:"priority" json:"priority"`
	Status      IssueStatus   `bson:"status" json:"status"`
	Location    string        `bson:"location" json:"location"`
	ImageURLs   []string      `bson:"imageUrls,omitempty" json:"imageUrls,omitempty"`
	SubmittedBy string        `bson:"submittedBy" json:"submittedBy"`
	UpdatedBy   string        `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	Votes       int64         `bson:"votes" json:"votes"`
	Comments    []Comment     `bson:"comments" json:"comments"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// NewIssue holds the caller-supplied fields of an issue submission. Status,
// votes, comments and timestamps are not part of it; the service sets them.
type NewIssue struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    IssueCategory `json:"category"`
	Priority    IssuePriority `json:"priority"`
	Location    string        `json:"location"`
	ImageURLs   []string      `json:"imageUrls,omitempty"`
	SubmittedBy string        `json:"submittedBy"`
}

// IssuePatch lists the issue fields a caller may change after submission.
// Nil fields are left untouched.
type IssuePatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Category    *IssueCategory `json:"category,omitempty"`
	Priority    *IssuePriority `json:"priority,omitempty"`
	Location    *string        `json:"location,omitempty"`
	ImageURLs   []string       `json:"imageUrls,omitempty"`
}

func (p IssuePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Priority == nil && p.Location == nil && p.ImageURLs == nil
}

// IssueFilters are exact-match filters combined with AND. Zero values match everything.
type IssueFilters struct {
	Status      IssueStatus   `form:"status" json:"status,omitempty"`
	Category    IssueCategory `form:"category" json:"category,omitempty"`
	SubmittedBy string        `form:"-" json:"submittedBy,omitempty"`
}

// Matches reports whether issue satisfies every non-empty filter.
func (f IssueFilters) Matches(issue *Issue) bool {
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.Category != "" && issue.Category != f.Category {
		return false
	}
	if f.SubmittedBy != "" && issue.SubmittedBy != f.SubmittedBy {
		return false
	}
	return true
}

// IssueCount is the number of issues sharing a status, category and
// priority. The dashboard statistics are summed from these groups.
type IssueCount struct {
	Status   IssueStatus   `bson:"status" json:"status"`
	Category IssueCategory `bson:"category" json:"category"`
	Priority IssuePriority `bson:"priority" json:"priority"`
	Count    int           `bson:"count" json:"count"`
}
