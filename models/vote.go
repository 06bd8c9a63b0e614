package models

import (
	"time"
)

// Vote represents a user's vote on an issue
type Vote struct {
	Issue     string    `bson:"issue" json:"issue"`
	User      string    `bson:"user" json:"user"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// VoteResult is the outcome of toggling a vote.
type VoteResult struct {
	Voted bool  `json:"voted"`
	Votes int64 `json:"votes"`
}
