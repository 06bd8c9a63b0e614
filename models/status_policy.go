package models

// TransitionPolicy decides which status changes an issue accepts.
type TransitionPolicy string

const (
	// AnyTransition accepts every change between known statuses, including
	// resolved back to pending. Staff use it to reopen issues.
	AnyTransition TransitionPolicy = "any"
	// ForwardOnly accepts staying put or moving exactly one step along
	// pending -> in-progress -> resolved.
	ForwardOnly TransitionPolicy = "forward"
)

func (p TransitionPolicy) Valid() bool {
	return p == AnyTransition || p == ForwardOnly
}

// AllowedFrom returns the statuses an issue may currently hold for a move to
// target to be accepted. A nil result means any current status is accepted.
func (p TransitionPolicy) AllowedFrom(target IssueStatus) []IssueStatus {
	if p != ForwardOnly {
		return nil
	}
	switch target {
	case Pending:
		return []IssueStatus{Pending}
	case InProgress:
		return []IssueStatus{Pending, InProgress}
	case Resolved:
		return []IssueStatus{InProgress, Resolved}
	}
	return []IssueStatus{}
}

// Allows reports whether moving from current to target is accepted.
func (p TransitionPolicy) Allows(current, target IssueStatus) bool {
	allowed := p.AllowedFrom(target)
	if allowed == nil {
		return true
	}
	for _, s := range allowed {
		if s == current {
			return true
		}
	}
	return false
}
