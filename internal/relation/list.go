package relation

import (
	"github.com/google/uuid"

	"socialgraph/backend/internal/models"
)

// ListType selects one projection of a user's edges.
type ListType string

const (
	ListFriends   ListType = "friends"
	ListRequests  ListType = "requests"
	ListFollowers ListType = "followers"
	ListOutgoing  ListType = "outgoing"
	ListBlocked   ListType = "blocked"
	ListFollowing ListType = "following"
)

// ListTypes is every valid ListType in display order.
var ListTypes = []ListType{ListFriends, ListRequests, ListFollowers, ListOutgoing, ListBlocked, ListFollowing}

// ParseListType validates s. An empty string selects ListFriends.
func ParseListType(s string) (ListType, error) {
	if s == "" {
		return ListFriends, nil
	}
	for _, lt := range ListTypes {
		if string(lt) == s {
			return lt, nil
		}
	}
	return "", &Error{Code: CodeInvalidType, Message: "invalid type: " + s}
}

// Side is the end of the edge the listing user occupies.
type Side uint8

const (
	// SideRequester lists the receivers of edges the user created.
	SideRequester Side = iota
	// SideReceiver lists the requesters of edges pointing at the user.
	SideReceiver
)

// Filter is the edge predicate behind a ListType. Both stores evaluate it.
type Filter struct {
	Side     Side
	Status   models.EdgeStatus
	Requests []models.FriendRequestStatus
	// RequestNull restricts to edges without a friend request.
	RequestNull bool
	// ByName orders by the other user's name; otherwise newest edge first.
	ByName bool
}

// Filter returns the predicate for lt.
func (lt ListType) Filter() Filter {
	switch lt {
	case ListFriends:
		return Filter{Side: SideRequester, Status: models.EdgeFriend, ByName: true}
	case ListRequests:
		return Filter{Side: SideReceiver, Status: models.EdgeFollowing, Requests: []models.FriendRequestStatus{models.RequestPending}}
	case ListFollowers:
		return Filter{Side: SideReceiver, Status: models.EdgeFollowing}
	case ListOutgoing:
		return Filter{Side: SideRequester, Status: models.EdgeFollowing, Requests: []models.FriendRequestStatus{models.RequestPending, models.RequestDeclined}}
	case ListBlocked:
		return Filter{Side: SideRequester, Status: models.EdgeBlocked}
	case ListFollowing:
		return Filter{Side: SideRequester, Status: models.EdgeFollowing, RequestNull: true}
	}
	return Filter{}
}

// Matches reports whether edge satisfies f for userID.
func (f Filter) Matches(userID uuid.UUID, edge *models.UserEdge) bool {
	if f.Side == SideRequester && edge.RequesterID != userID {
		return false
	}
	if f.Side == SideReceiver && edge.ReceiverID != userID {
		return false
	}
	if edge.Status != f.Status {
		return false
	}
	if f.RequestNull {
		return edge.FriendRequestStatus == nil
	}
	if len(f.Requests) == 0 {
		return true
	}
	for _, r := range f.Requests {
		if edge.RequestStatus() == r {
			return true
		}
	}
	return false
}

// UserSummary is one row of a relationship listing.
type UserSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ImagePreview string    `json:"image_preview"`
}

// Counts holds the badge count of every ListType.
type Counts struct {
	Friends   int64 `json:"friends"`
	Requests  int64 `json:"requests"`
	Followers int64 `json:"followers"`
	Outgoing  int64 `json:"outgoing"`
	Blocked   int64 `json:"blocked"`
	Following int64 `json:"following"`
}

func (c *Counts) set(lt ListType, n int64) {
	switch lt {
	case ListFriends:
		c.Friends = n
	case ListRequests:
		c.Requests = n
	case ListFollowers:
		c.Followers = n
	case ListOutgoing:
		c.Outgoing = n
	case ListBlocked:
		c.Blocked = n
	case ListFollowing:
		c.Following = n
	}
}
