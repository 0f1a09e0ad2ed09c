package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EdgeStatus is the relationship a directed edge expresses from requester to receiver.
type EdgeStatus string

const (
	// EdgeFollowing means the requester follows the receiver. A friend request,
	// if any, is tracked separately in FriendRequestStatus.
	EdgeFollowing EdgeStatus = "following"

	// EdgeFriend means the requester's friend request was accepted.
	EdgeFriend EdgeStatus = "friend"

	// EdgeBlocked means the requester blocked the receiver.
	EdgeBlocked EdgeStatus = "blocked"
)

// FriendRequestStatus tracks a friend request riding on a following edge.
type FriendRequestStatus string

const (
	RequestPending  FriendRequestStatus = "pending"
	RequestAccepted FriendRequestStatus = "accepted"
	RequestDeclined FriendRequestStatus = "declined"
)

// UserEdge is a directed relationship from RequesterID to ReceiverID.
// The pair (RequesterID, ReceiverID) is unique; the absence of a row means
// no relationship in that direction.
type UserEdge struct {
	ID                  uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID         uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_user_edges_pair,priority:1;check:chk_user_edges_distinct,requester_id <> receiver_id" json:"requester_id"`
	ReceiverID          uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_user_edges_pair,priority:2;index" json:"receiver_id"`
	Status              EdgeStatus           `gorm:"type:varchar(20);not null" json:"status"`
	FriendRequestStatus *FriendRequestStatus `gorm:"type:varchar(20)" json:"friend_request_status"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`

	Requester User `gorm:"foreignKey:RequesterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Receiver  User `gorm:"foreignKey:ReceiverID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (UserEdge) TableName() string { return "user_edges" }

// BeforeCreate assigns a random ID to edges created without one.
func (e *UserEdge) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// RequestStatus returns the friend request status or "" when unset.
func (e *UserEdge) RequestStatus() FriendRequestStatus {
	if e.FriendRequestStatus == nil {
		return ""
	}
	return *e.FriendRequestStatus
}
