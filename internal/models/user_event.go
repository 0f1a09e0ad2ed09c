package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types recorded in user_events or pushed to live sessions.
const (
	EventFriendRequest  = "friend.request"
	EventFriendAccepted = "friend.accepted"
)

// ActorSnapshot is the actor's display info captured when the event was
// recorded. It is never refreshed afterwards.
type ActorSnapshot struct {
	RequesterID    uuid.UUID `json:"requester_id"`
	RequesterName  string    `json:"requester_name"`
	RequesterImage string    `json:"requester_image,omitempty"`
}

// UserEvent is a notification record addressed to UserID.
type UserEvent struct {
	ID        uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID                         `gorm:"type:uuid;not null;index:idx_user_events_lookup,priority:1" json:"user_id"`
	EventType string                            `gorm:"size:64;not null;index:idx_user_events_lookup,priority:2" json:"event_type"`
	ActorID   uuid.UUID                         `gorm:"type:uuid;not null;index:idx_user_events_lookup,priority:3" json:"actor_id"`
	RelatedID *uuid.UUID                        `gorm:"type:uuid" json:"related_id,omitempty"`
	Data      datatypes.JSONType[ActorSnapshot] `json:"data"`
	IsRead    bool                              `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time                         `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
}

func (UserEvent) TableName() string { return "user_events" }

// BeforeCreate assigns a random ID to events created without one.
func (e *UserEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
