// Package repository declares the storage contracts shared by the postgres
// and in-memory backends.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"socialgraph/backend/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert hits a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the interface for user account operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// SearchUsers matches name or email case-insensitively, ordered by name,
	// never returning the excluded user.
	SearchUsers(ctx context.Context, query string, exclude uuid.UUID, page, limit int) ([]models.User, int64, error)
}

// EventRepository defines the interface for a user's notification records.
type EventRepository interface {
	// ListEvents returns the newest events first.
	ListEvents(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.UserEvent, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	// MarkRead flags the given events as read and reports how many belonged to userID.
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	// DeleteEvent removes one event owned by userID, or returns ErrNotFound.
	DeleteEvent(ctx context.Context, userID, id uuid.UUID) error
}
