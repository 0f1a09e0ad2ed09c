package relation

import (
	"context"

	"github.com/google/uuid"

	"socialgraph/backend/internal/models"
)

// Reader is the read side of the edge store. Lookups of missing rows return
// repository.ErrNotFound.
type Reader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetEdge(ctx context.Context, requesterID, receiverID uuid.UUID) (*models.UserEdge, error)
	GetEdgeByID(ctx context.Context, id uuid.UUID) (*models.UserEdge, error)
	ListUsers(ctx context.Context, userID uuid.UUID, filter Filter) ([]UserSummary, error)
	CountEdges(ctx context.Context, userID uuid.UUID, filter Filter) (int64, error)
}

// Tx is a unit of work against the edge store. Nothing written through a Tx
// is visible to other readers until WithinTx returns nil.
type Tx interface {
	Reader

	// LockPair holds an exclusive lock on the user pair {a, b}, in either
	// order, until the transaction ends. Every write path takes it before
	// reading the edges it is about to change.
	LockPair(ctx context.Context, a, b uuid.UUID) error

	// InsertEdge creates the edge or returns repository.ErrDuplicate if the
	// pair already has one. A duplicate never aborts the transaction.
	InsertEdge(ctx context.Context, edge *models.UserEdge) error

	// UpsertEdge creates the edge or overwrites the status columns of the
	// existing one. edge.ID is not guaranteed to match the stored row.
	UpsertEdge(ctx context.Context, edge *models.UserEdge) error

	// CompareAndSwapEdge moves the edge to `to` only if it is still in `from`.
	// It reports whether a row was updated.
	CompareAndSwapEdge(ctx context.Context, requesterID, receiverID uuid.UUID, from, to State) (bool, error)

	// DeleteEdge removes one directed edge and reports whether it existed.
	DeleteEdge(ctx context.Context, requesterID, receiverID uuid.UUID) (bool, error)

	// DeleteEdgesBetween removes the edges in both directions.
	DeleteEdgesBetween(ctx context.Context, a, b uuid.UUID) (int64, error)

	CreateEvent(ctx context.Context, event *models.UserEvent) error
	DeleteEvents(ctx context.Context, userID uuid.UUID, eventType string, actorID uuid.UUID) (int64, error)
}

// Store is the persistence port of the Service.
type Store interface {
	Reader
	// WithinTx runs fn in one transaction, committing when fn returns nil
	// and rolling back otherwise. fn's error is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
