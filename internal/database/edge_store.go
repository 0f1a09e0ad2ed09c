package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/relation"
	"socialgraph/backend/internal/repository"
)

// EdgeStore implements relation.Store on postgres.
type EdgeStore struct {
	*edgeQueries
}

// NewEdgeStore creates an EdgeStore.
func NewEdgeStore(db *gorm.DB) *EdgeStore {
	return &EdgeStore{edgeQueries: &edgeQueries{db: db}}
}

var _ relation.Store = (*EdgeStore)(nil)

// WithinTx runs fn inside a database transaction.
func (s *EdgeStore) WithinTx(ctx context.Context, fn func(tx relation.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&edgeQueries{db: tx})
	})
}

// edgeQueries runs against either the pool or an open transaction.
type edgeQueries struct {
	db *gorm.DB
}

func (q *edgeQueries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := q.db.WithContext(ctx).Take(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (q *edgeQueries) GetEdge(ctx context.Context, requesterID, receiverID uuid.UUID) (*models.UserEdge, error) {
	var edge models.UserEdge
	err := q.db.WithContext(ctx).
		Where("requester_id = ? AND receiver_id = ?", requesterID, receiverID).
		Take(&edge).Error
	if err != nil {
		return nil, translate(err)
	}
	return &edge, nil
}

func (q *edgeQueries) GetEdgeByID(ctx context.Context, id uuid.UUID) (*models.UserEdge, error) {
	var edge models.UserEdge
	if err := q.db.WithContext(ctx).Take(&edge, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &edge, nil
}

func (q *edgeQueries) ListUsers(ctx context.Context, userID uuid.UUID, filter relation.Filter) ([]relation.UserSummary, error) {
	query := q.db.WithContext(ctx).
		Table("users AS u").
		Select("u.id, u.name, u.email, u.image_preview")

	if filter.Side == relation.SideRequester {
		query = query.Joins("INNER JOIN user_edges ue ON u.id = ue.receiver_id").Where("ue.requester_id = ?", userID)
	} else {
		query = query.Joins("INNER JOIN user_edges ue ON u.id = ue.requester_id").Where("ue.receiver_id = ?", userID)
	}
	query = applyFilter(query, "ue.", filter)

	if filter.ByName {
		query = query.Order("u.name")
	} else {
		query = query.Order("ue.created_at DESC")
	}

	var users []relation.UserSummary
	if err := query.Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (q *edgeQueries) CountEdges(ctx context.Context, userID uuid.UUID, filter relation.Filter) (int64, error) {
	query := q.db.WithContext(ctx).Model(&models.UserEdge{})
	if filter.Side == relation.SideRequester {
		query = query.Where("requester_id = ?", userID)
	} else {
		query = query.Where("receiver_id = ?", userID)
	}

	var count int64
	err := applyFilter(query, "", filter).Count(&count).Error
	return count, err
}

// LockPair takes a transaction-scoped advisory lock keyed on the unordered pair.
func (q *edgeQueries) LockPair(ctx context.Context, a, b uuid.UUID) error {
	return q.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", pairKey(a, b)).Error
}

func (q *edgeQueries) InsertEdge(ctx context.Context, edge *models.UserEdge) error {
	res := q.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "requester_id"}, {Name: "receiver_id"}},
			DoNothing: true,
		}).
		Create(edge)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

func (q *edgeQueries) UpsertEdge(ctx context.Context, edge *models.UserEdge) error {
	return q.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "requester_id"}, {Name: "receiver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "friend_request_status", "updated_at"}),
		}).
		Create(edge).Error
}

func (q *edgeQueries) CompareAndSwapEdge(ctx context.Context, requesterID, receiverID uuid.UUID, from, to relation.State) (bool, error) {
	query := q.db.WithContext(ctx).
		Model(&models.UserEdge{}).
		Where("requester_id = ? AND receiver_id = ? AND status = ?", requesterID, receiverID, from.Status())
	if rs := from.RequestStatus(); rs == nil {
		query = query.Where("friend_request_status IS NULL")
	} else {
		query = query.Where("friend_request_status = ?", *rs)
	}

	res := query.Updates(map[string]any{
		"status":                to.Status(),
		"friend_request_status": requestValue(to),
		"updated_at":            time.Now(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (q *edgeQueries) DeleteEdge(ctx context.Context, requesterID, receiverID uuid.UUID) (bool, error) {
	res := q.db.WithContext(ctx).
		Where("requester_id = ? AND receiver_id = ?", requesterID, receiverID).
		Delete(&models.UserEdge{})
	return res.RowsAffected > 0, res.Error
}

func (q *edgeQueries) DeleteEdgesBetween(ctx context.Context, a, b uuid.UUID) (int64, error) {
	res := q.db.WithContext(ctx).
		Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)", a, b, b, a).
		Delete(&models.UserEdge{})
	return res.RowsAffected, res.Error
}

func (q *edgeQueries) CreateEvent(ctx context.Context, event *models.UserEvent) error {
	return q.db.WithContext(ctx).Omit(clause.Associations).Create(event).Error
}

func (q *edgeQueries) DeleteEvents(ctx context.Context, userID uuid.UUID, eventType string, actorID uuid.UUID) (int64, error) {
	res := q.db.WithContext(ctx).
		Where("user_id = ? AND event_type = ? AND actor_id = ?", userID, eventType, actorID).
		Delete(&models.UserEvent{})
	return res.RowsAffected, res.Error
}

// region --- Helpers ---

func pairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return "user_edges:" + x + ":" + y
}

func applyFilter(query *gorm.DB, prefix string, filter relation.Filter) *gorm.DB {
	query = query.Where(prefix+"status = ?", filter.Status)
	switch {
	case filter.RequestNull:
		query = query.Where(prefix + "friend_request_status IS NULL")
	case len(filter.Requests) > 0:
		query = query.Where(prefix+"friend_request_status IN ?", filter.Requests)
	}
	return query
}

func requestValue(st relation.State) any {
	if rs := st.RequestStatus(); rs != nil {
		return string(*rs)
	}
	return gorm.Expr("NULL")
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}

// endregion
