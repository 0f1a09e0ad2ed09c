package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/relation"
	"socialgraph/backend/internal/repository"
)

// tx operates on the store contents. The caller holds s.mu.
type tx struct {
	s *Store
}

// LockPair is a no-op: WithinTx already runs transactions one at a time.
func (t *tx) LockPair(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (t *tx) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := t.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (t *tx) GetEdge(_ context.Context, requesterID, receiverID uuid.UUID) (*models.UserEdge, error) {
	e, ok := t.s.data.edges[pair{requesterID, receiverID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (t *tx) GetEdgeByID(_ context.Context, id uuid.UUID) (*models.UserEdge, error) {
	for _, e := range t.s.data.edges {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *tx) ListUsers(_ context.Context, userID uuid.UUID, filter relation.Filter) ([]relation.UserSummary, error) {
	type row struct {
		summary relation.UserSummary
		created int64
	}
	var rows []row
	for _, e := range t.s.data.edges {
		if !filter.Matches(userID, &e) {
			continue
		}
		otherID := e.ReceiverID
		if filter.Side == relation.SideReceiver {
			otherID = e.RequesterID
		}
		u, ok := t.s.data.users[otherID]
		if !ok {
			continue
		}
		rows = append(rows, row{
			summary: relation.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, ImagePreview: u.ImagePreview},
			created: e.CreatedAt.UnixNano(),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if filter.ByName {
			return rows[i].summary.Name < rows[j].summary.Name
		}
		return rows[i].created > rows[j].created
	})

	out := make([]relation.UserSummary, len(rows))
	for i, r := range rows {
		out[i] = r.summary
	}
	return out, nil
}

func (t *tx) CountEdges(_ context.Context, userID uuid.UUID, filter relation.Filter) (int64, error) {
	var n int64
	for _, e := range t.s.data.edges {
		if filter.Matches(userID, &e) {
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertEdge(_ context.Context, edge *models.UserEdge) error {
	key := pair{edge.RequesterID, edge.ReceiverID}
	if _, exists := t.s.data.edges[key]; exists {
		return repository.ErrDuplicate
	}
	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}
	now := t.s.now()
	edge.CreatedAt, edge.UpdatedAt = now, now
	t.s.data.edges[key] = *edge
	return nil
}

func (t *tx) UpsertEdge(ctx context.Context, edge *models.UserEdge) error {
	key := pair{edge.RequesterID, edge.ReceiverID}
	existing, ok := t.s.data.edges[key]
	if !ok {
		return t.InsertEdge(ctx, edge)
	}
	existing.Status = edge.Status
	existing.FriendRequestStatus = edge.FriendRequestStatus
	existing.UpdatedAt = t.s.now()
	t.s.data.edges[key] = existing
	return nil
}

func (t *tx) CompareAndSwapEdge(_ context.Context, requesterID, receiverID uuid.UUID, from, to relation.State) (bool, error) {
	key := pair{requesterID, receiverID}
	e, ok := t.s.data.edges[key]
	if !ok || relation.StateOf(&e) != from {
		return false, nil
	}
	to.Apply(&e)
	e.UpdatedAt = t.s.now()
	t.s.data.edges[key] = e
	return true, nil
}

func (t *tx) DeleteEdge(_ context.Context, requesterID, receiverID uuid.UUID) (bool, error) {
	key := pair{requesterID, receiverID}
	if _, ok := t.s.data.edges[key]; !ok {
		return false, nil
	}
	delete(t.s.data.edges, key)
	return true, nil
}

func (t *tx) DeleteEdgesBetween(ctx context.Context, a, b uuid.UUID) (int64, error) {
	var n int64
	for _, k := range []pair{{a, b}, {b, a}} {
		if _, ok := t.s.data.edges[k]; ok {
			delete(t.s.data.edges, k)
			n++
		}
	}
	return n, nil
}

func (t *tx) CreateEvent(_ context.Context, event *models.UserEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = t.s.now()
	t.s.data.events[event.ID] = *event
	return nil
}

func (t *tx) DeleteEvents(_ context.Context, userID uuid.UUID, eventType string, actorID uuid.UUID) (int64, error) {
	var n int64
	for id, ev := range t.s.data.events {
		if ev.UserID == userID && ev.EventType == eventType && ev.ActorID == actorID {
			delete(t.s.data.events, id)
			n++
		}
	}
	return n, nil
}
