// Package memstore is an in-memory backend implementing the relation store,
// user and event repositories. Transactions are serialized by one mutex and
// rolled back from a snapshot, so it is suitable for development and tests.
package memstore

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/relation"
	"socialgraph/backend/internal/repository"
)

type pair struct {
	requester uuid.UUID
	receiver  uuid.UUID
}

type state struct {
	users  map[uuid.UUID]models.User
	emails map[string]uuid.UUID
	edges  map[pair]models.UserEdge
	events map[uuid.UUID]models.UserEvent
}

func (st *state) clone() *state {
	return &state{
		users:  maps.Clone(st.users),
		emails: maps.Clone(st.emails),
		edges:  maps.Clone(st.edges),
		events: maps.Clone(st.events),
	}
}

// Store holds every table in memory.
type Store struct {
	mu   sync.Mutex
	data *state
	last time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: &state{
		users:  make(map[uuid.UUID]models.User),
		emails: make(map[string]uuid.UUID),
		edges:  make(map[pair]models.UserEdge),
		events: make(map[uuid.UUID]models.UserEvent),
	}}
}

var (
	_ relation.Store             = (*Store)(nil)
	_ repository.UserRepository  = (*Store)(nil)
	_ repository.EventRepository = (*Store)(nil)
)

// WithinTx runs fn with exclusive access and restores the previous contents
// if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(tx relation.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&tx{s: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// now returns strictly increasing timestamps so ordering by creation time is stable.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) read(fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&tx{s: s})
}

// region --- relation.Reader ---

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (u *models.User, err error) {
	err = s.read(func(t *tx) error { u, err = t.GetUser(ctx, id); return err })
	return u, err
}

func (s *Store) GetEdge(ctx context.Context, requesterID, receiverID uuid.UUID) (e *models.UserEdge, err error) {
	err = s.read(func(t *tx) error { e, err = t.GetEdge(ctx, requesterID, receiverID); return err })
	return e, err
}

func (s *Store) GetEdgeByID(ctx context.Context, id uuid.UUID) (e *models.UserEdge, err error) {
	err = s.read(func(t *tx) error { e, err = t.GetEdgeByID(ctx, id); return err })
	return e, err
}

func (s *Store) ListUsers(ctx context.Context, userID uuid.UUID, filter relation.Filter) (out []relation.UserSummary, err error) {
	err = s.read(func(t *tx) error { out, err = t.ListUsers(ctx, userID, filter); return err })
	return out, err
}

func (s *Store) CountEdges(ctx context.Context, userID uuid.UUID, filter relation.Filter) (n int64, err error) {
	err = s.read(func(t *tx) error { n, err = t.CountEdges(ctx, userID, filter); return err })
	return n, err
}

// endregion

// region --- repository.UserRepository ---

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := s.data.emails[email]; taken {
		return repository.ErrDuplicate
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, taken := s.data.users[user.ID]; taken {
		return repository.ErrDuplicate
	}
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.data.users[user.ID] = *user
	s.data.emails[email] = user.ID
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.GetUser(ctx, id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.data.emails[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.data.users[id]
	return &u, nil
}

func (s *Store) SearchUsers(_ context.Context, query string, exclude uuid.UUID, page, limit int) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	var matched []models.User
	for _, u := range s.data.users {
		if u.ID == exclude {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].Email < matched[j].Email
	})

	total := int64(len(matched))
	return window(matched, (page-1)*limit, limit), total, nil
}

// endregion

// region --- repository.EventRepository ---

func (s *Store) ListEvents(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.UserEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.UserEvent
	for _, ev := range s.data.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, offset, limit), nil
}

func (s *Store) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, ev := range s.data.events {
		if ev.UserID == userID && !ev.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkRead(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range ids {
		ev, ok := s.data.events[id]
		if !ok || ev.UserID != userID {
			continue
		}
		ev.IsRead = true
		s.data.events[id] = ev
		n++
	}
	return n, nil
}

func (s *Store) DeleteEvent(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.data.events[id]
	if !ok || ev.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.data.events, id)
	return nil
}

// endregion

func window[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
