// Package relation implements the friend/follow relationship graph: a state
// machine over directed user edges with notification side effects.
package relation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/observability"
	"socialgraph/backend/internal/repository"
)

// ErrRecipientOffline is returned by a Notifier when the recipient has no
// live session. It is an expected outcome, not a delivery failure.
var ErrRecipientOffline = errors.New("recipient has no live session")

// Direction tells which way the edge reported by GetStatus points.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// StatusView is the relationship between the caller and another user as
// seen by the caller. A nil Status means no visible relationship.
type StatusView struct {
	Status        *models.EdgeStatus          `json:"status"`
	RequestStatus *models.FriendRequestStatus `json:"friend_request_status,omitempty"`
	Direction     Direction                   `json:"direction,omitempty"`
	EdgeID        *uuid.UUID                  `json:"edgeId,omitempty"`
}

// Service maintains the user_edges table as a consistent state machine.
type Service struct {
	store    Store
	notifier Notifier
	metrics  *observability.RelationMetrics
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the real-time sink used after friend requests are sent.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics enables operation and notification metrics.
func WithMetrics(m *observability.RelationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: nopNotifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Follow makes actor follow target. Any edge actor already had toward target
// is overwritten with a plain follow; an open request it carried is withdrawn
// along with its friend.request event. Following is silent.
func (s *Service) Follow(ctx context.Context, actor, target uuid.UUID) (err error) {
	defer s.observe("follow", time.Now(), &err)
	if err := validatePair(actor, target); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx Tx) error {
		if err := tx.LockPair(ctx, actor, target); err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, target); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user not found")
			}
			return err
		}
		if err := ensureNotBlockedBy(ctx, tx, actor, target); err != nil {
			return err
		}
		cur, _, err := edgeState(ctx, tx, actor, target)
		if err != nil {
			return err
		}
		next, err := Next(cur, EventFollow)
		if err != nil || next == cur {
			return err
		}
		if err := tx.UpsertEdge(ctx, newEdge(actor, target, next)); err != nil {
			return err
		}
		if cur.Request == models.RequestPending || cur.Request == models.RequestDeclined {
			_, err = tx.DeleteEvents(ctx, target, models.EventFriendRequest, actor)
		}
		return err
	})
}

// SendFriendRequest opens a friend request from actor to target, records a
// friend.request event for target and pushes it to target's live sessions.
func (s *Service) SendFriendRequest(ctx context.Context, actor, target uuid.UUID) (edge *models.UserEdge, err error) {
	defer s.observe("request", time.Now(), &err)
	if err := validatePair(actor, target); err != nil {
		return nil, err
	}

	var snapshot models.ActorSnapshot
	err = s.inTx(ctx, func(tx Tx) error {
		if err := tx.LockPair(ctx, actor, target); err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, target); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user not found")
			}
			return err
		}
		if err := ensureNotBlockedBy(ctx, tx, actor, target); err != nil {
			return err
		}
		cur, _, err := edgeState(ctx, tx, actor, target)
		if err != nil {
			return err
		}
		next, err := Next(cur, EventRequest)
		if err != nil {
			return err
		}

		requester, err := tx.GetUser(ctx, actor)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnauthenticated
			}
			return err
		}

		edge = newEdge(actor, target, next)
		if err := tx.InsertEdge(ctx, edge); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return alreadyExists(statePending)
			}
			return err
		}

		snapshot = models.ActorSnapshot{
			RequesterID:    requester.ID,
			RequesterName:  requester.DisplayName(),
			RequesterImage: requester.Image,
		}
		related := edge.ID
		return tx.CreateEvent(ctx, &models.UserEvent{
			UserID:    target,
			EventType: models.EventFriendRequest,
			ActorID:   actor,
			RelatedID: &related,
			Data:      datatypes.NewJSONType(snapshot),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, target, models.EventFriendRequest, snapshot)
	return edge, nil
}

// AcceptFriendRequest accepts the request requester sent to actor. The
// reverse edge is made a friend edge too unless it carries actor's own
// pending request, which must be accepted separately.
func (s *Service) AcceptFriendRequest(ctx context.Context, actor, requester uuid.UUID) (edge *models.UserEdge, err error) {
	defer s.observe("accept", time.Now(), &err)
	if err := validatePair(actor, requester); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx Tx) error {
		if err := tx.LockPair(ctx, actor, requester); err != nil {
			return err
		}
		cur, _, err := edgeState(ctx, tx, requester, actor)
		if err != nil {
			return err
		}
		next, err := Next(cur, EventAccept)
		if err != nil {
			return err
		}
		if err := swap(ctx, tx, requester, actor, cur, next); err != nil {
			return err
		}

		recip, _, err := edgeState(ctx, tx, actor, requester)
		if err != nil {
			return err
		}
		recipNext, err := Next(recip, EventReciprocate)
		if err != nil {
			return err
		}
		if recipNext != recip {
			if err := tx.UpsertEdge(ctx, newEdge(actor, requester, recipNext)); err != nil {
				return err
			}
		}

		if _, err := tx.DeleteEvents(ctx, actor, models.EventFriendRequest, requester); err != nil {
			return err
		}

		edge, err = tx.GetEdge(ctx, requester, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, requester, models.EventFriendAccepted, map[string]any{
		"receiver_id": actor,
		"edge_id":     edge.ID,
	})
	return edge, nil
}

// AcceptFriendRequestByEdge accepts the incoming request identified by its
// edge ID. Edges not addressed to actor are reported as not found.
func (s *Service) AcceptFriendRequestByEdge(ctx context.Context, actor, edgeID uuid.UUID) (*models.UserEdge, error) {
	if actor == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if edgeID == uuid.Nil {
		return nil, invalidTarget("edge id is required")
	}
	edge, err := s.store.GetEdgeByID(ctx, edgeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("friend request not found")
		}
		return nil, storeUnavailable(err)
	}
	if edge.ReceiverID != actor {
		return nil, notFound("friend request not found")
	}
	return s.AcceptFriendRequest(ctx, actor, edge.RequesterID)
}

// DeclineFriendRequest declines the pending request requester sent to actor.
// The edge stays, so requester keeps following actor.
func (s *Service) DeclineFriendRequest(ctx context.Context, actor, requester uuid.UUID) (status models.FriendRequestStatus, err error) {
	defer s.observe("decline", time.Now(), &err)
	if err := validatePair(actor, requester); err != nil {
		return "", err
	}

	err = s.inTx(ctx, func(tx Tx) error {
		if err := tx.LockPair(ctx, actor, requester); err != nil {
			return err
		}
		cur, _, err := edgeState(ctx, tx, requester, actor)
		if err != nil {
			return err
		}
		next, err := Next(cur, EventDecline)
		if err != nil {
			return err
		}
		if err := swap(ctx, tx, requester, actor, cur, next); err != nil {
			return err
		}
		_, err = tx.DeleteEvents(ctx, actor, models.EventFriendRequest, requester)
		return err
	})
	if err != nil {
		return "", err
	}
	return models.RequestDeclined, nil
}

// RemoveRelationship undoes the relationship between actor and other.
//
// Removing a friendship demotes it to "other follows actor, request
// declined". Removing a follow or an open request deletes that edge and its
// friend.request event. Removing one's own block lifts it. A block placed by
// other is invisible to actor and reported as not found.
func (s *Service) RemoveRelationship(ctx context.Context, actor, other uuid.UUID) (err error) {
	defer s.observe("remove", time.Now(), &err)
	if err := validatePair(actor, other); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx Tx) error {
		if err := tx.LockPair(ctx, actor, other); err != nil {
			return err
		}
		out, _, err := edgeState(ctx, tx, actor, other)
		if err != nil {
			return err
		}
		in, _, err := edgeState(ctx, tx, other, actor)
		if err != nil {
			return err
		}

		switch {
		case out.Kind != Stranger:
			if _, err := Next(out, EventRemove); err != nil {
				return err
			}
			if err := remove(ctx, tx, actor, other); err != nil {
				return err
			}
			switch out.Kind {
			case Friend:
				demoted, err := Next(in, EventUnfriend)
				if err != nil {
					return err
				}
				if err := tx.UpsertEdge(ctx, newEdge(other, actor, demoted)); err != nil {
					return err
				}
				_, err = tx.DeleteEvents(ctx, actor, models.EventFriendRequest, other)
				return err
			case Following:
				_, err := tx.DeleteEvents(ctx, other, models.EventFriendRequest, actor)
				return err
			}
			return nil

		case in.Kind == Friend:
			demoted, err := Next(in, EventUnfriend)
			if err != nil {
				return err
			}
			return swap(ctx, tx, other, actor, in, demoted)

		case in.Kind == Following:
			if err := remove(ctx, tx, other, actor); err != nil {
				return err
			}
			_, err := tx.DeleteEvents(ctx, actor, models.EventFriendRequest, other)
			return err

		default:
			return notFound("relationship not found")
		}
	})
}

// Block toggles actor's block on target. Placing a block wipes every edge
// between the two users first. It reports whether target is now blocked.
func (s *Service) Block(ctx context.Context, actor, target uuid.UUID) (blocked bool, err error) {
	defer s.observe("block", time.Now(), &err)
	if err := validatePair(actor, target); err != nil {
		return false, err
	}

	err = s.inTx(ctx, func(tx Tx) error {
		if err := tx.LockPair(ctx, actor, target); err != nil {
			return err
		}
		cur, _, err := edgeState(ctx, tx, actor, target)
		if err != nil {
			return err
		}
		if cur.Kind == Blocked {
			if _, err := Next(cur, EventUnblock); err != nil {
				return err
			}
			blocked = false
			return remove(ctx, tx, actor, target)
		}

		if _, err := tx.GetUser(ctx, target); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user not found")
			}
			return err
		}
		if _, err := tx.DeleteEdgesBetween(ctx, actor, target); err != nil {
			return err
		}
		if _, err := tx.DeleteEvents(ctx, actor, models.EventFriendRequest, target); err != nil {
			return err
		}
		if _, err := tx.DeleteEvents(ctx, target, models.EventFriendRequest, actor); err != nil {
			return err
		}
		next, err := Next(stateStranger, EventBlock)
		if err != nil {
			return err
		}
		blocked = true
		return tx.InsertEdge(ctx, newEdge(actor, target, next))
	})
	return blocked, err
}

// GetStatus reports the relationship between actor and other, preferring
// actor's own outgoing edge. A block placed by other is not disclosed.
func (s *Service) GetStatus(ctx context.Context, actor, other uuid.UUID) (view StatusView, err error) {
	defer s.observe("status", time.Now(), &err)
	if err := validatePair(actor, other); err != nil {
		return StatusView{}, err
	}

	out, outEdge, err := edgeState(ctx, s.store, actor, other)
	if err != nil {
		return StatusView{}, storeUnavailable(err)
	}
	if out.Kind != Stranger {
		return StatusView{
			Status:        ptr(out.Status()),
			RequestStatus: outEdge.FriendRequestStatus,
			Direction:     DirectionOutgoing,
		}, nil
	}

	in, inEdge, err := edgeState(ctx, s.store, other, actor)
	if err != nil {
		return StatusView{}, storeUnavailable(err)
	}
	if in.Kind == Stranger || in.Kind == Blocked {
		return StatusView{}, nil
	}
	return StatusView{
		Status:        ptr(in.Status()),
		RequestStatus: inEdge.FriendRequestStatus,
		Direction:     DirectionIncoming,
		EdgeID:        ptr(inEdge.ID),
	}, nil
}

// ListByType returns the users on the other end of actor's edges of type lt.
func (s *Service) ListByType(ctx context.Context, actor uuid.UUID, lt ListType) (users []UserSummary, err error) {
	defer s.observe("list", time.Now(), &err)
	if actor == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	filter := lt.Filter()
	if filter.Status == "" {
		return nil, &Error{Code: CodeInvalidType, Message: "invalid type: " + string(lt)}
	}

	users, err = s.store.ListUsers(ctx, actor, filter)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if users == nil {
		users = []UserSummary{}
	}
	return users, nil
}

// CountByType returns the size of every listing for actor.
func (s *Service) CountByType(ctx context.Context, actor uuid.UUID) (counts Counts, err error) {
	defer s.observe("count", time.Now(), &err)
	if actor == uuid.Nil {
		return Counts{}, ErrUnauthenticated
	}

	for _, lt := range ListTypes {
		n, err := s.store.CountEdges(ctx, actor, lt.Filter())
		if err != nil {
			return Counts{}, storeUnavailable(err)
		}
		counts.set(lt, n)
	}
	return counts, nil
}

// region --- Helpers ---

func (s *Service) inTx(ctx context.Context, fn func(tx Tx) error) error {
	err := s.store.WithinTx(ctx, fn)
	if err == nil {
		return nil
	}
	var relErr *Error
	if errors.As(err, &relErr) {
		return relErr
	}
	return storeUnavailable(err)
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, eventType string, payload any) {
	err := s.notifier.Notify(ctx, userID, eventType, payload)
	switch {
	case err == nil:
		s.metrics.ObserveNotification(eventType, observability.NotifyDelivered)
	case errors.Is(err, ErrRecipientOffline):
		s.metrics.ObserveNotification(eventType, observability.NotifyOffline)
		s.logger.Debug("Notification recipient offline", "user_id", userID, "event_type", eventType)
	default:
		s.metrics.ObserveNotification(eventType, observability.NotifyFailed)
		s.logger.Warn("Failed to deliver notification", "user_id", userID, "event_type", eventType, "error", err)
	}
}

func (s *Service) observe(operation string, start time.Time, errp *error) {
	outcome := "ok"
	if *errp != nil {
		outcome = string(CodeStoreUnavailable)
		var relErr *Error
		if errors.As(*errp, &relErr) {
			outcome = string(relErr.Code)
		}
	}
	s.metrics.ObserveOperation(operation, outcome, time.Since(start))
}

func validatePair(actor, target uuid.UUID) error {
	if actor == uuid.Nil {
		return ErrUnauthenticated
	}
	if target == uuid.Nil {
		return invalidTarget("user id is required")
	}
	if actor == target {
		return invalidTarget("cannot target yourself")
	}
	return nil
}

// edgeState loads the edge requester->receiver and its state.
func edgeState(ctx context.Context, r Reader, requester, receiver uuid.UUID) (State, *models.UserEdge, error) {
	edge, err := r.GetEdge(ctx, requester, receiver)
	if errors.Is(err, repository.ErrNotFound) {
		return stateStranger, nil, nil
	}
	if err != nil {
		return stateStranger, nil, err
	}
	return StateOf(edge), edge, nil
}

// ensureNotBlockedBy hides target from actor when target blocked actor.
func ensureNotBlockedBy(ctx context.Context, r Reader, actor, target uuid.UUID) error {
	reverse, _, err := edgeState(ctx, r, target, actor)
	if err != nil {
		return err
	}
	if reverse.Kind == Blocked {
		return notFound("user not found")
	}
	return nil
}

// swap applies a guarded transition; losing a race reads as not found.
func swap(ctx context.Context, tx Tx, requester, receiver uuid.UUID, from, to State) error {
	ok, err := tx.CompareAndSwapEdge(ctx, requester, receiver, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("relationship changed concurrently")
	}
	return nil
}

func remove(ctx context.Context, tx Tx, requester, receiver uuid.UUID) error {
	ok, err := tx.DeleteEdge(ctx, requester, receiver)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("relationship not found")
	}
	return nil
}

func newEdge(requester, receiver uuid.UUID, st State) *models.UserEdge {
	edge := &models.UserEdge{
		ID:          uuid.New(),
		RequesterID: requester,
		ReceiverID:  receiver,
	}
	st.Apply(edge)
	return edge
}

func ptr[T any](v T) *T { return &v }

// endregion
