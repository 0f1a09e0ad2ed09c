package relation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialgraph/backend/internal/memstore"
	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/observability"
	"socialgraph/backend/internal/relation"
	"socialgraph/backend/internal/repository"
)

// region --- Fixtures ---

type notification struct {
	userID    uuid.UUID
	eventType string
	payload   any
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, eventType string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{userID: userID, eventType: eventType, payload: payload})
	return n.err
}

func (n *recordingNotifier) sent() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.calls...)
}

type fixture struct {
	svc      *relation.Service
	store    *memstore.Store
	notifier *recordingNotifier
	metrics  *observability.RelationMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	notifier := &recordingNotifier{}
	metrics := observability.NewRelationMetrics(prometheus.NewRegistry())
	svc := relation.NewService(store,
		relation.WithNotifier(notifier),
		relation.WithMetrics(metrics),
		relation.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return &fixture{svc: svc, store: store, notifier: notifier, metrics: metrics}
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Image: "https://img.example.com/" + name}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u.ID
}

func (f *fixture) state(t *testing.T, requester, receiver uuid.UUID) relation.State {
	t.Helper()
	edge, err := f.store.GetEdge(context.Background(), requester, receiver)
	if errors.Is(err, repository.ErrNotFound) {
		return relation.State{}
	}
	require.NoError(t, err)
	return relation.StateOf(edge)
}

func (f *fixture) requestEvents(t *testing.T, userID, actorID uuid.UUID) int {
	t.Helper()
	events, err := f.store.ListEvents(context.Background(), userID, 100, 0)
	require.NoError(t, err)
	n := 0
	for _, e := range events {
		if e.EventType == models.EventFriendRequest && e.ActorID == actorID {
			n++
		}
	}
	return n
}

var (
	following = relation.State{Kind: relation.Following}
	pending   = relation.State{Kind: relation.Following, Request: models.RequestPending}
	declined  = relation.State{Kind: relation.Following, Request: models.RequestDeclined}
	friend    = relation.State{Kind: relation.Friend, Request: models.RequestAccepted}
	blocked   = relation.State{Kind: relation.Blocked}
	none      = relation.State{}
)

// endregion

func TestSelfTargetIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")

	assert.ErrorIs(t, f.svc.Follow(ctx, a, a), relation.ErrInvalidTarget)
	_, err := f.svc.SendFriendRequest(ctx, a, a)
	assert.ErrorIs(t, err, relation.ErrInvalidTarget)
	_, err = f.svc.AcceptFriendRequest(ctx, a, a)
	assert.ErrorIs(t, err, relation.ErrInvalidTarget)
	_, err = f.svc.DeclineFriendRequest(ctx, a, a)
	assert.ErrorIs(t, err, relation.ErrInvalidTarget)
	assert.ErrorIs(t, f.svc.RemoveRelationship(ctx, a, a), relation.ErrInvalidTarget)
	_, err = f.svc.Block(ctx, a, a)
	assert.ErrorIs(t, err, relation.ErrInvalidTarget)
	_, err = f.svc.GetStatus(ctx, a, a)
	assert.ErrorIs(t, err, relation.ErrInvalidTarget)
}

func TestMissingActorIsUnauthenticated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.user(t, "bob")

	assert.ErrorIs(t, f.svc.Follow(ctx, uuid.Nil, b), relation.ErrUnauthenticated)
	_, err := f.svc.ListByType(ctx, uuid.Nil, relation.ListFriends)
	assert.ErrorIs(t, err, relation.ErrUnauthenticated)
	_, err = f.svc.CountByType(ctx, uuid.Nil)
	assert.ErrorIs(t, err, relation.ErrUnauthenticated)

	// A token for a deleted account carries an ID the store does not know.
	_, err = f.svc.SendFriendRequest(ctx, uuid.New(), b)
	assert.ErrorIs(t, err, relation.ErrUnauthenticated)
}

func TestFollowIsIdempotentAndSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	require.NoError(t, f.svc.Follow(ctx, a, b))
	require.NoError(t, f.svc.Follow(ctx, a, b))

	assert.Equal(t, following, f.state(t, a, b))
	assert.Equal(t, none, f.state(t, b, a))
	count, err := f.store.CountEdges(ctx, a, relation.ListFollowing.Filter())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Empty(t, f.notifier.sent())
}

func TestFollowOverwritesOwnEdge(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture, a, b uuid.UUID)
		back  relation.State
	}{
		{
			name: "open request",
			setup: func(t *testing.T, f *fixture, a, b uuid.UUID) {
				_, err := f.svc.SendFriendRequest(context.Background(), a, b)
				require.NoError(t, err)
			},
			back: none,
		},
		{
			name: "friendship",
			setup: func(t *testing.T, f *fixture, a, b uuid.UUID) {
				ctx := context.Background()
				_, err := f.svc.SendFriendRequest(ctx, a, b)
				require.NoError(t, err)
				_, err = f.svc.AcceptFriendRequest(ctx, b, a)
				require.NoError(t, err)
			},
			back: friend,
		},
		{
			name: "own block",
			setup: func(t *testing.T, f *fixture, a, b uuid.UUID) {
				blocked, err := f.svc.Block(context.Background(), a, b)
				require.NoError(t, err)
				require.True(t, blocked)
			},
			back: none,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a, b := f.user(t, "alice"), f.user(t, "bob")
			tt.setup(t, f, a, b)

			require.NoError(t, f.svc.Follow(context.Background(), a, b))

			assert.Equal(t, following, f.state(t, a, b))
			assert.Equal(t, tt.back, f.state(t, b, a))
			assert.Zero(t, f.requestEvents(t, b, a))
		})
	}
}

func TestFollowUnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice")

	err := f.svc.Follow(ctx, a, uuid.New())
	assert.ErrorIs(t, err, relation.ErrNotFound)

	counts, err := f.svc.CountByType(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, counts.Following)
	users, err := f.svc.ListByType(ctx, a, relation.ListFollowing)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSendFriendRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	edge, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, a, edge.RequesterID)
	assert.Equal(t, b, edge.ReceiverID)
	assert.Equal(t, pending, f.state(t, a, b))

	events, err := f.store.ListEvents(ctx, b, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventFriendRequest, events[0].EventType)
	assert.Equal(t, a, events[0].ActorID)
	require.NotNil(t, events[0].RelatedID)
	assert.Equal(t, edge.ID, *events[0].RelatedID)
	snapshot := events[0].Data.Data()
	assert.Equal(t, "alice", snapshot.RequesterName)
	assert.Equal(t, "https://img.example.com/alice", snapshot.RequesterImage)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, b, sent[0].userID)
	assert.Equal(t, models.EventFriendRequest, sent[0].eventType)
	assert.Equal(t, snapshot, sent[0].payload)
}

func TestSendFriendRequestFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.SendFriendRequest(ctx, a, uuid.New())
	assert.ErrorIs(t, err, relation.ErrNotFound)

	_, err = f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)

	_, err = f.svc.SendFriendRequest(ctx, a, b)
	require.ErrorIs(t, err, relation.ErrAlreadyExists)
	var relErr *relation.Error
	require.ErrorAs(t, err, &relErr)
	status, request, ok := relErr.ExistingStatus()
	require.True(t, ok)
	assert.Equal(t, models.EdgeFollowing, status)
	assert.Equal(t, models.RequestPending, request)

	// The failed attempts left nothing behind.
	assert.Equal(t, 1, f.requestEvents(t, b, a))
	assert.Len(t, f.notifier.sent(), 1)
}

func TestResendAfterDeclineAlreadyExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.DeclineFriendRequest(ctx, b, a)
	require.NoError(t, err)

	_, err = f.svc.SendFriendRequest(ctx, a, b)
	var relErr *relation.Error
	require.ErrorAs(t, err, &relErr)
	assert.Equal(t, relation.CodeAlreadyExists, relErr.Code)
	assert.Contains(t, relErr.Message, "following/declined")
}

func TestNotifierFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("socket closed")
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, pending, f.state(t, a, b))
	assert.Equal(t, 1, f.requestEvents(t, b, a))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationsTotal.WithLabelValues(models.EventFriendRequest, observability.NotifyFailed)))
}

func TestRecipientOfflineIsNotAFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = relation.ErrRecipientOffline
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationsTotal.WithLabelValues(models.EventFriendRequest, observability.NotifyOffline)))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.NotificationsTotal.WithLabelValues(models.EventFriendRequest, observability.NotifyFailed)))
}

func TestRequestAcceptRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	sent, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)

	edge, err := f.svc.AcceptFriendRequest(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, sent.ID, edge.ID)
	assert.Equal(t, models.EdgeFriend, edge.Status)

	assert.Equal(t, friend, f.state(t, a, b))
	assert.Equal(t, friend, f.state(t, b, a))
	assert.Zero(t, f.requestEvents(t, b, a))

	notes := f.notifier.sent()
	require.Len(t, notes, 2)
	assert.Equal(t, a, notes[1].userID)
	assert.Equal(t, models.EventFriendAccepted, notes[1].eventType)
	assert.Equal(t, map[string]any{"receiver_id": b, "edge_id": sent.ID}, notes[1].payload)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("accept", "ok")))
}

func TestAcceptUpgradesExistingReverseFollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	require.NoError(t, f.svc.Follow(ctx, b, a))
	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.AcceptFriendRequest(ctx, b, a)
	require.NoError(t, err)

	assert.Equal(t, friend, f.state(t, b, a))
}

func TestAcceptLeavesReversePendingRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.SendFriendRequest(ctx, b, a)
	require.NoError(t, err)

	_, err = f.svc.AcceptFriendRequest(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, friend, f.state(t, a, b))
	assert.Equal(t, pending, f.state(t, b, a))
	// Alice still has Bob's request to answer.
	assert.Equal(t, 1, f.requestEvents(t, a, b))

	_, err = f.svc.AcceptFriendRequest(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, friend, f.state(t, b, a))
	assert.Zero(t, f.requestEvents(t, a, b))
}

func TestAcceptDeclinedRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.DeclineFriendRequest(ctx, b, a)
	require.NoError(t, err)

	_, err = f.svc.AcceptFriendRequest(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, friend, f.state(t, a, b))
	assert.Equal(t, friend, f.state(t, b, a))
}

func TestAcceptWithoutRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.AcceptFriendRequest(ctx, b, a)
	assert.ErrorIs(t, err, relation.ErrNotFound)

	require.NoError(t, f.svc.Follow(ctx, a, b))
	_, err = f.svc.AcceptFriendRequest(ctx, b, a)
	assert.ErrorIs(t, err, relation.ErrNotFound)
	assert.Equal(t, following, f.state(t, a, b))
	assert.Equal(t, none, f.state(t, b, a))
}

func TestAcceptByEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	edge, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)

	_, err = f.svc.AcceptFriendRequestByEdge(ctx, c, edge.ID)
	assert.ErrorIs(t, err, relation.ErrNotFound, "only the receiver may accept")
	_, err = f.svc.AcceptFriendRequestByEdge(ctx, b, uuid.New())
	assert.ErrorIs(t, err, relation.ErrNotFound)

	accepted, err := f.svc.AcceptFriendRequestByEdge(ctx, b, edge.ID)
	require.NoError(t, err)
	assert.Equal(t, edge.ID, accepted.ID)
	assert.Equal(t, friend, f.state(t, b, a))
}

func TestDeclineDoesNotDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)

	status, err := f.svc.DeclineFriendRequest(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, models.RequestDeclined, status)
	assert.Equal(t, declined, f.state(t, a, b))
	assert.Zero(t, f.requestEvents(t, b, a))

	followers, err := f.svc.ListByType(ctx, b, relation.ListFollowers)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a, followers[0].ID)

	_, err = f.svc.DeclineFriendRequest(ctx, b, a)
	assert.ErrorIs(t, err, relation.ErrNotFound)
}

// racingStore runs interleave inside the transaction right after the
// operation has read its first edge, as if another caller committed between
// the read and the guarded update.
type racingStore struct {
	relation.Store
	interleave func(ctx context.Context, tx relation.Tx)
}

func (s *racingStore) WithinTx(ctx context.Context, fn func(tx relation.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx relation.Tx) error {
		return fn(&racingTx{Tx: tx, interleave: s.interleave})
	})
}

type racingTx struct {
	relation.Tx
	interleave func(ctx context.Context, tx relation.Tx)
	fired      bool
}

func (t *racingTx) GetEdge(ctx context.Context, requesterID, receiverID uuid.UUID) (*models.UserEdge, error) {
	edge, err := t.Tx.GetEdge(ctx, requesterID, receiverID)
	if !t.fired {
		t.fired = true
		t.interleave(ctx, t.Tx)
	}
	return edge, err
}

func TestGuardedUpdateLosesRace(t *testing.T) {
	tests := []struct {
		name     string
		interim  relation.State
		operate  func(svc *relation.Service, receiver, requester uuid.UUID) error
		leftover relation.State
	}{
		{
			name:    "accept after concurrent decline",
			interim: declined,
			operate: func(svc *relation.Service, receiver, requester uuid.UUID) error {
				_, err := svc.AcceptFriendRequest(context.Background(), receiver, requester)
				return err
			},
		},
		{
			name:    "decline after concurrent accept",
			interim: friend,
			operate: func(svc *relation.Service, receiver, requester uuid.UUID) error {
				_, err := svc.DeclineFriendRequest(context.Background(), receiver, requester)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			a, b := f.user(t, "alice"), f.user(t, "bob")
			_, err := f.svc.SendFriendRequest(ctx, a, b)
			require.NoError(t, err)

			racing := relation.NewService(&racingStore{
				Store: f.store,
				interleave: func(ctx context.Context, tx relation.Tx) {
					ok, err := tx.CompareAndSwapEdge(ctx, a, b, pending, tt.interim)
					require.NoError(t, err)
					require.True(t, ok)
				},
			})

			err = tt.operate(racing, b, a)
			assert.ErrorIs(t, err, relation.ErrNotFound)
			// The whole transaction rolled back, interleaved write included.
			assert.Equal(t, pending, f.state(t, a, b))
			assert.Equal(t, none, f.state(t, b, a))
			assert.Equal(t, 1, f.requestEvents(t, b, a))
		})
	}
}

func TestConcurrentAcceptAndDecline(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		ctx := context.Background()
		a, b := f.user(t, "alice"), f.user(t, "bob")
		_, err := f.svc.SendFriendRequest(ctx, a, b)
		require.NoError(t, err)

		var acceptErr, declineErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, acceptErr = f.svc.AcceptFriendRequest(ctx, b, a)
		}()
		go func() {
			defer wg.Done()
			_, declineErr = f.svc.DeclineFriendRequest(ctx, b, a)
		}()
		wg.Wait()

		require.False(t, acceptErr != nil && declineErr != nil, "one of them must apply")
		if acceptErr != nil {
			assert.ErrorIs(t, acceptErr, relation.ErrNotFound)
		}
		if declineErr != nil {
			// Accept committed first; decline found a friend edge.
			assert.ErrorIs(t, declineErr, relation.ErrNotFound)
		}

		switch {
		case acceptErr == nil:
			assert.Equal(t, friend, f.state(t, a, b))
			assert.Equal(t, friend, f.state(t, b, a))
		default:
			assert.Equal(t, declined, f.state(t, a, b))
			assert.Equal(t, none, f.state(t, b, a))
		}
	}
}

func TestRemoveFriendshipFromRequesterSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.AcceptFriendRequest(ctx, b, a)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveRelationship(ctx, a, b))

	assert.Equal(t, none, f.state(t, a, b))
	assert.Equal(t, declined, f.state(t, b, a), "bob keeps following alice")
}

func TestRemoveFriendshipFromReceiverSideOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.SendFriendRequest(ctx, b, a)
	require.NoError(t, err)
	// Bob accepts Alice's request; his own request to Alice stays pending.
	_, err = f.svc.AcceptFriendRequest(ctx, b, a)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveRelationship(ctx, b, a))

	// Bob's outgoing pending edge was removed first, with its event.
	assert.Equal(t, none, f.state(t, b, a))
	assert.Zero(t, f.requestEvents(t, a, b))
	assert.Equal(t, friend, f.state(t, a, b))

	// Now only the incoming friend edge remains for Bob.
	require.NoError(t, f.svc.RemoveRelationship(ctx, b, a))
	assert.Equal(t, declined, f.state(t, a, b))
}

func TestRemoveCancelsOutgoingRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveRelationship(ctx, a, b))
	assert.Equal(t, none, f.state(t, a, b))
	assert.Zero(t, f.requestEvents(t, b, a))

	// With the edge gone the request can be sent again.
	_, err = f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
}

func TestRemoveIncomingFollower(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveRelationship(ctx, b, a))
	assert.Equal(t, none, f.state(t, a, b))
	assert.Zero(t, f.requestEvents(t, b, a))
}

func TestRemoveWithoutRelationship(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	assert.ErrorIs(t, f.svc.RemoveRelationship(ctx, a, b), relation.ErrNotFound)

	_, err := f.svc.Block(ctx, b, a)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.RemoveRelationship(ctx, a, b), relation.ErrNotFound, "blocked user cannot see the block")
	assert.Equal(t, blocked, f.state(t, b, a))

	require.NoError(t, f.svc.RemoveRelationship(ctx, b, a), "blocker lifts the block")
	assert.Equal(t, none, f.state(t, b, a))
}

func TestBlockPurgesPriorState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.AcceptFriendRequest(ctx, b, a)
	require.NoError(t, err)

	isBlocked, err := f.svc.Block(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, isBlocked)
	assert.Equal(t, blocked, f.state(t, a, b))
	assert.Equal(t, none, f.state(t, b, a))

	counts, err := f.svc.CountByType(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, relation.Counts{Blocked: 1}, counts)
}

func TestBlockDropsOpenRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.svc.SendFriendRequest(ctx, b, a)
	require.NoError(t, err)

	_, err = f.svc.Block(ctx, a, b)
	require.NoError(t, err)
	assert.Zero(t, f.requestEvents(t, a, b))
}

func TestBlockToggles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	isBlocked, err := f.svc.Block(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, isBlocked)

	isBlocked, err = f.svc.Block(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, isBlocked)
	assert.Equal(t, none, f.state(t, a, b))

	_, err = f.svc.Block(ctx, a, uuid.New())
	assert.ErrorIs(t, err, relation.ErrNotFound)
}

func TestBlockIsInvisibleToBlockedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	_, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.AcceptFriendRequest(ctx, b, a)
	require.NoError(t, err)

	_, err = f.svc.Block(ctx, a, b)
	require.NoError(t, err)

	view, err := f.svc.GetStatus(ctx, b, a)
	require.NoError(t, err)
	assert.Nil(t, view.Status)

	view, err = f.svc.GetStatus(ctx, a, b)
	require.NoError(t, err)
	require.NotNil(t, view.Status)
	assert.Equal(t, models.EdgeBlocked, *view.Status)
	assert.Equal(t, relation.DirectionOutgoing, view.Direction)

	assert.ErrorIs(t, f.svc.Follow(ctx, b, a), relation.ErrNotFound)
	_, err = f.svc.SendFriendRequest(ctx, b, a)
	assert.ErrorIs(t, err, relation.ErrNotFound)
	assert.Equal(t, none, f.state(t, b, a))
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	view, err := f.svc.GetStatus(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, relation.StatusView{}, view)

	edge, err := f.svc.SendFriendRequest(ctx, a, b)
	require.NoError(t, err)

	view, err = f.svc.GetStatus(ctx, a, b)
	require.NoError(t, err)
	require.NotNil(t, view.Status)
	assert.Equal(t, models.EdgeFollowing, *view.Status)
	require.NotNil(t, view.RequestStatus)
	assert.Equal(t, models.RequestPending, *view.RequestStatus)
	assert.Equal(t, relation.DirectionOutgoing, view.Direction)
	assert.Nil(t, view.EdgeID)

	view, err = f.svc.GetStatus(ctx, b, a)
	require.NoError(t, err)
	require.NotNil(t, view.Status)
	assert.Equal(t, relation.DirectionIncoming, view.Direction)
	require.NotNil(t, view.EdgeID)
	assert.Equal(t, edge.ID, *view.EdgeID)
}

func TestListAndCountScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	_, err := f.svc.SendFriendRequest(ctx, alice, bob)
	require.NoError(t, err)

	requests, err := f.svc.ListByType(ctx, bob, relation.ListRequests)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, alice, requests[0].ID)
	assert.Equal(t, "alice", requests[0].Name)

	outgoing, err := f.svc.ListByType(ctx, alice, relation.ListOutgoing)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, bob, outgoing[0].ID)

	_, err = f.svc.AcceptFriendRequest(ctx, bob, alice)
	require.NoError(t, err)

	aliceFriends, err := f.svc.ListByType(ctx, alice, relation.ListFriends)
	require.NoError(t, err)
	require.Len(t, aliceFriends, 1)
	assert.Equal(t, bob, aliceFriends[0].ID)

	bobFriends, err := f.svc.ListByType(ctx, bob, relation.ListFriends)
	require.NoError(t, err)
	require.Len(t, bobFriends, 1)
	assert.Equal(t, alice, bobFriends[0].ID)

	counts, err := f.svc.CountByType(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, counts.Requests)
	assert.EqualValues(t, 1, counts.Friends)
}

func TestListOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := f.user(t, "me")
	zed, amy, kim := f.user(t, "zed"), f.user(t, "amy"), f.user(t, "kim")

	for _, u := range []uuid.UUID{zed, amy, kim} {
		_, err := f.svc.SendFriendRequest(ctx, u, me)
		require.NoError(t, err)
	}

	requests, err := f.svc.ListByType(ctx, me, relation.ListRequests)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, []uuid.UUID{kim, amy, zed}, []uuid.UUID{requests[0].ID, requests[1].ID, requests[2].ID}, "newest first")

	for _, u := range []uuid.UUID{zed, amy, kim} {
		_, err := f.svc.AcceptFriendRequest(ctx, me, u)
		require.NoError(t, err)
	}
	friends, err := f.svc.ListByType(ctx, me, relation.ListFriends)
	require.NoError(t, err)
	require.Len(t, friends, 3)
	assert.Equal(t, []string{"amy", "kim", "zed"}, []string{friends[0].Name, friends[1].Name, friends[2].Name}, "by name")
}

func TestCountByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := f.user(t, "me")
	u1, u2, u3, u4, u5 := f.user(t, "u1"), f.user(t, "u2"), f.user(t, "u3"), f.user(t, "u4"), f.user(t, "u5")

	_, err := f.svc.SendFriendRequest(ctx, u1, me) // incoming request, follower
	require.NoError(t, err)
	require.NoError(t, f.svc.Follow(ctx, u2, me)) // follower
	_, err = f.svc.SendFriendRequest(ctx, me, u3) // outgoing
	require.NoError(t, err)
	require.NoError(t, f.svc.Follow(ctx, me, u4)) // following
	_, err = f.svc.Block(ctx, me, u5)
	require.NoError(t, err)

	counts, err := f.svc.CountByType(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, relation.Counts{
		Friends:   0,
		Requests:  1,
		Followers: 2,
		Outgoing:  1,
		Blocked:   1,
		Following: 1,
	}, counts)
}

func TestListByTypeRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice")

	_, err := f.svc.ListByType(context.Background(), a, relation.ListType("enemies"))
	assert.ErrorIs(t, err, relation.ErrInvalidType)

	users, err := f.svc.ListByType(context.Background(), a, relation.ListBlocked)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUniquenessPerDirection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")

	require.NoError(t, f.svc.Follow(ctx, a, b))
	_, err := f.svc.SendFriendRequest(ctx, a, b)
	assert.ErrorIs(t, err, relation.ErrAlreadyExists)
	_, err = f.svc.SendFriendRequest(ctx, b, a)
	require.NoError(t, err)

	aOut, err := f.store.CountEdges(ctx, a, relation.Filter{Side: relation.SideRequester, Status: models.EdgeFollowing})
	require.NoError(t, err)
	assert.EqualValues(t, 1, aOut)
	bOut, err := f.store.CountEdges(ctx, b, relation.Filter{Side: relation.SideRequester, Status: models.EdgeFollowing})
	require.NoError(t, err)
	assert.EqualValues(t, 1, bOut)
}

// lockingStore records the pairs write paths lock.
type lockingStore struct {
	relation.Store
	mu    sync.Mutex
	locks [][2]uuid.UUID
}

func (s *lockingStore) WithinTx(ctx context.Context, fn func(tx relation.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx relation.Tx) error {
		return fn(&lockingTx{Tx: tx, store: s})
	})
}

func (s *lockingStore) taken() [][2]uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.locks
	s.locks = nil
	return out
}

type lockingTx struct {
	relation.Tx
	store *lockingStore
}

func (t *lockingTx) LockPair(ctx context.Context, a, b uuid.UUID) error {
	t.store.mu.Lock()
	t.store.locks = append(t.store.locks, [2]uuid.UUID{a, b})
	t.store.mu.Unlock()
	return t.Tx.LockPair(ctx, a, b)
}

func TestWritesLockThePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "alice"), f.user(t, "bob")
	store := &lockingStore{Store: f.store}
	svc := relation.NewService(store)

	steps := []struct {
		name string
		run  func() error
		pair [2]uuid.UUID
	}{
		{"follow", func() error { return svc.Follow(ctx, a, b) }, [2]uuid.UUID{a, b}},
		{"remove", func() error { return svc.RemoveRelationship(ctx, a, b) }, [2]uuid.UUID{a, b}},
		{"request", func() error { _, err := svc.SendFriendRequest(ctx, a, b); return err }, [2]uuid.UUID{a, b}},
		{"decline", func() error { _, err := svc.DeclineFriendRequest(ctx, b, a); return err }, [2]uuid.UUID{b, a}},
		{"accept", func() error { _, err := svc.AcceptFriendRequest(ctx, b, a); return err }, [2]uuid.UUID{b, a}},
		{"block", func() error { _, err := svc.Block(ctx, b, a); return err }, [2]uuid.UUID{b, a}},
	}
	for _, step := range steps {
		require.NoError(t, step.run(), step.name)
		assert.Equal(t, [][2]uuid.UUID{step.pair}, store.taken(), step.name)
	}
}
