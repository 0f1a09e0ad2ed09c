package relation

import (
	"fmt"

	"socialgraph/backend/internal/models"
)

// Kind is the coarse relationship held by one directed edge.
type Kind uint8

const (
	// Stranger means no edge exists in this direction.
	Stranger Kind = iota
	Following
	Friend
	Blocked
)

func (k Kind) String() string {
	switch k {
	case Stranger:
		return "none"
	case Following:
		return string(models.EdgeFollowing)
	case Friend:
		return string(models.EdgeFriend)
	case Blocked:
		return string(models.EdgeBlocked)
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// State is the full state of one directed edge. Request is only meaningful
// for Following (any of "", pending, declined) and Friend (always accepted).
type State struct {
	Kind    Kind
	Request models.FriendRequestStatus
}

var (
	stateStranger  = State{Kind: Stranger}
	stateFollowing = State{Kind: Following}
	statePending   = State{Kind: Following, Request: models.RequestPending}
	stateDeclined  = State{Kind: Following, Request: models.RequestDeclined}
	stateFriend    = State{Kind: Friend, Request: models.RequestAccepted}
	stateBlocked   = State{Kind: Blocked}
)

// StateOf reads the state of a stored edge. A nil edge is Stranger.
func StateOf(e *models.UserEdge) State {
	if e == nil {
		return stateStranger
	}
	switch e.Status {
	case models.EdgeFollowing:
		return State{Kind: Following, Request: e.RequestStatus()}
	case models.EdgeFriend:
		return stateFriend
	case models.EdgeBlocked:
		return stateBlocked
	default:
		return stateStranger
	}
}

// Status is the edge status column for this state; empty for Stranger.
func (s State) Status() models.EdgeStatus {
	switch s.Kind {
	case Following:
		return models.EdgeFollowing
	case Friend:
		return models.EdgeFriend
	case Blocked:
		return models.EdgeBlocked
	default:
		return ""
	}
}

// RequestStatus is the friend_request_status column for this state.
func (s State) RequestStatus() *models.FriendRequestStatus {
	if s.Request == "" {
		return nil
	}
	r := s.Request
	return &r
}

// Apply writes the state onto an edge row.
func (s State) Apply(e *models.UserEdge) {
	e.Status = s.Status()
	e.FriendRequestStatus = s.RequestStatus()
}

func (s State) String() string {
	if s.Request == "" || s.Kind == Friend {
		return s.Kind.String()
	}
	return s.Kind.String() + "/" + string(s.Request)
}

// Event is an input to the per-edge state machine.
type Event uint8

const (
	EventFollow Event = iota
	EventRequest
	EventAccept
	EventDecline
	// EventReciprocate is applied to the reverse edge when a request is accepted.
	EventReciprocate
	// EventUnfriend demotes the surviving edge when a friendship is removed.
	EventUnfriend
	EventRemove
	EventBlock
	EventUnblock
)

func (ev Event) String() string {
	switch ev {
	case EventFollow:
		return "follow"
	case EventRequest:
		return "request"
	case EventAccept:
		return "accept"
	case EventDecline:
		return "decline"
	case EventReciprocate:
		return "reciprocate"
	case EventUnfriend:
		return "unfriend"
	case EventRemove:
		return "remove"
	case EventBlock:
		return "block"
	case EventUnblock:
		return "unblock"
	default:
		return fmt.Sprintf("event(%d)", uint8(ev))
	}
}

// Next is the transition function of a single directed edge. It returns the
// state the edge must move to, which may equal cur when the event is a no-op,
// or an *Error when the event is not allowed from cur.
func Next(cur State, ev Event) (State, error) {
	switch ev {
	case EventFollow:
		// Following overwrites whatever actor's own edge said before.
		return stateFollowing, nil

	case EventRequest:
		if cur.Kind != Stranger {
			return cur, alreadyExists(cur)
		}
		return statePending, nil

	case EventAccept:
		if cur.Kind == Following && (cur.Request == models.RequestPending || cur.Request == models.RequestDeclined) {
			return stateFriend, nil
		}
		return cur, notFound("friend request not found")

	case EventDecline:
		if cur == statePending {
			return stateDeclined, nil
		}
		return cur, notFound("pending friend request not found")

	case EventReciprocate:
		switch {
		case cur == statePending, cur.Kind == Blocked:
			// An open reverse request waits for its own acceptance.
			return cur, nil
		default:
			return stateFriend, nil
		}

	case EventUnfriend:
		if cur.Kind == Blocked {
			return cur, notFound("relationship not found")
		}
		return stateDeclined, nil

	case EventRemove:
		if cur.Kind == Stranger {
			return cur, notFound("relationship not found")
		}
		return stateStranger, nil

	case EventBlock:
		return stateBlocked, nil

	case EventUnblock:
		if cur.Kind != Blocked {
			return cur, notFound("block not found")
		}
		return stateStranger, nil
	}
	return cur, fmt.Errorf("relation: unknown event %v", ev)
}
