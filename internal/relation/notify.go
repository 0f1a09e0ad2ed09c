package relation

import (
	"context"

	"github.com/google/uuid"
)

// Notifier pushes an event to the live sessions of a user. Delivery is best
// effort; a failure never affects the mutation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, eventType string, payload any) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, uuid.UUID, string, any) error { return nil }
