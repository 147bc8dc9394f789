// Package notifier delivers trade event notifications to an external
// channel. Delivery is best effort: a failed notification is logged by the
// caller and never blocks or fails a trading decision.
package notifier

import (
	"context"
	"time"
)

type EventKind string

const (
	EventKindEntry     EventKind = "ENTRY"
	EventKindExit      EventKind = "EXIT"
	EventKindStopHit   EventKind = "STOP_HIT"
	EventKindTargetHit EventKind = "TARGET_HIT"
	EventKindError     EventKind = "ERROR"
)

// Event is one notable occurrence worth telling a human about.
type Event struct {
	Kind    EventKind
	Symbol  string
	Title   string
	Message string
	Time    time.Time
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NopNotifier discards all events. Used when no channel is configured and in
// tests.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(ctx context.Context, event Event) error {
	return nil
}

var _ Notifier = NopNotifier{}
