package webhook

import (
	"context"

	"github.com/TimurManjosov/configship/internal/snapshot"
)

// Notifier turns snapshot store replacements into dispatched events.
type Notifier struct {
	store      *snapshot.Store
	dispatcher *Dispatcher
}

// NewNotifier subscribes the dispatcher to store replacements.
func NewNotifier(store *snapshot.Store, dispatcher *Dispatcher) *Notifier {
	return &Notifier{store: store, dispatcher: dispatcher}
}

// Run dispatches one event per store replacement until ctx is cancelled.
// Notifications are coalesced by the store; the event always describes the
// snapshot current at dispatch time.
func (n *Notifier) Run(ctx context.Context) {
	ch, cancel := n.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			snap, err := n.store.Current()
			if err != nil {
				continue
			}
			n.dispatcher.Dispatch(NewEvent(snap))
		}
	}
}
