package changefeed

import (
	"log/slog"
	"sync"

	"github.com/openkermesse/stallpoints/internal/datastore"
)

// Adapter subscribes to the data store's low-level mutation notifications
// and re-emits them as a normalized "players changed" signal. The signal is
// deliberately payload-free: consumers re-fetch rather than diff. Bursts of
// mutations coalesce into a single pending signal.
type Adapter struct {
	sub     datastore.Subscription
	changes chan struct{}
	logger  *slog.Logger

	once sync.Once
	done chan struct{}
}

// New creates an adapter subscribed to player-collection changes.
func New(store datastore.Store, logger *slog.Logger) *Adapter {
	a := &Adapter{
		changes: make(chan struct{}, 1),
		logger:  logger.With(slog.String("component", "changefeed")),
		done:    make(chan struct{}),
	}
	a.sub = store.SubscribeChanges(datastore.CollectionPlayers, a.handle)
	return a
}

// Changes delivers one signal per burst of player mutations. The channel is
// never closed while the adapter is open; use Done to observe shutdown.
func (a *Adapter) Changes() <-chan struct{} {
	return a.changes
}

// Done is closed when the adapter shuts down.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Close unsubscribes from the store. Idempotent.
func (a *Adapter) Close() {
	a.once.Do(func() {
		a.sub.Unsubscribe()
		close(a.done)
		a.logger.Info("change feed closed")
	})
}

func (a *Adapter) handle(datastore.Change) {
	select {
	case <-a.done:
	case a.changes <- struct{}{}:
	default:
		// A signal is already pending; the refetch it triggers will observe
		// this mutation too.
	}
}
