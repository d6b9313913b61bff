package memory

import (
	"context"
	"sync"

	"github.com/openkermesse/stallpoints/internal/datastore"
	"github.com/openkermesse/stallpoints/internal/model"
)

// Store is an in-memory implementation of the datastore interface
type Store struct {
	mu sync.RWMutex

	players map[model.PlayerID]*model.PlayerRecord
	stalls  map[model.StallID]*model.Stall

	subMu  sync.RWMutex
	nextID int
	subs   map[int]*subscription
}

// New creates a new in-memory store instance
func New() *Store {
	return &Store{
		players: make(map[model.PlayerID]*model.PlayerRecord),
		stalls:  make(map[model.StallID]*model.Stall),
		subs:    make(map[int]*subscription),
	}
}

// Ensure Store implements the interface
var _ datastore.Store = (*Store)(nil)

// Player operations

func (s *Store) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) ListPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*model.PlayerRecord, 0, len(s.players))
	for _, rec := range s.players {
		records = append(records, rec.Clone())
	}
	return records, nil
}

func (s *Store) InsertPlayer(ctx context.Context, rec *model.PlayerRecord) error {
	s.mu.Lock()
	if _, ok := s.players[rec.ID]; ok {
		s.mu.Unlock()
		return model.ErrDuplicatePlayer
	}
	stored := rec.Clone()
	stored.Revision = 1
	s.players[rec.ID] = stored
	s.mu.Unlock()

	s.notify(datastore.CollectionPlayers)
	return nil
}

func (s *Store) UpdatePlayer(ctx context.Context, rec *model.PlayerRecord, expectedRevision int64) (*model.PlayerRecord, error) {
	s.mu.Lock()
	current, ok := s.players[rec.ID]
	if !ok {
		s.mu.Unlock()
		return nil, model.ErrPlayerNotFound
	}
	if current.Revision != expectedRevision {
		s.mu.Unlock()
		return nil, model.ErrPreconditionFailed
	}
	stored := rec.Clone()
	stored.Revision = expectedRevision + 1
	s.players[rec.ID] = stored
	committed := stored.Clone()
	s.mu.Unlock()

	s.notify(datastore.CollectionPlayers)
	return committed, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	if _, ok := s.players[id]; !ok {
		s.mu.Unlock()
		return model.ErrPlayerNotFound
	}
	delete(s.players, id)
	s.mu.Unlock()

	s.notify(datastore.CollectionPlayers)
	return nil
}

// Stall operations

func (s *Store) GetStall(ctx context.Context, id model.StallID) (*model.Stall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stall, ok := s.stalls[id]
	if !ok {
		return nil, model.ErrStallNotFound
	}
	cp := *stall
	return &cp, nil
}

func (s *Store) ListStalls(ctx context.Context) ([]*model.Stall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stalls := make([]*model.Stall, 0, len(s.stalls))
	for _, stall := range s.stalls {
		cp := *stall
		stalls = append(stalls, &cp)
	}
	return stalls, nil
}

func (s *Store) InsertStall(ctx context.Context, stall *model.Stall) error {
	s.mu.Lock()
	if _, ok := s.stalls[stall.ID]; ok {
		s.mu.Unlock()
		return model.ErrDuplicateStall
	}
	cp := *stall
	s.stalls[stall.ID] = &cp
	s.mu.Unlock()

	s.notify(datastore.CollectionStalls)
	return nil
}

func (s *Store) UpdateStall(ctx context.Context, stall *model.Stall) error {
	s.mu.Lock()
	if _, ok := s.stalls[stall.ID]; !ok {
		s.mu.Unlock()
		return model.ErrStallNotFound
	}
	cp := *stall
	s.stalls[stall.ID] = &cp
	s.mu.Unlock()

	s.notify(datastore.CollectionStalls)
	return nil
}

func (s *Store) DeleteStall(ctx context.Context, id model.StallID) error {
	s.mu.Lock()
	if _, ok := s.stalls[id]; !ok {
		s.mu.Unlock()
		return model.ErrStallNotFound
	}
	delete(s.stalls, id)
	s.mu.Unlock()

	s.notify(datastore.CollectionStalls)
	return nil
}

// Schema procedures

func (s *Store) AddStallCounter(ctx context.Context, id model.StallID) error {
	s.mu.Lock()
	for _, rec := range s.players {
		if _, ok := rec.PerStall[id]; !ok {
			rec.PerStall[id] = 0
		}
		// Bump so concurrent conditional writes based on the old shape fail
		// and retry instead of dropping the new counter.
		rec.Revision++
	}
	s.mu.Unlock()

	s.notify(datastore.CollectionPlayers)
	return nil
}

func (s *Store) RemoveStallCounter(ctx context.Context, id model.StallID) error {
	s.mu.Lock()
	for _, rec := range s.players {
		delete(rec.PerStall, id)
		rec.Revision++
	}
	s.mu.Unlock()

	s.notify(datastore.CollectionPlayers)
	return nil
}

// Change feed

type subscription struct {
	store      *Store
	id         int
	collection string
	handler    func(datastore.Change)
}

func (sub *subscription) Unsubscribe() {
	sub.store.subMu.Lock()
	defer sub.store.subMu.Unlock()
	delete(sub.store.subs, sub.id)
}

func (s *Store) SubscribeChanges(collection string, handler func(datastore.Change)) datastore.Subscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	sub := &subscription{store: s, id: s.nextID, collection: collection, handler: handler}
	s.subs[sub.id] = sub
	return sub
}

// notify runs outside the data lock so handlers may read back from the store.
func (s *Store) notify(collection string) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, sub := range s.subs {
		if sub.collection == collection {
			sub.handler(datastore.Change{Collection: collection})
		}
	}
}

// Close releases all subscriptions
func (s *Store) Close() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = make(map[int]*subscription)
	return nil
}
