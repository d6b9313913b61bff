package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openkermesse/stallpoints/internal/datastore"
	"github.com/openkermesse/stallpoints/internal/model"
)

// Store is a Redis-backed implementation of the datastore interface.
// Conditional player writes use WATCH/MULTI transactions keyed on the
// record's revision; the change feed rides on Redis pub/sub.
type Store struct {
	client *redis.Client
	cfg    Config

	mu   sync.Mutex
	subs []*subscription
}

// New creates a new Redis store instance
func New(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Store{client: client, cfg: cfg}, nil
}

// NewWithClient creates a Redis store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Store {
	return &Store{client: client, cfg: cfg}
}

// Ensure Store implements the interface
var _ datastore.Store = (*Store)(nil)

// Close closes all subscriptions and the Redis connection
func (s *Store) Close() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return s.client.Close()
}

// Player operations

func (s *Store) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rec model.PlayerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListPlayers(ctx context.Context) ([]*model.PlayerRecord, error) {
	ids, err := s.client.SMembers(ctx, playersIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []*model.PlayerRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*model.PlayerRecord, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Removed between SMEMBERS and MGET
		}
		var rec model.PlayerRecord
		if err := json.Unmarshal([]byte(val.(string)), &rec); err != nil {
			continue // Skip invalid data
		}
		records = append(records, &rec)
	}

	return records, nil
}

func (s *Store) InsertPlayer(ctx context.Context, rec *model.PlayerRecord) error {
	stored := rec.Clone()
	stored.Revision = 1

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, playerKey(rec.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrDuplicatePlayer
	}

	if err := s.client.SAdd(ctx, playersIndexKey(), string(rec.ID)).Err(); err != nil {
		return err
	}

	s.publish(ctx, datastore.CollectionPlayers)
	return nil
}

func (s *Store) UpdatePlayer(ctx context.Context, rec *model.PlayerRecord, expectedRevision int64) (*model.PlayerRecord, error) {
	key := playerKey(rec.ID)
	committed := rec.Clone()
	committed.Revision = expectedRevision + 1

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPlayerNotFound
			}
			return err
		}

		var current model.PlayerRecord
		if err := json.Unmarshal(data, &current); err != nil {
			return err
		}
		if current.Revision != expectedRevision {
			return model.ErrPreconditionFailed
		}

		payload, err := json.Marshal(committed)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txn, key); err != nil {
		// EXEC aborted because the key moved under the WATCH
		if errors.Is(err, redis.TxFailedErr) {
			return nil, model.ErrPreconditionFailed
		}
		return nil, err
	}

	s.publish(ctx, datastore.CollectionPlayers)
	return committed, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	removed, err := s.client.Del(ctx, playerKey(id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return model.ErrPlayerNotFound
	}

	if err := s.client.SRem(ctx, playersIndexKey(), string(id)).Err(); err != nil {
		return err
	}

	s.publish(ctx, datastore.CollectionPlayers)
	return nil
}

// Stall operations

func (s *Store) GetStall(ctx context.Context, id model.StallID) (*model.Stall, error) {
	data, err := s.client.Get(ctx, stallKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrStallNotFound
		}
		return nil, err
	}

	return unmarshalStall(data)
}

func (s *Store) ListStalls(ctx context.Context) ([]*model.Stall, error) {
	ids, err := s.client.SMembers(ctx, stallsIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []*model.Stall{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = stallKey(model.StallID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	stalls := make([]*model.Stall, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue
		}
		stall, err := unmarshalStall([]byte(val.(string)))
		if err != nil {
			continue
		}
		stalls = append(stalls, stall)
	}

	return stalls, nil
}

func (s *Store) InsertStall(ctx context.Context, stall *model.Stall) error {
	data, err := marshalStall(stall)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, stallKey(stall.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrDuplicateStall
	}

	if err := s.client.SAdd(ctx, stallsIndexKey(), string(stall.ID)).Err(); err != nil {
		return err
	}

	s.publish(ctx, datastore.CollectionStalls)
	return nil
}

func (s *Store) UpdateStall(ctx context.Context, stall *model.Stall) error {
	exists, err := s.client.Exists(ctx, stallKey(stall.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrStallNotFound
	}

	data, err := marshalStall(stall)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, stallKey(stall.ID), data, 0).Err(); err != nil {
		return err
	}

	s.publish(ctx, datastore.CollectionStalls)
	return nil
}

func (s *Store) DeleteStall(ctx context.Context, id model.StallID) error {
	removed, err := s.client.Del(ctx, stallKey(id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return model.ErrStallNotFound
	}

	if err := s.client.SRem(ctx, stallsIndexKey(), string(id)).Err(); err != nil {
		return err
	}

	s.publish(ctx, datastore.CollectionStalls)
	return nil
}

// Schema procedures

func (s *Store) AddStallCounter(ctx context.Context, id model.StallID) error {
	return s.patchAllPlayers(ctx, func(rec *model.PlayerRecord) {
		if _, ok := rec.PerStall[id]; !ok {
			rec.PerStall[id] = 0
		}
	})
}

func (s *Store) RemoveStallCounter(ctx context.Context, id model.StallID) error {
	return s.patchAllPlayers(ctx, func(rec *model.PlayerRecord) {
		delete(rec.PerStall, id)
	})
}

// patchAllPlayers applies patch to every player record under a WATCH
// transaction per record, bumping revisions so concurrent conditional writes
// based on the old shape fail and retry.
func (s *Store) patchAllPlayers(ctx context.Context, patch func(*model.PlayerRecord)) error {
	ids, err := s.client.SMembers(ctx, playersIndexKey()).Result()
	if err != nil {
		return err
	}

	for _, id := range ids {
		key := playerKey(model.PlayerID(id))

		txn := func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return nil // Removed concurrently; nothing to patch
				}
				return err
			}

			var rec model.PlayerRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}

			patch(&rec)
			rec.Revision++

			payload, err := json.Marshal(&rec)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			return err
		}

		for {
			err := s.client.Watch(ctx, txn, key)
			if err == nil {
				break
			}
			if errors.Is(err, redis.TxFailedErr) {
				continue // Lost the race on this record, patch it again
			}
			return err
		}
	}

	s.publish(ctx, datastore.CollectionPlayers)
	return nil
}

// Change feed

type subscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

func (sub *subscription) Unsubscribe() {
	sub.close()
}

func (sub *subscription) close() {
	sub.once.Do(func() {
		close(sub.done)
		_ = sub.pubsub.Close()
	})
}

func (s *Store) SubscribeChanges(collection string, handler func(datastore.Change)) datastore.Subscription {
	pubsub := s.client.Subscribe(context.Background(), changeChannel(collection))

	sub := &subscription{
		pubsub: pubsub,
		done:   make(chan struct{}),
	}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				handler(datastore.Change{Collection: collection})
			case <-sub.done:
				return
			}
		}
	}()

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return sub
}

func (s *Store) publish(ctx context.Context, collection string) {
	// Best effort: a missed signal only delays the next leaderboard refresh
	// until the following mutation or a manual refresh.
	_ = s.client.Publish(ctx, changeChannel(collection), "changed").Err()
}

// storedStall is the persisted form of a stall. Stall.CredentialHash is
// json:"-" so API responses never leak it, which means persistence needs its
// own shape.
type storedStall struct {
	ID             model.StallID `json:"id"`
	DisplayName    string        `json:"display_name"`
	Incharge       string        `json:"incharge"`
	CredentialHash string        `json:"credential_hash"`
	CreatedAt      time.Time     `json:"created_at"`
}

func marshalStall(stall *model.Stall) ([]byte, error) {
	return json.Marshal(storedStall{
		ID:             stall.ID,
		DisplayName:    stall.DisplayName,
		Incharge:       stall.Incharge,
		CredentialHash: stall.CredentialHash,
		CreatedAt:      stall.CreatedAt,
	})
}

func unmarshalStall(data []byte) (*model.Stall, error) {
	var stored storedStall
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &model.Stall{
		ID:             stored.ID,
		DisplayName:    stored.DisplayName,
		Incharge:       stored.Incharge,
		CredentialHash: stored.CredentialHash,
		CreatedAt:      stored.CreatedAt,
	}, nil
}
