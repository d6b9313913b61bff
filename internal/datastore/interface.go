package datastore

import (
	"context"

	"github.com/openkermesse/stallpoints/internal/model"
)

// Collections tracked by the store's change feed.
const (
	CollectionPlayers = "players"
	CollectionStalls  = "stalls"
)

// Change is the opaque signal delivered to change subscribers. It carries no
// payload beyond which collection was touched; subscribers are expected to
// re-read whatever they need.
type Change struct {
	Collection string
}

// Subscription is a handle to an active change-feed subscription.
type Subscription interface {
	Unsubscribe()
}

// Store defines the data-store contract the ledger core requires: point-in-
// time reads, conditional writes, a coarse change feed, and the two schema
// procedures used by the stall registry.
type Store interface {
	// Player record operations. UpdatePlayer commits only if the stored
	// record's revision still equals expectedRevision, and returns the
	// committed record as read back from the store; on a revision mismatch it
	// fails with model.ErrPreconditionFailed. InsertPlayer fails with
	// model.ErrDuplicatePlayer on an existing id. DeletePlayer fails with
	// model.ErrPlayerNotFound on an absent id.
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error)
	ListPlayers(ctx context.Context) ([]*model.PlayerRecord, error)
	InsertPlayer(ctx context.Context, rec *model.PlayerRecord) error
	UpdatePlayer(ctx context.Context, rec *model.PlayerRecord, expectedRevision int64) (*model.PlayerRecord, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Stall identity operations.
	GetStall(ctx context.Context, id model.StallID) (*model.Stall, error)
	ListStalls(ctx context.Context) ([]*model.Stall, error)
	InsertStall(ctx context.Context, stall *model.Stall) error
	UpdateStall(ctx context.Context, stall *model.Stall) error
	DeleteStall(ctx context.Context, id model.StallID) error

	// Schema procedures: provision or drop the per-stall counter field on
	// every player record. Each is atomic from the caller's perspective and
	// bumps the revision of every touched record so that in-flight
	// conditional writes cannot silently drop the change.
	AddStallCounter(ctx context.Context, id model.StallID) error
	RemoveStallCounter(ctx context.Context, id model.StallID) error

	// SubscribeChanges registers a handler invoked after any committed
	// mutation in the collection. Handlers must not block.
	SubscribeChanges(collection string, handler func(Change)) Subscription

	Close() error
}
