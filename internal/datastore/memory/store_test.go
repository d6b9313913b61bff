package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openkermesse/stallpoints/internal/datastore"
	"github.com/openkermesse/stallpoints/internal/model"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	_ = s.store.Close()
}

func (s *StoreSuite) record(id model.PlayerID) *model.PlayerRecord {
	return &model.PlayerRecord{
		ID:        id,
		Name:      "Asha",
		PerStall:  map[model.StallID]int{"ring_toss": 0},
		CreatedAt: time.Now(),
	}
}

// Player tests

func (s *StoreSuite) TestInsertAndGetPlayer() {
	err := s.store.InsertPlayer(s.ctx, s.record("p1"))
	s.Require().NoError(err)

	rec, err := s.store.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), rec.ID)
	s.Equal("Asha", rec.Name)
	s.Equal(int64(1), rec.Revision)
}

func (s *StoreSuite) TestGetPlayerNotFound() {
	_, err := s.store.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StoreSuite) TestInsertDuplicatePlayer() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))

	err := s.store.InsertPlayer(s.ctx, s.record("p1"))
	s.ErrorIs(err, model.ErrDuplicatePlayer)
}

func (s *StoreSuite) TestGetPlayerReturnsCopy() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))

	rec, _ := s.store.GetPlayer(s.ctx, "p1")
	rec.PerStall["ring_toss"] = 99
	rec.Total = 99

	fresh, _ := s.store.GetPlayer(s.ctx, "p1")
	s.Equal(0, fresh.PerStall["ring_toss"])
	s.Equal(0, fresh.Total)
}

func (s *StoreSuite) TestUpdatePlayerBumpsRevision() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))

	rec, _ := s.store.GetPlayer(s.ctx, "p1")
	rec.Total = 10
	committed, err := s.store.UpdatePlayer(s.ctx, rec, rec.Revision)
	s.Require().NoError(err)
	s.Equal(int64(2), committed.Revision)
	s.Equal(10, committed.Total)
}

func (s *StoreSuite) TestUpdatePlayerStaleRevision() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))

	rec, _ := s.store.GetPlayer(s.ctx, "p1")
	rec.Total = 10
	_, err := s.store.UpdatePlayer(s.ctx, rec, rec.Revision)
	s.Require().NoError(err)

	// Second write with the original revision must fail
	rec.Total = 20
	_, err = s.store.UpdatePlayer(s.ctx, rec, 1)
	s.ErrorIs(err, model.ErrPreconditionFailed)
}

func (s *StoreSuite) TestUpdatePlayerNotFound() {
	_, err := s.store.UpdatePlayer(s.ctx, s.record("ghost"), 1)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StoreSuite) TestDeletePlayer() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))

	s.Require().NoError(s.store.DeletePlayer(s.ctx, "p1"))

	_, err := s.store.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StoreSuite) TestDeletePlayerNotFound() {
	err := s.store.DeletePlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StoreSuite) TestListPlayers() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p2")))

	records, err := s.store.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Len(records, 2)
}

// Stall tests

func (s *StoreSuite) TestInsertAndGetStall() {
	stall := &model.Stall{ID: "ring_toss", DisplayName: "Ring Toss", Incharge: "Maya", CredentialHash: "hash"}
	s.Require().NoError(s.store.InsertStall(s.ctx, stall))

	got, err := s.store.GetStall(s.ctx, "ring_toss")
	s.Require().NoError(err)
	s.Equal("Ring Toss", got.DisplayName)
	s.Equal("hash", got.CredentialHash)
}

func (s *StoreSuite) TestInsertDuplicateStall() {
	stall := &model.Stall{ID: "ring_toss", DisplayName: "Ring Toss"}
	s.Require().NoError(s.store.InsertStall(s.ctx, stall))

	err := s.store.InsertStall(s.ctx, stall)
	s.ErrorIs(err, model.ErrDuplicateStall)
}

func (s *StoreSuite) TestUpdateStallNotFound() {
	err := s.store.UpdateStall(s.ctx, &model.Stall{ID: "ghost"})
	s.ErrorIs(err, model.ErrStallNotFound)
}

func (s *StoreSuite) TestDeleteStall() {
	s.Require().NoError(s.store.InsertStall(s.ctx, &model.Stall{ID: "ring_toss"}))

	s.Require().NoError(s.store.DeleteStall(s.ctx, "ring_toss"))

	_, err := s.store.GetStall(s.ctx, "ring_toss")
	s.ErrorIs(err, model.ErrStallNotFound)
}

// Schema procedures

func (s *StoreSuite) TestAddStallCounter() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))

	s.Require().NoError(s.store.AddStallCounter(s.ctx, "dunk_tank"))

	rec, _ := s.store.GetPlayer(s.ctx, "p1")
	val, ok := rec.PerStall["dunk_tank"]
	s.True(ok)
	s.Equal(0, val)
}

func (s *StoreSuite) TestAddStallCounterInvalidatesInflightWrites() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))

	rec, _ := s.store.GetPlayer(s.ctx, "p1")

	// Counter provisioning lands between the read and the write
	s.Require().NoError(s.store.AddStallCounter(s.ctx, "dunk_tank"))

	rec.Total = 10
	_, err := s.store.UpdatePlayer(s.ctx, rec, rec.Revision)
	s.ErrorIs(err, model.ErrPreconditionFailed)
}

func (s *StoreSuite) TestRemoveStallCounter() {
	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))

	s.Require().NoError(s.store.RemoveStallCounter(s.ctx, "ring_toss"))

	rec, _ := s.store.GetPlayer(s.ctx, "p1")
	_, ok := rec.PerStall["ring_toss"]
	s.False(ok)
}

// Change feed

func (s *StoreSuite) TestSubscribeChangesNotifiesOnPlayerMutation() {
	var changes []datastore.Change
	sub := s.store.SubscribeChanges(datastore.CollectionPlayers, func(c datastore.Change) {
		changes = append(changes, c)
	})
	defer sub.Unsubscribe()

	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))
	s.Len(changes, 1)
	s.Equal(datastore.CollectionPlayers, changes[0].Collection)
}

func (s *StoreSuite) TestSubscribeChangesFiltersCollections() {
	var count int
	sub := s.store.SubscribeChanges(datastore.CollectionPlayers, func(datastore.Change) {
		count++
	})
	defer sub.Unsubscribe()

	s.Require().NoError(s.store.InsertStall(s.ctx, &model.Stall{ID: "ring_toss"}))
	s.Equal(0, count)
}

func (s *StoreSuite) TestUnsubscribeStopsNotifications() {
	var count int
	sub := s.store.SubscribeChanges(datastore.CollectionPlayers, func(datastore.Change) {
		count++
	})
	sub.Unsubscribe()

	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))
	s.Equal(0, count)
}

func (s *StoreSuite) TestHandlerMayReadBackFromStore() {
	var seen int
	sub := s.store.SubscribeChanges(datastore.CollectionPlayers, func(datastore.Change) {
		records, err := s.store.ListPlayers(s.ctx)
		s.NoError(err)
		seen = len(records)
	})
	defer sub.Unsubscribe()

	s.Require().NoError(s.store.InsertPlayer(s.ctx, s.record("p1")))
	s.Equal(1, seen)
}
