package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openkermesse/stallpoints/internal/datastore"
	"github.com/openkermesse/stallpoints/internal/datastore/memory"
	"github.com/openkermesse/stallpoints/internal/dependencies/mocks"
	"github.com/openkermesse/stallpoints/internal/model"
	"github.com/openkermesse/stallpoints/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store   *memory.Store
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context

	admin model.Session
	gift  model.Session
	stall model.Session
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	// The store's stall collection doubles as the directory
	s.service = New(s.store, s.store, s.clock, DefaultConfig(), testutil.NopLogger())
	s.ctx = context.Background()

	s.admin = model.Session{Token: "t-admin", Role: model.RoleAdmin}
	s.gift = model.Session{Token: "t-gift", Role: model.RoleGiftCounter}
	s.stall = model.Session{Token: "t-stall", Role: model.RoleStall, StallID: "ring_toss"}

	s.Require().NoError(s.store.InsertStall(s.ctx, &model.Stall{ID: "ring_toss", DisplayName: "Ring Toss"}))
	s.Require().NoError(s.store.InsertStall(s.ctx, &model.Stall{ID: "dunk_tank", DisplayName: "Dunk Tank"}))
}

func (s *ServiceSuite) createPlayer(id string) *model.PlayerRecord {
	rec, err := s.service.CreatePlayer(s.ctx, s.admin, id, "Asha")
	s.Require().NoError(err)
	return rec
}

// CreatePlayer tests

func (s *ServiceSuite) TestCreatePlayerProvisionsCounters() {
	rec := s.createPlayer("p1")

	s.Equal(model.PlayerID("p1"), rec.ID)
	s.Len(rec.PerStall, 2)
	s.Equal(0, rec.PerStall["ring_toss"])
	s.Equal(0, rec.PerStall["dunk_tank"])
	s.Equal(0, rec.Total)
	s.Equal(0, rec.Balance)
	s.Equal(s.clock.Now(), rec.CreatedAt)
}

func (s *ServiceSuite) TestCreatePlayerTrimsAndValidates() {
	rec, err := s.service.CreatePlayer(s.ctx, s.admin, "  p1  ", "  Asha  ")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), rec.ID)
	s.Equal("Asha", rec.Name)

	_, err = s.service.CreatePlayer(s.ctx, s.admin, "   ", "Asha")
	s.ErrorIs(err, model.ErrEmptyPlayerID)

	_, err = s.service.CreatePlayer(s.ctx, s.admin, "p2", "   ")
	s.ErrorIs(err, model.ErrEmptyName)
}

func (s *ServiceSuite) TestCreatePlayerDuplicate() {
	s.createPlayer("p1")

	_, err := s.service.CreatePlayer(s.ctx, s.admin, "p1", "Other")
	s.ErrorIs(err, model.ErrDuplicatePlayer)
}

func (s *ServiceSuite) TestCreatePlayerRequiresManage() {
	_, err := s.service.CreatePlayer(s.ctx, s.stall, "p1", "Asha")
	s.ErrorIs(err, model.ErrForbidden)

	_, err = s.service.CreatePlayer(s.ctx, s.gift, "p1", "Asha")
	s.ErrorIs(err, model.ErrForbidden)
}

// VerifyPlayer tests

func (s *ServiceSuite) TestVerifyPlayer() {
	s.createPlayer("p1")

	rec, err := s.service.VerifyPlayer(s.ctx, s.stall, " p1 ")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), rec.ID)
}

func (s *ServiceSuite) TestVerifyPlayerUnknownID() {
	_, err := s.service.VerifyPlayer(s.ctx, s.stall, "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestVerifyPlayerEmptyID() {
	_, err := s.service.VerifyPlayer(s.ctx, s.stall, "   ")
	s.ErrorIs(err, model.ErrEmptyPlayerID)
}

func (s *ServiceSuite) TestVerifyPlayerAnonymousForbidden() {
	_, err := s.service.VerifyPlayer(s.ctx, model.Session{}, "p1")
	s.ErrorIs(err, model.ErrForbidden)
}

// AwardPoints tests

func (s *ServiceSuite) TestAwardPointsUpdatesCounters() {
	s.createPlayer("p1")

	rec, err := s.service.AwardPoints(s.ctx, s.stall, "p1", "ring_toss", 15)
	s.Require().NoError(err)
	s.Equal(15, rec.PerStall["ring_toss"])
	s.Equal(15, rec.Total)
	s.Equal(15, rec.Balance)
	s.Equal(0, rec.Deducted)
}

func (s *ServiceSuite) TestAwardPointsAccumulates() {
	s.createPlayer("p1")

	_, err := s.service.AwardPoints(s.ctx, s.admin, "p1", "ring_toss", 10)
	s.Require().NoError(err)
	rec, err := s.service.AwardPoints(s.ctx, s.admin, "p1", "dunk_tank", 5)
	s.Require().NoError(err)

	s.Equal(10, rec.PerStall["ring_toss"])
	s.Equal(5, rec.PerStall["dunk_tank"])
	s.Equal(15, rec.Total)
	s.Equal(15, rec.Balance)
}

func (s *ServiceSuite) TestAwardPointsRejectsNonPositiveAmount() {
	s.createPlayer("p1")

	_, err := s.service.AwardPoints(s.ctx, s.admin, "p1", "ring_toss", 0)
	s.ErrorIs(err, model.ErrInvalidAmount)

	_, err = s.service.AwardPoints(s.ctx, s.admin, "p1", "ring_toss", -5)
	s.ErrorIs(err, model.ErrInvalidAmount)
}

func (s *ServiceSuite) TestAwardPointsUnknownCounter() {
	s.createPlayer("p1")

	// Admin clears the capability check, so the record-shape check is what fires
	_, err := s.service.AwardPoints(s.ctx, s.admin, "p1", "closed_stall", 5)
	s.ErrorIs(err, model.ErrUnknownStall)
}

func (s *ServiceSuite) TestAwardPointsStallCannotAwardForOtherStall() {
	s.createPlayer("p1")

	_, err := s.service.AwardPoints(s.ctx, s.stall, "p1", "dunk_tank", 5)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *ServiceSuite) TestAwardPointsGiftCounterForbidden() {
	s.createPlayer("p1")

	_, err := s.service.AwardPoints(s.ctx, s.gift, "p1", "ring_toss", 5)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *ServiceSuite) TestAwardPointsPlayerNotFound() {
	_, err := s.service.AwardPoints(s.ctx, s.admin, "ghost", "ring_toss", 5)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// DeductPoints tests

func (s *ServiceSuite) TestDeductPointsUpdatesBalance() {
	s.createPlayer("p1")
	_, err := s.service.AwardPoints(s.ctx, s.admin, "p1", "ring_toss", 50)
	s.Require().NoError(err)

	rec, err := s.service.DeductPoints(s.ctx, s.gift, "p1", 20)
	s.Require().NoError(err)
	s.Equal(30, rec.Balance)
	s.Equal(20, rec.Deducted)
	s.Equal(50, rec.Total) // Lifetime total is untouched by deductions
}

func (s *ServiceSuite) TestDeductPointsInsufficientBalance() {
	s.createPlayer("p1")
	_, err := s.service.AwardPoints(s.ctx, s.admin, "p1", "ring_toss", 10)
	s.Require().NoError(err)

	_, err = s.service.DeductPoints(s.ctx, s.gift, "p1", 11)
	s.ErrorIs(err, model.ErrInsufficientBalance)

	// Exact balance is spendable
	rec, err := s.service.DeductPoints(s.ctx, s.gift, "p1", 10)
	s.Require().NoError(err)
	s.Equal(0, rec.Balance)
}

func (s *ServiceSuite) TestDeductPointsRejectsNonPositiveAmount() {
	s.createPlayer("p1")

	_, err := s.service.DeductPoints(s.ctx, s.gift, "p1", 0)
	s.ErrorIs(err, model.ErrInvalidAmount)
}

func (s *ServiceSuite) TestDeductPointsStallForbidden() {
	s.createPlayer("p1")

	_, err := s.service.DeductPoints(s.ctx, s.stall, "p1", 5)
	s.ErrorIs(err, model.ErrForbidden)
}

// Invariants under concurrency

func (s *ServiceSuite) TestConcurrentAwardsAllLand() {
	s.createPlayer("p1")

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.service.AwardPoints(s.ctx, s.admin, "p1", "ring_toss", 1)
				s.NoError(err)
			}
		}()
	}
	wg.Wait()

	rec, err := s.store.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(workers*perWorker, rec.Total)
	s.Equal(rec.Total-rec.Deducted, rec.Balance)
}

func (s *ServiceSuite) TestConcurrentDeductsNeverOverdraw() {
	s.createPlayer("p1")
	_, err := s.service.AwardPoints(s.ctx, s.admin, "p1", "ring_toss", 10)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each tries to spend the full balance; at most one can win
			_, _ = s.service.DeductPoints(s.ctx, s.gift, "p1", 10)
		}()
	}
	wg.Wait()

	rec, err := s.store.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.GreaterOrEqual(rec.Balance, 0)
	s.Equal(rec.Total-rec.Deducted, rec.Balance)
}

// Retry exhaustion

type alwaysConflictStore struct {
	datastore.Store
	attempts int
}

func (c *alwaysConflictStore) UpdatePlayer(ctx context.Context, rec *model.PlayerRecord, expectedRevision int64) (*model.PlayerRecord, error) {
	c.attempts++
	return nil, model.ErrPreconditionFailed
}

func (s *ServiceSuite) TestConflictRetriesExhausted() {
	s.createPlayer("p1")

	conflicting := &alwaysConflictStore{Store: s.store}
	svc := New(conflicting, s.store, s.clock, Config{MaxAttempts: 3, OpTimeout: time.Second}, testutil.NopLogger())

	_, err := svc.AwardPoints(s.ctx, s.admin, "p1", "ring_toss", 5)
	s.ErrorIs(err, model.ErrConflictRetryExhausted)
	s.Equal(3, conflicting.attempts)
}

// DeletePlayer / ListPlayers tests

func (s *ServiceSuite) TestDeletePlayer() {
	s.createPlayer("p1")

	s.Require().NoError(s.service.DeletePlayer(s.ctx, s.admin, "p1"))

	_, err := s.service.VerifyPlayer(s.ctx, s.admin, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestDeletePlayerAbsent() {
	err := s.service.DeletePlayer(s.ctx, s.admin, "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestDeletePlayerRequiresManage() {
	s.createPlayer("p1")

	err := s.service.DeletePlayer(s.ctx, s.stall, "p1")
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *ServiceSuite) TestListPlayersRequiresManage() {
	s.createPlayer("p1")

	records, err := s.service.ListPlayers(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Len(records, 1)

	_, err = s.service.ListPlayers(s.ctx, s.gift)
	s.ErrorIs(err, model.ErrForbidden)
}
