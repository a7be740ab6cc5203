package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"prs/internal/rationing/models"
	"prs/internal/rationing/store/memory"
	"prs/internal/rationing/window"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
)

type LedgerSuite struct {
	suite.Suite
	store  *memory.Store
	ledger *Ledger
	now    time.Time
	daily  window.Period
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = memory.New()
	s.ledger = New()
	s.now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	var err error
	s.daily, err = window.Resolve(models.DefaultSchedule("water", models.PeriodDaily), s.now)
	s.Require().NoError(err)
}

func (s *LedgerSuite) sale(purchaseID id.PurchaseID, qty int, at time.Time) *models.Purchase {
	return &models.Purchase{
		ID:           purchaseID,
		IndividualID: "alice",
		ItemID:       "water",
		LocationID:   "loc-1",
		Quantity:     qty,
		At:           at,
	}
}

// =============================================================================
// Record Tests
// =============================================================================

func (s *LedgerSuite) TestRecord() {
	ctx := context.Background()

	s.Run("fixed period accumulates in the entry", func() {
		ok, err := s.ledger.Record(ctx, s.store, s.sale("p-1", 2, s.now), s.daily)
		s.Require().NoError(err)
		s.True(ok)
		ok, err = s.ledger.Record(ctx, s.store, s.sale("p-2", 1, s.now), s.daily)
		s.Require().NoError(err)
		s.True(ok)

		consumed, err := s.ledger.Consumed(ctx, s.store, "alice", "water", s.daily)
		s.Require().NoError(err)
		s.Equal(3, consumed)
	})

	s.Run("replaying a purchase id is a no-op", func() {
		ok, err := s.ledger.Record(ctx, s.store, s.sale("p-1", 2, s.now), s.daily)
		s.Require().NoError(err)
		s.False(ok)

		consumed, err := s.ledger.Consumed(ctx, s.store, "alice", "water", s.daily)
		s.Require().NoError(err)
		s.Equal(3, consumed)
	})

	s.Run("holder defaults to the purchaser", func() {
		p, err := s.store.FindPurchase(ctx, "p-1")
		s.Require().NoError(err)
		s.Equal(id.IndividualID("alice"), p.HolderID)
		s.Equal(models.PurchaseKindSale, p.Kind)
		s.Equal("alice:water:2026-10-16", p.EntryRef)
	})

	s.Run("invalid quantity is rejected", func() {
		_, err := s.ledger.Record(ctx, s.store, s.sale("p-bad", 0, s.now), s.daily)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unrationed purchases never consume quota", func() {
		unrationed := window.Period{ID: "unrationed", Unrationed: true}
		ok, err := s.ledger.Record(ctx, s.store, s.sale("p-free", 9, s.now), unrationed)
		s.Require().NoError(err)
		s.True(ok)

		consumed, err := s.ledger.Consumed(ctx, s.store, "alice", "water", s.daily)
		s.Require().NoError(err)
		s.Equal(3, consumed)
	})
}

func (s *LedgerSuite) TestRollingConsumption() {
	ctx := context.Background()
	sched := &models.PurchaseSchedule{ItemID: "water", Period: models.PeriodRolling, RollingWindow: 7 * 24 * time.Hour}

	day0 := s.now
	p0, err := window.Resolve(sched, day0)
	s.Require().NoError(err)
	_, err = s.ledger.Record(ctx, s.store, s.sale("r-1", 4, day0), p0)
	s.Require().NoError(err)

	day5, err := window.Resolve(sched, day0.AddDate(0, 0, 5))
	s.Require().NoError(err)
	consumed, err := s.ledger.Consumed(ctx, s.store, "alice", "water", day5)
	s.Require().NoError(err)
	s.Equal(4, consumed)

	day8, err := window.Resolve(sched, day0.AddDate(0, 0, 8))
	s.Require().NoError(err)
	consumed, err = s.ledger.Consumed(ctx, s.store, "alice", "water", day8)
	s.Require().NoError(err)
	s.Zero(consumed)
}

// =============================================================================
// Compensate Tests
// =============================================================================

func (s *LedgerSuite) TestCompensate() {
	ctx := context.Background()
	_, err := s.ledger.Record(ctx, s.store, s.sale("p-1", 3, s.now), s.daily)
	s.Require().NoError(err)

	s.Run("open period restores quota", func() {
		adj, err := s.ledger.Compensate(ctx, s.store, "p-1", s.daily, 1, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(-1, adj.Quantity)
		s.Equal(s.now, adj.At)
		s.Equal(models.PurchaseKindAdjustment, adj.Kind)

		consumed, err := s.ledger.Consumed(ctx, s.store, "alice", "water", s.daily)
		s.Require().NoError(err)
		s.Equal(2, consumed)
	})

	s.Run("cannot compensate more than was sold", func() {
		_, err := s.ledger.Compensate(ctx, s.store, "p-1", s.daily, 3, s.now.Add(time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("closed period keeps its total", func() {
		nextDay := s.now.AddDate(0, 0, 1)
		adj, err := s.ledger.Compensate(ctx, s.store, "p-1", s.daily, 1, nextDay)
		s.Require().NoError(err)
		s.Empty(adj.EntryRef)

		consumed, err := s.ledger.Consumed(ctx, s.store, "alice", "water", s.daily)
		s.Require().NoError(err)
		s.Equal(2, consumed)
	})

	s.Run("unknown sale is not found", func() {
		_, err := s.ledger.Compensate(ctx, s.store, "missing", s.daily, 1, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
