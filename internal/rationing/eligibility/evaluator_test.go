package eligibility

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"prs/internal/rationing/models"
	"prs/internal/rationing/ports/mocks"
	"prs/internal/rationing/store/memory"
	id "prs/pkg/domain"
	"prs/pkg/platform/sentinel"
)

// =============================================================================
// Evaluator Test Suite
// =============================================================================
// The catalog is mocked so each check can be isolated; quota state lives in a
// real in-memory ledger.

type EvaluatorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	catalog   *mocks.MockCatalog
	ledger    *memory.Store
	evaluator *Evaluator
	now       time.Time
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.catalog = mocks.NewMockCatalog(s.ctrl)
	s.ledger = memory.New()
	s.now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	var err error
	s.evaluator, err = New(s.catalog, s.ledger, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
}

func (s *EvaluatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

type fixture struct {
	individual   *models.Individual
	guardian     *models.Individual
	schedule     *models.PurchaseSchedule
	limits       []*models.PurchaseLimit
	vaccinations []*models.VaccinationRecord
	policy       *models.VaccinePolicy
}

func (s *EvaluatorSuite) expect(f fixture) {
	if f.individual != nil {
		s.catalog.EXPECT().GetIndividual(gomock.Any(), f.individual.ID).Return(f.individual, nil).AnyTimes()
	} else {
		s.catalog.EXPECT().GetIndividual(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound).AnyTimes()
	}
	if f.guardian != nil {
		s.catalog.EXPECT().GetIndividual(gomock.Any(), f.guardian.ID).Return(f.guardian, nil).AnyTimes()
	}
	s.catalog.EXPECT().GetItem(gomock.Any(), id.ItemID("insulin")).Return(&models.CriticalItem{ID: "insulin"}, nil).AnyTimes()
	if f.schedule != nil {
		s.catalog.EXPECT().GetSchedule(gomock.Any(), gomock.Any()).Return(f.schedule, nil).AnyTimes()
	} else {
		s.catalog.EXPECT().GetSchedule(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound).AnyTimes()
	}
	s.catalog.EXPECT().ListLimits(gomock.Any(), gomock.Any()).Return(f.limits, nil).AnyTimes()
	s.catalog.EXPECT().ListVaccinations(gomock.Any(), gomock.Any()).Return(f.vaccinations, nil).AnyTimes()
	s.catalog.EXPECT().GetVaccinePolicy(gomock.Any(), gomock.Any()).Return(f.policy, nil).AnyTimes()
}

func (s *EvaluatorSuite) request(individual id.IndividualID, qty int) models.EligibilityRequest {
	return models.EligibilityRequest{IndividualID: individual, ItemID: "insulin", Quantity: qty, At: s.now}
}

func adult(individualID id.IndividualID) *models.Individual {
	return &models.Individual{ID: individualID, DateOfBirth: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func weekly(ceiling int) *models.PurchaseLimit {
	return &models.PurchaseLimit{ID: "l-1", ItemID: "insulin", Ceiling: ceiling, PeriodType: models.PeriodWeekly}
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *EvaluatorSuite) TestNew() {
	s.Run("nil catalog returns error", func() {
		_, err := New(nil, s.ledger)
		s.ErrorContains(err, "catalog is required")
	})

	s.Run("nil reader returns error", func() {
		_, err := New(s.catalog, nil)
		s.ErrorContains(err, "ledger reader is required")
	})
}

// =============================================================================
// Evaluate Tests
// =============================================================================

func (s *EvaluatorSuite) TestAllowsWithinCeiling() {
	s.expect(fixture{individual: adult("alice"), limits: []*models.PurchaseLimit{weekly(2)}})

	out, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 2))
	s.Require().NoError(err)
	s.True(out.Allowed)
	s.Equal(id.IndividualID("alice"), out.HolderID)
	s.Equal("2026-10-12", out.PeriodID)
	s.Equal(2, out.Ceiling)
	s.Equal(2, out.RemainingAllowance)
	s.False(out.Unrationed)
}

func (s *EvaluatorSuite) TestShortCircuitOrder() {
	s.Run("schedule is checked before vaccination", func() {
		limit := weekly(2)
		limit.RequiresVaccination = true
		s.expect(fixture{
			individual: adult("alice"),
			limits:     []*models.PurchaseLimit{limit},
			schedule:   &models.PurchaseSchedule{ItemID: "insulin", Period: models.PeriodWeekly, AllowedDays: []time.Weekday{time.Monday}},
		})
		out, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 5))
		s.Require().NoError(err)
		s.Equal(models.ReasonOutsideSchedule, out.Reason)
	})
}

func (s *EvaluatorSuite) TestVaccinationBeforeQuota() {
	limit := weekly(2)
	limit.RequiresVaccination = true
	s.expect(fixture{individual: adult("alice"), limits: []*models.PurchaseLimit{limit}})

	out, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 5))
	s.Require().NoError(err)
	s.False(out.Allowed)
	s.Equal(models.ReasonVaccinationRequired, out.Reason)
}

func (s *EvaluatorSuite) TestMostRecentVaccinationDecides() {
	limit := weekly(2)
	limit.RequiresVaccination = true
	s.expect(fixture{
		individual: adult("alice"),
		limits:     []*models.PurchaseLimit{limit},
		vaccinations: []*models.VaccinationRecord{
			{ID: "v-old", VaccineType: "covid", AdministeredAt: s.now.AddDate(-1, 0, 0), Status: models.VerificationVerified},
			{ID: "v-new", VaccineType: "covid", AdministeredAt: s.now.AddDate(0, -1, 0), Status: models.VerificationRejected},
		},
	})

	out, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 1))
	s.Require().NoError(err)
	s.Equal(models.ReasonVaccinationRequired, out.Reason)
}

func (s *EvaluatorSuite) TestExpiredVaccination() {
	limit := weekly(2)
	limit.RequiresVaccination = true
	s.expect(fixture{
		individual: adult("alice"),
		limits:     []*models.PurchaseLimit{limit},
		vaccinations: []*models.VaccinationRecord{
			{ID: "v-1", VaccineType: "flu", AdministeredAt: s.now.AddDate(-1, 0, 0), Status: models.VerificationVerified},
		},
		policy: &models.VaccinePolicy{VaccineType: "flu", ValidFor: 180 * 24 * time.Hour},
	})

	out, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 1))
	s.Require().NoError(err)
	s.Equal(models.ReasonVaccinationExpired, out.Reason)
}

func (s *EvaluatorSuite) TestQuotaExceededReportsRemaining() {
	s.expect(fixture{individual: adult("alice"), limits: []*models.PurchaseLimit{weekly(3)}})
	key := models.EntryKey{HolderID: "alice", ItemID: "insulin", PeriodID: "2026-10-12"}
	_, err := s.ledger.AddToEntry(context.Background(), key, 2, s.now)
	s.Require().NoError(err)

	out, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 2))
	s.Require().NoError(err)
	s.False(out.Allowed)
	s.Equal(models.ReasonQuotaExceeded, out.Reason)
	s.Equal(2, out.Consumed)
	s.Equal(1, out.RemainingAllowance)
}

func (s *EvaluatorSuite) TestMinorUsesGuardianQuota() {
	guardianID := id.IndividualID("alice")
	minor := &models.Individual{ID: "kid", IsMinor: true, GuardianID: &guardianID}
	s.expect(fixture{individual: minor, guardian: adult("alice"), limits: []*models.PurchaseLimit{weekly(2)}})
	key := models.EntryKey{HolderID: "alice", ItemID: "insulin", PeriodID: "2026-10-12"}
	_, err := s.ledger.AddToEntry(context.Background(), key, 2, s.now)
	s.Require().NoError(err)

	out, err := s.evaluator.Evaluate(context.Background(), s.request("kid", 1))
	s.Require().NoError(err)
	s.Equal(guardianID, out.HolderID)
	s.Equal(models.ReasonQuotaExceeded, out.Reason)
}

func (s *EvaluatorSuite) TestUnknownIndividual() {
	s.expect(fixture{limits: []*models.PurchaseLimit{weekly(2)}})

	out, err := s.evaluator.Evaluate(context.Background(), s.request("ghost", 1))
	s.Require().NoError(err)
	s.Equal(models.ReasonNotFound, out.Reason)
}

func (s *EvaluatorSuite) TestExpiredLimitIsIgnored() {
	ended := s.now.Add(-time.Hour)
	limit := weekly(1)
	limit.EffectiveFrom = s.now.AddDate(0, -1, 0)
	limit.EffectiveTo = &ended
	s.expect(fixture{individual: adult("alice"), limits: []*models.PurchaseLimit{limit}})

	out, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 10))
	s.Require().NoError(err)
	s.True(out.Allowed)
	s.True(out.Unrationed)
}

func (s *EvaluatorSuite) TestCatalogFailurePropagates() {
	boom := errors.New("catalog unavailable")
	s.catalog.EXPECT().GetIndividual(gomock.Any(), gomock.Any()).Return(nil, boom).AnyTimes()
	s.catalog.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(&models.CriticalItem{ID: "insulin"}, nil).AnyTimes()
	s.catalog.EXPECT().GetSchedule(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound).AnyTimes()
	s.catalog.EXPECT().ListLimits(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	s.catalog.EXPECT().ListVaccinations(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	_, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 1))
	s.ErrorIs(err, boom)
}

func (s *EvaluatorSuite) TestInvalidRequest() {
	_, err := s.evaluator.Evaluate(context.Background(), s.request("alice", 0))
	s.Error(err)
}
