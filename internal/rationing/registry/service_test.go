package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"prs/internal/rationing/models"
	"prs/internal/rationing/store/memory"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/audit"
	auditpublisher "prs/pkg/platform/audit/publisher"
	auditmemory "prs/pkg/platform/audit/store/memory"
	"prs/pkg/requestcontext"
)

// =============================================================================
// Registry Service Test Suite
// =============================================================================

type RegistrySuite struct {
	suite.Suite
	store      *memory.Store
	auditStore *auditmemory.InMemoryStore
	service    *Service
	ctx        context.Context
	now        time.Time
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	s.store = memory.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.ctx = requestcontext.WithCapabilities(context.Background(), requestcontext.NewCapabilitySet(
		models.CapManageRestrictions, models.CapVerifyVaccination, models.CapUpdateStock,
	))

	var err error
	s.service, err = New(s.store, s.store,
		WithAuditPublisher(auditpublisher.New(s.auditStore)),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)

	s.Require().NoError(s.store.PutIndividual(context.Background(), &models.Individual{ID: "alice"}))
	s.Require().NoError(s.store.PutItem(context.Background(), &models.CriticalItem{ID: "insulin", Name: "Insulin"}))
	s.Require().NoError(s.store.PutMerchant(context.Background(), &models.Merchant{ID: "m-1"}))
	s.Require().NoError(s.store.PutLocation(context.Background(), &models.StoreLocation{ID: "loc-1", MerchantID: "m-1"}))
}

func (s *RegistrySuite) TestNew() {
	s.Run("nil catalog returns error", func() {
		_, err := New(nil, s.store)
		s.ErrorContains(err, "catalog is required")
	})
}

// =============================================================================
// Individual Tests
// =============================================================================

func (s *RegistrySuite) TestRegisterIndividual() {
	guardian := id.IndividualID("alice")

	s.Run("minor with adult guardian is accepted", func() {
		err := s.service.RegisterIndividual(s.ctx, &models.Individual{ID: "kid", IsMinor: true, GuardianID: &guardian})
		s.NoError(err)
	})

	s.Run("minor without guardian is rejected", func() {
		err := s.service.RegisterIndividual(s.ctx, &models.Individual{ID: "orphan", IsMinor: true})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("guardian must not be a minor", func() {
		kid := id.IndividualID("kid")
		err := s.service.RegisterIndividual(s.ctx, &models.Individual{ID: "kid2", IsMinor: true, GuardianID: &kid})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown guardian is not found", func() {
		ghost := id.IndividualID("ghost")
		err := s.service.RegisterIndividual(s.ctx, &models.Individual{ID: "kid3", IsMinor: true, GuardianID: &ghost})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrySuite) TestTombstoneIndividual() {
	s.Require().NoError(s.store.PutIndividual(s.ctx, &models.Individual{
		ID: "carol", DateOfBirth: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), Roles: []string{"medical"},
	}))

	s.Require().NoError(s.service.TombstoneIndividual(s.ctx, "carol"))
	ind, err := s.store.GetIndividual(s.ctx, "carol")
	s.Require().NoError(err)
	s.True(ind.Tombstoned)
	s.True(ind.DateOfBirth.IsZero())
	s.Empty(ind.Roles)

	events, err := s.auditStore.ListByAction(s.ctx, audit.EventIndividualTombstoned)
	s.Require().NoError(err)
	s.Len(events, 1)

	s.NoError(s.service.TombstoneIndividual(s.ctx, "carol"))
}

// =============================================================================
// Vaccination Tests
// =============================================================================

func (s *RegistrySuite) TestVaccinationLifecycle() {
	rec, err := s.service.SubmitVaccination(s.ctx, &models.VaccinationRecord{
		IndividualID: "alice", VaccineType: "covid", AdministeredAt: s.now.AddDate(0, -1, 0), AuthorityID: "clinic-9",
	})
	s.Require().NoError(err)
	s.Equal(models.VerificationPending, rec.Status)
	s.NotEmpty(rec.ID)

	verified, err := s.service.VerifyVaccination(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(models.VerificationVerified, verified.Status)

	s.Run("decided records never move again", func() {
		_, err := s.service.RejectVaccination(s.ctx, rec.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		_, err = s.service.VerifyVaccination(s.ctx, rec.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("future administration date is rejected", func() {
		_, err := s.service.SubmitVaccination(s.ctx, &models.VaccinationRecord{
			IndividualID: "alice", VaccineType: "covid", AdministeredAt: s.now.Add(time.Hour),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("verification requires capability", func() {
		ctx := requestcontext.WithCapabilities(context.Background(), requestcontext.NewCapabilitySet(models.CapProcessPurchase))
		_, err := s.service.VerifyVaccination(ctx, rec.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// =============================================================================
// Restriction Tests
// =============================================================================

func (s *RegistrySuite) TestSetLimit() {
	s.Run("valid limit is stored with defaults", func() {
		l, err := s.service.SetLimit(s.ctx, &models.PurchaseLimit{ItemID: "insulin", Ceiling: 2, PeriodType: models.PeriodWeekly})
		s.Require().NoError(err)
		s.NotEmpty(l.ID)
		s.Equal(s.now, l.EffectiveFrom)

		limits, err := s.store.ListLimits(s.ctx, "insulin")
		s.Require().NoError(err)
		s.Len(limits, 1)
	})

	s.Run("zero ceiling is rejected", func() {
		_, err := s.service.SetLimit(s.ctx, &models.PurchaseLimit{ItemID: "insulin", Ceiling: 0, PeriodType: models.PeriodWeekly})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown item is not found", func() {
		_, err := s.service.SetLimit(s.ctx, &models.PurchaseLimit{ItemID: "ghost", Ceiling: 1, PeriodType: models.PeriodDaily})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrySuite) TestSetSchedule() {
	err := s.service.SetSchedule(s.ctx, &models.PurchaseSchedule{ItemID: "insulin", Period: models.PeriodRolling})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	err = s.service.SetSchedule(s.ctx, &models.PurchaseSchedule{
		ItemID: "insulin", Period: models.PeriodWeekly, AllowedDays: []time.Weekday{time.Saturday}, Timezone: "Europe/Madrid",
	})
	s.Require().NoError(err)
	sched, err := s.store.GetSchedule(s.ctx, "insulin")
	s.Require().NoError(err)
	s.Equal("Europe/Madrid", sched.Timezone)
}

// =============================================================================
// Stock Tests
// =============================================================================

func (s *RegistrySuite) TestSetStock() {
	level, err := s.service.SetStock(s.ctx, "loc-1", "insulin", 12)
	s.Require().NoError(err)
	s.Equal(12, level.Quantity)

	level, err = s.service.SetStock(s.ctx, "loc-1", "insulin", 3)
	s.Require().NoError(err)
	s.Equal(3, level.Quantity)

	_, err = s.service.SetStock(s.ctx, "loc-x", "insulin", 3)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.SetStock(s.ctx, "loc-1", "insulin", -1)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *RegistrySuite) TestRegisterLocation() {
	s.Run("creates merchant and location", func() {
		err := s.service.RegisterLocation(s.ctx, &models.Merchant{ID: "m-2", Name: "Grocer"}, &models.StoreLocation{ID: "loc-2"})
		s.Require().NoError(err)

		loc, err := s.store.GetLocation(context.Background(), "loc-2")
		s.Require().NoError(err)
		s.Equal(id.MerchantID("m-2"), loc.MerchantID)
	})

	s.Run("requires manage_restrictions", func() {
		ctx := requestcontext.WithCapabilities(context.Background(), requestcontext.NewCapabilitySet(models.CapUpdateStock))
		err := s.service.RegisterLocation(ctx, &models.Merchant{ID: "m-3"}, &models.StoreLocation{ID: "loc-3"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
