package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"prs/internal/platform/ratelimit"
	"prs/internal/rationing/handler/mocks"
	"prs/internal/rationing/models"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/middleware/auth"
	"prs/pkg/requestcontext"
	"prs/pkg/testutil"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*auth.JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("invalid token")
	}
	return &auth.JWTClaims{ActorID: "op-1", Capabilities: []string{models.CapProcessPurchase}}, nil
}

type HandlerSuite struct {
	suite.Suite
	purchases *mocks.MockPurchases
	registry  *mocks.MockRegistry
	router    chi.Router
	at        time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.purchases = mocks.NewMockPurchases(ctrl)
	s.registry = mocks.NewMockRegistry(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.purchases, s.registry, logger, nil, stubValidator{}).Register(s.router)
	s.at = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
}

// =============================================================================
// Purchase Tests
// =============================================================================

func (s *HandlerSuite) TestAttemptPurchase() {
	body := PurchaseRequest{
		IndividualID: "alice", ItemID: "insulin", StoreLocationID: "loc-1", Quantity: 1, Timestamp: &s.at,
	}

	s.Run("commit returns 201 with remaining allowance", func() {
		remaining := 1
		s.purchases.EXPECT().AttemptPurchase(gomock.Any(), models.PurchaseRequest{
			IndividualID: "alice", ItemID: "insulin", LocationID: "loc-1", Quantity: 1, At: s.at,
		}).DoAndReturn(func(ctx context.Context, _ models.PurchaseRequest) (*models.Result, error) {
			s.Equal("op-1", requestcontext.ActorID(ctx))
			s.True(requestcontext.Capabilities(ctx).Has(models.CapProcessPurchase))
			return models.Committed("p-1", &remaining), nil
		})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/purchases", body)
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[PurchaseResponse](s.T(), rr)
		s.True(resp.Committed)
		s.Equal("p-1", resp.PurchaseID)
		s.Require().NotNil(resp.RemainingAllowance)
		s.Equal(1, *resp.RemainingAllowance)
	})

	s.Run("rejection is a 200 with a reason", func() {
		zero := 0
		s.purchases.EXPECT().AttemptPurchase(gomock.Any(), gomock.Any()).
			Return(models.Rejected(models.ReasonQuotaExceeded, &zero), nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/purchases", body)
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[PurchaseResponse](s.T(), rr)
		s.False(resp.Committed)
		s.Equal("quota_exceeded", resp.Reason)
		s.Require().NotNil(resp.RemainingAllowance)
		s.Equal(0, *resp.RemainingAllowance)
	})

	s.Run("replay is a 200", func() {
		res := models.Committed("p-1", nil)
		res.Replayed = true
		s.purchases.EXPECT().AttemptPurchase(gomock.Any(), gomock.Any()).Return(res, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/purchases", body)
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("missing timestamp defaults to request time", func() {
		s.purchases.EXPECT().AttemptPurchase(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req models.PurchaseRequest) (*models.Result, error) {
				s.False(req.At.IsZero())
				return models.Committed("p-2", nil), nil
			})

		noTime := body
		noTime.Timestamp = nil
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/purchases", noTime)
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusCreated)
	})

	s.Run("unknown field is a bad request", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/purchases", `{"individual":"alice"}`)
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "bad_request")
	})

	s.Run("invalid id is rejected before the service", func() {
		bad := body
		bad.IndividualID = "alice smith"
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/purchases", bad)
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "invalid_input")
	})

	s.Run("service errors map to statuses", func() {
		s.purchases.EXPECT().AttemptPurchase(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "capability process_purchase is required"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/purchases", body)
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusForbidden, "forbidden")
	})

	s.Run("missing token is unauthorized", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/purchases", body)
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusUnauthorized)
	})
}

func (s *HandlerSuite) TestCheckEligibility() {
	s.Run("defaults quantity to one", func() {
		s.purchases.EXPECT().CheckEligibility(gomock.Any(), models.EligibilityRequest{
			IndividualID: "alice", ItemID: "insulin", Quantity: 1, At: s.at,
		}).Return(&models.Decision{
			Allowed: true, HolderID: "alice", PeriodID: "2026-10-12", Ceiling: 2, Consumed: 1, RemainingAllowance: 1,
		}, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/eligibility?individual_id=alice&item_id=insulin&timestamp=2026-10-16T10:00:00Z")
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[DecisionResponse](s.T(), rr)
		s.True(resp.Allowed)
		s.Equal("2026-10-12", resp.PeriodID)
		s.Require().NotNil(resp.RemainingAllowance)
		s.Equal(1, *resp.RemainingAllowance)
	})

	s.Run("unrationed decision omits remaining allowance", func() {
		s.purchases.EXPECT().CheckEligibility(gomock.Any(), gomock.Any()).
			Return(&models.Decision{Allowed: true, HolderID: "alice", Unrationed: true}, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/eligibility?individual_id=alice&item_id=bread&quantity=4")
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[DecisionResponse](s.T(), rr)
		s.True(resp.Unrationed)
		s.Nil(resp.RemainingAllowance)
	})

	s.Run("non-numeric quantity is invalid", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/eligibility?individual_id=alice&item_id=insulin&quantity=two")
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "invalid_input")
	})

	s.Run("missing item is invalid", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/eligibility?individual_id=alice")
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "invalid_input")
	})
}

func (s *HandlerSuite) TestCompensate() {
	adjusts := id.PurchaseID("p-1")
	s.purchases.EXPECT().Compensate(gomock.Any(), models.CompensationRequest{
		PurchaseID: "p-1", Quantity: 1, Reason: "returned", At: s.at,
	}).Return(&models.Purchase{ID: "adj-1", AdjustsID: &adjusts, Quantity: -1, PeriodID: "2026-10-12", RecordedAt: s.at}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/purchases/p-1/compensations",
		CompensationRequest{Quantity: 1, Reason: "returned", Timestamp: &s.at})
	req.Header.Set("Authorization", "Bearer good")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[AdjustmentResponse](s.T(), rr)
	s.Equal("p-1", resp.AdjustsID)
	s.Equal(-1, resp.Quantity)
}

// =============================================================================
// Registry Tests
// =============================================================================

func (s *HandlerSuite) TestVaccinations() {
	s.Run("submit returns the pending record", func() {
		s.registry.EXPECT().SubmitVaccination(gomock.Any(), &models.VaccinationRecord{
			IndividualID: "alice", VaccineType: "covid", AdministeredAt: s.at,
		}).Return(&models.VaccinationRecord{
			ID: "vac-1", IndividualID: "alice", VaccineType: "covid", AdministeredAt: s.at, Status: models.VerificationPending,
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/vaccinations",
			VaccinationRequest{IndividualID: "alice", VaccineType: "covid", AdministeredAt: s.at})
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "status", "pending")
	})

	s.Run("verifying a decided record conflicts", func() {
		s.registry.EXPECT().VerifyVaccination(gomock.Any(), id.VaccinationID("vac-1")).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "vaccination record is already rejected"))

		req := testutil.NewRequest(s.T(), http.MethodPost, "/vaccinations/vac-1/verify")
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusConflict, "invalid_state")
	})

	s.Run("reject returns the record", func() {
		s.registry.EXPECT().RejectVaccination(gomock.Any(), id.VaccinationID("vac-2")).
			Return(&models.VaccinationRecord{ID: "vac-2", Status: models.VerificationRejected}, nil)

		req := testutil.NewRequest(s.T(), http.MethodPost, "/vaccinations/vac-2/reject")
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "rejected")
	})
}

func (s *HandlerSuite) TestSetSchedule() {
	s.Run("maps ISO weekdays", func() {
		s.registry.EXPECT().SetSchedule(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, sched *models.PurchaseSchedule) error {
				s.Equal(id.ItemID("water"), sched.ItemID)
				s.Equal([]time.Weekday{time.Monday, time.Sunday}, sched.AllowedDays)
				s.Equal(models.OutsideUnrationed, sched.OutsidePolicy)
				return nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/items/water/schedule", ScheduleRequest{
			Period: "weekly", AllowedDays: []int{1, 7}, OutsideSchedulePolicy: "unrationed",
		})
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusNoContent)
	})

	s.Run("out of range weekday is invalid", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/items/water/schedule", ScheduleRequest{
			Period: "weekly", AllowedDays: []int{8},
		})
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "invalid_input")
	})
}

func (s *HandlerSuite) TestSetLimit() {
	s.registry.EXPECT().SetLimit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, l *models.PurchaseLimit) (*models.PurchaseLimit, error) {
			s.Equal(id.ItemID("insulin"), l.ItemID)
			s.Equal(2, l.Ceiling)
			out := *l
			out.ID = "l-1"
			out.EffectiveFrom = s.at
			return &out, nil
		})

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/items/insulin/limit", LimitRequest{Ceiling: 2, PeriodType: "weekly"})
	req.Header.Set("Authorization", "Bearer good")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[LimitResponse](s.T(), rr)
	s.Equal("l-1", resp.ID)
	s.Equal("weekly", resp.PeriodType)
}

func (s *HandlerSuite) TestSetStock() {
	s.registry.EXPECT().SetStock(gomock.Any(), id.LocationID("loc-1"), id.ItemID("water"), 40).
		Return(&models.StockLevel{LocationID: "loc-1", ItemID: "water", Quantity: 40, UpdatedAt: s.at}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/locations/loc-1/stock/water", StockRequest{Quantity: 40})
	req.Header.Set("Authorization", "Bearer good")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[StockResponse](s.T(), rr)
	s.Equal(40, resp.Quantity)
}

func (s *HandlerSuite) TestIndividuals() {
	s.Run("register parses guardian and birth date", func() {
		s.registry.EXPECT().RegisterIndividual(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, ind *models.Individual) error {
				s.Require().NotNil(ind.GuardianID)
				s.Equal(id.IndividualID("alice"), *ind.GuardianID)
				s.Equal(2015, ind.DateOfBirth.Year())
				s.Equal([]string{"student"}, ind.Roles)
				return nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/individuals", IndividualRequest{
			ID: "kid", DateOfBirth: "2015-01-01", IsMinor: true, GuardianID: "alice",
			Roles: []string{" Student", "student", ""},
		})
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusNoContent)
	})

	s.Run("tombstone", func() {
		s.registry.EXPECT().TombstoneIndividual(gomock.Any(), id.IndividualID("kid")).Return(nil)

		req := testutil.NewRequest(s.T(), http.MethodDelete, "/individuals/kid")
		req.Header.Set("Authorization", "Bearer good")
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusNoContent)
	})
}

// =============================================================================
// Rate Limiting Tests
// =============================================================================

func (s *HandlerSuite) TestRateLimitedActor() {
	limiter, err := ratelimit.New(ratelimit.NewMemory(), 1, time.Minute)
	s.Require().NoError(err)
	router := chi.NewRouter()
	New(s.purchases, s.registry, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, stubValidator{},
		WithRateLimiter(limiter)).Register(router)

	s.purchases.EXPECT().CheckEligibility(gomock.Any(), gomock.Any()).
		Return(&models.Decision{Allowed: true, HolderID: "alice", Unrationed: true}, nil).Times(1)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/eligibility?individual_id=alice&item_id=bread")
		req.Header.Set("Authorization", "Bearer good")
		rr := testutil.DoRequest(router, req)
		s.Equal(want, rr.Code, "request %d", i)
	}
}
