// Package handler exposes the rationing engine over HTTP.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Purchases,Registry

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"prs/internal/platform/metrics"
	"prs/internal/platform/ratelimit"
	"prs/internal/rationing/models"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/httputil"
	"prs/pkg/platform/middleware/auth"
	request "prs/pkg/platform/middleware/request"
	"prs/pkg/platform/middleware/requesttime"
	"prs/pkg/requestcontext"
)

const requestTimeout = 30 * time.Second

// Purchases is the purchase coordinator as seen by the transport.
type Purchases interface {
	AttemptPurchase(ctx context.Context, req models.PurchaseRequest) (*models.Result, error)
	CheckEligibility(ctx context.Context, req models.EligibilityRequest) (*models.Decision, error)
	Compensate(ctx context.Context, req models.CompensationRequest) (*models.Purchase, error)
}

// Registry administers reference data.
type Registry interface {
	RegisterIndividual(ctx context.Context, individual *models.Individual) error
	TombstoneIndividual(ctx context.Context, individualID id.IndividualID) error
	SubmitVaccination(ctx context.Context, record *models.VaccinationRecord) (*models.VaccinationRecord, error)
	VerifyVaccination(ctx context.Context, vaccinationID id.VaccinationID) (*models.VaccinationRecord, error)
	RejectVaccination(ctx context.Context, vaccinationID id.VaccinationID) (*models.VaccinationRecord, error)
	SetVaccinePolicy(ctx context.Context, policy *models.VaccinePolicy) error
	RegisterItem(ctx context.Context, item *models.CriticalItem) error
	SetLimit(ctx context.Context, limit *models.PurchaseLimit) (*models.PurchaseLimit, error)
	SetSchedule(ctx context.Context, schedule *models.PurchaseSchedule) error
	RegisterLocation(ctx context.Context, merchant *models.Merchant, location *models.StoreLocation) error
	SetStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int) (*models.StockLevel, error)
}

// Handler handles rationing endpoints.
type Handler struct {
	logger       *slog.Logger
	purchases    Purchases
	registry     Registry
	metrics      *metrics.Metrics
	jwtValidator auth.JWTValidator
	limiter      *ratelimit.Limiter
}

type Option func(*Handler)

// WithRateLimiter throttles each authenticated actor across all routes.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

// New creates a new rationing Handler. metrics may be nil.
func New(purchases Purchases, registry Registry, logger *slog.Logger, m *metrics.Metrics, jwtValidator auth.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		purchases:    purchases,
		registry:     registry,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the rationing routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(request.Recovery(h.logger))
		r.Use(request.RequestID)
		r.Use(request.Logger(h.logger))
		r.Use(request.Timeout(requestTimeout))
		r.Use(requesttime.Middleware)
		r.Use(metrics.LatencyMiddleware(h.metrics))
		r.Use(auth.RequireAuth(h.jwtValidator, h.logger))
		r.Use(ratelimit.Middleware(h.limiter))

		r.Post("/purchases", h.handleAttemptPurchase)
		r.Get("/eligibility", h.handleCheckEligibility)
		r.Post("/purchases/{id}/compensations", h.handleCompensate)

		r.Post("/individuals", h.handleRegisterIndividual)
		r.Delete("/individuals/{id}", h.handleTombstoneIndividual)

		r.Post("/vaccinations", h.handleSubmitVaccination)
		r.Post("/vaccinations/{id}/verify", h.handleVerifyVaccination)
		r.Post("/vaccinations/{id}/reject", h.handleRejectVaccination)
		r.Put("/vaccine-policies/{type}", h.handleSetVaccinePolicy)

		r.Put("/items/{id}", h.handleRegisterItem)
		r.Put("/items/{id}/limit", h.handleSetLimit)
		r.Put("/items/{id}/schedule", h.handleSetSchedule)

		r.Put("/locations/{id}", h.handleRegisterLocation)
		r.Put("/locations/{id}/stock/{item}", h.handleSetStock)
	})
}

// -----------------------------------------------------------------------------
// Purchases
// -----------------------------------------------------------------------------

// handleAttemptPurchase returns 201 for a new commit and 200 for replays and
// rejections. A rejection is a business outcome, not an HTTP error.
func (h *Handler) handleAttemptPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body PurchaseRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid purchase request")
		return
	}
	req, err := body.toModel(requestcontext.Now(ctx))
	if err != nil {
		h.fail(ctx, w, err, "invalid purchase request")
		return
	}

	res, err := h.purchases.AttemptPurchase(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "purchase attempt failed")
		return
	}
	status := http.StatusOK
	if res.Committed && !res.Replayed {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, toPurchaseResponse(res))
}

func (h *Handler) handleCheckEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	individual, err := id.ParseIndividualID(q.Get("individual_id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid eligibility query")
		return
	}
	item, err := id.ParseItemID(q.Get("item_id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid eligibility query")
		return
	}
	quantity := 1
	if raw := q.Get("quantity"); raw != "" {
		if quantity, err = strconv.Atoi(raw); err != nil {
			h.fail(ctx, w, dErrors.New(dErrors.CodeInvalidInput, "quantity must be an integer"), "invalid eligibility query")
			return
		}
	}
	at := requestcontext.Now(ctx)
	if raw := q.Get("timestamp"); raw != "" {
		if at, err = time.Parse(time.RFC3339, raw); err != nil {
			h.fail(ctx, w, dErrors.New(dErrors.CodeInvalidInput, "timestamp must be RFC 3339"), "invalid eligibility query")
			return
		}
	}

	decision, err := h.purchases.CheckEligibility(ctx, models.EligibilityRequest{
		IndividualID: individual,
		ItemID:       item,
		Quantity:     quantity,
		At:           at,
	})
	if err != nil {
		h.fail(ctx, w, err, "eligibility check failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(decision))
}

func (h *Handler) handleCompensate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	purchaseID, err := id.ParsePurchaseID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid compensation request")
		return
	}
	var body CompensationRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid compensation request")
		return
	}

	adj, err := h.purchases.Compensate(ctx, models.CompensationRequest{
		PurchaseID: purchaseID,
		Quantity:   body.Quantity,
		Reason:     body.Reason,
		At:         timestampOr(body.Timestamp, requestcontext.Now(ctx)),
	})
	if err != nil {
		h.fail(ctx, w, err, "compensation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toAdjustmentResponse(adj))
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

func (h *Handler) handleRegisterIndividual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body IndividualRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid individual")
		return
	}
	individual, err := body.toModel()
	if err != nil {
		h.fail(ctx, w, err, "invalid individual")
		return
	}
	if err := h.registry.RegisterIndividual(ctx, individual); err != nil {
		h.fail(ctx, w, err, "register individual failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTombstoneIndividual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	individual, err := id.ParseIndividualID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid individual")
		return
	}
	if err := h.registry.TombstoneIndividual(ctx, individual); err != nil {
		h.fail(ctx, w, err, "tombstone individual failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmitVaccination(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body VaccinationRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid vaccination")
		return
	}
	individual, err := id.ParseIndividualID(body.IndividualID)
	if err != nil {
		h.fail(ctx, w, err, "invalid vaccination")
		return
	}
	rec, err := h.registry.SubmitVaccination(ctx, &models.VaccinationRecord{
		IndividualID:   individual,
		VaccineType:    body.VaccineType,
		AdministeredAt: body.AdministeredAt,
		AuthorityID:    body.AuthorityID,
	})
	if err != nil {
		h.fail(ctx, w, err, "submit vaccination failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toVaccinationResponse(rec))
}

func (h *Handler) handleVerifyVaccination(w http.ResponseWriter, r *http.Request) {
	h.transitionVaccination(w, r, h.registry.VerifyVaccination)
}

func (h *Handler) handleRejectVaccination(w http.ResponseWriter, r *http.Request) {
	h.transitionVaccination(w, r, h.registry.RejectVaccination)
}

func (h *Handler) transitionVaccination(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, id.VaccinationID) (*models.VaccinationRecord, error)) {
	ctx := r.Context()
	vaccinationID, err := id.ParseVaccinationID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid vaccination")
		return
	}
	rec, err := fn(ctx, vaccinationID)
	if err != nil {
		h.fail(ctx, w, err, "vaccination transition failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVaccinationResponse(rec))
}

func (h *Handler) handleSetVaccinePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body VaccinePolicyRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid vaccine policy")
		return
	}
	policy := &models.VaccinePolicy{
		VaccineType: chi.URLParam(r, "type"),
		ValidFor:    time.Duration(body.ValidForDays) * 24 * time.Hour,
	}
	if err := h.registry.SetVaccinePolicy(ctx, policy); err != nil {
		h.fail(ctx, w, err, "set vaccine policy failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegisterItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := id.ParseItemID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid item")
		return
	}
	var body ItemRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid item")
		return
	}
	err = h.registry.RegisterItem(ctx, &models.CriticalItem{ID: item, Name: body.Name, Category: body.Category, Unit: body.Unit})
	if err != nil {
		h.fail(ctx, w, err, "register item failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := id.ParseItemID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid limit")
		return
	}
	var body LimitRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid limit")
		return
	}
	limit, err := h.registry.SetLimit(ctx, body.toModel(item))
	if err != nil {
		h.fail(ctx, w, err, "set limit failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLimitResponse(limit))
}

func (h *Handler) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := id.ParseItemID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid schedule")
		return
	}
	var body ScheduleRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid schedule")
		return
	}
	schedule, err := body.toModel(item)
	if err != nil {
		h.fail(ctx, w, err, "invalid schedule")
		return
	}
	if err := h.registry.SetSchedule(ctx, schedule); err != nil {
		h.fail(ctx, w, err, "set schedule failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegisterLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	location, err := id.ParseLocationID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid location")
		return
	}
	var body LocationRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid location")
		return
	}
	err = h.registry.RegisterLocation(ctx,
		&models.Merchant{ID: id.MerchantID(body.MerchantID), Name: body.MerchantName},
		&models.StoreLocation{ID: location, Name: body.Name},
	)
	if err != nil {
		h.fail(ctx, w, err, "register location failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	location, err := id.ParseLocationID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "invalid stock update")
		return
	}
	item, err := id.ParseItemID(chi.URLParam(r, "item"))
	if err != nil {
		h.fail(ctx, w, err, "invalid stock update")
		return
	}
	var body StockRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.fail(ctx, w, err, "invalid stock update")
		return
	}
	level, err := h.registry.SetStock(ctx, location, item, body.Quantity)
	if err != nil {
		h.fail(ctx, w, err, "set stock failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StockResponse{
		LocationID: level.LocationID.String(),
		ItemID:     level.ItemID.String(),
		Quantity:   level.Quantity,
		UpdatedAt:  level.UpdatedAt,
	})
}

// fail logs err at a level matching its class and writes the mapped response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := request.GetRequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
	}
	httputil.WriteError(w, err)
}
