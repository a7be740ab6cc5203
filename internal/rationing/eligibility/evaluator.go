// Package eligibility decides whether an individual may buy an item right now.
//
// Checks run in a fixed order and stop at the first failure, so exactly one
// reason is reported: unknown records, schedule window, vaccination, quota.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prs/internal/rationing/ledger"
	"prs/internal/rationing/metrics"
	"prs/internal/rationing/models"
	"prs/internal/rationing/ports"
	"prs/internal/rationing/window"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/sentinel"
)

// Outcome is a decision together with the facts the coordinator needs to commit it.
type Outcome struct {
	models.Decision
	Period window.Period
	// Limit is the limit that applied, nil for unrestricted items.
	Limit *models.PurchaseLimit
}

// EntryKey returns the exclusivity and ledger key for the outcome.
func (o *Outcome) EntryKey(item id.ItemID) models.EntryKey {
	return ledger.EntryKey(o.HolderID, item, o.Period)
}

type Evaluator struct {
	catalog ports.Catalog
	reader  ports.LedgerReader
	ledger  *ledger.Ledger
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Evaluator)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

func WithLedger(l *ledger.Ledger) Option {
	return func(e *Evaluator) {
		e.ledger = l
	}
}

// New creates an evaluator. reader is used by Evaluate outside transactions.
func New(catalog ports.Catalog, reader ports.LedgerReader, opts ...Option) (*Evaluator, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if reader == nil {
		return nil, errors.New("ledger reader is required")
	}
	e := &Evaluator{
		catalog: catalog,
		reader:  reader,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = ledger.New(ledger.WithLogger(e.logger))
	}
	return e, nil
}

// Evaluate runs the checks against committed state.
func (e *Evaluator) Evaluate(ctx context.Context, req models.EligibilityRequest) (*Outcome, error) {
	return e.EvaluateWith(ctx, e.reader, req)
}

// EvaluateWith runs the checks reading quota through r, typically a transaction view.
func (e *Evaluator) EvaluateWith(ctx context.Context, r ports.LedgerReader, req models.EligibilityRequest) (*Outcome, error) {
	if req.Quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "quantity must be positive")
	}
	if req.At.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "timestamp is required")
	}

	f, err := e.gather(ctx, req)
	if err != nil {
		return nil, err
	}
	out := e.decide(ctx, r, req, f)
	if out.err != nil {
		return nil, out.err
	}
	e.metrics.IncrementEligibility(reasonLabel(out.Decision))
	return &out.Outcome, nil
}

type evaluation struct {
	Outcome
	err error
}

func deny(o Outcome, reason models.Reason) evaluation {
	o.Allowed = false
	o.Reason = reason
	return evaluation{Outcome: o}
}

func (e *Evaluator) decide(ctx context.Context, r ports.LedgerReader, req models.EligibilityRequest, f *facts) evaluation {
	var o Outcome
	if f.individual == nil || f.individual.Tombstoned || f.item == nil {
		return deny(o, models.ReasonNotFound)
	}
	o.HolderID = f.individual.ID
	if f.individual.IsMinor {
		if f.guardian == nil || f.guardian.Tombstoned {
			return deny(o, models.ReasonNotFound)
		}
		o.HolderID = f.guardian.ID
	}

	limit := selectLimit(f.limits, f.individual, req.At)
	o.Limit = limit

	sched := f.schedule
	if sched == nil {
		if limit == nil {
			o.Allowed = true
			o.Unrationed = true
			return evaluation{Outcome: o}
		}
		sched = models.DefaultSchedule(req.ItemID, limit.PeriodType)
	}

	// 1. schedule window
	period, err := window.Resolve(sched, req.At)
	if errors.Is(err, window.ErrOutsideSchedule) {
		return deny(o, models.ReasonOutsideSchedule)
	}
	if err != nil {
		return evaluation{err: fmt.Errorf("resolve period: %w", err)}
	}
	if !window.Admits(sched, f.individual.DateOfBirth) {
		return deny(o, models.ReasonOutsideSchedule)
	}
	o.Period = period
	o.PeriodID = period.ID

	// 2. vaccination
	if limit != nil && limit.RequiresVaccination {
		reason, err := e.checkVaccination(ctx, f.vaccinations, limit.VaccineType, req)
		if err != nil {
			return evaluation{err: err}
		}
		if reason != "" {
			return deny(o, reason)
		}
	}

	if limit == nil || period.Unrationed {
		o.Allowed = true
		o.Unrationed = true
		return evaluation{Outcome: o}
	}

	// 3. consumption
	consumed, err := e.ledger.Consumed(ctx, r, o.HolderID, req.ItemID, period)
	if err != nil {
		return evaluation{err: err}
	}
	o.Ceiling = limit.Ceiling
	o.Consumed = consumed
	o.RemainingAllowance = max(limit.Ceiling-consumed, 0)

	// 4. ceiling
	if consumed+req.Quantity > limit.Ceiling {
		if e.logger != nil {
			e.logger.DebugContext(ctx, "quota exceeded",
				"holder_id", o.HolderID,
				"item_id", req.ItemID,
				"period_id", period.ID,
				"consumed", consumed,
				"requested", req.Quantity,
				"ceiling", limit.Ceiling,
			)
		}
		return deny(o, models.ReasonQuotaExceeded)
	}

	// 5.
	o.Allowed = true
	return evaluation{Outcome: o}
}

// checkVaccination inspects the most recent record of vaccineType (any type when empty).
func (e *Evaluator) checkVaccination(ctx context.Context, records []*models.VaccinationRecord, vaccineType string, req models.EligibilityRequest) (models.Reason, error) {
	var latest *models.VaccinationRecord
	for _, rec := range records {
		if vaccineType != "" && rec.VaccineType != vaccineType {
			continue
		}
		if rec.AdministeredAt.After(req.At) {
			continue
		}
		if latest == nil || rec.AdministeredAt.After(latest.AdministeredAt) {
			latest = rec
		}
	}
	if latest == nil || latest.Status != models.VerificationVerified {
		return models.ReasonVaccinationRequired, nil
	}
	policy, err := e.catalog.GetVaccinePolicy(ctx, latest.VaccineType)
	if err != nil {
		return "", fmt.Errorf("get vaccine policy: %w", err)
	}
	if policy.ExpiredAt(latest.AdministeredAt, req.At) {
		return models.ReasonVaccinationExpired, nil
	}
	return "", nil
}

// selectLimit picks the limit in force at `at`. A limit scoped to one of the
// individual's roles beats an unscoped one; ties go to the lowest ceiling.
func selectLimit(limits []*models.PurchaseLimit, individual *models.Individual, at time.Time) *models.PurchaseLimit {
	var scoped, general *models.PurchaseLimit
	for _, l := range limits {
		if !l.ActiveAt(at) {
			continue
		}
		switch {
		case l.Role == "":
			if general == nil || l.Ceiling < general.Ceiling {
				general = l
			}
		case individual.HasRole(l.Role):
			if scoped == nil || l.Ceiling < scoped.Ceiling {
				scoped = l
			}
		}
	}
	if scoped != nil {
		return scoped
	}
	return general
}

func reasonLabel(d models.Decision) string {
	if d.Allowed {
		return "allowed"
	}
	return string(d.Reason)
}

// PeriodAt resolves the period an item's sale at `at` belongs to, using the
// item's schedule or the default schedule of its general limit.
func (e *Evaluator) PeriodAt(ctx context.Context, item id.ItemID, at time.Time) (window.Period, error) {
	sched, err := e.catalog.GetSchedule(ctx, item)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return window.Period{}, fmt.Errorf("get schedule: %w", err)
	}
	if sched == nil {
		limits, err := e.catalog.ListLimits(ctx, item)
		if err != nil {
			return window.Period{}, fmt.Errorf("list limits: %w", err)
		}
		limit := selectLimit(limits, &models.Individual{}, at)
		if limit == nil {
			return window.Period{Unrationed: true}, nil
		}
		sched = models.DefaultSchedule(item, limit.PeriodType)
	}
	return window.Resolve(sched, at)
}
