// Package purchase coordinates the check-then-commit sequence of a sale.
//
// An attempt is pre-evaluated to find its quota key, then the key's exclusivity
// section is taken and eligibility is re-run inside one storage transaction
// that also reserves stock and records the sale. Either everything commits or
// nothing does.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prs/internal/rationing/eligibility"
	"prs/internal/rationing/ledger"
	"prs/internal/rationing/metrics"
	"prs/internal/rationing/models"
	"prs/internal/rationing/ports"
	"prs/internal/rationing/stock"
	"prs/internal/rationing/window"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/audit"
	"prs/pkg/platform/sentinel"
	"prs/pkg/requestcontext"
)

const (
	defaultLockTimeout   = 2 * time.Second
	defaultCommitTimeout = 5 * time.Second
	defaultMaxRetries    = 3
	defaultBaseBackoff   = 10 * time.Millisecond
	maxBackoff           = 200 * time.Millisecond
	defaultMaxClockSkew  = 5 * time.Minute
)

// errAbort rolls back a unit of work whose outcome is already decided.
var errAbort = errors.New("purchase aborted")

type Coordinator struct {
	uow       ports.UnitOfWork
	catalog   ports.Catalog
	evaluator *eligibility.Evaluator
	ledger    *ledger.Ledger
	locker    ports.Locker

	logger  *slog.Logger
	auditor ports.AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time

	lockTimeout   time.Duration
	commitTimeout time.Duration
	maxRetries    int
	baseBackoff   time.Duration
	maxClockSkew  time.Duration
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(c *Coordinator) {
		c.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// WithClock replaces the wall clock used for defaults and the skew guard.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithLockTimeout bounds the wait for the exclusivity section.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithCommitTimeout bounds the atomic reserve+record unit including retries.
func WithCommitTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.commitTimeout = d
		}
	}
}

// WithConflictRetries sets how many times a storage conflict is retried.
func WithConflictRetries(n int, base time.Duration) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxRetries = n
		}
		if base > 0 {
			c.baseBackoff = base
		}
	}
}

// WithMaxClockSkew sets how far a caller timestamp may drift from the clock.
// Zero disables the check.
func WithMaxClockSkew(d time.Duration) Option {
	return func(c *Coordinator) {
		c.maxClockSkew = d
	}
}

func WithLedger(l *ledger.Ledger) Option {
	return func(c *Coordinator) {
		c.ledger = l
	}
}

func New(uow ports.UnitOfWork, catalog ports.Catalog, evaluator *eligibility.Evaluator, locker ports.Locker, opts ...Option) (*Coordinator, error) {
	if uow == nil {
		return nil, errors.New("unit of work is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if locker == nil {
		return nil, errors.New("locker is required")
	}
	c := &Coordinator{
		uow:           uow,
		catalog:       catalog,
		evaluator:     evaluator,
		locker:        locker,
		clock:         time.Now,
		lockTimeout:   defaultLockTimeout,
		commitTimeout: defaultCommitTimeout,
		maxRetries:    defaultMaxRetries,
		baseBackoff:   defaultBaseBackoff,
		maxClockSkew:  defaultMaxClockSkew,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ledger == nil {
		c.ledger = ledger.New(ledger.WithLogger(c.logger))
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("prs/rationing/purchase")
	}
	return c, nil
}

// AttemptPurchase decides and, when allowed, commits a sale.
//
// Business outcomes are returned as a Result; the error is reserved for invalid
// requests, missing capabilities, caller cancellation, and infrastructure faults.
func (c *Coordinator) AttemptPurchase(ctx context.Context, req models.PurchaseRequest) (*models.Result, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "purchase.attempt", trace.WithAttributes(
		attribute.String("item_id", req.ItemID.String()),
		attribute.String("location_id", req.LocationID.String()),
		attribute.Int("quantity", req.Quantity),
	))
	defer span.End()

	result, err := c.attempt(ctx, &req)
	c.metrics.ObserveAttemptLatency(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.IncrementAttempt("error", string(dErrors.CodeOf(err)))
		return nil, err
	}

	span.SetAttributes(attribute.Bool("committed", result.Committed), attribute.String("reason", string(result.Reason)))
	if result.Committed {
		c.metrics.IncrementAttempt("committed", "")
		if !result.Replayed {
			ports.LogAudit(ctx, c.logger, c.auditor, c.event(audit.EventPurchaseCommitted, req, result),
				"purchase_id", result.PurchaseID,
				"individual_id", req.IndividualID,
				"item_id", req.ItemID,
				"quantity", req.Quantity,
			)
		}
		return result, nil
	}
	c.metrics.IncrementAttempt("rejected", string(result.Reason))
	ports.LogAudit(ctx, c.logger, c.auditor, c.event(audit.EventPurchaseRejected, req, result),
		"individual_id", req.IndividualID,
		"item_id", req.ItemID,
		"reason", result.Reason,
	)
	return result, nil
}

func (c *Coordinator) attempt(ctx context.Context, req *models.PurchaseRequest) (*models.Result, error) {
	if err := c.authorize(ctx, models.CapProcessPurchase, "attempt_purchase"); err != nil {
		return nil, err
	}
	if err := c.validate(req); err != nil {
		return nil, err
	}

	if _, err := c.catalog.GetLocation(ctx, req.LocationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Rejected(models.ReasonNotFound, nil), nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}

	if req.PurchaseID != "" {
		replay, err := c.findReplay(ctx, req)
		if err != nil || replay != nil {
			return replay, err
		}
	} else {
		req.PurchaseID = id.NewPurchaseID()
	}

	// Pre-flight outside the exclusivity section: terminal denials never queue
	// behind the lock and the outcome names the key to lock.
	pre, err := c.evaluator.Evaluate(ctx, req.Eligibility())
	if err != nil {
		return nil, err
	}
	if !pre.Allowed {
		return rejection(pre), nil
	}
	if err := c.checkOpenPeriod(pre.Period); err != nil {
		return nil, err
	}

	key := pre.EntryKey(req.ItemID).String()
	lockCtx, cancelLock := context.WithTimeout(ctx, c.lockTimeout)
	waitStart := time.Now()
	release, err := c.locker.Acquire(lockCtx, key)
	cancelLock()
	c.metrics.ObserveLockWait(time.Since(waitStart))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeCanceled, "purchase abandoned by caller")
		}
		if dErrors.HasCode(err, dErrors.CodeTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return models.Rejected(models.ReasonTimeout, nil), nil
		}
		return nil, fmt.Errorf("acquire exclusivity section: %w", err)
	}
	defer release()

	// Last point at which the caller may walk away without side effects.
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, dErrors.Wrap(err, dErrors.CodeCanceled, "purchase abandoned by caller")
		}
		return models.Rejected(models.ReasonTimeout, nil), nil
	}

	// The unit runs to completion even if the caller goes away now.
	unitCtx, cancelUnit := context.WithTimeout(context.WithoutCancel(ctx), c.commitTimeout)
	defer cancelUnit()

	return c.commitWithRetry(unitCtx, req)
}

// commitWithRetry runs the atomic unit, retrying storage conflicts with backoff.
func (c *Coordinator) commitWithRetry(ctx context.Context, req *models.PurchaseRequest) (*models.Result, error) {
	for attempt := 0; ; attempt++ {
		result, err := c.commit(ctx, req)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			if attempt >= c.maxRetries {
				if c.logger != nil {
					c.logger.WarnContext(ctx, "storage conflict retries exhausted",
						"purchase_id", req.PurchaseID,
						"attempts", attempt+1,
					)
				}
				return models.Rejected(models.ReasonTimeout, nil), nil
			}
			c.metrics.IncrementConflictRetry()
			if !sleep(ctx, c.backoff(attempt)) {
				return models.Rejected(models.ReasonTimeout, nil), nil
			}
			continue
		}
		if errors.Is(err, context.DeadlineExceeded) || dErrors.HasCode(err, dErrors.CodeTimeout) {
			return models.Rejected(models.ReasonTimeout, nil), nil
		}
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "purchase id already used")
		}
		return nil, err
	}
}

// commit is one try of evaluate, reserve and record inside a single transaction.
func (c *Coordinator) commit(ctx context.Context, req *models.PurchaseRequest) (*models.Result, error) {
	var result *models.Result
	err := c.uow.RunInTx(ctx, func(tx ports.TxStore) error {
		existing, err := tx.FindPurchase(ctx, req.PurchaseID)
		if err != nil {
			return fmt.Errorf("find purchase: %w", err)
		}
		if existing != nil {
			if err := sameSale(existing, req); err != nil {
				return err
			}
			result = replayed(existing)
			return errAbort
		}

		out, err := c.evaluator.EvaluateWith(ctx, tx, req.Eligibility())
		if err != nil {
			return err
		}
		if !out.Allowed {
			result = rejection(out)
			return errAbort
		}
		// re-checked here: retries can cross a period boundary
		if err := c.checkOpenPeriod(out.Period); err != nil {
			return err
		}

		if err := stock.Reserve(ctx, tx, req.LocationID, req.ItemID, req.Quantity, req.At); err != nil {
			if errors.Is(err, stock.ErrInsufficientStock) {
				result = models.Rejected(models.ReasonInsufficientStock, nil)
				return errAbort
			}
			return err
		}

		sale := &models.Purchase{
			ID:           req.PurchaseID,
			IndividualID: req.IndividualID,
			HolderID:     out.HolderID,
			ItemID:       req.ItemID,
			LocationID:   req.LocationID,
			Quantity:     req.Quantity,
			At:           req.At,
			RecordedAt:   c.clock(),
		}
		if _, err := c.ledger.Record(ctx, tx, sale, out.Period); err != nil {
			return err
		}

		var remaining *int
		if !out.Unrationed {
			left := out.RemainingAllowance - req.Quantity
			remaining = &left
		}
		result = models.Committed(sale.ID, remaining)
		return nil
	})
	if errors.Is(err, errAbort) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) findReplay(ctx context.Context, req *models.PurchaseRequest) (*models.Result, error) {
	var result *models.Result
	err := c.uow.RunInTx(ctx, func(tx ports.TxStore) error {
		existing, err := tx.FindPurchase(ctx, req.PurchaseID)
		if err != nil {
			return fmt.Errorf("find purchase: %w", err)
		}
		if existing == nil {
			return nil
		}
		if err := sameSale(existing, req); err != nil {
			return err
		}
		result = replayed(existing)
		return nil
	})
	return result, err
}

// sameSale accepts a replay only when the stored row is the sale being asked for.
func sameSale(existing *models.Purchase, req *models.PurchaseRequest) error {
	if existing.Kind == models.PurchaseKindSale &&
		existing.IndividualID == req.IndividualID &&
		existing.ItemID == req.ItemID &&
		existing.LocationID == req.LocationID &&
		existing.Quantity == req.Quantity {
		return nil
	}
	return dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeConflict,
		fmt.Sprintf("purchase id %s is already used by a different sale", req.PurchaseID))
}

// checkOpenPeriod refuses sales stamped into a fixed period that has already
// closed by server time. Ledger entries of closed periods are never written.
func (c *Coordinator) checkOpenPeriod(p window.Period) error {
	if p.ClosedAt(c.clock()) {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("period %s has already closed", p.ID))
	}
	return nil
}

func (c *Coordinator) validate(req *models.PurchaseRequest) error {
	if req.IndividualID == "" || req.ItemID == "" || req.LocationID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "individual, item and store location are required")
	}
	if req.Quantity <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "quantity must be positive")
	}
	return c.checkTimestamp(&req.At)
}

// checkTimestamp defaults a missing timestamp to now and rejects timestamps too
// far from the clock. Closed periods are guarded separately by checkOpenPeriod.
func (c *Coordinator) checkTimestamp(at *time.Time) error {
	now := c.clock()
	if at.IsZero() {
		*at = now
		return nil
	}
	if c.maxClockSkew <= 0 {
		return nil
	}
	if skew := at.Sub(now); skew > c.maxClockSkew || skew < -c.maxClockSkew {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("timestamp is %s away from server time", skew.Round(time.Second)))
	}
	return nil
}

func (c *Coordinator) authorize(ctx context.Context, capability, operation string) error {
	if requestcontext.Capabilities(ctx).Has(capability) {
		return nil
	}
	ports.LogAudit(ctx, c.logger, c.auditor, audit.Event{
		Action:  string(audit.EventCapabilityDenied),
		Subject: requestcontext.ActorID(ctx),
		Reason:  capability,
	}, "operation", operation)
	return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("capability %s is required", capability))
}

func (c *Coordinator) backoff(attempt int) time.Duration {
	d := c.baseBackoff << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (c *Coordinator) event(action audit.AuditEvent, req models.PurchaseRequest, result *models.Result) audit.Event {
	ev := audit.Event{
		Action:     string(action),
		Subject:    req.IndividualID.String(),
		ItemID:     req.ItemID.String(),
		LocationID: req.LocationID.String(),
		Quantity:   req.Quantity,
		Decision:   "committed",
	}
	if !result.Committed {
		ev.Decision = "rejected"
		ev.Reason = string(result.Reason)
	}
	return ev
}

func rejection(out *eligibility.Outcome) *models.Result {
	if out.Reason == models.ReasonQuotaExceeded {
		remaining := out.RemainingAllowance
		return models.Rejected(out.Reason, &remaining)
	}
	return models.Rejected(out.Reason, nil)
}

func replayed(p *models.Purchase) *models.Result {
	r := models.Committed(p.ID, nil)
	r.Replayed = true
	return r
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
