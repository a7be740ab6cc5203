package purchase

import (
	"context"
	"errors"
	"fmt"

	"prs/internal/rationing/models"
	"prs/internal/rationing/ports"
	"prs/internal/rationing/window"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/audit"
	"prs/pkg/platform/sentinel"
	"prs/pkg/requestcontext"
)

// CheckEligibility evaluates a prospective purchase without committing anything.
func (c *Coordinator) CheckEligibility(ctx context.Context, req models.EligibilityRequest) (*models.Decision, error) {
	caps := requestcontext.Capabilities(ctx)
	if !caps.Has(models.CapProcessPurchase) && !caps.Has(models.CapViewCriticalItems) {
		return nil, c.authorize(ctx, models.CapViewCriticalItems, "check_eligibility")
	}
	if req.IndividualID == "" || req.ItemID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "individual and item are required")
	}
	if req.Quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "quantity must be positive")
	}
	if req.At.IsZero() {
		req.At = c.clock()
	}

	out, err := c.evaluator.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	decision := "allowed"
	if !out.Allowed {
		decision = "denied"
	}
	ports.LogAudit(ctx, c.logger, c.auditor, audit.Event{
		Action:   string(audit.EventEligibilityChecked),
		Subject:  req.IndividualID.String(),
		ItemID:   req.ItemID.String(),
		Quantity: req.Quantity,
		Decision: decision,
		Reason:   string(out.Reason),
	}, "individual_id", req.IndividualID, "item_id", req.ItemID)
	return &out.Decision, nil
}

// Compensate appends a corrective adjustment for part or all of a committed sale.
// Stock is not returned; restocking is a separate operation.
func (c *Coordinator) Compensate(ctx context.Context, req models.CompensationRequest) (*models.Purchase, error) {
	if err := c.authorize(ctx, models.CapManageRestrictions, "compensate_purchase"); err != nil {
		return nil, err
	}
	if req.PurchaseID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "purchase id is required")
	}
	if req.Quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "compensation quantity must be positive")
	}
	if req.At.IsZero() {
		req.At = c.clock()
	}

	var sale *models.Purchase
	err := c.uow.RunInTx(ctx, func(tx ports.TxStore) error {
		var err error
		sale, err = tx.FindPurchase(ctx, req.PurchaseID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	if sale == nil {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "purchase not found")
	}

	period, err := c.salePeriod(ctx, sale, req)
	if err != nil {
		return nil, err
	}

	key := models.EntryKey{HolderID: sale.HolderID, ItemID: sale.ItemID, PeriodID: sale.PeriodID}.String()
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	release, err := c.locker.Acquire(lockCtx, key)
	cancel()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "compensation lock wait timed out")
	}
	defer release()

	unitCtx, cancelUnit := context.WithTimeout(context.WithoutCancel(ctx), c.commitTimeout)
	defer cancelUnit()

	var adj *models.Purchase
	for attempt := 0; ; attempt++ {
		err = c.uow.RunInTx(unitCtx, func(tx ports.TxStore) error {
			var err error
			adj, err = c.ledger.Compensate(unitCtx, tx, req.PurchaseID, period, req.Quantity, req.At)
			return err
		})
		if !errors.Is(err, sentinel.ErrConflict) || attempt >= c.maxRetries {
			break
		}
		c.metrics.IncrementConflictRetry()
		if !sleep(unitCtx, c.backoff(attempt)) {
			break
		}
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "compensation retries exhausted")
	}
	if err != nil {
		return nil, err
	}

	c.metrics.IncrementCompensation()
	ports.LogAudit(ctx, c.logger, c.auditor, audit.Event{
		Action:     string(audit.EventPurchaseCompensated),
		Subject:    sale.HolderID.String(),
		ItemID:     sale.ItemID.String(),
		LocationID: sale.LocationID.String(),
		Quantity:   req.Quantity,
		Reason:     req.Reason,
	}, "purchase_id", sale.ID, "adjustment_id", adj.ID)
	return adj, nil
}

// salePeriod rebuilds the period a sale was recorded in. When the schedule has
// changed since, the recorded period is treated as closed.
func (c *Coordinator) salePeriod(ctx context.Context, sale *models.Purchase, req models.CompensationRequest) (window.Period, error) {
	if !sale.Rationed {
		return window.Period{ID: sale.PeriodID, Unrationed: true}, nil
	}
	period, err := c.evaluator.PeriodAt(ctx, sale.ItemID, sale.At)
	if err != nil && !errors.Is(err, window.ErrOutsideSchedule) {
		return window.Period{}, fmt.Errorf("resolve sale period: %w", err)
	}
	if err == nil && period.ID == sale.PeriodID {
		return period, nil
	}
	return window.Period{ID: sale.PeriodID, Start: sale.At, End: req.At}, nil
}
