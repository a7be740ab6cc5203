// Package ledger is the source of truth for how much quota a holder has used.
//
// Fixed-boundary periods keep one pre-aggregated entry per (holder, item, period).
// Rolling windows are never pre-aggregated; consumption is summed from purchase
// rows so the total stays correct as the window slides.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prs/internal/rationing/models"
	"prs/internal/rationing/ports"
	"prs/internal/rationing/window"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/sentinel"
)

type Ledger struct {
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// EntryKey builds the fixed-period key for holder and item.
func EntryKey(holder id.IndividualID, item id.ItemID, period window.Period) models.EntryKey {
	return models.EntryKey{HolderID: holder, ItemID: item, PeriodID: period.ID}
}

// Consumed returns the quantity holder has used of item within period.
func (l *Ledger) Consumed(ctx context.Context, r ports.LedgerReader, holder id.IndividualID, item id.ItemID, period window.Period) (int, error) {
	if period.Unrationed {
		return 0, nil
	}
	if period.Rolling {
		sum, err := r.SumPurchasesSince(ctx, holder, item, period.Start)
		if err != nil {
			return 0, fmt.Errorf("sum rolling purchases: %w", err)
		}
		return max(sum, 0), nil
	}
	entry, err := r.GetEntry(ctx, EntryKey(holder, item, period))
	if err != nil {
		return 0, fmt.Errorf("get ledger entry: %w", err)
	}
	if entry == nil {
		return 0, nil
	}
	return entry.Consumed, nil
}

// Record appends a sale and updates cumulative consumption. It must run inside
// the unit of work that also reserves stock.
//
// Replaying an already-recorded purchase id is a no-op and returns false.
func (l *Ledger) Record(ctx context.Context, w ports.LedgerWriter, purchase *models.Purchase, period window.Period) (bool, error) {
	if purchase == nil || purchase.ID == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "purchase reference is required")
	}
	if purchase.Quantity <= 0 {
		return false, dErrors.New(dErrors.CodeInvalidInput, "purchase quantity must be positive")
	}

	existing, err := w.FindPurchase(ctx, purchase.ID)
	if err != nil {
		return false, fmt.Errorf("find purchase: %w", err)
	}
	if existing != nil {
		if l.logger != nil {
			l.logger.DebugContext(ctx, "purchase already recorded",
				"purchase_id", purchase.ID,
				"holder_id", existing.HolderID,
			)
		}
		return false, nil
	}

	purchase.Kind = models.PurchaseKindSale
	purchase.PeriodID = period.ID
	purchase.Rationed = !period.Unrationed
	if purchase.HolderID == "" {
		purchase.HolderID = purchase.IndividualID
	}
	if purchase.RecordedAt.IsZero() {
		purchase.RecordedAt = purchase.At
	}

	if purchase.Rationed && !period.Rolling {
		key := EntryKey(purchase.HolderID, purchase.ItemID, period)
		if _, err := w.AddToEntry(ctx, key, purchase.Quantity, purchase.At); err != nil {
			return false, fmt.Errorf("add to ledger entry: %w", err)
		}
		purchase.EntryRef = key.String()
	}

	if err := w.InsertPurchase(ctx, purchase); err != nil {
		return false, fmt.Errorf("insert purchase: %w", err)
	}
	return true, nil
}

// Compensate appends a negative adjustment for quantity units of a recorded sale.
// The fixed-period entry is only adjusted while its period is still open at `at`;
// closed periods keep their totals and the adjustment row stands as the audit record.
func (l *Ledger) Compensate(ctx context.Context, w ports.LedgerWriter, saleID id.PurchaseID, period window.Period, quantity int, at time.Time) (*models.Purchase, error) {
	if quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "compensation quantity must be positive")
	}
	sale, err := w.FindPurchase(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	if sale == nil {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "purchase not found")
	}
	if sale.Kind != models.PurchaseKindSale {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "only sales can be compensated")
	}
	already, err := w.SumAdjustments(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("sum adjustments: %w", err)
	}
	if already+quantity > sale.Quantity {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("compensation exceeds purchased quantity: %d of %d already compensated", already, sale.Quantity))
	}

	saleRef := sale.ID
	adj := &models.Purchase{
		ID:           id.NewPurchaseID(),
		IndividualID: sale.IndividualID,
		HolderID:     sale.HolderID,
		ItemID:       sale.ItemID,
		LocationID:   sale.LocationID,
		Quantity:     -quantity,
		At:           sale.At,
		RecordedAt:   at,
		PeriodID:     sale.PeriodID,
		Kind:         models.PurchaseKindAdjustment,
		AdjustsID:    &saleRef,
		Rationed:     sale.Rationed,
	}

	if sale.Rationed && !period.Rolling && !period.ClosedAt(at) {
		key := models.EntryKey{HolderID: sale.HolderID, ItemID: sale.ItemID, PeriodID: sale.PeriodID}
		if _, err := w.AddToEntry(ctx, key, -quantity, at); err != nil {
			return nil, fmt.Errorf("adjust ledger entry: %w", err)
		}
		adj.EntryRef = key.String()
	}

	if err := w.InsertPurchase(ctx, adj); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "adjustment id collision")
		}
		return nil, fmt.Errorf("insert adjustment: %w", err)
	}
	return adj, nil
}
