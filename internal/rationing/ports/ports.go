// Package ports defines the interfaces the rationing services depend on.
// Interfaces live here because the ledger, evaluator, coordinator and registry share them.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Catalog,UnitOfWork,Locker,AuditPublisher

import (
	"context"
	"log/slog"
	"time"

	"prs/internal/rationing/models"
	id "prs/pkg/domain"
	"prs/pkg/platform/audit"
	"prs/pkg/requestcontext"
)

// LedgerReader reads quota state. Lookups return nil, nil when the row is absent.
type LedgerReader interface {
	// GetEntry returns the fixed-period entry for key.
	GetEntry(ctx context.Context, key models.EntryKey) (*models.LedgerEntry, error)

	// SumPurchasesSince sums rationed purchase quantities (including negative
	// adjustments) counted against holder for item with At at or after from.
	// There is no upper bound: purchases stamped after a back-dated attempt
	// still count against it.
	SumPurchasesSince(ctx context.Context, holder id.IndividualID, item id.ItemID, from time.Time) (int, error)

	// FindPurchase looks up a purchase or adjustment by id.
	FindPurchase(ctx context.Context, purchaseID id.PurchaseID) (*models.Purchase, error)

	// SumAdjustments returns the total quantity already compensated for a sale, as a positive number.
	SumAdjustments(ctx context.Context, purchaseID id.PurchaseID) (int, error)
}

// LedgerWriter mutates quota state. Only the ledger package calls these.
type LedgerWriter interface {
	LedgerReader

	// AddToEntry creates the entry with zero consumption if absent, then adds delta.
	AddToEntry(ctx context.Context, key models.EntryKey, delta int, at time.Time) (*models.LedgerEntry, error)

	// InsertPurchase appends a purchase row. Returns sentinel.ErrAlreadyUsed for a duplicate id.
	InsertPurchase(ctx context.Context, purchase *models.Purchase) error
}

// StockWriter manages stock levels.
type StockWriter interface {
	// GetStock returns nil, nil when the location holds no row for item.
	GetStock(ctx context.Context, location id.LocationID, item id.ItemID) (*models.StockLevel, error)

	// DecrementStock removes quantity if the result stays non-negative.
	// Returns false and leaves stock unchanged otherwise.
	DecrementStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int, at time.Time) (bool, error)

	// IncrementStock adds quantity, creating the row if needed.
	IncrementStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int, at time.Time) (*models.StockLevel, error)
}

// TxStore is the view of shared mutable state available inside a unit of work.
type TxStore interface {
	LedgerWriter
	StockWriter
}

// UnitOfWork runs fn atomically: every write fn makes through store commits, or none does.
// A sentinel.ErrConflict return signals a benign race the caller may retry.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(store TxStore) error) error
}

// Catalog reads the read-mostly reference data. Missing records return sentinel.ErrNotFound.
type Catalog interface {
	GetIndividual(ctx context.Context, individualID id.IndividualID) (*models.Individual, error)
	GetItem(ctx context.Context, itemID id.ItemID) (*models.CriticalItem, error)
	GetLocation(ctx context.Context, locationID id.LocationID) (*models.StoreLocation, error)
	ListLimits(ctx context.Context, itemID id.ItemID) ([]*models.PurchaseLimit, error)
	GetSchedule(ctx context.Context, itemID id.ItemID) (*models.PurchaseSchedule, error)
	ListVaccinations(ctx context.Context, individualID id.IndividualID) ([]*models.VaccinationRecord, error)
	// GetVaccinePolicy returns nil, nil when the vaccine type has no expiry policy.
	GetVaccinePolicy(ctx context.Context, vaccineType string) (*models.VaccinePolicy, error)
}

// CatalogAdmin provisions reference data.
type CatalogAdmin interface {
	Catalog
	PutIndividual(ctx context.Context, individual *models.Individual) error
	PutItem(ctx context.Context, item *models.CriticalItem) error
	PutMerchant(ctx context.Context, merchant *models.Merchant) error
	PutLocation(ctx context.Context, location *models.StoreLocation) error
	PutLimit(ctx context.Context, limit *models.PurchaseLimit) error
	PutSchedule(ctx context.Context, schedule *models.PurchaseSchedule) error
	PutVaccinePolicy(ctx context.Context, policy *models.VaccinePolicy) error
	AddVaccination(ctx context.Context, record *models.VaccinationRecord) error
	GetVaccination(ctx context.Context, vaccinationID id.VaccinationID) (*models.VaccinationRecord, error)
	// UpdateVaccinationStatus moves a record from `from` to `to` atomically.
	// Returns sentinel.ErrInvalidState when the stored status is not `from`.
	UpdateVaccinationStatus(ctx context.Context, vaccinationID id.VaccinationID, from, to models.VerificationStatus) error
}

// Locker provides the per-key exclusivity section around check-then-commit.
type Locker interface {
	// Acquire blocks until key is held or ctx is done. release is safe to call once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// AuditPublisher emits audit events for compliance-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an audit event to the structured logger and the publisher if available.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event.Action, "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
