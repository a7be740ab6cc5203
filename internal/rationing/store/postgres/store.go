// Package postgres persists the rationing engine in PostgreSQL.
//
// Units of work run at SERIALIZABLE isolation. Serialization failures and
// deadlocks surface as sentinel.ErrConflict so the coordinator can retry.
// This store is pure I/O; quota and eligibility rules live in the services.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"prs/internal/rationing/models"
	"prs/internal/rationing/ports"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/sentinel"
)

// Schema creates every table the store uses. It is idempotent.
//
//go:embed schema.sql
var Schema string

// defaultTxTimeout is the maximum duration for a transaction without a caller deadline.
const defaultTxTimeout = 5 * time.Second

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
)

type Store struct {
	queries
	db      *sql.DB
	timeout time.Duration
}

var (
	_ ports.TxStore      = (*Store)(nil)
	_ ports.UnitOfWork   = (*Store)(nil)
	_ ports.CatalogAdmin = (*Store)(nil)
)

func New(db *sql.DB) *Store {
	return &Store{queries: queries{q: db}, db: db}
}

// Migrate applies Schema. Intended for bootstrap, never for request paths.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) RunInTx(ctx context.Context, fn func(store ports.TxStore) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return mapTxError(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return mapTxError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// mapTxError turns retryable PostgreSQL failures into sentinel.ErrConflict.
func mapTxError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("%w: %s", sentinel.ErrConflict, pqErr.Message)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqCheckViolation
}

// -----------------------------------------------------------------------------
// Ledger and stock queries (shared by the pool and transactions)
// -----------------------------------------------------------------------------

// querier is the subset of *sql.DB and *sql.Tx the queries use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

func (s *queries) GetEntry(ctx context.Context, key models.EntryKey) (*models.LedgerEntry, error) {
	query := `
		SELECT consumed, updated_at
		FROM quota_ledger_entries
		WHERE holder_id = $1 AND item_id = $2 AND period_id = $3
	`
	entry := &models.LedgerEntry{Key: key}
	err := s.q.QueryRowContext(ctx, query, key.HolderID, key.ItemID, key.PeriodID).Scan(&entry.Consumed, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return entry, nil
}

func (s *queries) AddToEntry(ctx context.Context, key models.EntryKey, delta int, at time.Time) (*models.LedgerEntry, error) {
	query := `
		INSERT INTO quota_ledger_entries (holder_id, item_id, period_id, consumed, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (holder_id, item_id, period_id) DO UPDATE SET
			consumed = quota_ledger_entries.consumed + EXCLUDED.consumed,
			updated_at = EXCLUDED.updated_at
		RETURNING consumed, updated_at
	`
	entry := &models.LedgerEntry{Key: key}
	err := s.q.QueryRowContext(ctx, query, key.HolderID, key.ItemID, key.PeriodID, delta, at).Scan(&entry.Consumed, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("add to ledger entry: %w", err)
	}
	return entry, nil
}

func (s *queries) SumPurchasesSince(ctx context.Context, holder id.IndividualID, item id.ItemID, from time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM purchases
		WHERE rationed AND holder_id = $1 AND item_id = $2 AND at >= $3
	`
	var total int
	if err := s.q.QueryRowContext(ctx, query, holder, item, from).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum purchases: %w", err)
	}
	return total, nil
}

func (s *queries) SumAdjustments(ctx context.Context, purchaseID id.PurchaseID) (int, error) {
	query := `SELECT COALESCE(-SUM(quantity), 0) FROM purchases WHERE adjusts_id = $1`
	var total int
	if err := s.q.QueryRowContext(ctx, query, purchaseID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum adjustments: %w", err)
	}
	return total, nil
}

const purchaseColumns = `id, individual_id, holder_id, item_id, location_id, quantity, at, recorded_at,
	entry_ref, period_id, kind, adjusts_id, rationed`

func (s *queries) FindPurchase(ctx context.Context, purchaseID id.PurchaseID) (*models.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`
	p, err := scanPurchase(s.q.QueryRowContext(ctx, query, purchaseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	return p, nil
}

func (s *queries) InsertPurchase(ctx context.Context, p *models.Purchase) error {
	query := `INSERT INTO purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	var adjusts sql.NullString
	if p.AdjustsID != nil {
		adjusts = sql.NullString{String: p.AdjustsID.String(), Valid: true}
	}
	_, err := s.q.ExecContext(ctx, query,
		p.ID, p.IndividualID, p.HolderID, p.ItemID, p.LocationID, p.Quantity, p.At, p.RecordedAt,
		p.EntryRef, p.PeriodID, string(p.Kind), adjusts, p.Rationed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row rowScanner) (*models.Purchase, error) {
	var (
		p       models.Purchase
		kind    string
		adjusts sql.NullString
	)
	err := row.Scan(&p.ID, &p.IndividualID, &p.HolderID, &p.ItemID, &p.LocationID, &p.Quantity, &p.At, &p.RecordedAt,
		&p.EntryRef, &p.PeriodID, &kind, &adjusts, &p.Rationed)
	if err != nil {
		return nil, err
	}
	p.Kind = models.PurchaseKind(kind)
	if adjusts.Valid {
		ref := id.PurchaseID(adjusts.String)
		p.AdjustsID = &ref
	}
	return &p, nil
}

func (s *queries) GetStock(ctx context.Context, location id.LocationID, item id.ItemID) (*models.StockLevel, error) {
	query := `SELECT quantity, updated_at FROM stock_levels WHERE location_id = $1 AND item_id = $2`
	lvl := &models.StockLevel{LocationID: location, ItemID: item}
	if err := s.q.QueryRowContext(ctx, query, location, item).Scan(&lvl.Quantity, &lvl.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return lvl, nil
}

// DecrementStock uses a conditional UPDATE so the level never goes negative.
func (s *queries) DecrementStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int, at time.Time) (bool, error) {
	query := `
		UPDATE stock_levels
		SET quantity = quantity - $3, updated_at = $4
		WHERE location_id = $1 AND item_id = $2 AND quantity >= $3
	`
	result, err := s.q.ExecContext(ctx, query, location, item, quantity, at)
	if err != nil {
		if isCheckViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *queries) IncrementStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int, at time.Time) (*models.StockLevel, error) {
	query := `
		INSERT INTO stock_levels (location_id, item_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (location_id, item_id) DO UPDATE SET
			quantity = stock_levels.quantity + EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at
		RETURNING quantity, updated_at
	`
	lvl := &models.StockLevel{LocationID: location, ItemID: item}
	if err := s.q.QueryRowContext(ctx, query, location, item, quantity, at).Scan(&lvl.Quantity, &lvl.UpdatedAt); err != nil {
		return nil, fmt.Errorf("increment stock: %w", err)
	}
	return lvl, nil
}
