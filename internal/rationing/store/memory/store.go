// Package memory is an in-process implementation of the rationing stores.
//
// Writes made inside RunInTx are buffered in an overlay and applied under the
// store lock only when the callback succeeds, so a failed attempt leaves no
// trace. Stock deltas are re-validated at commit; a concurrent transaction that
// drained the same stock row, or changed a level this one read, surfaces as
// sentinel.ErrConflict.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"prs/internal/rationing/models"
	"prs/internal/rationing/ports"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/sentinel"
)

// defaultTxTimeout is the maximum duration for a transaction without a caller deadline.
const defaultTxTimeout = 5 * time.Second

type stockKey struct {
	location id.LocationID
	item     id.ItemID
}

type Store struct {
	mu        sync.RWMutex
	entries   map[models.EntryKey]*models.LedgerEntry
	purchases map[id.PurchaseID]*models.Purchase
	order     []id.PurchaseID
	stock     map[stockKey]*models.StockLevel

	catalog

	timeout time.Duration
}

func New() *Store {
	return &Store{
		entries:   make(map[models.EntryKey]*models.LedgerEntry),
		purchases: make(map[id.PurchaseID]*models.Purchase),
		stock:     make(map[stockKey]*models.StockLevel),
		catalog:   newCatalog(),
	}
}

var (
	_ ports.TxStore      = (*Store)(nil)
	_ ports.UnitOfWork   = (*Store)(nil)
	_ ports.CatalogAdmin = (*Store)(nil)
)

// RunInTx runs fn against a buffered view and commits its writes atomically.
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

	view := newTxView(s)
	if err := fn(view); err != nil {
		return err
	}
	return view.commit()
}

// -----------------------------------------------------------------------------
// Auto-commit accessors (used outside transactions)
// -----------------------------------------------------------------------------

func (s *Store) GetEntry(_ context.Context, key models.EntryKey) (*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[key]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) SumPurchasesSince(_ context.Context, holder id.IndividualID, item id.ItemID, from time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, p := range s.purchases {
		if countsSince(p, holder, item, from) {
			total += p.Quantity
		}
	}
	return total, nil
}

func countsSince(p *models.Purchase, holder id.IndividualID, item id.ItemID, from time.Time) bool {
	return p.Rationed && p.HolderID == holder && p.ItemID == item && !p.At.Before(from)
}

func (s *Store) FindPurchase(_ context.Context, purchaseID id.PurchaseID) (*models.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.purchases[purchaseID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) SumAdjustments(_ context.Context, purchaseID id.PurchaseID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumAdjustmentsLocked(purchaseID), nil
}

func (s *Store) sumAdjustmentsLocked(purchaseID id.PurchaseID) int {
	total := 0
	for _, p := range s.purchases {
		if p.AdjustsID != nil && *p.AdjustsID == purchaseID {
			total -= p.Quantity
		}
	}
	return total
}

func (s *Store) AddToEntry(ctx context.Context, key models.EntryKey, delta int, at time.Time) (*models.LedgerEntry, error) {
	var out *models.LedgerEntry
	err := s.RunInTx(ctx, func(store ports.TxStore) error {
		var err error
		out, err = store.AddToEntry(ctx, key, delta, at)
		return err
	})
	return out, err
}

func (s *Store) InsertPurchase(ctx context.Context, purchase *models.Purchase) error {
	return s.RunInTx(ctx, func(store ports.TxStore) error {
		return store.InsertPurchase(ctx, purchase)
	})
}

func (s *Store) GetStock(_ context.Context, location id.LocationID, item id.ItemID) (*models.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if lvl, ok := s.stock[stockKey{location, item}]; ok {
		cp := *lvl
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) DecrementStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int, at time.Time) (bool, error) {
	var ok bool
	err := s.RunInTx(ctx, func(store ports.TxStore) error {
		var err error
		ok, err = store.DecrementStock(ctx, location, item, quantity, at)
		return err
	})
	return ok, err
}

func (s *Store) IncrementStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int, at time.Time) (*models.StockLevel, error) {
	var out *models.StockLevel
	err := s.RunInTx(ctx, func(store ports.TxStore) error {
		var err error
		out, err = store.IncrementStock(ctx, location, item, quantity, at)
		return err
	})
	return out, err
}

// ListPurchases returns all purchase rows for holder in insertion order.
func (s *Store) ListPurchases(_ context.Context, holder id.IndividualID) ([]*models.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Purchase
	for _, pid := range s.order {
		if p := s.purchases[pid]; p.HolderID == holder {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Transaction view
// -----------------------------------------------------------------------------

type txView struct {
	s           *Store
	entryDeltas map[models.EntryKey]int
	entryTimes  map[models.EntryKey]time.Time
	purchases   []*models.Purchase
	stockDeltas map[stockKey]int
	stockTimes  map[stockKey]time.Time
	// stockSeen holds the committed level behind each GetStock.
	stockSeen map[stockKey]int
}

func newTxView(s *Store) *txView {
	return &txView{
		s:           s,
		entryDeltas: make(map[models.EntryKey]int),
		entryTimes:  make(map[models.EntryKey]time.Time),
		stockDeltas: make(map[stockKey]int),
		stockTimes:  make(map[stockKey]time.Time),
		stockSeen:   make(map[stockKey]int),
	}
}

func (v *txView) GetEntry(ctx context.Context, key models.EntryKey) (*models.LedgerEntry, error) {
	base, err := v.s.GetEntry(ctx, key)
	if err != nil {
		return nil, err
	}
	delta, touched := v.entryDeltas[key]
	if !touched {
		return base, nil
	}
	if base == nil {
		base = &models.LedgerEntry{Key: key}
	}
	base.Consumed += delta
	base.UpdatedAt = v.entryTimes[key]
	return base, nil
}

func (v *txView) SumPurchasesSince(ctx context.Context, holder id.IndividualID, item id.ItemID, from time.Time) (int, error) {
	total, err := v.s.SumPurchasesSince(ctx, holder, item, from)
	if err != nil {
		return 0, err
	}
	for _, p := range v.purchases {
		if countsSince(p, holder, item, from) {
			total += p.Quantity
		}
	}
	return total, nil
}

func (v *txView) FindPurchase(ctx context.Context, purchaseID id.PurchaseID) (*models.Purchase, error) {
	for _, p := range v.purchases {
		if p.ID == purchaseID {
			cp := *p
			return &cp, nil
		}
	}
	return v.s.FindPurchase(ctx, purchaseID)
}

func (v *txView) SumAdjustments(ctx context.Context, purchaseID id.PurchaseID) (int, error) {
	total, err := v.s.SumAdjustments(ctx, purchaseID)
	if err != nil {
		return 0, err
	}
	for _, p := range v.purchases {
		if p.AdjustsID != nil && *p.AdjustsID == purchaseID {
			total -= p.Quantity
		}
	}
	return total, nil
}

func (v *txView) AddToEntry(ctx context.Context, key models.EntryKey, delta int, at time.Time) (*models.LedgerEntry, error) {
	v.entryDeltas[key] += delta
	v.entryTimes[key] = at
	return v.GetEntry(ctx, key)
}

func (v *txView) InsertPurchase(ctx context.Context, purchase *models.Purchase) error {
	existing, err := v.FindPurchase(ctx, purchase.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return sentinel.ErrAlreadyUsed
	}
	cp := *purchase
	v.purchases = append(v.purchases, &cp)
	return nil
}

func (v *txView) GetStock(ctx context.Context, location id.LocationID, item id.ItemID) (*models.StockLevel, error) {
	k := stockKey{location, item}
	base, err := v.s.GetStock(ctx, location, item)
	if err != nil {
		return nil, err
	}
	if _, seen := v.stockSeen[k]; !seen {
		v.stockSeen[k] = quantityOf(base)
	}
	return v.overlay(k, base), nil
}

// level is the stock visible to this transaction without recording a read.
func (v *txView) level(ctx context.Context, location id.LocationID, item id.ItemID) (*models.StockLevel, error) {
	base, err := v.s.GetStock(ctx, location, item)
	if err != nil {
		return nil, err
	}
	return v.overlay(stockKey{location, item}, base), nil
}

func (v *txView) overlay(k stockKey, base *models.StockLevel) *models.StockLevel {
	delta, touched := v.stockDeltas[k]
	if !touched {
		return base
	}
	if base == nil {
		base = &models.StockLevel{LocationID: k.location, ItemID: k.item}
	}
	base.Quantity += delta
	base.UpdatedAt = v.stockTimes[k]
	return base
}

func quantityOf(lvl *models.StockLevel) int {
	if lvl == nil {
		return 0
	}
	return lvl.Quantity
}

func (v *txView) DecrementStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int, at time.Time) (bool, error) {
	current, err := v.level(ctx, location, item)
	if err != nil {
		return false, err
	}
	if current == nil || current.Quantity-quantity < 0 {
		return false, nil
	}
	k := stockKey{location, item}
	v.stockDeltas[k] -= quantity
	v.stockTimes[k] = at
	return true, nil
}

func (v *txView) IncrementStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int, at time.Time) (*models.StockLevel, error) {
	k := stockKey{location, item}
	v.stockDeltas[k] += quantity
	v.stockTimes[k] = at
	return v.level(ctx, location, item)
}

// commit validates buffered writes against current state and applies them.
func (v *txView) commit() error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range v.stockSeen {
		if quantityOf(s.stock[k]) != seen {
			return sentinel.ErrConflict
		}
	}
	for k, delta := range v.stockDeltas {
		if quantityOf(s.stock[k])+delta < 0 {
			return sentinel.ErrConflict
		}
	}
	for _, p := range v.purchases {
		if _, exists := s.purchases[p.ID]; exists {
			return sentinel.ErrAlreadyUsed
		}
	}

	for k, delta := range v.stockDeltas {
		lvl, ok := s.stock[k]
		if !ok {
			lvl = &models.StockLevel{LocationID: k.location, ItemID: k.item}
			s.stock[k] = lvl
		}
		lvl.Quantity += delta
		lvl.UpdatedAt = v.stockTimes[k]
	}
	keys := make([]models.EntryKey, 0, len(v.entryDeltas))
	for k := range v.entryDeltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		e, ok := s.entries[k]
		if !ok {
			e = &models.LedgerEntry{Key: k}
			s.entries[k] = e
		}
		e.Consumed += v.entryDeltas[k]
		e.UpdatedAt = v.entryTimes[k]
	}
	for _, p := range v.purchases {
		s.purchases[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return nil
}
