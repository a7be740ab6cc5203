package models

import (
	"fmt"
	"time"

	id "prs/pkg/domain"
)

// EntryKey identifies a fixed-boundary quota bucket.
type EntryKey struct {
	HolderID id.IndividualID
	ItemID   id.ItemID
	PeriodID string
}

func (k EntryKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.HolderID, k.ItemID, k.PeriodID)
}

// LedgerEntry is the cumulative consumption of one holder, item and period.
type LedgerEntry struct {
	Key       EntryKey
	Consumed  int
	UpdatedAt time.Time
}

// PurchaseKind separates sales from compensating adjustments.
type PurchaseKind string

const (
	PurchaseKindSale       PurchaseKind = "sale"
	PurchaseKindAdjustment PurchaseKind = "adjustment"
)

// Purchase is an append-only record. Adjustments carry a negative quantity and
// reference the sale they correct through AdjustsID.
type Purchase struct {
	ID           id.PurchaseID
	IndividualID id.IndividualID
	// HolderID is whose quota the purchase counts against (the guardian for minors).
	HolderID   id.IndividualID
	ItemID     id.ItemID
	LocationID id.LocationID
	Quantity   int
	// At is when the sale counts for quota purposes. Adjustments keep the At of
	// the sale they correct so rolling windows drop both together.
	At         time.Time
	RecordedAt time.Time
	// EntryRef is the fixed-period ledger entry this purchase updated, if any.
	EntryRef  string
	PeriodID  string
	Kind      PurchaseKind
	AdjustsID *id.PurchaseID
	Rationed  bool
}
