package models

import (
	"time"

	id "prs/pkg/domain"
)

// Reason explains a denial or rejection. The empty reason means allowed.
type Reason string

const (
	ReasonOutsideSchedule     Reason = "outside_schedule"
	ReasonVaccinationRequired Reason = "vaccination_required"
	ReasonVaccinationExpired  Reason = "vaccination_expired"
	ReasonQuotaExceeded       Reason = "quota_exceeded"
	ReasonInsufficientStock   Reason = "insufficient_stock"
	ReasonTimeout             Reason = "timeout"
	ReasonStorageConflict     Reason = "storage_conflict"
	ReasonNotFound            Reason = "not_found"
)

// Capabilities the engine requires per operation.
const (
	CapProcessPurchase    = "process_purchase"
	CapVerifyVaccination  = "verify_vaccination"
	CapManageRestrictions = "manage_restrictions"
	CapUpdateStock        = "update_stock"
	CapViewCriticalItems  = "view_critical_items"
)

// EligibilityRequest asks whether an individual may buy quantity of an item at At.
type EligibilityRequest struct {
	IndividualID id.IndividualID
	ItemID       id.ItemID
	Quantity     int
	At           time.Time
}

// Decision is the outcome of an eligibility evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason
	// HolderID is whose quota was consulted.
	HolderID id.IndividualID
	PeriodID string
	Ceiling  int
	Consumed int
	// RemainingAllowance is ceiling minus consumed, floored at zero, before this request.
	RemainingAllowance int
	// Unrationed is set when no quota applies to the request.
	Unrationed bool
}

// PurchaseRequest is an attempt to sell an item at a store location.
type PurchaseRequest struct {
	// PurchaseID is an optional caller-supplied idempotency reference.
	PurchaseID   id.PurchaseID
	IndividualID id.IndividualID
	ItemID       id.ItemID
	LocationID   id.LocationID
	Quantity     int
	At           time.Time
}

// Eligibility returns the evaluation request for this attempt.
func (r PurchaseRequest) Eligibility() EligibilityRequest {
	return EligibilityRequest{
		IndividualID: r.IndividualID,
		ItemID:       r.ItemID,
		Quantity:     r.Quantity,
		At:           r.At,
	}
}

// Result is the outcome of a purchase attempt.
type Result struct {
	Committed  bool
	PurchaseID id.PurchaseID
	Reason     Reason
	// RemainingAllowance is the headroom after a commit, or the headroom that
	// caused a QuotaExceeded rejection. Nil when no quota applies.
	RemainingAllowance *int
	// Replayed is set when the purchase id had already been committed.
	Replayed bool
}

// Committed builds a successful result.
func Committed(purchaseID id.PurchaseID, remaining *int) *Result {
	return &Result{Committed: true, PurchaseID: purchaseID, RemainingAllowance: remaining}
}

// Rejected builds a failed result.
func Rejected(reason Reason, remaining *int) *Result {
	return &Result{Committed: false, Reason: reason, RemainingAllowance: remaining}
}

// CompensationRequest corrects a committed sale by quantity units.
type CompensationRequest struct {
	PurchaseID id.PurchaseID
	Quantity   int
	Reason     string
	At         time.Time
}
