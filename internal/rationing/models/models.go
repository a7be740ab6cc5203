package models

import (
	"fmt"
	"slices"
	"time"

	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
)

// Individual is a person enrolled in the registry.
type Individual struct {
	ID          id.IndividualID
	DateOfBirth time.Time
	IsMinor     bool
	GuardianID  *id.IndividualID
	Roles       []string
	// Tombstoned individuals are anonymized; their purchase history is retained.
	Tombstoned bool
}

// Validate checks the invariants an Individual can enforce on its own.
// Guardian-is-not-a-minor needs the guardian record and is checked by the registry.
func (i *Individual) Validate() error {
	if i.ID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "individual id is required")
	}
	if i.IsMinor && (i.GuardianID == nil || *i.GuardianID == "") {
		return dErrors.New(dErrors.CodeInvalidInput, "minor requires a guardian")
	}
	if i.GuardianID != nil && *i.GuardianID == i.ID {
		return dErrors.New(dErrors.CodeInvalidInput, "individual cannot be their own guardian")
	}
	return nil
}

// HasRole reports whether the individual holds role.
func (i *Individual) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// CriticalItem is a rationed good. Identity is never reused; Name may change.
type CriticalItem struct {
	ID       id.ItemID
	Name     string
	Category string
	Unit     string
}

// PeriodType is the granularity a limit resets on.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodRolling PeriodType = "rolling"
)

func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodRolling:
		return true
	}
	return false
}

// PurchaseLimit caps the quantity of one item an individual may buy per period.
type PurchaseLimit struct {
	ID                  id.LimitID
	ItemID              id.ItemID
	Ceiling             int
	PeriodType          PeriodType
	Role                string // empty applies to everyone
	RequiresVaccination bool
	VaccineType         string // empty accepts any vaccine type
	EffectiveFrom       time.Time
	EffectiveTo         *time.Time
}

// Validate enforces ceiling > 0 and a known period type.
func (l *PurchaseLimit) Validate() error {
	if l.ItemID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "item id is required")
	}
	if l.Ceiling <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "quantity ceiling must be greater than zero")
	}
	if !l.PeriodType.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid period type %q", l.PeriodType))
	}
	if l.EffectiveTo != nil && !l.EffectiveTo.After(l.EffectiveFrom) {
		return dErrors.New(dErrors.CodeInvalidInput, "effective_to must be after effective_from")
	}
	return nil
}

// ActiveAt reports whether the limit is in force at t.
func (l *PurchaseLimit) ActiveAt(t time.Time) bool {
	if t.Before(l.EffectiveFrom) {
		return false
	}
	return l.EffectiveTo == nil || t.Before(*l.EffectiveTo)
}

// OutsidePolicy decides what happens to purchases outside the schedule window.
type OutsidePolicy string

const (
	OutsideDisallow   OutsidePolicy = "disallow"
	OutsideUnrationed OutsidePolicy = "unrationed"
)

// PurchaseSchedule defines the current window for an item.
type PurchaseSchedule struct {
	ItemID id.ItemID
	Period PeriodType
	// RollingWindow is used when Period is PeriodRolling.
	RollingWindow time.Duration
	// AllowedDays restricts purchases to these weekdays; empty allows every day.
	AllowedDays []time.Weekday
	// BirthYearDigits restricts purchases to individuals whose birth year ends
	// in one of these digits; empty admits everyone.
	BirthYearDigits []int
	OutsidePolicy   OutsidePolicy
	// Timezone is an IANA name; empty means UTC.
	Timezone string
}

// Validate checks schedule shape.
func (s *PurchaseSchedule) Validate() error {
	if s.ItemID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "item id is required")
	}
	if !s.Period.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid schedule period %q", s.Period))
	}
	if s.Period == PeriodRolling && s.RollingWindow <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "rolling schedule requires a positive window")
	}
	for _, d := range s.BirthYearDigits {
		if d < 0 || d > 9 {
			return dErrors.New(dErrors.CodeInvalidInput, "birth year digits must be between 0 and 9")
		}
	}
	switch s.OutsidePolicy {
	case "", OutsideDisallow, OutsideUnrationed:
	default:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid outside policy %q", s.OutsidePolicy))
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid timezone")
		}
	}
	return nil
}

// DefaultRollingWindow applies to rolling limits on items without a schedule.
const DefaultRollingWindow = 7 * 24 * time.Hour

// DefaultSchedule is used for items that carry a limit but no explicit schedule:
// every day is open and the period follows the limit.
func DefaultSchedule(itemID id.ItemID, period PeriodType) *PurchaseSchedule {
	s := &PurchaseSchedule{
		ItemID:        itemID,
		Period:        period,
		OutsidePolicy: OutsideDisallow,
	}
	if period == PeriodRolling {
		s.RollingWindow = DefaultRollingWindow
	}
	return s
}

// VerificationStatus of a vaccination record.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// VaccinationRecord belongs to exactly one individual.
type VaccinationRecord struct {
	ID             id.VaccinationID
	IndividualID   id.IndividualID
	VaccineType    string
	AdministeredAt time.Time
	AuthorityID    string
	Status         VerificationStatus
}

// Transition moves a pending record to verified or rejected. Any other move fails.
func (v *VaccinationRecord) Transition(to VerificationStatus) error {
	if v.Status != VerificationPending {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("vaccination record is already %s", v.Status))
	}
	if to != VerificationVerified && to != VerificationRejected {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid verification status %q", to))
	}
	v.Status = to
	return nil
}

// VaccinePolicy carries the expiry rule of a vaccine type. ValidFor of zero never expires.
type VaccinePolicy struct {
	VaccineType string
	ValidFor    time.Duration
}

// ExpiredAt reports whether a record administered at administered has lapsed by t.
func (p *VaccinePolicy) ExpiredAt(administered, t time.Time) bool {
	if p == nil || p.ValidFor <= 0 {
		return false
	}
	return t.After(administered.Add(p.ValidFor))
}

// Merchant owns store locations.
type Merchant struct {
	ID   id.MerchantID
	Name string
}

// StoreLocation holds stock for critical items.
type StoreLocation struct {
	ID         id.LocationID
	MerchantID id.MerchantID
	Name       string
}

// StockLevel is the non-negative quantity of an item at a location.
type StockLevel struct {
	LocationID id.LocationID
	ItemID     id.ItemID
	Quantity   int
	UpdatedAt  time.Time
}
