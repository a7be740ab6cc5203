package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers purchases, compensations and vaccination verdicts.
	// These are retained for the life of the registry.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers denied access and capability violations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity such as eligibility pre-checks.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	Action     string        `json:"action"`
	Subject    string        `json:"subject,omitempty"`
	ItemID     string        `json:"item_id,omitempty"`
	LocationID string        `json:"location_id,omitempty"`
	Quantity   int           `json:"quantity,omitempty"`
	Decision   string        `json:"decision,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	// ActorID is the authenticated caller (merchant operator, official).
	ActorID string `json:"actor_id,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	EventPurchaseCommitted    AuditEvent = "purchase_committed"
	EventPurchaseRejected     AuditEvent = "purchase_rejected"
	EventPurchaseCompensated  AuditEvent = "purchase_compensated"
	EventEligibilityChecked   AuditEvent = "eligibility_checked"
	EventVaccinationSubmitted AuditEvent = "vaccination_submitted"
	EventVaccinationVerified  AuditEvent = "vaccination_verified"
	EventVaccinationRejected  AuditEvent = "vaccination_rejected"
	EventLimitChanged         AuditEvent = "purchase_limit_changed"
	EventScheduleChanged      AuditEvent = "purchase_schedule_changed"
	EventIndividualTombstoned AuditEvent = "individual_tombstoned"
	EventStockUpdated         AuditEvent = "stock_updated"
	EventCapabilityDenied     AuditEvent = "capability_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPurchaseCommitted:    CategoryCompliance,
	EventPurchaseCompensated:  CategoryCompliance,
	EventVaccinationVerified:  CategoryCompliance,
	EventVaccinationRejected:  CategoryCompliance,
	EventLimitChanged:         CategoryCompliance,
	EventScheduleChanged:      CategoryCompliance,
	EventIndividualTombstoned: CategoryCompliance,

	EventCapabilityDenied: CategorySecurity,

	EventPurchaseRejected:     CategoryOperations,
	EventEligibilityChecked:   CategoryOperations,
	EventVaccinationSubmitted: CategoryOperations,
	EventStockUpdated:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
