// Package registry administers the reference data the engine reads: people,
// vaccination verdicts, limits, schedules and stock levels.
//
// Each operation checks one capability from the caller's verified set and
// records a compliance audit event on success.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prs/internal/rationing/models"
	"prs/internal/rationing/ports"
	"prs/internal/rationing/stock"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	"prs/pkg/platform/audit"
	"prs/pkg/platform/sentinel"
	"prs/pkg/requestcontext"
)

type Service struct {
	catalog ports.CatalogAdmin
	uow     ports.UnitOfWork
	logger  *slog.Logger
	auditor ports.AuditPublisher
	clock   func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(catalog ports.CatalogAdmin, uow ports.UnitOfWork, opts ...Option) (*Service, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if uow == nil {
		return nil, errors.New("unit of work is required")
	}
	s := &Service{catalog: catalog, uow: uow, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Individuals
// -----------------------------------------------------------------------------

// RegisterIndividual creates or replaces an individual. A guardian must exist
// and must not be a minor.
func (s *Service) RegisterIndividual(ctx context.Context, individual *models.Individual) error {
	if err := s.authorize(ctx, models.CapManageRestrictions, "register_individual"); err != nil {
		return err
	}
	if err := individual.Validate(); err != nil {
		return err
	}
	if individual.GuardianID != nil {
		guardian, err := s.catalog.GetIndividual(ctx, *individual.GuardianID)
		if err != nil {
			return notFound(err, "guardian not found")
		}
		if guardian.IsMinor {
			return dErrors.New(dErrors.CodeInvalidInput, "guardian cannot be a minor")
		}
		if guardian.Tombstoned {
			return dErrors.New(dErrors.CodeInvalidInput, "guardian has been removed")
		}
	}
	if err := s.catalog.PutIndividual(ctx, individual); err != nil {
		return fmt.Errorf("put individual: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "individual registered", "individual_id", individual.ID, "is_minor", individual.IsMinor)
	}
	return nil
}

// TombstoneIndividual anonymizes an individual. Purchases stay intact and keep
// counting against the quota they were recorded under.
func (s *Service) TombstoneIndividual(ctx context.Context, individualID id.IndividualID) error {
	if err := s.authorize(ctx, models.CapManageRestrictions, "tombstone_individual"); err != nil {
		return err
	}
	ind, err := s.catalog.GetIndividual(ctx, individualID)
	if err != nil {
		return notFound(err, "individual not found")
	}
	if ind.Tombstoned {
		return nil
	}
	tomb := &models.Individual{
		ID:         ind.ID,
		IsMinor:    ind.IsMinor,
		GuardianID: ind.GuardianID,
		Tombstoned: true,
	}
	if err := s.catalog.PutIndividual(ctx, tomb); err != nil {
		return fmt.Errorf("put individual: %w", err)
	}
	ports.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:  string(audit.EventIndividualTombstoned),
		Subject: individualID.String(),
	}, "individual_id", individualID)
	return nil
}

// -----------------------------------------------------------------------------
// Vaccinations
// -----------------------------------------------------------------------------

// SubmitVaccination records a pending vaccination awaiting verification.
func (s *Service) SubmitVaccination(ctx context.Context, record *models.VaccinationRecord) (*models.VaccinationRecord, error) {
	if err := s.authorize(ctx, models.CapVerifyVaccination, "submit_vaccination"); err != nil {
		return nil, err
	}
	if record.IndividualID == "" || record.VaccineType == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "individual and vaccine type are required")
	}
	if record.AdministeredAt.IsZero() || record.AdministeredAt.After(s.clock()) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "administration date must be in the past")
	}
	if _, err := s.catalog.GetIndividual(ctx, record.IndividualID); err != nil {
		return nil, notFound(err, "individual not found")
	}
	rec := *record
	if rec.ID == "" {
		rec.ID = id.NewVaccinationID()
	}
	rec.Status = models.VerificationPending
	if err := s.catalog.AddVaccination(ctx, &rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "vaccination record already exists")
		}
		return nil, fmt.Errorf("add vaccination: %w", err)
	}
	ports.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:  string(audit.EventVaccinationSubmitted),
		Subject: rec.IndividualID.String(),
		Reason:  rec.VaccineType,
	}, "vaccination_id", rec.ID)
	return &rec, nil
}

// VerifyVaccination moves a pending record to verified.
func (s *Service) VerifyVaccination(ctx context.Context, vaccinationID id.VaccinationID) (*models.VaccinationRecord, error) {
	return s.transition(ctx, vaccinationID, models.VerificationVerified, audit.EventVaccinationVerified)
}

// RejectVaccination moves a pending record to rejected.
func (s *Service) RejectVaccination(ctx context.Context, vaccinationID id.VaccinationID) (*models.VaccinationRecord, error) {
	return s.transition(ctx, vaccinationID, models.VerificationRejected, audit.EventVaccinationRejected)
}

func (s *Service) transition(ctx context.Context, vaccinationID id.VaccinationID, to models.VerificationStatus, event audit.AuditEvent) (*models.VaccinationRecord, error) {
	if err := s.authorize(ctx, models.CapVerifyVaccination, string(event)); err != nil {
		return nil, err
	}
	rec, err := s.catalog.GetVaccination(ctx, vaccinationID)
	if err != nil {
		return nil, notFound(err, "vaccination record not found")
	}
	from := rec.Status
	if err := rec.Transition(to); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateVaccinationStatus(ctx, vaccinationID, from, to); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "vaccination record was already decided")
		}
		return nil, fmt.Errorf("update vaccination status: %w", err)
	}
	ports.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:   string(event),
		Subject:  rec.IndividualID.String(),
		Decision: string(to),
		Reason:   rec.VaccineType,
	}, "vaccination_id", vaccinationID)
	return rec, nil
}

// SetVaccinePolicy sets how long a vaccine type stays valid.
func (s *Service) SetVaccinePolicy(ctx context.Context, policy *models.VaccinePolicy) error {
	if err := s.authorize(ctx, models.CapManageRestrictions, "set_vaccine_policy"); err != nil {
		return err
	}
	if policy.VaccineType == "" || policy.ValidFor < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "vaccine type and a non-negative validity are required")
	}
	return s.catalog.PutVaccinePolicy(ctx, policy)
}

// -----------------------------------------------------------------------------
// Restrictions
// -----------------------------------------------------------------------------

// SetLimit creates or replaces a purchase limit.
//
// Lowering a ceiling mid-period grandfathers consumption already recorded: past
// purchases stand, and further purchases are refused until the period resets.
func (s *Service) SetLimit(ctx context.Context, limit *models.PurchaseLimit) (*models.PurchaseLimit, error) {
	if err := s.authorize(ctx, models.CapManageRestrictions, "set_limit"); err != nil {
		return nil, err
	}
	if err := limit.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetItem(ctx, limit.ItemID); err != nil {
		return nil, notFound(err, "item not found")
	}
	l := *limit
	if l.ID == "" {
		l.ID = id.NewLimitID()
	}
	if l.EffectiveFrom.IsZero() {
		l.EffectiveFrom = s.clock()
	}
	previous := 0
	existing, err := s.catalog.ListLimits(ctx, l.ItemID)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	for _, e := range existing {
		if e.ID == l.ID {
			previous = e.Ceiling
		}
	}
	if err := s.catalog.PutLimit(ctx, &l); err != nil {
		return nil, fmt.Errorf("put limit: %w", err)
	}
	ports.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:   string(audit.EventLimitChanged),
		Subject:  l.ID.String(),
		ItemID:   l.ItemID.String(),
		Quantity: l.Ceiling,
	}, "limit_id", l.ID, "period", l.PeriodType, "previous_ceiling", previous)
	return &l, nil
}

// SetSchedule creates or replaces the schedule of an item.
func (s *Service) SetSchedule(ctx context.Context, schedule *models.PurchaseSchedule) error {
	if err := s.authorize(ctx, models.CapManageRestrictions, "set_schedule"); err != nil {
		return err
	}
	if err := schedule.Validate(); err != nil {
		return err
	}
	if _, err := s.catalog.GetItem(ctx, schedule.ItemID); err != nil {
		return notFound(err, "item not found")
	}
	if err := s.catalog.PutSchedule(ctx, schedule); err != nil {
		return fmt.Errorf("put schedule: %w", err)
	}
	ports.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action: string(audit.EventScheduleChanged),
		ItemID: schedule.ItemID.String(),
	}, "period", schedule.Period, "outside_policy", schedule.OutsidePolicy)
	return nil
}

// RegisterItem creates or renames a critical item. Identity never changes.
func (s *Service) RegisterItem(ctx context.Context, item *models.CriticalItem) error {
	if err := s.authorize(ctx, models.CapManageRestrictions, "register_item"); err != nil {
		return err
	}
	if item.ID == "" || item.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "item id and name are required")
	}
	return s.catalog.PutItem(ctx, item)
}

// RegisterLocation creates the merchant if needed and then the store location.
func (s *Service) RegisterLocation(ctx context.Context, merchant *models.Merchant, location *models.StoreLocation) error {
	if err := s.authorize(ctx, models.CapManageRestrictions, "register_location"); err != nil {
		return err
	}
	if merchant.ID == "" || location.ID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "merchant id and location id are required")
	}
	location.MerchantID = merchant.ID
	if err := s.catalog.PutMerchant(ctx, merchant); err != nil {
		return fmt.Errorf("put merchant: %w", err)
	}
	if err := s.catalog.PutLocation(ctx, location); err != nil {
		return fmt.Errorf("put location: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Stock
// -----------------------------------------------------------------------------

// SetStock replaces the stock level of an item at a location.
func (s *Service) SetStock(ctx context.Context, location id.LocationID, item id.ItemID, quantity int) (*models.StockLevel, error) {
	if err := s.authorize(ctx, models.CapUpdateStock, "set_stock"); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetLocation(ctx, location); err != nil {
		return nil, notFound(err, "store location not found")
	}
	if _, err := s.catalog.GetItem(ctx, item); err != nil {
		return nil, notFound(err, "item not found")
	}
	now := s.clock()
	var level int
	err := s.uow.RunInTx(ctx, func(tx ports.TxStore) error {
		var err error
		level, err = stock.Set(ctx, tx, location, item, quantity, now)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, stock.ErrInsufficientStock) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "stock changed concurrently, retry")
		}
		return nil, err
	}
	ports.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:     string(audit.EventStockUpdated),
		ItemID:     item.String(),
		LocationID: location.String(),
		Quantity:   level,
	})
	return &models.StockLevel{LocationID: location, ItemID: item, Quantity: level, UpdatedAt: now}, nil
}

func (s *Service) authorize(ctx context.Context, capability, operation string) error {
	if requestcontext.Capabilities(ctx).Has(capability) {
		return nil
	}
	ports.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:  string(audit.EventCapabilityDenied),
		Subject: requestcontext.ActorID(ctx),
		Reason:  capability,
	}, "operation", operation)
	return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("capability %s is required", capability))
}

func notFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	}
	return err
}
