package memory

import (
	"context"
	"slices"
	"sync"

	"prs/internal/rationing/models"
	id "prs/pkg/domain"
	"prs/pkg/platform/sentinel"
)

// catalog holds reference data. Records are copied in and out so callers never
// share pointers with the store.
type catalog struct {
	cmu          sync.RWMutex
	individuals  map[id.IndividualID]*models.Individual
	items        map[id.ItemID]*models.CriticalItem
	merchants    map[id.MerchantID]*models.Merchant
	locations    map[id.LocationID]*models.StoreLocation
	limits       map[id.ItemID][]*models.PurchaseLimit
	schedules    map[id.ItemID]*models.PurchaseSchedule
	vaccinations map[id.VaccinationID]*models.VaccinationRecord
	policies     map[string]*models.VaccinePolicy
}

func newCatalog() catalog {
	return catalog{
		individuals:  make(map[id.IndividualID]*models.Individual),
		items:        make(map[id.ItemID]*models.CriticalItem),
		merchants:    make(map[id.MerchantID]*models.Merchant),
		locations:    make(map[id.LocationID]*models.StoreLocation),
		limits:       make(map[id.ItemID][]*models.PurchaseLimit),
		schedules:    make(map[id.ItemID]*models.PurchaseSchedule),
		vaccinations: make(map[id.VaccinationID]*models.VaccinationRecord),
		policies:     make(map[string]*models.VaccinePolicy),
	}
}

func (c *catalog) GetIndividual(_ context.Context, individualID id.IndividualID) (*models.Individual, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	ind, ok := c.individuals[individualID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *ind
	cp.Roles = slices.Clone(ind.Roles)
	return &cp, nil
}

func (c *catalog) PutIndividual(_ context.Context, individual *models.Individual) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	cp := *individual
	cp.Roles = slices.Clone(individual.Roles)
	c.individuals[individual.ID] = &cp
	return nil
}

func (c *catalog) GetItem(_ context.Context, itemID id.ItemID) (*models.CriticalItem, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	item, ok := c.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (c *catalog) PutItem(_ context.Context, item *models.CriticalItem) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	cp := *item
	c.items[item.ID] = &cp
	return nil
}

func (c *catalog) PutMerchant(_ context.Context, merchant *models.Merchant) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	cp := *merchant
	c.merchants[merchant.ID] = &cp
	return nil
}

func (c *catalog) GetLocation(_ context.Context, locationID id.LocationID) (*models.StoreLocation, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	loc, ok := c.locations[locationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (c *catalog) PutLocation(_ context.Context, location *models.StoreLocation) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	if _, ok := c.merchants[location.MerchantID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *location
	c.locations[location.ID] = &cp
	return nil
}

func (c *catalog) ListLimits(_ context.Context, itemID id.ItemID) ([]*models.PurchaseLimit, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	out := make([]*models.PurchaseLimit, 0, len(c.limits[itemID]))
	for _, l := range c.limits[itemID] {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

// PutLimit inserts a limit or replaces the one with the same id.
func (c *catalog) PutLimit(_ context.Context, limit *models.PurchaseLimit) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	cp := *limit
	list := c.limits[limit.ItemID]
	for i, l := range list {
		if l.ID == limit.ID {
			list[i] = &cp
			return nil
		}
	}
	c.limits[limit.ItemID] = append(list, &cp)
	return nil
}

func (c *catalog) GetSchedule(_ context.Context, itemID id.ItemID) (*models.PurchaseSchedule, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	s, ok := c.schedules[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s
	cp.AllowedDays = slices.Clone(s.AllowedDays)
	cp.BirthYearDigits = slices.Clone(s.BirthYearDigits)
	return &cp, nil
}

func (c *catalog) PutSchedule(_ context.Context, schedule *models.PurchaseSchedule) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	cp := *schedule
	cp.AllowedDays = slices.Clone(schedule.AllowedDays)
	cp.BirthYearDigits = slices.Clone(schedule.BirthYearDigits)
	c.schedules[schedule.ItemID] = &cp
	return nil
}

func (c *catalog) ListVaccinations(_ context.Context, individualID id.IndividualID) ([]*models.VaccinationRecord, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	var out []*models.VaccinationRecord
	for _, v := range c.vaccinations {
		if v.IndividualID == individualID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *catalog) AddVaccination(_ context.Context, record *models.VaccinationRecord) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	if _, exists := c.vaccinations[record.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *record
	c.vaccinations[record.ID] = &cp
	return nil
}

func (c *catalog) GetVaccination(_ context.Context, vaccinationID id.VaccinationID) (*models.VaccinationRecord, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	v, ok := c.vaccinations[vaccinationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (c *catalog) UpdateVaccinationStatus(_ context.Context, vaccinationID id.VaccinationID, from, to models.VerificationStatus) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	v, ok := c.vaccinations[vaccinationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if v.Status != from {
		return sentinel.ErrInvalidState
	}
	v.Status = to
	return nil
}

func (c *catalog) GetVaccinePolicy(_ context.Context, vaccineType string) (*models.VaccinePolicy, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	p, ok := c.policies[vaccineType]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (c *catalog) PutVaccinePolicy(_ context.Context, policy *models.VaccinePolicy) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	cp := *policy
	c.policies[policy.VaccineType] = &cp
	return nil
}
