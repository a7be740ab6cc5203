package handler

import (
	"time"

	"prs/internal/rationing/models"
	id "prs/pkg/domain"
	dErrors "prs/pkg/domain-errors"
	strutil "prs/pkg/platform/strings"
)

type PurchaseRequest struct {
	PurchaseID      string     `json:"purchase_id,omitempty"`
	IndividualID    string     `json:"individual_id"`
	ItemID          string     `json:"item_id"`
	StoreLocationID string     `json:"store_location_id"`
	Quantity        int        `json:"quantity"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

func (r PurchaseRequest) toModel(now time.Time) (models.PurchaseRequest, error) {
	individual, err := id.ParseIndividualID(r.IndividualID)
	if err != nil {
		return models.PurchaseRequest{}, err
	}
	item, err := id.ParseItemID(r.ItemID)
	if err != nil {
		return models.PurchaseRequest{}, err
	}
	location, err := id.ParseLocationID(r.StoreLocationID)
	if err != nil {
		return models.PurchaseRequest{}, err
	}
	var purchaseID id.PurchaseID
	if r.PurchaseID != "" {
		if purchaseID, err = id.ParsePurchaseID(r.PurchaseID); err != nil {
			return models.PurchaseRequest{}, err
		}
	}
	return models.PurchaseRequest{
		PurchaseID:   purchaseID,
		IndividualID: individual,
		ItemID:       item,
		LocationID:   location,
		Quantity:     r.Quantity,
		At:           timestampOr(r.Timestamp, now),
	}, nil
}

type PurchaseResponse struct {
	Committed          bool   `json:"committed"`
	PurchaseID         string `json:"purchase_id,omitempty"`
	Reason             string `json:"reason,omitempty"`
	RemainingAllowance *int   `json:"remaining_allowance,omitempty"`
	Replayed           bool   `json:"replayed,omitempty"`
}

func toPurchaseResponse(res *models.Result) PurchaseResponse {
	return PurchaseResponse{
		Committed:          res.Committed,
		PurchaseID:         res.PurchaseID.String(),
		Reason:             string(res.Reason),
		RemainingAllowance: res.RemainingAllowance,
		Replayed:           res.Replayed,
	}
}

type DecisionResponse struct {
	Allowed            bool   `json:"allowed"`
	Reason             string `json:"reason,omitempty"`
	HolderID           string `json:"holder_id,omitempty"`
	PeriodID           string `json:"period_id,omitempty"`
	Ceiling            int    `json:"ceiling,omitempty"`
	Consumed           int    `json:"consumed"`
	RemainingAllowance *int   `json:"remaining_allowance,omitempty"`
	Unrationed         bool   `json:"unrationed,omitempty"`
}

func toDecisionResponse(d *models.Decision) DecisionResponse {
	resp := DecisionResponse{
		Allowed:    d.Allowed,
		Reason:     string(d.Reason),
		HolderID:   d.HolderID.String(),
		PeriodID:   d.PeriodID,
		Ceiling:    d.Ceiling,
		Consumed:   d.Consumed,
		Unrationed: d.Unrationed,
	}
	if !d.Unrationed && d.Ceiling > 0 {
		remaining := d.RemainingAllowance
		resp.RemainingAllowance = &remaining
	}
	return resp
}

type CompensationRequest struct {
	Quantity  int        `json:"quantity"`
	Reason    string     `json:"reason"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type AdjustmentResponse struct {
	ID         string    `json:"id"`
	AdjustsID  string    `json:"adjusts_id"`
	Quantity   int       `json:"quantity"`
	PeriodID   string    `json:"period_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toAdjustmentResponse(p *models.Purchase) AdjustmentResponse {
	resp := AdjustmentResponse{
		ID:         p.ID.String(),
		Quantity:   p.Quantity,
		PeriodID:   p.PeriodID,
		RecordedAt: p.RecordedAt,
	}
	if p.AdjustsID != nil {
		resp.AdjustsID = p.AdjustsID.String()
	}
	return resp
}

type IndividualRequest struct {
	ID          string   `json:"id"`
	DateOfBirth string   `json:"date_of_birth,omitempty"`
	IsMinor     bool     `json:"is_minor"`
	GuardianID  string   `json:"guardian_id,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

func (r IndividualRequest) toModel() (*models.Individual, error) {
	individual, err := id.ParseIndividualID(r.ID)
	if err != nil {
		return nil, err
	}
	out := &models.Individual{ID: individual, IsMinor: r.IsMinor, Roles: strutil.DedupeAndTrimLower(r.Roles)}
	if r.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, r.DateOfBirth)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "date_of_birth must be YYYY-MM-DD")
		}
		out.DateOfBirth = dob
	}
	if r.GuardianID != "" {
		guardian, err := id.ParseIndividualID(r.GuardianID)
		if err != nil {
			return nil, err
		}
		out.GuardianID = &guardian
	}
	return out, nil
}

type VaccinationRequest struct {
	IndividualID   string    `json:"individual_id"`
	VaccineType    string    `json:"vaccine_type"`
	AdministeredAt time.Time `json:"administered_at"`
	AuthorityID    string    `json:"authority_id,omitempty"`
}

type VaccinationResponse struct {
	ID             string    `json:"id"`
	IndividualID   string    `json:"individual_id"`
	VaccineType    string    `json:"vaccine_type"`
	AdministeredAt time.Time `json:"administered_at"`
	AuthorityID    string    `json:"authority_id,omitempty"`
	Status         string    `json:"status"`
}

func toVaccinationResponse(v *models.VaccinationRecord) VaccinationResponse {
	return VaccinationResponse{
		ID:             v.ID.String(),
		IndividualID:   v.IndividualID.String(),
		VaccineType:    v.VaccineType,
		AdministeredAt: v.AdministeredAt,
		AuthorityID:    v.AuthorityID,
		Status:         string(v.Status),
	}
}

type VaccinePolicyRequest struct {
	ValidForDays int `json:"valid_for_days"`
}

type ItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

type LimitRequest struct {
	ID                  string     `json:"id,omitempty"`
	Ceiling             int        `json:"ceiling"`
	PeriodType          string     `json:"period_type"`
	Role                string     `json:"role,omitempty"`
	RequiresVaccination bool       `json:"requires_vaccination,omitempty"`
	VaccineType         string     `json:"vaccine_type,omitempty"`
	EffectiveFrom       *time.Time `json:"effective_from,omitempty"`
	EffectiveTo         *time.Time `json:"effective_to,omitempty"`
}

func (r LimitRequest) toModel(item id.ItemID) *models.PurchaseLimit {
	l := &models.PurchaseLimit{
		ID:                  id.LimitID(r.ID),
		ItemID:              item,
		Ceiling:             r.Ceiling,
		PeriodType:          models.PeriodType(r.PeriodType),
		Role:                r.Role,
		RequiresVaccination: r.RequiresVaccination,
		VaccineType:         r.VaccineType,
		EffectiveTo:         r.EffectiveTo,
	}
	if r.EffectiveFrom != nil {
		l.EffectiveFrom = *r.EffectiveFrom
	}
	return l
}

type LimitResponse struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"item_id"`
	Ceiling       int        `json:"ceiling"`
	PeriodType    string     `json:"period_type"`
	Role          string     `json:"role,omitempty"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

func toLimitResponse(l *models.PurchaseLimit) LimitResponse {
	return LimitResponse{
		ID:            string(l.ID),
		ItemID:        l.ItemID.String(),
		Ceiling:       l.Ceiling,
		PeriodType:    string(l.PeriodType),
		Role:          l.Role,
		EffectiveFrom: l.EffectiveFrom,
		EffectiveTo:   l.EffectiveTo,
	}
}

// ScheduleRequest uses ISO weekdays (1=Monday..7=Sunday) for AllowedDays.
type ScheduleRequest struct {
	Period                string `json:"period"`
	RollingWindowHours    int    `json:"rolling_window_hours,omitempty"`
	AllowedDays           []int  `json:"allowed_days,omitempty"`
	BirthYearDigits       []int  `json:"birth_year_digits,omitempty"`
	OutsideSchedulePolicy string `json:"outside_schedule_policy,omitempty"`
	Timezone              string `json:"timezone,omitempty"`
}

func (r ScheduleRequest) toModel(item id.ItemID) (*models.PurchaseSchedule, error) {
	s := &models.PurchaseSchedule{
		ItemID:          item,
		Period:          models.PeriodType(r.Period),
		RollingWindow:   time.Duration(r.RollingWindowHours) * time.Hour,
		BirthYearDigits: r.BirthYearDigits,
		OutsidePolicy:   models.OutsidePolicy(r.OutsideSchedulePolicy),
		Timezone:        r.Timezone,
	}
	for _, d := range r.AllowedDays {
		if d < 1 || d > 7 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "allowed_days must be between 1 (Monday) and 7 (Sunday)")
		}
		s.AllowedDays = append(s.AllowedDays, time.Weekday(d%7))
	}
	return s, nil
}

type LocationRequest struct {
	MerchantID   string `json:"merchant_id"`
	MerchantName string `json:"merchant_name,omitempty"`
	Name         string `json:"name,omitempty"`
}

type StockRequest struct {
	Quantity int `json:"quantity"`
}

type StockResponse struct {
	LocationID string    `json:"store_location_id"`
	ItemID     string    `json:"item_id"`
	Quantity   int       `json:"quantity"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func timestampOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return *t
}
