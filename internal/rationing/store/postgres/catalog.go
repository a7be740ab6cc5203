package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"prs/internal/rationing/models"
	id "prs/pkg/domain"
	"prs/pkg/platform/sentinel"
)

func (s *Store) GetIndividual(ctx context.Context, individualID id.IndividualID) (*models.Individual, error) {
	query := `
		SELECT id, date_of_birth, is_minor, guardian_id, roles, tombstoned
		FROM individuals
		WHERE id = $1
	`
	var (
		ind      models.Individual
		dob      sql.NullTime
		guardian sql.NullString
		roles    pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, query, individualID).
		Scan(&ind.ID, &dob, &ind.IsMinor, &guardian, &roles, &ind.Tombstoned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get individual: %w", err)
	}
	if dob.Valid {
		ind.DateOfBirth = dob.Time
	}
	if guardian.Valid {
		g := id.IndividualID(guardian.String)
		ind.GuardianID = &g
	}
	ind.Roles = roles
	return &ind, nil
}

func (s *Store) PutIndividual(ctx context.Context, ind *models.Individual) error {
	query := `
		INSERT INTO individuals (id, date_of_birth, is_minor, guardian_id, roles, tombstoned)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			date_of_birth = EXCLUDED.date_of_birth,
			is_minor = EXCLUDED.is_minor,
			guardian_id = EXCLUDED.guardian_id,
			roles = EXCLUDED.roles,
			tombstoned = EXCLUDED.tombstoned
	`
	var dob sql.NullTime
	if !ind.DateOfBirth.IsZero() {
		dob = sql.NullTime{Time: ind.DateOfBirth, Valid: true}
	}
	var guardian sql.NullString
	if ind.GuardianID != nil {
		guardian = sql.NullString{String: ind.GuardianID.String(), Valid: true}
	}
	roles := ind.Roles
	if roles == nil {
		roles = []string{}
	}
	_, err := s.db.ExecContext(ctx, query, ind.ID, dob, ind.IsMinor, guardian, pq.Array(roles), ind.Tombstoned)
	if err != nil {
		return fmt.Errorf("put individual: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, itemID id.ItemID) (*models.CriticalItem, error) {
	query := `SELECT id, name, category, unit FROM critical_items WHERE id = $1`
	var item models.CriticalItem
	err := s.db.QueryRowContext(ctx, query, itemID).Scan(&item.ID, &item.Name, &item.Category, &item.Unit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

func (s *Store) PutItem(ctx context.Context, item *models.CriticalItem) error {
	query := `
		INSERT INTO critical_items (id, name, category, unit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			unit = EXCLUDED.unit
	`
	if _, err := s.db.ExecContext(ctx, query, item.ID, item.Name, item.Category, item.Unit); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (s *Store) PutMerchant(ctx context.Context, merchant *models.Merchant) error {
	query := `
		INSERT INTO merchants (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := s.db.ExecContext(ctx, query, merchant.ID, merchant.Name); err != nil {
		return fmt.Errorf("put merchant: %w", err)
	}
	return nil
}

func (s *Store) GetLocation(ctx context.Context, locationID id.LocationID) (*models.StoreLocation, error) {
	query := `SELECT id, merchant_id, name FROM store_locations WHERE id = $1`
	var loc models.StoreLocation
	err := s.db.QueryRowContext(ctx, query, locationID).Scan(&loc.ID, &loc.MerchantID, &loc.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &loc, nil
}

func (s *Store) PutLocation(ctx context.Context, loc *models.StoreLocation) error {
	query := `
		INSERT INTO store_locations (id, merchant_id, name)
		SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM merchants WHERE id = $2)
		ON CONFLICT (id) DO UPDATE SET
			merchant_id = EXCLUDED.merchant_id,
			name = EXCLUDED.name
	`
	result, err := s.db.ExecContext(ctx, query, loc.ID, loc.MerchantID, loc.Name)
	if err != nil {
		return fmt.Errorf("put location: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put location rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) ListLimits(ctx context.Context, itemID id.ItemID) ([]*models.PurchaseLimit, error) {
	query := `
		SELECT id, item_id, ceiling, period_type, role, requires_vaccination, vaccine_type, effective_from, effective_to
		FROM purchase_limits
		WHERE item_id = $1
		ORDER BY effective_from
	`
	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	defer rows.Close()

	var out []*models.PurchaseLimit
	for rows.Next() {
		var (
			l      models.PurchaseLimit
			period string
			to     sql.NullTime
		)
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Ceiling, &period, &l.Role, &l.RequiresVaccination, &l.VaccineType, &l.EffectiveFrom, &to); err != nil {
			return nil, fmt.Errorf("scan limit: %w", err)
		}
		l.PeriodType = models.PeriodType(period)
		if to.Valid {
			t := to.Time
			l.EffectiveTo = &t
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate limits: %w", err)
	}
	return out, nil
}

func (s *Store) PutLimit(ctx context.Context, l *models.PurchaseLimit) error {
	query := `
		INSERT INTO purchase_limits (id, item_id, ceiling, period_type, role, requires_vaccination, vaccine_type, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			ceiling = EXCLUDED.ceiling,
			period_type = EXCLUDED.period_type,
			role = EXCLUDED.role,
			requires_vaccination = EXCLUDED.requires_vaccination,
			vaccine_type = EXCLUDED.vaccine_type,
			effective_from = EXCLUDED.effective_from,
			effective_to = EXCLUDED.effective_to
	`
	var to sql.NullTime
	if l.EffectiveTo != nil {
		to = sql.NullTime{Time: *l.EffectiveTo, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.ItemID, l.Ceiling, string(l.PeriodType), l.Role, l.RequiresVaccination, l.VaccineType, l.EffectiveFrom, to)
	if err != nil {
		return fmt.Errorf("put limit: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, itemID id.ItemID) (*models.PurchaseSchedule, error) {
	query := `
		SELECT item_id, period, rolling_window_seconds, allowed_days, birth_year_digits, outside_policy, timezone
		FROM purchase_schedules
		WHERE item_id = $1
	`
	var (
		sched   models.PurchaseSchedule
		period  string
		seconds int64
		days    pq.Int64Array
		digits  pq.Int64Array
		policy  string
	)
	err := s.db.QueryRowContext(ctx, query, itemID).
		Scan(&sched.ItemID, &period, &seconds, &days, &digits, &policy, &sched.Timezone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	sched.Period = models.PeriodType(period)
	sched.RollingWindow = time.Duration(seconds) * time.Second
	sched.OutsidePolicy = models.OutsidePolicy(policy)
	for _, d := range days {
		sched.AllowedDays = append(sched.AllowedDays, time.Weekday(d))
	}
	for _, d := range digits {
		sched.BirthYearDigits = append(sched.BirthYearDigits, int(d))
	}
	return &sched, nil
}

func (s *Store) PutSchedule(ctx context.Context, sched *models.PurchaseSchedule) error {
	query := `
		INSERT INTO purchase_schedules (item_id, period, rolling_window_seconds, allowed_days, birth_year_digits, outside_policy, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (item_id) DO UPDATE SET
			period = EXCLUDED.period,
			rolling_window_seconds = EXCLUDED.rolling_window_seconds,
			allowed_days = EXCLUDED.allowed_days,
			birth_year_digits = EXCLUDED.birth_year_digits,
			outside_policy = EXCLUDED.outside_policy,
			timezone = EXCLUDED.timezone
	`
	days := make(pq.Int64Array, 0, len(sched.AllowedDays))
	for _, d := range sched.AllowedDays {
		days = append(days, int64(d))
	}
	digits := make(pq.Int64Array, 0, len(sched.BirthYearDigits))
	for _, d := range sched.BirthYearDigits {
		digits = append(digits, int64(d))
	}
	policy := sched.OutsidePolicy
	if policy == "" {
		policy = models.OutsideDisallow
	}
	_, err := s.db.ExecContext(ctx, query,
		sched.ItemID, string(sched.Period), int64(sched.RollingWindow/time.Second), days, digits, string(policy), sched.Timezone)
	if err != nil {
		return fmt.Errorf("put schedule: %w", err)
	}
	return nil
}

const vaccinationColumns = `id, individual_id, vaccine_type, administered_at, authority_id, status`

func scanVaccination(row rowScanner) (*models.VaccinationRecord, error) {
	var (
		rec    models.VaccinationRecord
		status string
	)
	if err := row.Scan(&rec.ID, &rec.IndividualID, &rec.VaccineType, &rec.AdministeredAt, &rec.AuthorityID, &status); err != nil {
		return nil, err
	}
	rec.Status = models.VerificationStatus(status)
	return &rec, nil
}

func (s *Store) ListVaccinations(ctx context.Context, individualID id.IndividualID) ([]*models.VaccinationRecord, error) {
	query := `SELECT ` + vaccinationColumns + ` FROM vaccination_records WHERE individual_id = $1 ORDER BY administered_at`
	rows, err := s.db.QueryContext(ctx, query, individualID)
	if err != nil {
		return nil, fmt.Errorf("list vaccinations: %w", err)
	}
	defer rows.Close()

	var out []*models.VaccinationRecord
	for rows.Next() {
		rec, err := scanVaccination(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vaccination: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vaccinations: %w", err)
	}
	return out, nil
}

func (s *Store) GetVaccination(ctx context.Context, vaccinationID id.VaccinationID) (*models.VaccinationRecord, error) {
	query := `SELECT ` + vaccinationColumns + ` FROM vaccination_records WHERE id = $1`
	rec, err := scanVaccination(s.db.QueryRowContext(ctx, query, vaccinationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get vaccination: %w", err)
	}
	return rec, nil
}

func (s *Store) AddVaccination(ctx context.Context, rec *models.VaccinationRecord) error {
	query := `INSERT INTO vaccination_records (` + vaccinationColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.IndividualID, rec.VaccineType, rec.AdministeredAt, rec.AuthorityID, string(rec.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("add vaccination: %w", err)
	}
	return nil
}

// UpdateVaccinationStatus uses a conditional UPDATE so concurrent verdicts cannot both land.
func (s *Store) UpdateVaccinationStatus(ctx context.Context, vaccinationID id.VaccinationID, from, to models.VerificationStatus) error {
	query := `UPDATE vaccination_records SET status = $3 WHERE id = $1 AND status = $2`
	result, err := s.db.ExecContext(ctx, query, vaccinationID, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update vaccination status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vaccination status rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.GetVaccination(ctx, vaccinationID); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

func (s *Store) GetVaccinePolicy(ctx context.Context, vaccineType string) (*models.VaccinePolicy, error) {
	query := `SELECT vaccine_type, valid_for_seconds FROM vaccine_policies WHERE vaccine_type = $1`
	var (
		p       models.VaccinePolicy
		seconds int64
	)
	if err := s.db.QueryRowContext(ctx, query, vaccineType).Scan(&p.VaccineType, &seconds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vaccine policy: %w", err)
	}
	p.ValidFor = time.Duration(seconds) * time.Second
	return &p, nil
}

func (s *Store) PutVaccinePolicy(ctx context.Context, p *models.VaccinePolicy) error {
	query := `
		INSERT INTO vaccine_policies (vaccine_type, valid_for_seconds) VALUES ($1, $2)
		ON CONFLICT (vaccine_type) DO UPDATE SET valid_for_seconds = EXCLUDED.valid_for_seconds
	`
	if _, err := s.db.ExecContext(ctx, query, p.VaccineType, int64(p.ValidFor/time.Second)); err != nil {
		return fmt.Errorf("put vaccine policy: %w", err)
	}
	return nil
}
