package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/genlink/genlink-api/internal/models"
)

const volunteerColumns = "email, full_name, phone, password_hash, city, manual_active, availability_json, resolved_count, resolved_count_this_period, reward_points, active_report_id, created_at, updated_at"

// VolunteerRepository manages persistence for volunteer accounts.
type VolunteerRepository struct {
	db *sqlx.DB
}

// NewVolunteerRepository constructs a VolunteerRepository.
func NewVolunteerRepository(db *sqlx.DB) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

// List returns volunteers matching the filter along with a total count.
func (r *VolunteerRepository) List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error) {
	base := "FROM volunteers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(COALESCE(city, '')) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]string{
		"full_name":      "full_name",
		"email":          "email",
		"resolved_count": "resolved_count",
		"created_at":     "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", volunteerColumns, base, column, order, size, offset)
	var volunteers []models.Volunteer
	if err := r.db.SelectContext(ctx, &volunteers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list volunteers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count volunteers: %w", err)
	}

	return volunteers, total, nil
}

// ListAll returns every volunteer. Used by the public activity aggregation.
func (r *VolunteerRepository) ListAll(ctx context.Context) ([]models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers", volunteerColumns)
	var volunteers []models.Volunteer
	if err := r.db.SelectContext(ctx, &volunteers, query); err != nil {
		return nil, fmt.Errorf("list all volunteers: %w", err)
	}
	return volunteers, nil
}

// FindByEmail fetches a volunteer by email.
func (r *VolunteerRepository) FindByEmail(ctx context.Context, email string) (*models.Volunteer, error) {
	query := fmt.Sprintf("SELECT %s FROM volunteers WHERE LOWER(email) = LOWER($1)", volunteerColumns)
	var volunteer models.Volunteer
	if err := r.db.GetContext(ctx, &volunteer, query, email); err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// ExistsByEmail checks whether an account already uses the email.
func (r *VolunteerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = "SELECT 1 FROM volunteers WHERE LOWER(email) = LOWER($1) LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check volunteer email: %w", err)
	}
	return true, nil
}

// Create inserts a new volunteer record.
func (r *VolunteerRepository) Create(ctx context.Context, volunteer *models.Volunteer) error {
	now := time.Now().UTC()
	if volunteer.CreatedAt.IsZero() {
		volunteer.CreatedAt = now
	}
	volunteer.UpdatedAt = now
	if volunteer.AvailabilityJSON == "" {
		volunteer.AvailabilityJSON = "[]"
	}

	const query = `INSERT INTO volunteers (email, full_name, phone, password_hash, city, manual_active, availability_json, resolved_count, resolved_count_this_period, reward_points, created_at, updated_at)
		VALUES (:email, :full_name, :phone, :password_hash, :city, :manual_active, :availability_json, :resolved_count, :resolved_count_this_period, :reward_points, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, volunteer); err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	return nil
}

// Update modifies profile fields, the manual-active flag and the stored
// schedule. Assignment state and counters are written only by the
// assignment repository.
func (r *VolunteerRepository) Update(ctx context.Context, volunteer *models.Volunteer) error {
	volunteer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE volunteers SET full_name = :full_name, phone = :phone, city = :city, manual_active = :manual_active, availability_json = :availability_json, updated_at = :updated_at WHERE email = :email`
	if _, err := r.db.NamedExecContext(ctx, query, volunteer); err != nil {
		return fmt.Errorf("update volunteer: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *VolunteerRepository) UpdatePassword(ctx context.Context, email, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE volunteers SET password_hash = $2, updated_at = $3 WHERE email = $1`
	if _, err := r.db.ExecContext(ctx, query, email, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update volunteer password: %w", err)
	}
	return nil
}

// Delete removes the account. An assignment held at deletion time is
// released by the FK's SET NULL, returning the report to pending.
func (r *VolunteerRepository) Delete(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM volunteers WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete volunteer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete volunteer: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HolderOf returns the email of the volunteer currently holding the report,
// or sql.ErrNoRows when it is unheld.
func (r *VolunteerRepository) HolderOf(ctx context.Context, reportID int64) (string, error) {
	const query = `SELECT email FROM volunteers WHERE active_report_id = $1`
	var email string
	if err := r.db.GetContext(ctx, &email, query, reportID); err != nil {
		return "", err
	}
	return email, nil
}
