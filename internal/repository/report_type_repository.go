package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/genlink/genlink-api/internal/models"
)

// ReportTypeRepository manages persistence for report categories.
type ReportTypeRepository struct {
	db *sqlx.DB
}

// NewReportTypeRepository constructs a ReportTypeRepository.
func NewReportTypeRepository(db *sqlx.DB) *ReportTypeRepository {
	return &ReportTypeRepository{db: db}
}

// List returns all report types ordered by name.
func (r *ReportTypeRepository) List(ctx context.Context) ([]models.ReportType, error) {
	const query = `SELECT id, name, description FROM report_types ORDER BY name ASC`
	var types []models.ReportType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list report types: %w", err)
	}
	return types, nil
}

// FindByID fetches a report type by id.
func (r *ReportTypeRepository) FindByID(ctx context.Context, id int64) (*models.ReportType, error) {
	const query = `SELECT id, name, description FROM report_types WHERE id = $1`
	var reportType models.ReportType
	if err := r.db.GetContext(ctx, &reportType, query, id); err != nil {
		return nil, err
	}
	return &reportType, nil
}

// ExistsByName checks name uniqueness.
func (r *ReportTypeRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	const query = `SELECT 1 FROM report_types WHERE LOWER(name) = LOWER($1) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check report type name: %w", err)
	}
	return true, nil
}

// Create inserts a new report type and fills in its id.
func (r *ReportTypeRepository) Create(ctx context.Context, reportType *models.ReportType) error {
	const query = `INSERT INTO report_types (name, description) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, reportType.Name, reportType.Description).Scan(&reportType.ID); err != nil {
		return fmt.Errorf("create report type: %w", err)
	}
	return nil
}

// Delete removes a report type.
func (r *ReportTypeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM report_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report type: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report type: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
