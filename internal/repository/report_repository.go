package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/genlink/genlink-api/internal/models"
)

const reportColumns = "id, full_name, phone, age, address, city, problem, contact_ok, details, report_type_id, reporter_email, reviewed, created_at, accepted_at, completed_at, completed_by"

// pendingCondition selects reports that are outstanding work: never completed
// and not currently held by any volunteer.
const pendingCondition = "completed_at IS NULL AND id NOT IN (SELECT active_report_id FROM volunteers WHERE active_report_id IS NOT NULL)"

// ReportRepository manages persistence for problem reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report and fills in its assigned id and timestamp.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO reports (full_name, phone, age, address, city, problem, contact_ok, details, report_type_id, reporter_email, reviewed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		report.FullName,
		report.Phone,
		report.Age,
		report.Address,
		report.City,
		report.Problem,
		report.ContactOK,
		report.Details,
		report.ReportTypeID,
		report.ReporterEmail,
		report.CreatedAt,
	).Scan(&report.ID); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// FindByID fetches a report by id.
func (r *ReportRepository) FindByID(ctx context.Context, id int64) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListPending returns pending reports matching the filter, newest first.
func (r *ReportRepository) ListPending(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	base := "FROM reports WHERE " + pendingCondition
	var conditions []string
	var args []interface{}

	if filter.ReportTypeID != nil {
		conditions = append(conditions, fmt.Sprintf("report_type_id = $%d", len(args)+1))
		args = append(args, *filter.ReportTypeID)
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(city) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.City)+"%")
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(problem) LIKE $%d OR LOWER(address) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, pattern)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", reportColumns, base, limit, skip)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	return reports, nil
}

// Statistics counts pending reports overall and per report type.
func (r *ReportRepository) Statistics(ctx context.Context) (*models.ReportStatistics, error) {
	query := fmt.Sprintf("SELECT report_type_id, COUNT(*) AS count FROM reports WHERE %s GROUP BY report_type_id", pendingCondition)
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("report statistics: %w", err)
	}
	defer rows.Close()

	stats := &models.ReportStatistics{ByType: make(map[int64]int64)}
	for rows.Next() {
		var typeID, count int64
		if err := rows.Scan(&typeID, &count); err != nil {
			return nil, fmt.Errorf("scan report statistics: %w", err)
		}
		stats.ByType[typeID] = count
		stats.TotalPending += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("report statistics: %w", err)
	}
	return stats, nil
}

// AverageResponseMinutes computes the mean minutes between submission and
// first acceptance across all reports that were ever accepted. Negative
// deltas are discarded as clock skew. Returns nil when no data exists.
func (r *ReportRepository) AverageResponseMinutes(ctx context.Context) (*float64, error) {
	const query = `SELECT AVG(EXTRACT(EPOCH FROM (accepted_at - created_at)) / 60.0)
		FROM reports WHERE accepted_at IS NOT NULL AND accepted_at >= created_at`
	var avg *float64
	if err := r.db.GetContext(ctx, &avg, query); err != nil {
		return nil, fmt.Errorf("average response minutes: %w", err)
	}
	return avg, nil
}

// ListCompletedBy returns reports completed by the volunteer, newest first.
func (r *ReportRepository) ListCompletedBy(ctx context.Context, email string, skip, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 5000 {
		limit = 5000
	}
	if skip < 0 {
		skip = 0
	}
	query := fmt.Sprintf("SELECT %s FROM reports WHERE completed_by = $1 ORDER BY completed_at DESC LIMIT %d OFFSET %d", reportColumns, limit, skip)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, email); err != nil {
		return nil, fmt.Errorf("list completed reports: %w", err)
	}
	return reports, nil
}
