package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/genlink/genlink-api/internal/models"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

// AssignmentRepository drives the report/volunteer exclusivity state machine.
// Every operation runs inside a single transaction that locks the report row
// before any check, so concurrent accept/cancel/complete calls touching the
// same report serialize on that lock and the check-then-act sequence is
// indivisible. Lock order is always report row, then volunteer row.
//
// No other code path writes active_report_id, accepted_at or completed_at.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Accept assigns the report to the volunteer.
//
// Preconditions, checked in order under the report lock: the report exists
// and is not completed; the volunteer holds nothing or already holds this
// report (re-accepting your own report is a no-op success); no other
// volunteer holds it. accepted_at is set only on the first acceptance.
func (r *AssignmentRepository) Accept(ctx context.Context, email string, reportID int64) (*models.Report, error) {
	var result *models.Report
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		report, err := lockReport(ctx, tx, reportID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("report %d not found", reportID))
			}
			return fmt.Errorf("lock report: %w", err)
		}
		if report.CompletedAt != nil {
			return appErrors.ErrReportCompleted
		}

		volunteer, err := lockVolunteer(ctx, tx, email)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
			}
			return fmt.Errorf("lock volunteer: %w", err)
		}

		if volunteer.ActiveReportID != nil && *volunteer.ActiveReportID != reportID {
			return appErrors.ErrAlreadyAssigned
		}

		if volunteer.ActiveReportID == nil {
			// Safe under the report lock: a competing accept for this report
			// is blocked until this transaction ends.
			var otherHolder string
			err = tx.GetContext(ctx, &otherHolder,
				`SELECT email FROM volunteers WHERE active_report_id = $1 AND email <> $2 LIMIT 1`,
				reportID, volunteer.Email)
			if err == nil {
				return appErrors.ErrReportTaken
			}
			if err != sql.ErrNoRows {
				return fmt.Errorf("check report holder: %w", err)
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE volunteers SET active_report_id = $2, updated_at = $3 WHERE email = $1`,
				volunteer.Email, reportID, time.Now().UTC()); err != nil {
				return fmt.Errorf("set active report: %w", err)
			}
		}

		now := time.Now().UTC()
		updated, err := returningReport(ctx, tx,
			`UPDATE reports SET reviewed = TRUE, accepted_at = COALESCE(accepted_at, $2) WHERE id = $1 RETURNING `+reportColumns,
			reportID, now)
		if err != nil {
			return fmt.Errorf("mark report accepted: %w", err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel releases the volunteer's active report back to pending. The first
// acceptance stays on record: reviewed and accepted_at are not reset.
func (r *AssignmentRepository) Cancel(ctx context.Context, email string) (*models.Report, error) {
	return r.release(ctx, email, func(tx *sqlx.Tx, report *models.Report, volunteer *models.Volunteer) (*models.Report, error) {
		if _, err := tx.ExecContext(ctx,
			`UPDATE volunteers SET active_report_id = NULL, updated_at = $2 WHERE email = $1`,
			volunteer.Email, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("clear active report: %w", err)
		}
		return report, nil
	})
}

// Complete finishes the volunteer's active report. The holder's counters go
// up by one resolved case and ten reward points in the same transaction that
// stamps the report, so a crash cannot leave them out of step.
func (r *AssignmentRepository) Complete(ctx context.Context, email string) (*models.Report, error) {
	return r.release(ctx, email, func(tx *sqlx.Tx, report *models.Report, volunteer *models.Volunteer) (*models.Report, error) {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE volunteers SET active_report_id = NULL,
				resolved_count = resolved_count + 1,
				resolved_count_this_period = resolved_count_this_period + 1,
				reward_points = reward_points + 10,
				updated_at = $2
			WHERE email = $1`,
			volunteer.Email, now); err != nil {
			return nil, fmt.Errorf("update volunteer counters: %w", err)
		}

		updated, err := returningReport(ctx, tx,
			`UPDATE reports SET completed_at = $2, completed_by = $3, reviewed = TRUE WHERE id = $1 RETURNING `+reportColumns,
			report.ID, now, volunteer.Email)
		if err != nil {
			return nil, fmt.Errorf("mark report completed: %w", err)
		}
		return updated, nil
	})
}

// release implements the shared cancel/complete skeleton: resolve the held
// report, lock report then volunteer, re-validate the hold under the locks,
// and hand over to the effect. The hold is re-read because the report id was
// discovered outside the transaction; a concurrent cancel can void it.
func (r *AssignmentRepository) release(ctx context.Context, email string, effect func(*sqlx.Tx, *models.Report, *models.Volunteer) (*models.Report, error)) (*models.Report, error) {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var heldID *int64
		if err := r.db.GetContext(ctx, &heldID, `SELECT active_report_id FROM volunteers WHERE email = $1`, email); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
			}
			return nil, fmt.Errorf("read active report: %w", err)
		}
		if heldID == nil {
			return nil, appErrors.ErrNoActiveReport
		}

		var result *models.Report
		stale := false
		err := r.withTx(ctx, func(tx *sqlx.Tx) error {
			report, err := lockReport(ctx, tx, *heldID)
			if err != nil {
				if err == sql.ErrNoRows {
					stale = true
					return nil
				}
				return fmt.Errorf("lock report: %w", err)
			}

			volunteer, err := lockVolunteer(ctx, tx, email)
			if err != nil {
				if err == sql.ErrNoRows {
					return appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
				}
				return fmt.Errorf("lock volunteer: %w", err)
			}

			if volunteer.ActiveReportID == nil || *volunteer.ActiveReportID != report.ID {
				stale = true
				return nil
			}

			result, err = effect(tx, report, volunteer)
			return err
		})
		if err != nil {
			return nil, err
		}
		if !stale {
			return result, nil
		}
	}

	return nil, appErrors.ErrNoActiveReport
}

func (r *AssignmentRepository) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func lockReport(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Report, error) {
	var report models.Report
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1 FOR UPDATE", reportColumns)
	if err := tx.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

func lockVolunteer(ctx context.Context, tx *sqlx.Tx, email string) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	query := fmt.Sprintf("SELECT %s FROM volunteers WHERE LOWER(email) = LOWER($1) FOR UPDATE", volunteerColumns)
	if err := tx.GetContext(ctx, &volunteer, query, email); err != nil {
		return nil, err
	}
	return &volunteer, nil
}

func returningReport(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (*models.Report, error) {
	var report models.Report
	if err := tx.GetContext(ctx, &report, query, args...); err != nil {
		return nil, err
	}
	return &report, nil
}
