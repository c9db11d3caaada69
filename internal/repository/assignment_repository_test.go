package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var reportColumnList = []string{"id", "full_name", "phone", "age", "address", "city", "problem", "contact_ok", "details", "report_type_id", "reporter_email", "reviewed", "created_at", "accepted_at", "completed_at", "completed_by"}

var volunteerColumnList = []string{"email", "full_name", "phone", "password_hash", "city", "manual_active", "availability_json", "resolved_count", "resolved_count_this_period", "reward_points", "active_report_id", "created_at", "updated_at"}

func reportRow(id int64, completedAt interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(reportColumnList).
		AddRow(id, "Jan Kowalski", "123456789", nil, "ul. Polna 1", "Warszawa", "heating is broken", true, nil, 1, nil, false, time.Now(), nil, completedAt, nil)
}

func volunteerRow(email string, activeReportID interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(volunteerColumnList).
		AddRow(email, "Vol One", nil, "hash", nil, false, "[]", 0, 0, 0, activeReportID, now, now)
}

func expectLockReport(mock sqlmock.Sqlmock, id int64, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+reportColumns+" FROM reports WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(rows)
}

func expectLockVolunteer(mock sqlmock.Sqlmock, email string, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+volunteerColumns+" FROM volunteers WHERE LOWER(email) = LOWER($1) FOR UPDATE")).
		WithArgs(email).
		WillReturnRows(rows)
}

func TestAssignmentRepositoryAccept(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	expectLockReport(mock, 7, reportRow(7, nil))
	expectLockVolunteer(mock, "vol@example.com", volunteerRow("vol@example.com", nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM volunteers WHERE active_report_id = $1 AND email <> $2 LIMIT 1")).
		WithArgs(int64(7), "vol@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE volunteers SET active_report_id = $2, updated_at = $3 WHERE email = $1")).
		WithArgs("vol@example.com", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET reviewed = TRUE, accepted_at = COALESCE(accepted_at, $2) WHERE id = $1 RETURNING "+reportColumns)).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnRows(reportRow(7, nil))
	mock.ExpectCommit()

	report, err := repo.Accept(context.Background(), "vol@example.com", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryAcceptReportNotFound(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+reportColumns+" FROM reports WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), "vol@example.com", 99)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryAcceptCompletedReport(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	expectLockReport(mock, 7, reportRow(7, time.Now()))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), "vol@example.com", 7)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrReportCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryAcceptAlreadyAssigned(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	expectLockReport(mock, 7, reportRow(7, nil))
	expectLockVolunteer(mock, "vol@example.com", volunteerRow("vol@example.com", int64(3)))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), "vol@example.com", 7)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrAlreadyAssigned), "holding a different report blocks accepting a new one")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryAcceptIdempotentForHolder(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	// Holding the same report skips the holder check and the volunteer write.
	mock.ExpectBegin()
	expectLockReport(mock, 7, reportRow(7, nil))
	expectLockVolunteer(mock, "vol@example.com", volunteerRow("vol@example.com", int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET reviewed = TRUE, accepted_at = COALESCE(accepted_at, $2) WHERE id = $1 RETURNING "+reportColumns)).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnRows(reportRow(7, nil))
	mock.ExpectCommit()

	report, err := repo.Accept(context.Background(), "vol@example.com", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryAcceptReportTaken(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	expectLockReport(mock, 7, reportRow(7, nil))
	expectLockVolunteer(mock, "vol@example.com", volunteerRow("vol@example.com", nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM volunteers WHERE active_report_id = $1 AND email <> $2 LIMIT 1")).
		WithArgs(int64(7), "vol@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("other@example.com"))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), "vol@example.com", 7)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrReportTaken))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT active_report_id FROM volunteers WHERE email = $1")).
		WithArgs("vol@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"active_report_id"}).AddRow(int64(7)))
	mock.ExpectBegin()
	expectLockReport(mock, 7, reportRow(7, nil))
	expectLockVolunteer(mock, "vol@example.com", volunteerRow("vol@example.com", int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE volunteers SET active_report_id = NULL, updated_at = $2 WHERE email = $1")).
		WithArgs("vol@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := repo.Cancel(context.Background(), "vol@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCancelNoActiveReport(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT active_report_id FROM volunteers WHERE email = $1")).
		WithArgs("vol@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"active_report_id"}).AddRow(nil))

	_, err := repo.Cancel(context.Background(), "vol@example.com")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoActiveReport))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT active_report_id FROM volunteers WHERE email = $1")).
		WithArgs("vol@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"active_report_id"}).AddRow(int64(7)))
	mock.ExpectBegin()
	expectLockReport(mock, 7, reportRow(7, nil))
	expectLockVolunteer(mock, "vol@example.com", volunteerRow("vol@example.com", int64(7)))
	mock.ExpectExec("UPDATE volunteers SET active_report_id = NULL").
		WithArgs("vol@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	completed := reportRow(7, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET completed_at = $2, completed_by = $3, reviewed = TRUE WHERE id = $1 RETURNING "+reportColumns)).
		WithArgs(int64(7), sqlmock.AnyArg(), "vol@example.com").
		WillReturnRows(completed)
	mock.ExpectCommit()

	report, err := repo.Complete(context.Background(), "vol@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCompleteRetriesOnStaleHold(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	// First pass: the hold read outside the transaction is voided by a
	// concurrent cancel before the locks are taken.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT active_report_id FROM volunteers WHERE email = $1")).
		WithArgs("vol@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"active_report_id"}).AddRow(int64(7)))
	mock.ExpectBegin()
	expectLockReport(mock, 7, reportRow(7, nil))
	expectLockVolunteer(mock, "vol@example.com", volunteerRow("vol@example.com", nil))
	mock.ExpectCommit()

	// Second pass sees no hold at all.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT active_report_id FROM volunteers WHERE email = $1")).
		WithArgs("vol@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"active_report_id"}).AddRow(nil))

	_, err := repo.Complete(context.Background(), "vol@example.com")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoActiveReport))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCancelVolunteerNotFound(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT active_report_id FROM volunteers WHERE email = $1")).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Cancel(context.Background(), "ghost@example.com")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
