package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genlink/genlink-api/internal/models"
)

func TestVolunteerRepositoryList(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	query := fmt.Sprintf("SELECT %s FROM volunteers WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0", volunteerColumns)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnRows(volunteerRow("vol@example.com", nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM volunteers WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.VolunteerFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryListSearchAndSort(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	query := fmt.Sprintf("SELECT %s FROM volunteers WHERE 1=1 AND (LOWER(full_name) LIKE $1 OR LOWER(email) LIKE $1 OR LOWER(COALESCE(city, '')) LIKE $1) ORDER BY resolved_count ASC LIMIT 10 OFFSET 10", volunteerColumns)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("%anna%").
		WillReturnRows(sqlmock.NewRows(volunteerColumnList))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM volunteers WHERE 1=1")).
		WithArgs("%anna%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.VolunteerFilter{
		Search:    "Anna",
		Page:      2,
		PageSize:  10,
		SortBy:    "resolved_count",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	query := fmt.Sprintf("SELECT %s FROM volunteers WHERE LOWER(email) = LOWER($1)", volunteerColumns)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("Vol@Example.com").
		WillReturnRows(volunteerRow("vol@example.com", nil))

	volunteer, err := repo.FindByEmail(context.Background(), "Vol@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "vol@example.com", volunteer.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryCreateDefaultsSchedule(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectExec("INSERT INTO volunteers").
		WithArgs("vol@example.com", "Vol One", nil, "hash", nil, false, "[]", 0, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	volunteer := &models.Volunteer{Email: "vol@example.com", FullName: "Vol One", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), volunteer))
	assert.Equal(t, "[]", volunteer.AvailabilityJSON, "an absent schedule is stored as an empty document")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectExec("DELETE FROM volunteers").
		WithArgs("ghost@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVolunteerRepositoryHolderOf(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewVolunteerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM volunteers WHERE active_report_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("vol@example.com"))

	email, err := repo.HolderOf(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "vol@example.com", email)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM volunteers WHERE active_report_id = $1")).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.HolderOf(context.Background(), 8)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
