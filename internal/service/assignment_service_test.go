package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genlink/genlink-api/internal/models"
	appErrors "github.com/genlink/genlink-api/pkg/errors"
)

type assignmentStoreMock struct {
	acceptResp   *models.Report
	acceptErr    error
	cancelResp   *models.Report
	cancelErr    error
	completeResp *models.Report
	completeErr  error
	lastEmail    string
	lastReportID int64
}

func (m *assignmentStoreMock) Accept(ctx context.Context, email string, reportID int64) (*models.Report, error) {
	m.lastEmail = email
	m.lastReportID = reportID
	return m.acceptResp, m.acceptErr
}

func (m *assignmentStoreMock) Cancel(ctx context.Context, email string) (*models.Report, error) {
	m.lastEmail = email
	return m.cancelResp, m.cancelErr
}

func (m *assignmentStoreMock) Complete(ctx context.Context, email string) (*models.Report, error) {
	m.lastEmail = email
	return m.completeResp, m.completeErr
}

type cacheInvalidatorMock struct {
	patterns []string
}

func (m *cacheInvalidatorMock) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func TestAssignmentServiceAccept(t *testing.T) {
	store := &assignmentStoreMock{acceptResp: &models.Report{ID: 7, Problem: "broken heating"}}
	cache := &cacheInvalidatorMock{}
	svc := NewAssignmentService(store, cache, nil, nil)

	detail, err := svc.Accept(context.Background(), "vol@example.com", 7)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusAccepted, detail.Status)
	assert.Equal(t, int64(7), detail.ID)
	assert.Equal(t, "vol@example.com", store.lastEmail)
	assert.NotEmpty(t, cache.patterns, "stats cache is invalidated on assignment writes")
}

func TestAssignmentServiceAcceptErrorsPassThrough(t *testing.T) {
	cases := []error{
		appErrors.ErrAlreadyAssigned,
		appErrors.ErrReportTaken,
		appErrors.ErrReportCompleted,
		appErrors.Clone(appErrors.ErrNotFound, "report 9 not found"),
	}
	for _, storeErr := range cases {
		store := &assignmentStoreMock{acceptErr: storeErr}
		cache := &cacheInvalidatorMock{}
		svc := NewAssignmentService(store, cache, nil, nil)

		_, err := svc.Accept(context.Background(), "vol@example.com", 9)
		require.Error(t, err)
		assert.Equal(t, storeErr, err)
		assert.Empty(t, cache.patterns, "failed writes must not invalidate the cache")
	}
}

func TestAssignmentServiceCancel(t *testing.T) {
	store := &assignmentStoreMock{cancelResp: &models.Report{ID: 3}}
	svc := NewAssignmentService(store, &cacheInvalidatorMock{}, nil, nil)

	detail, err := svc.Cancel(context.Background(), "vol@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, detail.Status, "cancel returns the report to pending")
}

func TestAssignmentServiceCancelNoActiveReport(t *testing.T) {
	store := &assignmentStoreMock{cancelErr: appErrors.ErrNoActiveReport}
	svc := NewAssignmentService(store, &cacheInvalidatorMock{}, nil, nil)

	_, err := svc.Cancel(context.Background(), "vol@example.com")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoActiveReport))
}

func TestAssignmentServiceComplete(t *testing.T) {
	now := time.Now().UTC()
	email := "vol@example.com"
	store := &assignmentStoreMock{completeResp: &models.Report{ID: 5, CompletedAt: &now, CompletedBy: &email}}
	svc := NewAssignmentService(store, &cacheInvalidatorMock{}, nil, nil)

	detail, err := svc.Complete(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusCompleted, detail.Status)
	require.NotNil(t, detail.CompletedBy)
	assert.Equal(t, email, *detail.CompletedBy)
}

func TestAssignmentServiceNilCache(t *testing.T) {
	store := &assignmentStoreMock{acceptResp: &models.Report{ID: 1}}
	svc := NewAssignmentService(store, nil, nil, nil)

	_, err := svc.Accept(context.Background(), "vol@example.com", 1)
	assert.NoError(t, err)
}
