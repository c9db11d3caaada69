package models

import "time"

// ReportStatus is the derived lifecycle state of a report. It is computed
// from the holder link and completed_at; it is never stored.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusAccepted  ReportStatus = "accepted"
	ReportStatusCompleted ReportStatus = "completed"
)

// Report is a problem report submitted by the public.
type Report struct {
	ID            int64      `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"full_name"`
	Phone         string     `db:"phone" json:"phone"`
	Age           *int       `db:"age" json:"age,omitempty"`
	Address       string     `db:"address" json:"address"`
	City          string     `db:"city" json:"city"`
	Problem       string     `db:"problem" json:"problem"`
	ContactOK     bool       `db:"contact_ok" json:"contact_ok"`
	Details       *string    `db:"details" json:"details,omitempty"`
	ReportTypeID  int64      `db:"report_type_id" json:"report_type_id"`
	ReporterEmail *string    `db:"reporter_email" json:"reporter_email,omitempty"`
	Reviewed      bool       `db:"reviewed" json:"reviewed"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	AcceptedAt    *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy   *string    `db:"completed_by" json:"completed_by,omitempty"`
}

// StatusFor derives the lifecycle state given whether some volunteer
// currently holds the report. The three states are mutually exclusive.
func (r *Report) StatusFor(held bool) ReportStatus {
	switch {
	case r.CompletedAt != nil:
		return ReportStatusCompleted
	case held:
		return ReportStatusAccepted
	default:
		return ReportStatusPending
	}
}

// ReportDetail is the read projection: the stored record plus the derived
// status.
type ReportDetail struct {
	Report
	Status ReportStatus `json:"status"`
}

// ReportFilter captures the pending-listing filters.
type ReportFilter struct {
	ReportTypeID *int64
	City         string
	Search       string
	DateFrom     *time.Time
	DateTo       *time.Time
	Skip         int
	Limit        int
}

// ReportStatistics summarizes outstanding work. Counts cover pending reports
// only: completed and currently-accepted reports are excluded.
type ReportStatistics struct {
	TotalPending int64           `json:"total_pending"`
	ByType       map[int64]int64 `json:"by_type"`
}

// AverageResponse is the public responsiveness metric. Minutes is nil when no
// report has ever been accepted, or when the metric is gated off.
type AverageResponse struct {
	AverageResponseMinutes *float64 `json:"average_response_minutes"`
}
